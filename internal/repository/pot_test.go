package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/atinyakov/hashloader/internal/models"
)

func setupPotMock(t *testing.T) (*PostgresPotRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresPotRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

func TestCrackedByFormat_Success(t *testing.T) {
	repo, mock, cleanup := setupPotMock(t)
	defer cleanup()

	labels := []string{"NT"}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ciphertext FROM pot WHERE format = ANY($1)`)).
		WithArgs(pq.Array(labels)).
		WillReturnRows(sqlmock.NewRows([]string{"ciphertext"}).
			AddRow("$NT$31d6cfe0d16ae931b73c59d7e0c089c0").
			AddRow("$NT$8846f7eaee8fb117ad06bdd830b7586c"))

	cts, err := repo.CrackedByFormat(context.Background(), labels)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cts) != 2 || cts[0] != "$NT$31d6cfe0d16ae931b73c59d7e0c089c0" {
		t.Errorf("unexpected ciphertexts: %v", cts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCrackedByFormat_Error(t *testing.T) {
	repo, mock, cleanup := setupPotMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ciphertext FROM pot`)).
		WillReturnError(errors.New("query fail"))

	_, err := repo.CrackedByFormat(context.Background(), []string{"LM"})
	if err == nil || !regexp.MustCompile(`CrackedByFormat`).MatchString(err.Error()) {
		t.Errorf("expected CrackedByFormat error, got %v", err)
	}
}

func TestStore_Success(t *testing.T) {
	repo, mock, cleanup := setupPotMock(t)
	defer cleanup()

	entries := []models.PotEntry{
		{Ciphertext: "$dummy$61", Plaintext: "a", Format: "dummy"},
		{Ciphertext: "$dummy$62", Plaintext: "b", Format: "dummy"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO pot (ciphertext, plaintext, format)`)).
		WithArgs("$dummy$61", "a", "dummy").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO pot (ciphertext, plaintext, format)`)).
		WithArgs("$dummy$62", "b", "dummy").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	stored, err := repo.Store(context.Background(), entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored != 1 {
		t.Errorf("stored = %d; want 1", stored)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStore_InsertErrorRollsBack(t *testing.T) {
	repo, mock, cleanup := setupPotMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO pot`)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := repo.Store(context.Background(), []models.PotEntry{{Ciphertext: "$dummy$61"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStore_BeginError(t *testing.T) {
	repo, mock, cleanup := setupPotMock(t)
	defer cleanup()

	mock.ExpectBegin().WillReturnError(errors.New("no conn"))

	_, err := repo.Store(context.Background(), nil)
	if err == nil || !regexp.MustCompile(`begin tx`).MatchString(err.Error()) {
		t.Errorf("expected begin tx error, got %v", err)
	}
}
