package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/atinyakov/hashloader/internal/formats"
	"github.com/atinyakov/hashloader/internal/loader"
	"github.com/atinyakov/hashloader/internal/models"
	"github.com/atinyakov/hashloader/internal/service"
)

const (
	ntEmpty = "31d6cfe0d16ae931b73c59d7e0c089c0"
	ntPass  = "8846f7eaee8fb117ad06bdd830b7586c"
)

func newLoaderService(t *testing.T, pots service.PotRepository, runs service.RunRepository, log *zap.Logger) *service.LoaderService {
	t.Helper()
	db, err := loader.New(loader.Options{Login: true}, formats.NewRegistry(), zap.NewNop())
	require.NoError(t, err)
	return service.NewLoaderService(db, pots, runs, log)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoaderService_LoadFiles(t *testing.T) {
	svc := newLoaderService(t, nil, nil, nil)
	a := writeFile(t, "a.txt", "alice:$NT$"+ntEmpty+"\nbob:$NT$"+ntPass+"\n")
	b := writeFile(t, "b.txt", "carol:$NT$"+ntEmpty+"\nbroken\n")

	st, err := svc.LoadFiles(context.Background(), a, b)
	require.NoError(t, err)

	assert.Equal(t, 4, st.Lines)
	assert.Equal(t, 2, st.Loaded)
	assert.Equal(t, 1, st.Duplicates)
	assert.Equal(t, 1, st.Rejected)

	run := svc.Run()
	assert.Equal(t, []string{a, b}, run.Files)
	assert.Equal(t, 4, run.Lines)
	assert.Equal(t, 2, run.Loaded)
	assert.Equal(t, 1, run.Duplicates)
	assert.Equal(t, 1, run.Rejected)
}

func TestLoaderService_LoadFilesStopsOnError(t *testing.T) {
	svc := newLoaderService(t, nil, nil, nil)
	a := writeFile(t, "a.txt", "alice:$NT$"+ntEmpty+"\n")

	st, err := svc.LoadFiles(context.Background(), a, filepath.Join(t.TempDir(), "missing"), a)
	require.Error(t, err)
	assert.Equal(t, 1, st.Loaded)
}

func TestLoaderService_ReconcilePotFile(t *testing.T) {
	svc := newLoaderService(t, nil, nil, nil)
	a := writeFile(t, "a.txt", "alice:$NT$"+ntEmpty+"\nbob:$NT$"+ntPass+"\n")
	pot := writeFile(t, "john.pot", "$NT$"+ntPass+":password\n")

	_, err := svc.LoadFiles(context.Background(), a)
	require.NoError(t, err)
	pst, err := svc.ReconcilePotFile(context.Background(), pot)
	require.NoError(t, err)
	assert.Equal(t, 1, pst.Marked)

	fst, err := svc.Finalize(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, fst.Cracked)
	assert.Equal(t, 1, svc.Stats().Passwords)
}

func TestLoaderService_ReconcileRepository(t *testing.T) {
	pots := &mockPotRepo{
		CrackedByFormatFunc: func(_ context.Context, labels []string) ([]string, error) {
			assert.Equal(t, []string{"NT"}, labels)
			return []string{"$NT$" + ntEmpty, "$NT$ffffffffffffffffffffffffffffffff"}, nil
		},
	}
	svc := newLoaderService(t, pots, nil, nil)
	a := writeFile(t, "a.txt", "alice:$NT$"+ntEmpty+"\nbob:$NT$"+ntPass+"\n")
	_, err := svc.LoadFiles(context.Background(), a)
	require.NoError(t, err)

	marked, err := svc.ReconcileRepository(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, marked)
}

func TestLoaderService_ReconcileRepositorySkipped(t *testing.T) {
	called := false
	pots := &mockPotRepo{
		CrackedByFormatFunc: func(context.Context, []string) ([]string, error) {
			called = true
			return nil, nil
		},
	}

	withoutFormat := newLoaderService(t, pots, nil, nil)
	marked, err := withoutFormat.ReconcileRepository(context.Background())
	require.NoError(t, err)
	assert.Zero(t, marked)
	assert.False(t, called)

	withoutRepo := newLoaderService(t, nil, nil, nil)
	marked, err = withoutRepo.ReconcileRepository(context.Background())
	require.NoError(t, err)
	assert.Zero(t, marked)
}

func TestLoaderService_ReconcileRepositoryError(t *testing.T) {
	wantErr := errors.New("db down")
	pots := &mockPotRepo{
		CrackedByFormatFunc: func(context.Context, []string) ([]string, error) { return nil, wantErr },
	}
	svc := newLoaderService(t, pots, nil, nil)
	_, err := svc.LoadFiles(context.Background(), writeFile(t, "a.txt", "alice:$NT$"+ntEmpty+"\n"))
	require.NoError(t, err)

	_, err = svc.ReconcileRepository(context.Background())
	assert.ErrorIs(t, err, wantErr)
}

func TestLoaderService_FinalizeRecordsRun(t *testing.T) {
	var saved models.Run
	runs := &mockRunRepo{
		SaveRunFunc: func(_ context.Context, run models.Run) error {
			saved = run
			return nil
		},
	}
	svc := newLoaderService(t, nil, runs, nil)
	a := writeFile(t, "a.txt", "alice:$NT$"+ntEmpty+"\nbob:$NT$"+ntPass+"\n")
	_, err := svc.LoadFiles(context.Background(), a)
	require.NoError(t, err)

	var left []string
	st, err := svc.Finalize(context.Background(), func(p *loader.Password) { left = append(left, p.Login) })
	require.NoError(t, err)

	assert.Equal(t, 2, st.Left)
	assert.ElementsMatch(t, []string{"alice", "bob"}, left)
	assert.Equal(t, "NT", saved.Format)
	assert.Equal(t, svc.Stats().ID, saved.ID)
	assert.Equal(t, []string{a}, saved.Files)
	assert.Equal(t, 2, saved.Left)
	assert.False(t, saved.FinishedAt.Before(saved.StartedAt))
}

func TestLoaderService_FinalizeRunSaveFailureLogged(t *testing.T) {
	runs := &mockRunRepo{
		SaveRunFunc: func(context.Context, models.Run) error { return errors.New("insert fail") },
	}
	core, logs := observer.New(zapcore.WarnLevel)
	svc := newLoaderService(t, nil, runs, zap.New(core))

	_, err := svc.Finalize(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("failed to record load run").Len())

	_, err = svc.Finalize(context.Background(), nil)
	assert.ErrorIs(t, err, loader.ErrFinalized)
}

func TestLoaderService_StatsAndSalts(t *testing.T) {
	svc := newLoaderService(t, nil, nil, nil)
	a := writeFile(t, "a.txt",
		"a:$pbkdf2-sha256$1000$73616c74$"+ntEmpty+ntEmpty+"\n"+
			"b:$pbkdf2-sha256$1000$73616c74$"+ntPass+ntPass+"\n"+
			"c:$pbkdf2-sha256$3000$706570706572$"+ntPass+ntEmpty+"\n")

	_, err := svc.LoadFiles(context.Background(), a)
	require.NoError(t, err)
	before := svc.Stats()
	assert.False(t, before.Finalized)
	assert.Nil(t, before.MinCost)

	_, err = svc.Finalize(context.Background(), nil)
	require.NoError(t, err)

	st := svc.Stats()
	assert.Equal(t, "PBKDF2-HMAC-SHA256", st.Format)
	assert.Equal(t, 2, st.Salts)
	assert.Equal(t, 3, st.Passwords)
	assert.True(t, st.Finalized)
	assert.Equal(t, []uint32{1000}, st.MinCost)
	assert.Equal(t, []uint32{3000}, st.MaxCost)

	salts := svc.Salts(0, 10)
	require.Len(t, salts, 2)
	assert.Equal(t, 0, salts[0].Index)
	assert.Equal(t, []uint32{1000}, salts[0].Cost)
	assert.Equal(t, 2, salts[0].Count)
	assert.Equal(t, -1, salts[0].HashSize)
	assert.Len(t, svc.Salts(1, 10), 1)
	assert.Empty(t, svc.Salts(5, 10))
	assert.Empty(t, svc.Salts(0, 0))

	one, ok := svc.Salt(0)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"a", "b"}, one.Logins)
	_, ok = svc.Salt(2)
	assert.False(t, ok)
}

func TestLoaderService_SaltsBeforeFinalizeConcurrent(t *testing.T) {
	svc := newLoaderService(t, nil, nil, nil)
	a := writeFile(t, "a.txt",
		"a:$pbkdf2-sha256$1000$73616c74$"+ntEmpty+ntEmpty+"\n"+
			"b:$pbkdf2-sha256$1000$73616c74$"+ntPass+ntPass+"\n"+
			"c:$pbkdf2-sha256$3000$706570706572$"+ntPass+ntEmpty+"\n")
	_, err := svc.LoadFiles(context.Background(), a)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]models.SaltSummary, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				results[i] = svc.Salts(0, 10)
				return
			}
			one, _ := svc.Salt(0)
			results[i] = []models.SaltSummary{one}
		}()
	}
	wg.Wait()

	for i, r := range results {
		if i%2 == 0 {
			require.Len(t, r, 2)
		} else {
			require.Len(t, r, 1)
		}
		total := 0
		for _, s := range r {
			total += s.Count
		}
		assert.Positive(t, total)
	}
	assert.False(t, svc.Stats().Finalized)
}
