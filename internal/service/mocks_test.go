package service_test

import (
	"context"

	"github.com/atinyakov/hashloader/internal/models"
)

type mockPotRepo struct {
	CrackedByFormatFunc func(ctx context.Context, labels []string) ([]string, error)
	StoreFunc           func(ctx context.Context, entries []models.PotEntry) (int, error)
}

func (m *mockPotRepo) CrackedByFormat(ctx context.Context, labels []string) ([]string, error) {
	return m.CrackedByFormatFunc(ctx, labels)
}
func (m *mockPotRepo) Store(ctx context.Context, entries []models.PotEntry) (int, error) {
	return m.StoreFunc(ctx, entries)
}

type mockRunRepo struct {
	SaveRunFunc  func(ctx context.Context, run models.Run) error
	ListRunsFunc func(ctx context.Context, limit int) ([]models.Run, error)
}

func (m *mockRunRepo) SaveRun(ctx context.Context, run models.Run) error {
	return m.SaveRunFunc(ctx, run)
}
func (m *mockRunRepo) ListRuns(ctx context.Context, limit int) ([]models.Run, error) {
	return m.ListRunsFunc(ctx, limit)
}
