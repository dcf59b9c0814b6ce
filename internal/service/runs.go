package service

import (
	"context"

	"github.com/atinyakov/hashloader/internal/models"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 100
)

// RunService lists recorded load runs by delegating to a RunRepository.
type RunService struct {
	repo RunRepository
}

// NewRunService constructs a RunService using the provided repository.
func NewRunService(repo RunRepository) *RunService {
	return &RunService{repo: repo}
}

// List returns the most recent runs. A non-positive limit selects the
// default and larger limits are capped.
func (s *RunService) List(ctx context.Context, limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}
	return s.repo.ListRuns(ctx, min(limit, maxRunLimit))
}
