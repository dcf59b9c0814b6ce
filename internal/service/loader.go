// Package service orchestrates load passes, pot sources and run records
// around a loader database, delegating persistence to repository
// interfaces.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/hashloader/internal/format"
	"github.com/atinyakov/hashloader/internal/loader"
	"github.com/atinyakov/hashloader/internal/models"
)

// PotRepository defines the pot persistence the services need.
type PotRepository interface {
	// CrackedByFormat returns the stored ciphertexts of the given formats.
	CrackedByFormat(ctx context.Context, labels []string) ([]string, error)
	// Store saves entries and returns how many were new.
	Store(ctx context.Context, entries []models.PotEntry) (int, error)
}

// RunRepository defines the run record persistence.
type RunRepository interface {
	SaveRun(ctx context.Context, run models.Run) error
	ListRuns(ctx context.Context, limit int) ([]models.Run, error)
}

// LoaderService drives one database through loading, pot reconciliation
// and finalization, and answers read-only queries about it afterwards.
type LoaderService struct {
	mu   sync.RWMutex
	db   *loader.Database
	pots PotRepository
	runs RunRepository
	log  *zap.Logger
	run  models.Run
	now  func() time.Time
}

// NewLoaderService wraps db. pots and runs may be nil when no PostgreSQL
// database is configured.
func NewLoaderService(db *loader.Database, pots PotRepository, runs RunRepository, log *zap.Logger) *LoaderService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &LoaderService{db: db, pots: pots, runs: runs, log: log, now: time.Now}
	s.run = models.Run{ID: db.ID.String(), StartedAt: s.now()}
	return s
}

// LoadFiles loads the credential files in order. It stops at the first
// file that fails and returns the counts accumulated so far.
func (s *LoaderService) LoadFiles(ctx context.Context, paths ...string) (loader.LoadStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total loader.LoadStats
	for _, path := range paths {
		st, err := s.db.LoadFile(ctx, path)
		total.Add(st)
		s.run.Files = append(s.run.Files, path)
		s.run.Lines += st.Lines
		s.run.Loaded += st.Loaded
		s.run.Duplicates += st.Duplicates
		s.run.Rejected += st.Rejected + st.NoFormat + st.Printable
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ReconcilePotFile marks the records cracked in a pot file.
func (s *LoaderService) ReconcilePotFile(ctx context.Context, path string) (loader.PotStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.LoadPotFile(ctx, path)
}

// ReconcileRepository marks the records whose ciphertexts the pot
// repository holds for the database format.
func (s *LoaderService) ReconcileRepository(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.db.Format()
	if s.pots == nil || f == nil {
		return 0, nil
	}
	label := f.Params().Label
	cts, err := s.pots.CrackedByFormat(ctx, []string{label})
	if err != nil {
		return 0, fmt.Errorf("pot repository: %w", err)
	}
	marked := s.db.MarkCracked(cts...)
	s.log.Info("reconciled with pot repository",
		zap.String("format", label), zap.Int("entries", len(cts)), zap.Int("marked", marked))
	return marked, nil
}

// Finalize finalizes the database and records the run. A failure to
// record the run is logged, not returned.
func (s *LoaderService) Finalize(ctx context.Context, left loader.LeftFunc) (loader.FinalizeStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.db.Finalize(left)
	if err != nil {
		return st, err
	}
	if f := s.db.Format(); f != nil {
		s.run.Format = f.Params().Label
	}
	s.run.Cracked = st.Cracked
	s.run.Left = st.Left
	s.run.FinishedAt = s.now()

	if s.runs != nil {
		if err := s.runs.SaveRun(ctx, s.run); err != nil {
			s.log.Warn("failed to record load run", zap.String("run", s.run.ID), zap.Error(err))
		}
	}
	return st, nil
}

// Run returns the run record as it stands.
func (s *LoaderService) Run() models.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run := s.run
	run.Files = append([]string(nil), s.run.Files...)
	return run
}

// Stats describes the database.
func (s *LoaderService) Stats() models.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := models.Stats{
		ID:         s.db.ID.String(),
		Salts:      s.db.SaltCount,
		Passwords:  s.db.PasswordCount,
		Split:      s.db.Split(),
		Duplicates: s.db.DuplicatesSeen(),
		Finalized:  s.db.Loaded(),
	}
	f := s.db.Format()
	if f == nil {
		return st
	}
	st.Format = f.Params().Label
	if n := len(format.Costs(f)); n > 0 && s.db.Loaded() {
		st.MinCost = append([]uint32(nil), s.db.MinCost[:n]...)
		st.MaxCost = append([]uint32(nil), s.db.MaxCost[:n]...)
	}
	return st
}

// Salts summarizes up to limit buckets starting at offset, in cracking
// order once finalized.
func (s *LoaderService) Salts(offset, limit int) []models.SaltSummary {
	defer s.lockSalts()()

	salts := s.db.Salts()
	if offset < 0 || offset >= len(salts) || limit <= 0 {
		return []models.SaltSummary{}
	}
	end := min(offset+limit, len(salts))
	out := make([]models.SaltSummary, 0, end-offset)
	for i := offset; i < end; i++ {
		out = append(out, s.summary(i, salts[i]))
	}
	return out
}

// Salt summarizes the bucket at index including its logins.
func (s *LoaderService) Salt(index int) (models.SaltSummary, bool) {
	defer s.lockSalts()()

	salts := s.db.Salts()
	if index < 0 || index >= len(salts) {
		return models.SaltSummary{}, false
	}
	sum := s.summary(index, salts[index])
	for _, p := range salts[index].Passwords() {
		sum.Logins = append(sum.Logins, p.Login)
	}
	return sum, true
}

// lockSalts locks the service for a bucket listing and returns the
// unlock. Before Finalize, listing numbers the buckets in place and needs
// the write lock.
func (s *LoaderService) lockSalts() func() {
	s.mu.RLock()
	if s.db.Loaded() {
		return s.mu.RUnlock
	}
	s.mu.RUnlock()
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *LoaderService) summary(i int, salt *loader.Salt) models.SaltSummary {
	sum := models.SaltSummary{
		Index:        i,
		SequentialID: salt.SequentialID,
		Count:        salt.Count,
		HashSize:     salt.HashSize,
		BitmapSize:   salt.BitmapSize(),
	}
	if n := len(format.Costs(s.db.Format())); n > 0 {
		sum.Cost = append([]uint32(nil), salt.Cost[:n]...)
	}
	return sum
}
