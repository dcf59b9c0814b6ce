package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/hashloader/internal/format"
	"github.com/atinyakov/hashloader/internal/loader"
	"github.com/atinyakov/hashloader/internal/models"
)

const potBatch = 500

// PotImportStats counts the outcome of a pot import.
type PotImportStats struct {
	Lines        int
	Stored       int
	Unrecognized int
}

// PotService copies pot files into the pot repository.
type PotService struct {
	repo     PotRepository
	registry *format.Registry
	sep      byte
	log      *zap.Logger
}

// NewPotService constructs a PotService. Ciphertexts are attributed to
// the first enabled format of registry that accepts them as one piece.
func NewPotService(repo PotRepository, registry *format.Registry, sep byte, log *zap.Logger) *PotService {
	if sep == 0 {
		sep = ':'
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PotService{repo: repo, registry: registry, sep: sep, log: log}
}

// Import reads "ciphertext<sep>plaintext" lines from r and stores every
// recognized entry in its canonical form.
func (s *PotService) Import(ctx context.Context, r io.Reader) (PotImportStats, error) {
	var st PotImportStats
	batch := make([]models.PotEntry, 0, potBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.repo.Store(ctx, batch)
		if err != nil {
			return fmt.Errorf("store pot entries: %w", err)
		}
		st.Stored += n
		batch = batch[:0]
		return nil
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return st, fmt.Errorf("interrupted: %w", err)
		}
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		st.Lines++
		ct, plain, _ := strings.Cut(line, string(s.sep))
		entry, ok := s.canonical(loader.NormalizePot(ct, ""), plain)
		if !ok {
			st.Unrecognized++
			continue
		}
		batch = append(batch, entry)
		if len(batch) == potBatch {
			if err := flush(); err != nil {
				return st, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return st, fmt.Errorf("read pot: %w", err)
	}
	if err := flush(); err != nil {
		return st, err
	}

	s.log.Info("imported pot",
		zap.Int("lines", st.Lines), zap.Int("stored", st.Stored), zap.Int("unrecognized", st.Unrecognized))
	return st, nil
}

func (s *PotService) canonical(ct, plain string) (models.PotEntry, bool) {
	for _, f := range s.registry.List() {
		label := f.Params().Label
		if s.registry.Disabled(label) || f.Valid(ct) != 1 {
			continue
		}
		return models.PotEntry{Ciphertext: f.Split(ct, 0), Plaintext: plain, Format: label}, true
	}
	return models.PotEntry{}, false
}
