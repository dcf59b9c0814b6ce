// Package loader turns credential files into an indexed in-memory
// database ready for matching.
//
// Lines are split into fields, a format is resolved, duplicates are
// dropped and the records are grouped by salt. Finalize then filters and
// orders the salt buckets, removes records already present in a pot, and
// builds a digest index per bucket.
package loader

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/hashloader/internal/format"
)

var (
	// ErrFinalized is returned when loading into a finalized database.
	ErrFinalized = errors.New("database already finalized")
	// ErrUnknownFormat is returned when the pinned format is not registered.
	ErrUnknownFormat = errors.New("unknown format")
)

// Database holds the loaded credentials.
type Database struct {
	// ID identifies the database in logs and run records.
	ID uuid.UUID

	opts     Options
	registry *format.Registry
	log      *zap.Logger

	format format.Format
	ops    format.SaltOps
	split  bool
	nodup  bool

	dedup           []*Password
	dedupFunc       format.HashFunc
	dedupDegenerate bool
	skipDupes       bool

	saltHash  map[uint32]*Salt
	saltIndex map[uint32]int
	salts     []*Salt

	SaltCount     int
	PasswordCount int
	MinCost       [format.CostSlots]uint32
	MaxCost       [format.CostSlots]uint32

	arena  arena
	loaded bool
}

// New returns an empty database. A pinned format in opts must be present
// in registry.
func New(opts Options, registry *format.Registry, log *zap.Logger) (*Database, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Words {
		opts.Login = true
	}
	d := &Database{
		ID:       uuid.New(),
		opts:     opts,
		registry: registry,
		saltHash: make(map[uint32]*Salt),
	}
	d.log = log.With(zap.String("db", d.ID.String()))

	if opts.Format != "" {
		f, ok := registry.Lookup(opts.Format)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, opts.Format)
		}
		if err := d.setFormat(f); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Database) setFormat(f format.Format) error {
	if err := d.registry.Init(f); err != nil {
		return err
	}
	d.format = f
	d.ops = f.SaltOps()
	return nil
}

// Format returns the resolved format, nil before the first valid line.
func (d *Database) Format() format.Format { return d.format }

// Options returns the options the database was created with.
func (d *Database) Options() Options { return d.opts }

// Split reports whether any line produced more than one piece.
func (d *Database) Split() bool { return d.split }

// DuplicatesSeen reports whether dedup dropped at least one record.
func (d *Database) DuplicatesSeen() bool { return d.nodup }

// Loaded reports whether Finalize has run.
func (d *Database) Loaded() bool { return d.loaded }

// Salts returns the buckets. After Finalize this is the cracking order;
// before it, buckets come in salt hash order.
func (d *Database) Salts() []*Salt {
	if d.loaded {
		return d.salts
	}
	return d.gatherSalts()
}

// gatherSalts walks the salt table in hash order and numbers each bucket
// by its position in its chain.
func (d *Database) gatherSalts() []*Salt {
	keys := make([]uint32, 0, len(d.saltHash))
	for h := range d.saltHash {
		keys = append(keys, h)
	}
	slices.Sort(keys)

	out := make([]*Salt, 0, d.SaltCount)
	for _, h := range keys {
		id := 0
		for s := d.saltHash[h]; s != nil; s = s.next {
			s.SequentialID = id
			id++
			out = append(out, s)
		}
	}
	return out
}

// FindSalt returns the bucket holding salt v. After Finalize it uses the
// retained salt table when there is one and scans the buckets otherwise.
func (d *Database) FindSalt(v format.Salt) *Salt {
	if d.format == nil {
		return nil
	}
	if !d.loaded {
		for s := d.saltHash[d.saltHashOf(v)]; s != nil; s = s.next {
			if d.ops.Equal(s.Value, v) {
				return s
			}
		}
		return nil
	}
	start := 0
	if d.saltIndex != nil {
		i, ok := d.saltIndex[d.saltHashOf(v)]
		if !ok {
			return nil
		}
		start = i
	}
	for _, s := range d.salts[start:] {
		if d.ops.Equal(s.Value, v) {
			return s
		}
	}
	return nil
}

func (d *Database) saltHashOf(v format.Salt) uint32 {
	if h, ok := d.format.(format.SaltHasher); ok {
		return h.SaltHash(v) & (format.SaltHashSize - 1)
	}
	return 0
}
