package loader

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/atinyakov/hashloader/internal/format"
)

// LeftFunc receives each record that survives pot reconciliation.
type LeftFunc func(p *Password)

// FinalizeStats summarizes Finalize.
type FinalizeStats struct {
	Total    int
	Filtered int
	Cracked  int
	Left     int
}

// Finalize assembles the bucket list, drops the dedup index, filters
// buckets by population and cost, removes records marked by pot
// reconciliation, orders the buckets and builds their digest indices.
// The database is read-only afterwards.
func (d *Database) Finalize(left LeftFunc) (FinalizeStats, error) {
	if d.loaded {
		return FinalizeStats{}, ErrFinalized
	}
	st := FinalizeStats{Total: d.PasswordCount}

	d.salts = d.gatherSalts()
	for _, s := range d.salts {
		s.next = nil
	}
	d.dedup, d.dedupFunc = nil, nil

	_, hasher := d.format.(format.SaltHasher)
	keepSaltTable := d.format != nil && hasher && d.opts.memSaving() < 2
	d.saltHash = nil

	d.filterSalts()
	d.filterCosts()
	st.Filtered = st.Total - d.PasswordCount

	st.Cracked = d.removeMarked(left)
	d.costRanges()
	d.sortSalts(keepSaltTable)
	d.initHash()
	d.loaded = true

	st.Left = d.PasswordCount
	d.log.Info("database finalized",
		zap.Int("salts", d.SaltCount),
		zap.Int("passwords", d.PasswordCount),
		zap.Int("filtered", st.Filtered),
		zap.Int("cracked", st.Cracked))
	return st, nil
}

// compact keeps the buckets for which keep returns true. Dropped buckets
// have their salt released and their records subtracted from the counts.
func (d *Database) compact(keep func(*Salt) bool) {
	live := d.salts[:0]
	for _, s := range d.salts {
		if keep(s) {
			live = append(live, s)
			continue
		}
		d.SaltCount--
		d.PasswordCount -= s.Count
		d.ops.Release(s.Value)
	}
	clear(d.salts[len(live):])
	d.salts = live
}

func (d *Database) filterSalts() {
	lo, hi := d.opts.MinPPS, d.opts.MaxPPS
	if hi == 0 {
		if lo == 0 {
			return
		}
		hi = math.MaxInt
	}
	d.compact(func(s *Salt) bool { return s.Count >= lo && s.Count <= hi })
}

func (d *Database) filterCosts() {
	d.compact(func(s *Salt) bool {
		for i, c := range s.Cost {
			lo, hi := d.opts.costRange(i)
			if c < lo || c > hi {
				return false
			}
		}
		return true
	})
}

// removeMarked unlinks records marked by reconciliation and drops the
// buckets they leave empty. Survivors are passed to left.
func (d *Database) removeMarked(left LeftFunc) int {
	removed := 0
	for _, s := range d.salts {
		var head, tail *Password
		for p := s.list; p != nil; p = p.next {
			if p.Marked() {
				removed++
				s.Count--
				d.PasswordCount--
				continue
			}
			if tail == nil {
				head = p
			} else {
				tail.next = p
			}
			tail = p
			if left != nil {
				left(p)
			}
		}
		if tail != nil {
			tail.next = nil
		}
		s.list = head
	}

	live := d.salts[:0]
	for _, s := range d.salts {
		if s.list != nil {
			live = append(live, s)
			continue
		}
		d.SaltCount--
		d.ops.Release(s.Value)
	}
	clear(d.salts[len(live):])
	d.salts = live
	return removed
}

func (d *Database) costRanges() {
	for i := range d.MinCost {
		d.MinCost[i] = math.MaxUint32
		d.MaxCost[i] = 0
	}
	if d.format == nil {
		return
	}
	n := len(format.Costs(d.format))
	for _, s := range d.salts {
		for i := 0; i < n; i++ {
			d.MinCost[i] = min(d.MinCost[i], s.Cost[i])
			d.MaxCost[i] = max(d.MaxCost[i], s.Cost[i])
		}
	}
}

// sortSalts orders the buckets with the format comparator, or by
// descending population without one, and rebuilds the retained salt table
// pointing each slot at its first bucket in the new order.
func (d *Database) sortSalts(keepSaltTable bool) {
	if len(d.salts) >= 2 {
		if c, ok := d.format.(format.SaltComparer); ok {
			sort.SliceStable(d.salts, func(i, j int) bool {
				return c.SaltCompare(d.salts[i].Value, d.salts[j].Value) < 0
			})
		} else {
			sort.SliceStable(d.salts, func(i, j int) bool {
				return d.salts[i].Count > d.salts[j].Count
			})
		}
	}

	d.saltIndex = nil
	if keepSaltTable {
		d.indexSalts()
	}
}

// indexSalts points each salt table slot at its first bucket in the
// current order.
func (d *Database) indexSalts() {
	d.saltIndex = make(map[uint32]int, len(d.salts))
	for i, s := range d.salts {
		h := d.saltHashOf(s.Value)
		if _, ok := d.saltIndex[h]; !ok {
			d.saltIndex[h] = i
		}
	}
}

// SaltTableRetained reports whether the salt table survived Finalize.
func (d *Database) SaltTableRetained() bool { return d.saltIndex != nil }
