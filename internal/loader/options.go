package loader

import "math"

const (
	// PasswordHashShift narrows the per-salt bitmap hash into the chain
	// table, which is a quarter of the bitmap size.
	PasswordHashShift = 2
	// DedupWidth is the widest hash the dedup index uses.
	DedupWidth = 4
	// CollisionsMax is the chain length a single dedup lookup may walk
	// before dedup is abandoned for the rest of the pass.
	CollisionsMax = 1000
	// WordsMax caps the word list derived from one line.
	WordsMax = 0xFFF
	// SourceSlotSize is the inline space a record reserves for its source.
	// Digests that fit are packed there.
	SourceSlotSize = 16
	// NoUsername is the login of records loaded from bare hash lines.
	NoUsername = "?"
)

// Options is the immutable configuration of one Database.
type Options struct {
	// FieldSep separates fields in credential and pot lines.
	FieldSep byte
	// Format pins the format label. Empty means autodetect.
	Format string
	// InputEncoding names the encoding of credential files. Empty means
	// UTF-8.
	InputEncoding string
	// MemSaving trades lookup speed for memory, 0 to 3.
	MemSaving int

	MinPPS int
	MaxPPS int
	// MinCost and MaxCost bound each tunable cost component. Missing
	// components are unbounded.
	MinCost []uint32
	MaxCost []uint32

	NoDupeCheck     bool
	RejectPrintable bool
	PristineGecos   bool
	// Words derives a word list per line. It implies Login and disables
	// dedup.
	Words bool
	// Login keeps login and uid on each record.
	Login bool
	// WarnAmbiguous keeps probing after the first matching format to
	// report other formats that also match.
	WarnAmbiguous bool

	Users  []string
	Groups []string
	Shells []string
}

func (o Options) sep() byte {
	if o.FieldSep == 0 {
		return ':'
	}
	return o.FieldSep
}

func (o Options) costRange(i int) (uint32, uint32) {
	lo, hi := uint32(0), uint32(math.MaxUint32)
	if i < len(o.MinCost) {
		lo = o.MinCost[i]
	}
	if i < len(o.MaxCost) && o.MaxCost[i] != 0 {
		hi = o.MaxCost[i]
	}
	return lo, hi
}

func (o Options) memSaving() int {
	return min(max(o.MemSaving, 0), 3)
}
