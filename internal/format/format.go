// Package format defines the contract between the credential loader and
// the hash format plugins it consumes.
//
// A plugin recognizes its ciphertexts, splits them into canonical pieces,
// and exposes the binary digest, the salt and a ladder of digest hash
// functions of increasing width. The loader depends only on this contract,
// never on a concrete format.
package format

import "encoding/binary"

// Flags describe static properties of a format.
type Flags uint32

const (
	// FlagBitslice marks formats that compute many candidates at once, for
	// which per-salt indices pay off only at a higher population.
	FlagBitslice Flags = 1 << iota
	// FlagNotExact marks formats whose pot entries cannot prove a match.
	FlagNotExact
	// FlagSplitUnifiesCase marks formats whose Split lowercases hex.
	FlagSplitUnifiesCase
)

// HashWidths is the number of digest hash widths a format may offer.
const HashWidths = 7

// CostSlots is the number of tunable cost components a salt may carry.
const CostSlots = 3

// SaltHashSize bounds the values returned by SaltHasher.SaltHash.
const SaltHashSize = 1 << 20

// HashSizes is the domain of the digest hash at each width.
var HashSizes = [HashWidths]int{
	0x10,
	0x100,
	0x1000,
	0x10000,
	0x100000,
	0x1000000,
	0x8000000,
}

// HashThresholds is the minimum bucket population for which an index of
// the given width is worth building.
var HashThresholds = [HashWidths]int{
	3,
	0x10 / 10,
	0x100 / 15,
	0x1000 / 20,
	0x10000 / 25,
	0x100000 / 30,
	0x1000000 / 35,
}

// Params holds the static description of a format.
type Params struct {
	Label      string
	Name       string
	Flags      Flags
	BinarySize int
}

// Fields are the ten separator-delimited fields of a credential line.
// Index 0 is the login and index 1 the ciphertext.
type Fields [10]string

// Salt is an opaque, format-defined salt value.
type Salt any

// HashFunc hashes a binary digest into [0, HashSizes[w]).
type HashFunc func(binary []byte) uint32

// IndexFunc returns the width-specific hash of the candidate the engine
// computed at the given index.
type IndexFunc func(index int) uint32

// CostFunc extracts one tunable cost component from a salt.
type CostFunc func(salt Salt) uint32

// SaltOps is the salt lifecycle supplied by a format. Some salts carry
// nested allocations, so a flat copy is never assumed to be enough.
type SaltOps struct {
	// Create returns an owned copy of a salt extracted by Format.Salt.
	Create func(Salt) Salt
	// Equal reports whether two salts are interchangeable.
	Equal func(a, b Salt) bool
	// Release frees an owned salt that will not be stored.
	Release func(Salt)
}

// Format is the capability set every plugin implements.
type Format interface {
	Params() Params
	// Valid returns the number of pieces the ciphertext splits into, or 0
	// when it does not belong to the format.
	Valid(ciphertext string) int
	// Prepare derives the ciphertext from the line fields. It returns ""
	// when the fields carry nothing for this format.
	Prepare(fields *Fields) string
	Split(ciphertext string, index int) string
	Binary(piece string) []byte
	Salt(piece string) Salt
	SaltOps() SaltOps
	// BinaryHash returns the digest hash at width w, or nil if the format
	// has no real hash of that width.
	BinaryHash(w int) HashFunc
	// GetHash returns the matching hash over computed candidates.
	GetHash(w int) IndexFunc
}

// SaltHasher is implemented by formats that distribute salts over the
// salt table. Formats without it put every salt in one chain.
type SaltHasher interface {
	SaltHash(salt Salt) uint32
}

// SaltComparer is implemented by formats that need their salts processed
// in a particular order.
type SaltComparer interface {
	SaltCompare(a, b Salt) int
}

// CostReporter is implemented by formats with tunable cost parameters.
type CostReporter interface {
	TunableCosts() []CostFunc
}

// SourceFormatter is implemented by formats that rebuild the canonical
// ciphertext from the binary digest, so the text need not be stored.
type SourceFormatter interface {
	Source(stored string, binary []byte) string
}

// Initializer is implemented by formats with one-time setup.
type Initializer interface {
	Init() error
}

// NoIndex is the candidate hash used by buckets without an index.
func NoIndex(int) uint32 { return 0 }

// DefaultBinaryHash is the degenerate width-0 hash.
func DefaultBinaryHash([]byte) uint32 { return 0 }

// HashLadder builds the width functions over a base hash.
func HashLadder(base func([]byte) uint32) [HashWidths]HashFunc {
	var ladder [HashWidths]HashFunc
	for w := range ladder {
		mask := uint32(HashSizes[w] - 1)
		ladder[w] = func(b []byte) uint32 { return base(b) & mask }
	}
	return ladder
}

// LeadingWord returns the first four bytes of a digest as a little-endian
// integer, the usual base hash for digests that are already uniform.
func LeadingWord(b []byte) uint32 {
	if len(b) < 4 {
		var pad [4]byte
		copy(pad[:], b)
		return binary.LittleEndian.Uint32(pad[:])
	}
	return binary.LittleEndian.Uint32(b)
}

// Costs returns the cost extractors of f, if any.
func Costs(f Format) []CostFunc {
	r, ok := f.(CostReporter)
	if !ok {
		return nil
	}
	c := r.TunableCosts()
	if len(c) > CostSlots {
		c = c[:CostSlots]
	}
	return c
}

// Source returns the canonical ciphertext of a stored record.
func Source(f Format, stored string, binary []byte) string {
	if sf, ok := f.(SourceFormatter); ok {
		return sf.Source(stored, binary)
	}
	return stored
}
