package loader

import "github.com/atinyakov/hashloader/internal/format"

// SourceKind tells where a record keeps its canonical ciphertext.
type SourceKind uint8

const (
	// SourceIsText means the piece text is stored on the record.
	SourceIsText SourceKind = iota
	// SourceIsDigest means the format rebuilds the text from the binary,
	// which may be packed into the record's source slot.
	SourceIsDigest
)

// Password is one loaded credential.
type Password struct {
	binary []byte
	kind   SourceKind
	packed bool
	source string
	slot   [SourceSlotSize]byte

	Login string
	UID   string
	Words []string

	next     *Password
	nextHash *Password
}

// Binary returns the digest, or nil once the record is marked cracked.
func (p *Password) Binary() []byte { return p.binary }

// Marked reports whether reconciliation marked the record for removal.
func (p *Password) Marked() bool { return p.binary == nil }

// Kind reports how the source is stored.
func (p *Password) Kind() SourceKind { return p.kind }

// Packed reports whether the digest lives in the source slot.
func (p *Password) Packed() bool { return p.packed }

// Source returns the canonical ciphertext of the record.
func (p *Password) Source(f format.Format) string {
	return format.Source(f, p.source, p.binary)
}

// Next returns the following record of the same bucket.
func (p *Password) Next() *Password { return p.next }

// NextHash returns the following record of the same index chain.
func (p *Password) NextHash() *Password { return p.nextHash }

func (p *Password) setBinary(b []byte, pack bool) {
	if pack && len(b) <= SourceSlotSize {
		n := copy(p.slot[:], b)
		p.binary = p.slot[:n:n]
		p.packed = true
		return
	}
	p.binary = append(make([]byte, 0, len(b)), b...)
}

const arenaChunk = 1024

// arena hands out records from fixed chunks so their addresses stay
// stable while chains point at them.
type arena struct {
	chunk []Password
}

func (a *arena) alloc() *Password {
	if len(a.chunk) == cap(a.chunk) {
		a.chunk = make([]Password, 0, arenaChunk)
	}
	a.chunk = a.chunk[:len(a.chunk)+1]
	return &a.chunk[len(a.chunk)-1]
}
