package loader

import (
	"bytes"

	"github.com/RoaringBitmap/roaring"

	"github.com/atinyakov/hashloader/internal/format"
)

// Salt is a bucket of records sharing one salt value.
type Salt struct {
	// Value is the owned salt, released through the format's SaltOps.
	Value format.Salt
	// Count is the number of live records.
	Count int
	// Cost holds the tunable cost components of Value.
	Cost [format.CostSlots]uint32
	// SequentialID is the position of the bucket within its salt hash
	// chain when the bucket list was assembled.
	SequentialID int
	// HashSize is the width of the digest index, or -1 for none.
	HashSize int
	// Index hashes computed candidates at HashSize.
	Index format.IndexFunc

	bitmap   *roaring.Bitmap
	hash     []*Password
	hashFunc format.HashFunc
	list     *Password
	next     *Salt
}

func newSalt(v format.Salt) *Salt {
	return &Salt{Value: v, HashSize: -1, Index: format.NoIndex}
}

// List returns the first record of the bucket. Records are in reverse
// arrival order.
func (s *Salt) List() *Password { return s.list }

// Passwords returns the records of the bucket in list order.
func (s *Salt) Passwords() []*Password {
	out := make([]*Password, 0, s.Count)
	for p := s.list; p != nil; p = p.next {
		out = append(out, p)
	}
	return out
}

// BitmapSize returns the domain of the digest bitmap, 0 without an index.
func (s *Salt) BitmapSize() int {
	if s.HashSize < 0 {
		return 0
	}
	return format.HashSizes[s.HashSize]
}

// ChainCount returns the number of index chains, 0 when records hang off
// a single chain.
func (s *Salt) ChainCount() int { return len(s.hash) }

// Lookup returns the head of the chain that may hold digests with the
// given width hash. Walk it with NextHash. Without an index every record
// is a candidate.
func (s *Salt) Lookup(hash uint32) *Password {
	if s.HashSize < 0 {
		return s.list
	}
	if !s.bitmap.Contains(hash) {
		return nil
	}
	if s.hash != nil {
		return s.hash[hash>>PasswordHashShift]
	}
	return s.list
}

// Match returns the live record whose digest equals binary.
func (s *Salt) Match(binary []byte) *Password {
	var p *Password
	if s.HashSize < 0 {
		for p = s.list; p != nil; p = p.next {
			if bytes.Equal(p.binary, binary) {
				return p
			}
		}
		return nil
	}
	for p = s.Lookup(s.hashFunc(binary)); p != nil; p = p.nextHash {
		if bytes.Equal(p.binary, binary) {
			return p
		}
	}
	return nil
}
