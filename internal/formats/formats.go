// Package formats provides the hash formats shipped with hashloader.
package formats

import (
	"encoding/hex"
	"strings"

	"github.com/atinyakov/hashloader/internal/format"
)

// NewRegistry returns a registry with the built-in formats in probing
// order.
func NewRegistry() *format.Registry {
	return format.NewRegistry(
		NewLM(),
		NewNT(),
		NewPBKDF2(DefaultMaxSaltLen),
		NewDummy(),
	)
}

// Results holds the digests the matching engine computed for its current
// batch of candidates. GetHash reads from it.
type Results struct {
	out [][]byte
}

// Set stores the digest computed for candidate index.
func (r *Results) Set(index int, binary []byte) {
	for len(r.out) <= index {
		r.out = append(r.out, nil)
	}
	r.out[index] = binary
}

// Reset drops all computed digests.
func (r *Results) Reset() {
	r.out = r.out[:0]
}

func (r *Results) indexFunc(h format.HashFunc) format.IndexFunc {
	return func(i int) uint32 {
		if i < 0 || i >= len(r.out) || r.out[i] == nil {
			return 0
		}
		return h(r.out[i])
	}
}

// base carries the hash ladder and computed results shared by the
// built-in formats.
type base struct {
	Results
	ladder [format.HashWidths]format.HashFunc
}

func newBase(hash func([]byte) uint32, widths int) base {
	var b base
	full := format.HashLadder(hash)
	copy(b.ladder[:widths], full[:widths])
	return b
}

func (b *base) BinaryHash(w int) format.HashFunc {
	if w < 0 || w >= format.HashWidths {
		return nil
	}
	return b.ladder[w]
}

func (b *base) GetHash(w int) format.IndexFunc {
	h := b.BinaryHash(w)
	if h == nil {
		return format.NoIndex
	}
	return b.indexFunc(h)
}

func isHex(s string, n int) bool {
	if n >= 0 && len(s) != n {
		return false
	}
	if len(s)%2 != 0 {
		_, err := hex.DecodeString("0" + s)
		return err == nil
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}

func hasTag(s, tag string) bool {
	return len(s) >= len(tag) && strings.EqualFold(s[:len(tag)], tag)
}
