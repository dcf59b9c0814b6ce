package formats

import (
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/atinyakov/hashloader/internal/format"
)

const (
	dummyTag        = "$dummy$"
	dummyBinarySize = 32
)

// Dummy is the "$dummy$<hex plaintext>" test format. Its binary is the
// plaintext itself, zero padded.
type Dummy struct {
	base
}

// NewDummy returns the dummy format.
func NewDummy() *Dummy {
	return &Dummy{base: newBase(func(b []byte) uint32 { return uint32(xxhash.Sum64(b)) }, format.HashWidths)}
}

func (d *Dummy) Params() format.Params {
	return format.Params{
		Label:      "dummy",
		Name:       "N/A",
		Flags:      format.FlagSplitUnifiesCase,
		BinarySize: dummyBinarySize,
	}
}

func (d *Dummy) Valid(ciphertext string) int {
	if !strings.HasPrefix(ciphertext, dummyTag) {
		return 0
	}
	h := ciphertext[len(dummyTag):]
	if len(h)%2 != 0 || len(h) > 2*dummyBinarySize || !isHex(h, -1) {
		return 0
	}
	return 1
}

func (d *Dummy) Prepare(fields *format.Fields) string {
	return fields[1]
}

func (d *Dummy) Split(ciphertext string, _ int) string {
	return dummyTag + strings.ToLower(ciphertext[len(dummyTag):])
}

func (d *Dummy) Binary(piece string) []byte {
	out := make([]byte, dummyBinarySize)
	copy(out, mustHex(piece[len(dummyTag):]))
	return out
}

func (d *Dummy) Salt(string) format.Salt {
	return nil
}

func (d *Dummy) SaltOps() format.SaltOps {
	return format.FlatSaltOps()
}
