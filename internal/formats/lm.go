package formats

import (
	"encoding/hex"
	"strings"

	"github.com/atinyakov/hashloader/internal/format"
)

const lmTag = "$LM$"

// LM is the LAN Manager format. A full 32-digit hash is two independent
// DES halves and loads as two pieces.
type LM struct {
	base
}

// NewLM returns the LM format.
func NewLM() *LM {
	return &LM{base: newBase(format.LeadingWord, format.HashWidths)}
}

func (f *LM) Params() format.Params {
	return format.Params{
		Label:      "LM",
		Name:       "DES",
		Flags:      format.FlagBitslice | format.FlagSplitUnifiesCase,
		BinarySize: 8,
	}
}

func (f *LM) Valid(ciphertext string) int {
	if hasTag(ciphertext, lmTag) && isHex(ciphertext[len(lmTag):], 16) {
		return 1
	}
	if isHex(ciphertext, 32) {
		return 2
	}
	return 0
}

// Prepare picks the LM column of PWDUMP output.
func (f *LM) Prepare(fields *format.Fields) string {
	if isHex(fields[2], 32) {
		return fields[2]
	}
	return fields[1]
}

func (f *LM) Split(ciphertext string, index int) string {
	if len(ciphertext) == 32 {
		return lmTag + strings.ToLower(ciphertext[16*index:16*index+16])
	}
	return lmTag + strings.ToLower(ciphertext[len(lmTag):])
}

func (f *LM) Binary(piece string) []byte {
	return mustHex(piece[len(lmTag):])
}

func (f *LM) Salt(string) format.Salt {
	return nil
}

func (f *LM) SaltOps() format.SaltOps {
	return format.FlatSaltOps()
}

// Source rebuilds the piece from the binary.
func (f *LM) Source(_ string, binary []byte) string {
	return lmTag + hex.EncodeToString(binary)
}
