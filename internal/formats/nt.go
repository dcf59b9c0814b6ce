package formats

import (
	"encoding/hex"
	"strings"

	"github.com/atinyakov/hashloader/internal/format"
)

const ntTag = "$NT$"

// NT is the NTLM (MD4 of UTF-16LE) format.
type NT struct {
	base
}

// NewNT returns the NT format.
func NewNT() *NT {
	return &NT{base: newBase(format.LeadingWord, format.HashWidths)}
}

func (f *NT) Params() format.Params {
	return format.Params{
		Label:      "NT",
		Name:       "MD4",
		Flags:      format.FlagSplitUnifiesCase,
		BinarySize: 16,
	}
}

func (f *NT) Valid(ciphertext string) int {
	if hasTag(ciphertext, ntTag) && isHex(ciphertext[len(ntTag):], 32) {
		return 1
	}
	return 0
}

// Prepare picks the NT column of PWDUMP output.
func (f *NT) Prepare(fields *format.Fields) string {
	if isHex(fields[3], 32) {
		return ntTag + fields[3]
	}
	return fields[1]
}

func (f *NT) Split(ciphertext string, _ int) string {
	return ntTag + strings.ToLower(ciphertext[len(ntTag):])
}

func (f *NT) Binary(piece string) []byte {
	return mustHex(piece[len(ntTag):])
}

func (f *NT) Salt(string) format.Salt {
	return nil
}

func (f *NT) SaltOps() format.SaltOps {
	return format.FlatSaltOps()
}

func (f *NT) Source(_ string, binary []byte) string {
	return ntTag + hex.EncodeToString(binary)
}
