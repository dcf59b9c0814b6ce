package formats

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/atinyakov/hashloader/internal/format"
)

const (
	pbkdf2Tag = "$pbkdf2-sha256$"
	// DefaultMaxSaltLen is the longest salt, in bytes, NewRegistry accepts.
	DefaultMaxSaltLen = 64
	pbkdf2MaxSaltLen  = 128
	// pbkdf2 digests are uniform; widths above 2 buy nothing at the
	// bucket sizes this format sees.
	pbkdf2Widths = 3
)

// PBKDF2Salt is the salt of a PBKDF2-HMAC-SHA256 hash. Its salt bytes are
// a separate allocation, so copies must go through SaltOps.
type PBKDF2Salt struct {
	Iterations uint32
	Bytes      []byte
}

// PBKDF2 is the "$pbkdf2-sha256$<iterations>$<hex salt>$<hex digest>"
// format.
type PBKDF2 struct {
	base
	maxSalt  int
	released int
}

// NewPBKDF2 returns the format accepting salts up to maxSalt bytes.
func NewPBKDF2(maxSalt int) *PBKDF2 {
	return &PBKDF2{
		base:    newBase(format.LeadingWord, pbkdf2Widths),
		maxSalt: maxSalt,
	}
}

func (f *PBKDF2) Params() format.Params {
	return format.Params{
		Label:      "PBKDF2-HMAC-SHA256",
		Name:       "PBKDF2-SHA256",
		Flags:      format.FlagSplitUnifiesCase,
		BinarySize: 32,
	}
}

func (f *PBKDF2) Init() error {
	if f.maxSalt <= 0 || f.maxSalt > pbkdf2MaxSaltLen {
		return fmt.Errorf("max salt length %d out of range 1..%d", f.maxSalt, pbkdf2MaxSaltLen)
	}
	return nil
}

func (f *PBKDF2) parts(ciphertext string) (iter uint64, salt, digest string, ok bool) {
	if !strings.HasPrefix(ciphertext, pbkdf2Tag) {
		return 0, "", "", false
	}
	p := strings.Split(ciphertext[len(pbkdf2Tag):], "$")
	if len(p) != 3 {
		return 0, "", "", false
	}
	iter, err := strconv.ParseUint(p[0], 10, 32)
	if err != nil || iter == 0 {
		return 0, "", "", false
	}
	return iter, p[1], p[2], true
}

func (f *PBKDF2) Valid(ciphertext string) int {
	_, salt, digest, ok := f.parts(ciphertext)
	if !ok {
		return 0
	}
	if len(salt) == 0 || len(salt)%2 != 0 || len(salt) > 2*f.maxSalt || !isHex(salt, -1) {
		return 0
	}
	if !isHex(digest, 64) {
		return 0
	}
	return 1
}

func (f *PBKDF2) Prepare(fields *format.Fields) string {
	return fields[1]
}

func (f *PBKDF2) Split(ciphertext string, _ int) string {
	iter, salt, digest, _ := f.parts(ciphertext)
	return fmt.Sprintf("%s%d$%s$%s", pbkdf2Tag, iter, strings.ToLower(salt), strings.ToLower(digest))
}

func (f *PBKDF2) Binary(piece string) []byte {
	_, _, digest, _ := f.parts(piece)
	return mustHex(digest)
}

func (f *PBKDF2) Salt(piece string) format.Salt {
	iter, salt, _, _ := f.parts(piece)
	return &PBKDF2Salt{Iterations: uint32(iter), Bytes: mustHex(salt)}
}

func (f *PBKDF2) SaltOps() format.SaltOps {
	return format.SaltOps{
		Create: func(s format.Salt) format.Salt {
			in := s.(*PBKDF2Salt)
			return &PBKDF2Salt{Iterations: in.Iterations, Bytes: bytes.Clone(in.Bytes)}
		},
		Equal: func(a, b format.Salt) bool {
			x, y := a.(*PBKDF2Salt), b.(*PBKDF2Salt)
			return x.Iterations == y.Iterations && bytes.Equal(x.Bytes, y.Bytes)
		},
		Release: func(s format.Salt) {
			in := s.(*PBKDF2Salt)
			clear(in.Bytes)
			in.Bytes = nil
			f.released++
		},
	}
}

// Released returns how many salts were released through SaltOps.
func (f *PBKDF2) Released() int {
	return f.released
}

func (f *PBKDF2) SaltHash(s format.Salt) uint32 {
	in := s.(*PBKDF2Salt)
	var it [4]byte
	binary.LittleEndian.PutUint32(it[:], in.Iterations)
	d := xxhash.New()
	_, _ = d.Write(in.Bytes)
	_, _ = d.Write(it[:])
	return uint32(d.Sum64()) & (format.SaltHashSize - 1)
}

// SaltCompare orders salts by length first so that a shorter salt never
// follows a longer one in the same batch.
func (f *PBKDF2) SaltCompare(a, b format.Salt) int {
	x, y := a.(*PBKDF2Salt), b.(*PBKDF2Salt)
	if c := cmp.Compare(len(x.Bytes), len(y.Bytes)); c != 0 {
		return c
	}
	if c := bytes.Compare(x.Bytes, y.Bytes); c != 0 {
		return c
	}
	return cmp.Compare(x.Iterations, y.Iterations)
}

func (f *PBKDF2) TunableCosts() []format.CostFunc {
	return []format.CostFunc{
		func(s format.Salt) uint32 { return s.(*PBKDF2Salt).Iterations },
	}
}
