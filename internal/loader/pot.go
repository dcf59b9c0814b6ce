package loader

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/hashloader/internal/format"
)

const (
	linkedinLabel  = "raw-sha1-linkedin"
	linkedinPrefix = "$dynamic_26$"
	linkedinHexLen = 40
	linkedinZeroed = 5
	dynamicPrefix  = "$dynamic_"
	hexMarker      = "$HEX$"
)

// PotStats summarizes a reconciliation pass.
type PotStats struct {
	Lines  int
	Marked int
}

// LoadPotFile reconciles against a pot file. A missing file is not an
// error.
func (d *Database) LoadPotFile(ctx context.Context, path string) (PotStats, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return PotStats{}, nil
	}
	if err != nil {
		return PotStats{}, fmt.Errorf("open pot %s: %w", path, err)
	}
	defer f.Close()

	st, err := d.LoadPot(ctx, f)
	if err != nil {
		return st, fmt.Errorf("pot %s: %w", path, err)
	}
	return st, nil
}

// LoadPot marks every record whose ciphertext appears in the pot read
// from r. Before Finalize the marked records are removed by Finalize;
// afterwards they are removed when the pass ends.
func (d *Database) LoadPot(ctx context.Context, r io.Reader) (PotStats, error) {
	var st PotStats
	if !d.potEnabled() {
		d.log.Debug("pot reconciliation skipped")
		return st, nil
	}
	sep := string(d.opts.sep())
	err := eachLine(ctx, r, func(line string) error {
		st.Lines++
		ct, _, _ := strings.Cut(line, sep)
		st.Marked += d.markCracked(ct)
		return nil
	})
	d.afterMarking(st.Marked)
	return st, err
}

// MarkCracked marks the records matching the given pot ciphertexts and
// returns how many were marked.
func (d *Database) MarkCracked(ciphertexts ...string) int {
	if !d.potEnabled() {
		return 0
	}
	marked := 0
	for _, ct := range ciphertexts {
		marked += d.markCracked(ct)
	}
	d.afterMarking(marked)
	return marked
}

func (d *Database) potEnabled() bool {
	return d.format != nil && d.format.Params().Flags&format.FlagNotExact == 0
}

func (d *Database) markCracked(ciphertext string) int {
	f := d.format
	ciphertext = NormalizePot(ciphertext, d.opts.Format)
	if f.Valid(ciphertext) != 1 {
		return 0
	}
	piece := f.Split(ciphertext, 0)
	bin := f.Binary(piece)

	marked := 0
	mark := func(p *Password) {
		if p.Marked() || !bytes.Equal(bin, p.binary) || piece != p.Source(f) {
			return
		}
		p.binary = nil
		marked++
	}

	if d.dedup != nil {
		for p := d.dedup[d.dedupFunc(bin)]; p != nil; p = p.nextHash {
			mark(p)
		}
		return marked
	}
	for _, s := range d.Salts() {
		for p := s.list; p != nil; p = p.next {
			mark(p)
		}
	}
	return marked
}

// afterMarking compacts a finalized database, restores the cracking order
// and resizes the digest index of every bucket that remains.
func (d *Database) afterMarking(marked int) {
	if !d.loaded || marked == 0 {
		return
	}
	keepSaltTable := d.saltIndex != nil
	d.removeMarked(nil)
	d.sortSalts(keepSaltTable)
	d.initHash()
	d.log.Info("removed cracked hashes", zap.Int("count", marked))
}

// NormalizePot rewrites legacy pot ciphertexts into their current form.
func NormalizePot(ciphertext, pinned string) string {
	if strings.EqualFold(pinned, linkedinLabel) &&
		strings.HasPrefix(ciphertext, linkedinPrefix) &&
		!strings.HasPrefix(ciphertext, linkedinPrefix+strings.Repeat("0", linkedinZeroed)) {
		n := min(len(ciphertext), len(linkedinPrefix)+linkedinHexLen)
		b := []byte(ciphertext[:n])
		for i := len(linkedinPrefix); i < len(linkedinPrefix)+linkedinZeroed && i < n; i++ {
			b[i] = '0'
		}
		return string(b)
	}
	if strings.HasPrefix(ciphertext, dynamicPrefix) && strings.Contains(ciphertext, hexMarker) {
		return unescapeHex(ciphertext)
	}
	return ciphertext
}

// unescapeHex decodes every "$HEX$" run. Input that would decode to a NUL
// byte is returned unchanged.
func unescapeHex(s string) string {
	var out strings.Builder
	rest := s
	for {
		i := strings.Index(rest, hexMarker)
		if i < 0 {
			out.WriteString(rest)
			return out.String()
		}
		out.WriteString(rest[:i])
		rest = rest[i+len(hexMarker):]
		for len(rest) >= 2 {
			b, err := hex.DecodeString(rest[:2])
			if err != nil {
				break
			}
			if b[0] == 0 {
				return s
			}
			out.WriteByte(b[0])
			rest = rest[2:]
		}
	}
}
