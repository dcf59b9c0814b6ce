package loader

import (
	"bytes"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/atinyakov/hashloader/internal/format"
)

// LoadStats counts the outcome of the lines of a load pass.
type LoadStats struct {
	Lines      int
	Loaded     int
	Duplicates int
	Rejected   int
	NoFormat   int
	Printable  int
}

// Add accumulates o into s.
func (s *LoadStats) Add(o LoadStats) {
	s.Lines += o.Lines
	s.Loaded += o.Loaded
	s.Duplicates += o.Duplicates
	s.Rejected += o.Rejected
	s.NoFormat += o.NoFormat
	s.Printable += o.Printable
}

// LoadLine loads a single credential line.
func (d *Database) LoadLine(line string) (LoadStats, error) {
	var st LoadStats
	if d.loaded {
		return st, ErrFinalized
	}
	err := d.loadLine(line, &st)
	return st, err
}

func (d *Database) loadLine(raw string, st *LoadStats) error {
	st.Lines++

	l, ok := SplitLine(raw, d.opts)
	if !ok {
		st.Rejected++
		return nil
	}
	count, err := d.resolve(&l)
	if err != nil {
		return err
	}
	if count < 0 {
		st.NoFormat++
		return nil
	}
	if count == 0 {
		st.Rejected++
		return nil
	}
	if count >= 2 {
		d.split = true
	}
	if d.dedup == nil {
		d.initDedup()
	}

	f := d.format
	_, custom := f.(format.SourceFormatter)
	pack := custom && f.Params().BinarySize <= SourceSlotSize

	var words []string
	for index := 0; index < count; index++ {
		piece := f.Split(l.Ciphertext, index)
		bin := f.Binary(piece)
		h := d.dedupFunc(bin)

		if d.opts.RejectPrintable && printable(bin, f.Params().BinarySize) {
			st.Printable++
			d.log.Warn("rejecting printable binary", zap.String("piece", piece))
			break
		}

		if !d.opts.Words && !d.skipDupes && d.isDuplicate(h, bin, piece) {
			d.nodup = true
			st.Duplicates++
			continue
		}

		s := d.bucketFor(piece)
		s.Count++
		d.PasswordCount++

		p := d.arena.alloc()
		p.next = s.list
		s.list = p
		p.nextHash = d.dedup[h]
		d.dedup[h] = p

		if custom {
			p.kind = SourceIsDigest
			p.setBinary(bin, pack)
		} else {
			p.kind = SourceIsText
			p.setBinary(bin, false)
			p.source = piece
		}

		if d.opts.Words {
			if words == nil {
				words = lineWords(l.Login, l.Gecos, l.Home, d.opts.PristineGecos)
			}
			p.Words = words
		}
		if d.opts.Login {
			setLogin(p, l, index, count, words)
		}
		st.Loaded++
	}
	return nil
}

// initDedup sizes the dedup index from the widest real digest hash the
// format offers, narrowed by the memory saving level.
func (d *Database) initDedup() {
	size := max(DedupWidth-d.opts.memSaving(), 0)
	var fn format.HashFunc
	for ; size >= 0; size-- {
		if fn = d.format.BinaryHash(size); fn != nil {
			break
		}
	}
	if fn == nil {
		size = 0
		fn = format.DefaultBinaryHash
		d.dedupDegenerate = true
	}
	d.dedupFunc = fn
	d.dedup = make([]*Password, format.HashSizes[size])

	if d.opts.NoDupeCheck {
		d.skipDupes = true
		d.log.Warn("no dupe-checking performed when loading hashes")
	}
}

func (d *Database) isDuplicate(h uint32, bin []byte, piece string) bool {
	collisions := 0
	for p := d.dedup[h]; p != nil; p = p.nextHash {
		if bytes.Equal(bin, p.binary) && piece == p.Source(d.format) {
			return true
		}
		collisions++
		if collisions <= CollisionsMax {
			continue
		}
		d.abandonDedup()
		return false
	}
	return false
}

func (d *Database) abandonDedup() {
	d.skipDupes = true
	label := zap.String("format", d.format.Params().Label)
	switch {
	case d.format.Params().BinarySize == 0:
		d.log.Warn("check for duplicates partially bypassed to speedup loading", label)
	case d.dedupDegenerate:
		d.log.Warn("excessive partial hash collisions detected", label,
			zap.String("cause", "format lacks proper binary hash functions"))
	default:
		d.log.Warn("excessive partial hash collisions detected", label)
	}
}

// bucketFor returns the bucket for the salt of piece, creating it on
// first use.
func (d *Database) bucketFor(piece string) *Salt {
	v := d.ops.Create(d.format.Salt(piece))
	h := d.saltHashOf(v)
	for s := d.saltHash[h]; s != nil; s = s.next {
		if d.ops.Equal(s.Value, v) {
			d.ops.Release(v)
			return s
		}
	}

	s := newSalt(v)
	for i, cost := range format.Costs(d.format) {
		s.Cost[i] = cost(v)
	}
	s.next = d.saltHash[h]
	d.saltHash[h] = s
	d.SaltCount++
	return s
}

func printable(bin []byte, size int) bool {
	size = min(size, len(bin))
	for _, c := range bin[:size] {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

func setLogin(p *Password, l Line, index, count int, words []string) {
	switch {
	case count >= 2 && count <= 9:
		p.Login = l.Login + ":" + strconv.Itoa(index+1)
		p.UID = l.UID
	case l.Login == NoUsername:
		p.Login = l.Login
	case words != nil && l.Login != "":
		p.Login = words[0]
	default:
		p.Login = l.Login
		p.UID = l.UID
	}
}

// lineWords derives the candidate words of a line: the login, the words
// of the gecos and login fields, optionally the whole gecos, and the last
// element of the home directory.
func lineWords(login, gecos, home string, pristine bool) []string {
	var words []string
	seen := make(map[string]bool)
	add := func(w string, unique bool) {
		if len(words) >= WordsMax || (unique && seen[w]) {
			return
		}
		seen[w] = true
		words = append(words, w)
	}
	separator := func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }

	if login != "" && login != NoUsername {
		add(login, false)
	}
	for _, w := range strings.FieldsFunc(gecos, separator) {
		add(w, true)
	}
	if login != NoUsername {
		for _, w := range strings.FieldsFunc(login, separator) {
			add(w, true)
		}
	}
	if pristine && gecos != "" {
		add(gecos, true)
	}
	if i := strings.LastIndexByte(home, '/'); i >= 0 && i+1 < len(home) {
		add(home[i+1:], true)
	}
	return words
}
