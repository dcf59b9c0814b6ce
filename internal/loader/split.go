package loader

import (
	"strings"

	"github.com/atinyakov/hashloader/internal/format"
)

// Field length thresholds that tell the legacy layouts apart.
const (
	pwdumpHashLen     = 32
	l0phtChallengeLen = 16
	l0phtResponseLen  = 32
	tripcodeLen       = 10
	nisCiphertextLen  = 10
	minBareLen        = 13
)

// Line is a credential line split into fields.
type Line struct {
	Fields     format.Fields
	Login      string
	Ciphertext string
	UID        string
	GID        string
	Gecos      string
	Home       string
	Shell      string
	// Source is the line after the ciphertext field, with the uid put
	// back in front for PWDUMP lines.
	Source string
}

type fieldReader struct {
	rest string
	done bool
	sep  byte
}

// next returns the next field. Past the end it keeps returning "".
func (r *fieldReader) next() string {
	if r.done {
		return ""
	}
	if i := strings.IndexByte(r.rest, r.sep); i >= 0 {
		v := r.rest[:i]
		r.rest = r.rest[i+1:]
		return v
	}
	v := r.rest
	r.rest, r.done = "", true
	if i := strings.IndexAny(v, "\r\n"); i >= 0 {
		v = v[:i]
	}
	return v
}

func isPlaceholder(ct string) bool {
	return strings.HasPrefix(ct, "$dummy$") || strings.HasPrefix(ct, "$0$")
}

func trimBlank(s string) (string, int) {
	lead := 0
	for lead < len(s) && (s[lead] == ' ' || s[lead] == '\t') {
		lead++
	}
	end := len(s)
	for end > lead && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[lead:end], lead
}

// SplitLine splits raw into fields and applies the layout rules and the
// user, group and shell lists. It reports false for lines that must be
// skipped.
func SplitLine(raw string, opts Options) (Line, bool) {
	var l Line
	r := &fieldReader{rest: raw, sep: opts.sep()}

	l.Login = r.next()
	l.Ciphertext = r.next()
	l.Fields[0], l.Fields[1] = l.Login, l.Ciphertext

	if (l.Login == "+" || strings.HasPrefix(l.Login, "+@")) &&
		len(l.Ciphertext) < nisCiphertextLen && !isPlaceholder(l.Ciphertext) {
		return l, false
	}

	if l.Ciphertext == "" && r.done {
		ct, ok := bareToken(l.Login)
		if !ok {
			return l, false
		}
		l.Login, l.Ciphertext = NoUsername, ct
		l.Fields[0], l.Fields[1] = l.Login, l.Ciphertext
	}

	l.Source = r.rest

	if opts.Words || len(opts.Shells) > 0 {
		for i := 2; i < len(l.Fields); i++ {
			l.Fields[i] = r.next()
		}
	} else {
		for i := 2; i < 6; i++ {
			l.Fields[i] = r.next()
		}
		for i := 6; i < len(l.Fields); i++ {
			l.Fields[i] = "/"
		}
	}

	f := &l.Fields
	l.UID, l.GID, l.Gecos, l.Home, l.Shell = f[2], f[3], f[4], f[5], f[6]

	switch {
	case len(f[2]) == pwdumpHashLen || len(f[3]) == pwdumpHashLen:
		// user:uid:LM:NT:comment:home:
		l.UID = f[1]
		l.Ciphertext = f[2]
		if strings.HasPrefix(l.Ciphertext, "NO PASSWORD") {
			l.Ciphertext = ""
		}
		l.GID, l.Shell = "", ""
		l.Gecos, l.Home = f[4], f[5]
		l.Source = l.UID + string(opts.sep()) + l.Source
	case len(f[1]) == 0 && len(f[3]) >= l0phtChallengeLen &&
		len(f[4]) >= l0phtResponseLen && len(f[5]) >= l0phtChallengeLen:
		// user::domain:challenge:response:challenge
		l.UID, l.GID, l.Home, l.Shell = "", "", "", ""
		l.Gecos = f[2]
	case !strings.HasPrefix(f[5], "/") &&
		((f[5] == "0" && f[6] == "0") || strings.HasPrefix(f[8], "/") || strings.HasPrefix(f[9], "/")):
		// master.passwd
		l.Gecos, l.Home, l.Shell = f[7], f[8], f[9]
	}

	if rejectedBy(opts.Users, l.Login, l.UID) ||
		rejectedBy(opts.Groups, l.GID, l.GID) ||
		rejectedByShell(opts.Shells, l.Shell) {
		return l, false
	}
	return l, true
}

// bareToken extracts the hash from a line without separators. Short
// tokens are rejected except placeholders and tripcodes. Old crypt(3)
// hashes whose salt held blanks start one or two characters into the
// line and are taken back.
func bareToken(s string) (string, bool) {
	tok, lead := trimBlank(s)
	if isPlaceholder(tok) || len(tok) == tripcodeLen {
		return tok, true
	}
	start, end := lead, lead+len(tok)
	if end-start == 11 && start == 2 {
		start--
	}
	if end-start == 12 && start == 1 {
		start--
	}
	if end-start < minBareLen {
		return "", false
	}
	return s[start:end], true
}

// rejectedBy applies an allow or deny list. A list whose first entry
// starts with '-' denies its entries.
func rejectedBy(list []string, a, b string) bool {
	if len(list) == 0 {
		return false
	}
	if deny, ok := strings.CutPrefix(list[0], "-"); ok {
		for i, v := range list {
			if i == 0 {
				v = deny
			}
			if a == v || b == v {
				return true
			}
		}
		return false
	}
	for _, v := range list {
		if a == v || b == v {
			return false
		}
	}
	return true
}

func rejectedByShell(list []string, shell string) bool {
	if len(list) == 0 {
		return false
	}
	name := shell
	if i := strings.LastIndexByte(shell, '/'); i >= 0 {
		name = shell[i+1:]
	}
	return rejectedBy(list, shell, name)
}
