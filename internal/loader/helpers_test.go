package loader_test

import (
	"bytes"
	"context"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/atinyakov/hashloader/internal/format"
	"github.com/atinyakov/hashloader/internal/formats"
	"github.com/atinyakov/hashloader/internal/loader"
)

// saltedFormat accepts "$t$<salt>$<16 hex>". It offers real digest hashes
// up to widths-1 and no salt hash.
type saltedFormat struct {
	label  string
	flags  format.Flags
	widths int
}

func (f *saltedFormat) Params() format.Params {
	return format.Params{Label: f.label, Flags: f.flags, BinarySize: 8}
}

func (f *saltedFormat) Valid(ct string) int {
	rest, ok := strings.CutPrefix(ct, "$t$")
	if !ok {
		return 0
	}
	_, digest, ok := strings.Cut(rest, "$")
	if !ok || len(digest) != 16 {
		return 0
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return 0
	}
	return 1
}

func (f *saltedFormat) Prepare(fields *format.Fields) string { return fields[1] }

func (f *saltedFormat) Split(ct string, _ int) string { return ct }

func (f *saltedFormat) Binary(piece string) []byte {
	i := strings.LastIndexByte(piece, '$')
	b, _ := hex.DecodeString(piece[i+1:])
	return b
}

func (f *saltedFormat) Salt(piece string) format.Salt {
	rest := strings.TrimPrefix(piece, "$t$")
	salt, _, _ := strings.Cut(rest, "$")
	return []byte(salt)
}

func (f *saltedFormat) SaltOps() format.SaltOps { return format.FlatSaltOps() }

func (f *saltedFormat) BinaryHash(w int) format.HashFunc {
	if w < 0 || w >= f.widths {
		return nil
	}
	return format.HashLadder(format.LeadingWord)[w]
}

func (f *saltedFormat) GetHash(int) format.IndexFunc { return format.NoIndex }

// hashedFormat adds a salt hash, so the salt table survives Finalize.
type hashedFormat struct {
	*saltedFormat
}

func (f hashedFormat) SaltHash(s format.Salt) uint32 {
	var h uint32
	for _, c := range s.([]byte) {
		h = h*31 + uint32(c)
	}
	return h & (format.SaltHashSize - 1)
}

// sortedFormat orders salts in reverse byte order.
type sortedFormat struct {
	hashedFormat
}

func (f sortedFormat) SaltCompare(a, b format.Salt) int {
	return -bytes.Compare(a.([]byte), b.([]byte))
}

func newSalted(label string, widths int) *saltedFormat {
	return &saltedFormat{label: label, widths: widths}
}

func saltedLine(login, salt string, n int) string {
	return login + ":$t$" + salt + "$" + hexN(n)
}

func hexN(n int) string {
	return hexOf(uint32(n)) + "00000000"
}

func hexOf(v uint32) string {
	b := []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	return hex.EncodeToString(b)
}

func newDB(t *testing.T, opts loader.Options, fs ...format.Format) *loader.Database {
	t.Helper()
	reg := formats.NewRegistry()
	if len(fs) > 0 {
		reg = format.NewRegistry(fs...)
	}
	db, err := loader.New(opts, reg, zap.NewNop())
	require.NoError(t, err)
	return db
}

func newObservedDB(t *testing.T, opts loader.Options, reg *format.Registry) (*loader.Database, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	db, err := loader.New(opts, reg, zap.New(core))
	require.NoError(t, err)
	return db, logs
}

func load(t *testing.T, db *loader.Database, lines ...string) loader.LoadStats {
	t.Helper()
	st, err := db.Load(context.Background(), strings.NewReader(strings.Join(lines, "\n")+"\n"))
	require.NoError(t, err)
	return st
}

func finalize(t *testing.T, db *loader.Database) loader.FinalizeStats {
	t.Helper()
	st, err := db.Finalize(nil)
	require.NoError(t, err)
	return st
}

func dummyLine(login string, n int) string {
	return login + ":$dummy$" + hexOf(uint32(n))
}

func sources(db *loader.Database) []string {
	var out []string
	for _, s := range db.Salts() {
		for _, p := range s.Passwords() {
			out = append(out, p.Source(db.Format()))
		}
	}
	return out
}

func countLive(db *loader.Database) (salts, passwords int) {
	for _, s := range db.Salts() {
		salts++
		passwords += s.Count
	}
	return salts, passwords
}
