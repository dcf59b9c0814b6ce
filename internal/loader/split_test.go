package loader_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/hashloader/internal/loader"
)

const (
	lmHex = "AABBCCDDEEFF00112233445566778899"
	ntHex = "31D6CFE0D16AE931B73C59D7E0C089C0"
)

func TestSplitLine_Passwd(t *testing.T) {
	l, ok := loader.SplitLine("alice:$dummy$abc123:1000:1000:Alice Smith:/home/alice:/bin/bash", loader.Options{})
	require.True(t, ok)

	assert.Equal(t, "alice", l.Login)
	assert.Equal(t, "$dummy$abc123", l.Ciphertext)
	assert.Equal(t, "1000", l.UID)
	assert.Equal(t, "1000", l.GID)
	assert.Equal(t, "Alice Smith", l.Gecos)
	assert.Equal(t, "/home/alice", l.Home)
	assert.Equal(t, "1000:1000:Alice Smith:/home/alice:/bin/bash", l.Source)

	for i := 6; i < 10; i++ {
		assert.Equal(t, "/", l.Fields[i], "field %d", i)
	}
}

func TestSplitLine_FullParse(t *testing.T) {
	l, ok := loader.SplitLine("alice:x:1000:1000:Alice:/home/alice:/bin/bash", loader.Options{Words: true})
	require.True(t, ok)
	assert.Equal(t, "/bin/bash", l.Shell)
	assert.Equal(t, "", l.Fields[7])
}

func TestSplitLine_PWDUMP(t *testing.T) {
	line := "bob:1001:" + lmHex + ":" + ntHex + ":comment:/home/bob:"
	l, ok := loader.SplitLine(line, loader.Options{})
	require.True(t, ok)

	assert.Equal(t, "bob", l.Login)
	assert.Equal(t, lmHex, l.Ciphertext)
	assert.Equal(t, "1001", l.UID)
	assert.Equal(t, "", l.GID)
	assert.Equal(t, "", l.Shell)
	assert.Equal(t, "comment", l.Gecos)
	assert.Equal(t, "/home/bob", l.Home)
	assert.Equal(t, "1001:"+lmHex+":"+ntHex+":comment:/home/bob:", l.Source)
}

func TestSplitLine_PWDUMPNoPassword(t *testing.T) {
	line := "guest:501:NO PASSWORD*********************:" + ntHex + ":::"
	l, ok := loader.SplitLine(line, loader.Options{})
	require.True(t, ok)
	assert.Equal(t, "", l.Ciphertext)
	assert.Equal(t, "501", l.UID)
}

func TestSplitLine_ChallengeResponse(t *testing.T) {
	line := "carol::CORP:" + strings.Repeat("1", 16) + ":" + strings.Repeat("2", 48) + ":" + strings.Repeat("3", 16)
	l, ok := loader.SplitLine(line, loader.Options{})
	require.True(t, ok)

	assert.Equal(t, "CORP", l.Gecos)
	assert.Equal(t, "", l.UID)
	assert.Equal(t, "", l.GID)
	assert.Equal(t, "", l.Home)
	assert.Equal(t, "", l.Shell)
}

func TestSplitLine_MasterPasswd(t *testing.T) {
	line := "root:$dummy$61:0:0::0:0:Charlie &:/root:/bin/csh"
	l, ok := loader.SplitLine(line, loader.Options{Words: true})
	require.True(t, ok)

	assert.Equal(t, "Charlie &", l.Gecos)
	assert.Equal(t, "/root", l.Home)
	assert.Equal(t, "/bin/csh", l.Shell)
}

func TestSplitLine_BareToken(t *testing.T) {
	tests := []struct {
		name string
		in   string
		ok   bool
		want string
	}{
		{"long token", "abcdefghijklm", true, "abcdefghijklm"},
		{"trimmed", " \tabcdefghijklmn \t", true, "abcdefghijklmn"},
		{"trailing separator", "abcdefghijklm:", true, "abcdefghijklm"},
		{"placeholder", "  $dummy$61 ", true, "$dummy$61"},
		{"plaintext placeholder", "$0$pw", true, "$0$pw"},
		{"tripcode", "abcdefghij", true, "abcdefghij"},
		{"too short", "abcdefghijkl", false, ""},
		{"crypt with one blank", " abcdefghijkl", true, " abcdefghijkl"},
		{"crypt with two blanks", "  abcdefghijk", true, "  abcdefghijk"},
		{"three blanks", "   abcdefghijk", false, ""},
		{"empty", "", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, ok := loader.SplitLine(tt.in, loader.Options{})
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, loader.NoUsername, l.Login)
			assert.Equal(t, tt.want, l.Ciphertext)
			assert.Equal(t, tt.want, l.Fields[1])
		})
	}
}

func TestSplitLine_NIS(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"+::0:0:::", false},
		{"+@staff:x:::", false},
		{"+:$dummy$61", true},
		{"+:abcdefghijklm", true},
		{"+alice:x", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, ok := loader.SplitLine(tt.in, loader.Options{})
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestSplitLine_Lists(t *testing.T) {
	line := func(login, uid, gid, shell string) string {
		return login + ":$dummy$61:" + uid + ":" + gid + ":gecos:/home/" + login + ":" + shell
	}
	tests := []struct {
		name string
		opts loader.Options
		in   string
		ok   bool
	}{
		{"allow login", loader.Options{Users: []string{"alice"}}, line("alice", "1", "1", "/bin/sh"), true},
		{"allow rejects other", loader.Options{Users: []string{"alice"}}, line("bob", "2", "1", "/bin/sh"), false},
		{"allow by uid", loader.Options{Users: []string{"2"}}, line("bob", "2", "1", "/bin/sh"), true},
		{"deny first", loader.Options{Users: []string{"-bob", "carol"}}, line("bob", "2", "1", "/bin/sh"), false},
		{"deny rest", loader.Options{Users: []string{"-bob", "carol"}}, line("carol", "3", "1", "/bin/sh"), false},
		{"deny passes other", loader.Options{Users: []string{"-bob"}}, line("alice", "1", "1", "/bin/sh"), true},
		{"deny group", loader.Options{Groups: []string{"-0"}}, line("root", "0", "0", "/bin/sh"), false},
		{"allow group", loader.Options{Groups: []string{"100"}}, line("alice", "1", "100", "/bin/sh"), true},
		{"deny shell basename", loader.Options{Shells: []string{"-nologin"}}, line("daemon", "2", "2", "/usr/sbin/nologin"), false},
		{"deny shell full path", loader.Options{Shells: []string{"-/bin/false"}}, line("ftp", "3", "3", "/bin/false"), false},
		{"allow shell", loader.Options{Shells: []string{"bash"}}, line("alice", "1", "1", "/bin/bash"), true},
		{"allow shell rejects", loader.Options{Shells: []string{"bash"}}, line("alice", "1", "1", "/bin/zsh"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := loader.SplitLine(tt.in, tt.opts)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestSplitLine_Separator(t *testing.T) {
	l, ok := loader.SplitLine("alice;$dummy$61;1000", loader.Options{FieldSep: ';'})
	require.True(t, ok)
	assert.Equal(t, "alice", l.Login)
	assert.Equal(t, "$dummy$61", l.Ciphertext)
	assert.Equal(t, "1000", l.UID)
}

func TestSplitLine_StripsCarriageReturn(t *testing.T) {
	l, ok := loader.SplitLine("alice:$dummy$61\r", loader.Options{})
	require.True(t, ok)
	assert.Equal(t, "$dummy$61", l.Ciphertext)
}
