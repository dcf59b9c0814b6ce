package loader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

const utf8BOM = "\xEF\xBB\xBF"

// Load reads credential lines from r until EOF or until ctx is done.
// Cancellation is checked between lines, so the records loaded so far
// stay consistent.
func (d *Database) Load(ctx context.Context, r io.Reader) (LoadStats, error) {
	var st LoadStats
	if d.loaded {
		return st, ErrFinalized
	}
	err := eachLine(ctx, r, func(line string) error {
		return d.loadLine(line, &st)
	})
	return st, err
}

// LoadFile loads a credential file, decoding it from the input encoding
// first when one is configured.
func (d *Database) LoadFile(ctx context.Context, path string) (LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return LoadStats{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r, err := Decode(f, d.opts.InputEncoding)
	if err != nil {
		return LoadStats{}, err
	}
	st, err := d.Load(ctx, r)
	if err != nil {
		return st, fmt.Errorf("load %s: %w", path, err)
	}
	d.log.Info("loaded password file",
		zap.String("path", path), zap.Int("lines", st.Lines), zap.Int("loaded", st.Loaded))
	return st, nil
}

// Decode wraps r with a decoder from the named encoding to UTF-8. Empty
// and UTF-8 names return r unchanged.
func Decode(r io.Reader, name string) (io.Reader, error) {
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return r, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("input encoding %q: %w", name, err)
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// eachLine calls fn for every line of r without its line terminator and
// without a leading byte order mark.
func eachLine(ctx context.Context, r io.Reader, fn func(string) error) error {
	br := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("interrupted: %w", err)
		}
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimPrefix(line, utf8BOM)
			line = strings.TrimRight(line, "\r\n")
			if ferr := fn(line); ferr != nil {
				return ferr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
	}
}
