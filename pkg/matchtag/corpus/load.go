// Package corpus reads raw match reports from the local corpus folder and
// keeps that folder in step with the remote object store.
package corpus

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/cognicore/matchtag/pkg/matchtag/article"
	"github.com/cognicore/matchtag/pkg/matchtag/internalerr"
)

// Ext is the extension of corpus files.
const Ext = ".jl"

// ParseError reports an unparseable corpus line.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: malformed record: %v", e.Path, e.Line, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{internalerr.ErrMalformedInput, e.Err}
}

// Files returns the corpus files at path: the file itself, or every *.jl
// file directly inside a directory in lexical order.
func Files(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("corpus %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	matches, err := filepath.Glob(filepath.Join(path, "*"+Ext))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// Load reads every record found at path in file order. A single malformed
// line aborts the read; blank lines are skipped.
func Load(path string) ([]article.Record, error) {
	files, err := Files(path)
	if err != nil {
		return nil, err
	}
	var records []article.Record
	for _, f := range files {
		recs, err := LoadFile(f)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}
	return records, nil
}

// LoadFile reads one newline delimited corpus file.
func LoadFile(path string) ([]article.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	defer f.Close()

	var records []article.Record
	err = eachLine(f, func(n int, line []byte) error {
		var r article.Record
		if err := r.UnmarshalJSON(line); err != nil {
			return &ParseError{Path: path, Line: n, Err: err}
		}
		records = append(records, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// eachLine calls fn for every non-blank line. Lines have no length limit.
func eachLine(r io.Reader, fn func(n int, line []byte) error) error {
	br := bufio.NewReader(r)
	for n := 1; ; n++ {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
				if ferr := fn(n, trimmed); ferr != nil {
					return ferr
				}
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
