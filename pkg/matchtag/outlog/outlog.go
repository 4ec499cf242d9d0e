// Package outlog is the append-only output log of tagged articles, one JSON
// object per line.
package outlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/cognicore/matchtag/pkg/matchtag/article"
	"github.com/cognicore/matchtag/pkg/matchtag/internalerr"
)

// Writer appends tagged articles durably.
type Writer struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// Open opens path for appending, creating it and its directory if needed.
// A torn final line left by a crash mid-append is truncated away; the
// article it belonged to was never marked processed and will be redone.
func Open(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if err := repairTail(path); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output log %s: %w", path, err)
	}
	return &Writer{path: path, f: f}, nil
}

func repairTail(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open output log %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size == 0 {
		return nil
	}

	// Scan backwards for the last newline.
	const chunk = 4096
	buf := make([]byte, chunk)
	end := size
	for end > 0 {
		start := max(end-chunk, 0)
		n, err := f.ReadAt(buf[:end-start], start)
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if idx := bytes.LastIndexByte(buf[:n], '\n'); idx >= 0 {
			keep := start + int64(idx) + 1
			if keep == size {
				return nil
			}
			return f.Truncate(keep)
		}
		end = start
	}
	return f.Truncate(0)
}

// Path returns the file the writer appends to.
func (w *Writer) Path() string {
	return w.path
}

// Append writes one tagged article and syncs the file before returning.
func (w *Writer) Append(a article.Tagged) error {
	line, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", internalerr.ErrOutputWrite, a.ID(), err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.f.Write(line); err != nil {
		return fmt.Errorf("%w: write %s: %w", internalerr.ErrOutputWrite, a.ID(), err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %w", internalerr.ErrOutputWrite, a.ID(), err)
	}
	return nil
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

// Read returns every entry in the log in file order. A missing file is an
// empty log. Any malformed line fails the whole read.
func Read(path string) ([]article.Tagged, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []article.Tagged
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var t article.Tagged
		if err := json.Unmarshal(line, &t); err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %w", internalerr.ErrMalformedInput, path, lineNo, err)
		}
		out = append(out, t)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Dedup keeps the most recent entry for each id, in order of first
// appearance. Entries without an id are kept as is.
func Dedup(entries []article.Tagged) []article.Tagged {
	index := make(map[string]int, len(entries))
	out := make([]article.Tagged, 0, len(entries))
	for _, e := range entries {
		id := e.ID()
		if id == "" {
			out = append(out, e)
			continue
		}
		if i, ok := index[id]; ok {
			out[i] = e
			continue
		}
		index[id] = len(out)
		out = append(out, e)
	}
	return out
}

// IDs returns the set of ids present in the log at path.
func IDs(path string) (map[string]struct{}, error) {
	entries, err := Read(path)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if id := e.ID(); id != "" {
			ids[id] = struct{}{}
		}
	}
	return ids, nil
}
