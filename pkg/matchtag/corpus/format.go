package corpus

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cognicore/matchtag/pkg/matchtag/article"
)

// FormatFile prepares every record of a corpus file (id assignment and text
// normalization) and rewrites the file in place. The rewrite goes through a
// temporary file and a rename, so a crash leaves either the old or the new
// file. It returns the number of records that were changed.
func FormatFile(path string) (int, error) {
	records, err := LoadFile(path)
	if err != nil {
		return 0, err
	}

	changed := 0
	for i := range records {
		ok, err := article.Prepare(&records[i])
		if err != nil {
			return 0, fmt.Errorf("prepare %s record %d: %w", path, i+1, err)
		}
		if ok {
			changed++
		}
	}
	if changed == 0 {
		return 0, nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, r := range records {
		line, err := r.MarshalJSON()
		if err != nil {
			tmp.Close()
			return 0, err
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("replace %s: %w", path, err)
	}
	return changed, nil
}

// FormatDir runs FormatFile over every corpus file at path.
func FormatDir(path string) (int, error) {
	files, err := Files(path)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, f := range files {
		n, err := FormatFile(f)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
