// Package output writes the fetched article set to disk.
package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sternrassler/wikitop/pkg/pagination"
	"github.com/klauspost/compress/gzip"
)

// ErrNotJSONPath is returned for output paths without a .json extension.
var ErrNotJSONPath = errors.New("file must have a .json extension")

// Options controls how articles are written.
type Options struct {
	// Gzip additionally writes a gzip-compressed copy at path + ".gz".
	Gzip bool
}

// ValidatePath checks that path names a .json file.
func ValidatePath(path string) error {
	if !strings.HasSuffix(path, ".json") {
		return fmt.Errorf("%w: %q", ErrNotJSONPath, path)
	}
	return nil
}

// Encode renders articles as two-space indented UTF-8 JSON without HTML escaping.
func Encode(articles []pagination.Article) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(articles); err != nil {
		return nil, fmt.Errorf("encode articles: %w", err)
	}
	// Encoder appends a newline; keep the file ending exactly at the closing bracket.
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// WriteJSON writes articles to path and reports whether anything was written.
// An empty article set writes nothing. Files are written to a temporary name
// and renamed into place, so a failed write never leaves a partial file.
func WriteJSON(path string, articles []pagination.Article, opts Options) (bool, error) {
	if len(articles) == 0 {
		return false, nil
	}
	if err := ValidatePath(path); err != nil {
		return false, err
	}

	data, err := Encode(articles)
	if err != nil {
		return false, err
	}

	if err := writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}); err != nil {
		return false, err
	}

	if opts.Gzip {
		if err := writeAtomic(path+".gz", func(w io.Writer) error {
			zw := gzip.NewWriter(w)
			if _, err := zw.Write(data); err != nil {
				zw.Close()
				return err
			}
			return zw.Close()
		}); err != nil {
			return true, err
		}
	}

	return true, nil
}

// writeAtomic writes via fill into a temp file next to path, then renames it.
func writeAtomic(path string, fill func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = fill(tmp); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
