// Package uploads keeps uploaded spreadsheets on local disk until the worker
// archives them.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"rollbook/internal/apperr"
)

// Extensions lists the spreadsheet formats the roster importer can read.
var Extensions = map[string]bool{
	".xlsx": true, ".xlsm": true, ".xltx": true, ".xltm": true,
	".csv": true,
}

// Stored describes a file written by Save.
type Stored struct {
	Path     string
	Filename string
	Size     int64
}

// Store writes uploads under Dir with generated names.
type Store struct {
	Dir     string
	MaxSize int64
}

func NewStore(dir string, maxSize int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{Dir: dir, MaxSize: maxSize}, nil
}

// Save copies r to a new file. filename is the client-supplied name and only
// decides the extension.
func (s *Store) Save(r io.Reader, filename string) (Stored, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !Extensions[ext] {
		return Stored{}, apperr.Invalid("unsupported file type %q, upload an Excel workbook or CSV file", ext)
	}

	path := filepath.Join(s.Dir, uuid.NewString()+ext)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return Stored{}, fmt.Errorf("create upload: %w", err)
	}

	src := r
	if s.MaxSize > 0 {
		src = io.LimitReader(r, s.MaxSize+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && s.MaxSize > 0 && n > s.MaxSize {
		err = apperr.Invalid("file exceeds %d bytes", s.MaxSize)
	}
	if err != nil {
		_ = os.Remove(path)
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return Stored{}, err
		}
		return Stored{}, fmt.Errorf("write upload: %w", err)
	}
	return Stored{Path: path, Filename: filepath.Base(filename), Size: n}, nil
}

// Remove deletes a stored upload. Missing files are not an error.
func (s *Store) Remove(path string) error {
	if !s.owns(path) {
		return fmt.Errorf("refusing to remove %s outside %s", path, s.Dir)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) owns(path string) bool {
	dir, err := filepath.Abs(s.Dir)
	if err != nil {
		return false
	}
	p, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(dir, p)
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}
