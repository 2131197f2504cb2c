// Package files stores per-key user files on local disk.
package files

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/oklog/ulid/v2"
)

var (
	// ErrNotFound is returned when a key folder or file does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrUnsupportedType is returned for content types Save does not accept.
	ErrUnsupportedType = errors.New("invalid file type")
	// ErrInvalidName is returned when a name sanitizes to nothing.
	ErrInvalidName = errors.New("invalid file name")
)

// Extensions accepted by Save, keyed by content type.
var Extensions = map[string]string{
	"text/json":        ".json",
	"application/json": ".json",
	"image/svg+xml":    ".svg",
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename reduces name to a single safe path component.
func SecureFilename(name string) string {
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

// Store keeps files under root, one folder per API key.
type Store struct {
	root string
}

// New creates a Store rooted at root.
func New(root string) *Store {
	return &Store{root: root}
}

// Dir returns the folder for key without creating it.
func (s *Store) Dir(key string) (string, error) {
	safe := SecureFilename(key)
	if safe == "" {
		return "", ErrInvalidName
	}
	return filepath.Join(s.root, safe), nil
}

// Save writes r under key using the extension implied by contentType and
// returns the stored file name.
func (s *Store) Save(key, name, contentType string, r io.Reader) (string, error) {
	ext, ok := Extensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", ErrUnsupportedType
	}
	base := SecureFilename(name)
	if base == "" {
		base = ulid.Make().String()
	}
	stored := base + ext
	if _, err := s.write(key, stored, r); err != nil {
		return "", err
	}
	return stored, nil
}

// Put writes r under key keeping the sanitized name and returns its path.
func (s *Store) Put(key, name string, r io.Reader) (string, error) {
	safe := SecureFilename(name)
	if safe == "" {
		return "", ErrInvalidName
	}
	return s.write(key, safe, r)
}

func (s *Store) write(key, name string, r io.Reader) (string, error) {
	dir, err := s.Dir(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	dest := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("failed to store file: %w", err)
	}
	return dest, nil
}

// List returns the names of every file under key's folder, sorted.
func (s *Store) List(key string) ([]string, error) {
	dir, err := s.Dir(key)
	if err != nil {
		return nil, ErrNotFound
	}

	names := []string{}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && !strings.HasPrefix(d.Name(), ".upload-") {
			names = append(names, d.Name())
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to list folder: %w", err)
	}

	sort.Strings(names)
	return names, nil
}

// Open opens name in key's folder for reading.
func (s *Store) Open(key, name string) (*os.File, error) {
	dir, err := s.Dir(key)
	if err != nil {
		return nil, ErrNotFound
	}
	safe := SecureFilename(name)
	if safe == "" || safe != name {
		return nil, ErrNotFound
	}

	f, err := os.Open(filepath.Join(dir, safe))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		f.Close()
		return nil, ErrNotFound
	}
	return f, nil
}
