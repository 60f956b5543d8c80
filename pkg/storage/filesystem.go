package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrInvalidName is returned for names that would escape the base directory.
var ErrInvalidName = errors.New("invalid file name")

// LocalStorage persists files on disk under a base directory.
type LocalStorage struct {
	baseDir string
	mu      sync.Mutex
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./game-logs"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// Append writes data at the end of the named file, creating it when missing.
func (s *LocalStorage) Append(filename string, data []byte) error {
	path, err := s.resolve(filename)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s for append: %w", filename, err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("append %s: %w", filename, err)
	}
	return nil
}

// Open returns a read-only handle for the stored file. A missing file yields
// an error matching fs.ErrNotExist.
func (s *LocalStorage) Open(filename string) (*os.File, error) {
	path, err := s.resolve(filename)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	return file, nil
}

// Exists reports whether the named regular file is present.
func (s *LocalStorage) Exists(filename string) (bool, error) {
	path, err := s.resolve(filename)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", filename, err)
	}
	return info.Mode().IsRegular(), nil
}

// Path exposes the absolute location of a stored file.
func (s *LocalStorage) Path(filename string) (string, error) {
	return s.resolve(filename)
}

func (s *LocalStorage) resolve(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, filename)
	}
	return filepath.Join(s.baseDir, filename), nil
}
