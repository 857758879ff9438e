package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// LocalStorage persists rendered files on disk under a base directory.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./exports"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create exports directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// SafeName replaces characters that are unsafe in file names.
func SafeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// Save writes data to filename under the base dir and returns the full path.
// Existing files are replaced.
func (s *LocalStorage) Save(filename string, data []byte) (string, error) {
	path := s.Path(filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare export directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return path, nil
}

// Path resolves filename under the base directory. Names cannot escape it.
func (s *LocalStorage) Path(filename string) string {
	return filepath.Join(s.baseDir, filepath.Base(filepath.Clean("/"+filename)))
}
