// Package filestore wraps the filesystem operations used by the durable
// cache tier and by callers that persist formatted results to disk.
package filestore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Store performs basic file operations with logging.
type Store struct {
	log zerolog.Logger
}

// New creates a file store.
func New(log zerolog.Logger) *Store {
	return &Store{log: log.With().Str("component", "filestore").Logger()}
}

// Save writes content to path, optionally creating parent directories.
// Returns the path written.
func (s *Store) Save(path string, content []byte, createDir bool) (string, error) {
	if createDir {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", fmt.Errorf("creating directory for %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// Read returns the content of the file at path.
func (s *Store) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// Exists reports whether a regular file exists at path.
func (s *Store) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Delete removes the file at path and reports whether it was removed.
// A missing file is not an error but returns false.
func (s *Store) Delete(path string) bool {
	err := os.Remove(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", path).Msg("Failed to delete file")
		}
		return false
	}
	return true
}
