// Package filestore keeps uploaded trainee files on the local disk.
package filestore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/futig/onboarding-bot/internal/pkg/validator"
)

type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

// Save writes data to {dir}/{userID}_{stepID}_{filename} and returns the path.
// The file name is sanitized; an existing file for the same step is replaced.
func (s *Store) Save(userID string, stepID int64, filename string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := fmt.Sprintf("%s_%d_%s", userID, stepID, validator.SanitizeFilename(filename))
	path := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}

	return path, nil
}

// Read returns a stored upload. Paths outside the store directory are refused.
func (s *Store) Read(path string) ([]byte, error) {
	dir, err := filepath.Abs(s.dir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve upload path: %w", err)
	}
	if filepath.Dir(abs) != dir {
		return nil, fmt.Errorf("%w: %s is outside the upload dir", entity.ErrInvalidParameter, path)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}
