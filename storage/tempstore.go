package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// stagePrefix marks files owned by TempStore; the janitor only touches these.
const stagePrefix = "ingest-"

// TempStore stages uploads in a local directory. Every staged file gets its own
// random name, so concurrent requests never share an artifact.
type TempStore struct {
	dir string
}

// NewTempStore creates dir if needed.
func NewTempStore(dir string) (*TempStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &TempStore{dir: dir}, nil
}

// Dir returns the staging directory.
func (s *TempStore) Dir() string { return s.dir }

// Stage copies r into a new file and returns its path. On error no file remains.
func (s *TempStore) Stage(ctx context.Context, ext string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, stagePrefix+uuid.NewString()+ext)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create staged file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write staged file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close staged file: %w", err)
	}
	return path, nil
}

// Release deletes a staged file. Deleting a file that is already gone succeeds.
func (s *TempStore) Release(path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
