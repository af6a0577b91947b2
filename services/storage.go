package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// ErrObjectNotFound is returned by ReportStorage.Open for an unknown name
var ErrObjectNotFound = errors.New("stored report not found")

// ErrObjectExists is returned by ReportStorage.Save when the name is already taken
var ErrObjectExists = errors.New("stored report already exists")

// ReportStorage persists report files under flat names
type ReportStorage interface {
	// Save writes the contents of r under name and returns the stored name.
	// It never replaces an existing object.
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	// Open returns a reader for a stored report. The caller closes it.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
}

// LocalStorage keeps reports in a single directory on disk
type LocalStorage struct {
	dir string
}

// NewLocalStorage creates the directory if it does not exist
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStorage{dir: dir}, nil
}

// Dir returns the storage directory
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Path returns the on-disk path of a stored report
func (s *LocalStorage) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

func (s *LocalStorage) Save(ctx context.Context, name string, r io.Reader) (stored string, err error) {
	path := s.Path(name)
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return "", ErrObjectExists
	}
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer func() {
		if closeErr := dst.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close destination file: %w", closeErr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if _, err := io.Copy(dst, r); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return filepath.Base(name), nil
}

func (s *LocalStorage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(s.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open stored report: %w", err)
	}
	return f, nil
}

func (s *LocalStorage) Delete(ctx context.Context, name string) error {
	err := os.Remove(s.Path(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("file", name).Msg("failed to delete stored report")
		return err
	}
	return nil
}
