package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const UploadsPrefix = "/uploads"

// LocalStore writes images to a directory served under UploadsPrefix.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Save(ctx context.Context, originalName string, data []byte) (string, error) {
	_, ext, err := Detect(originalName, data)
	if err != nil {
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := objectName(ext)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}

	return UploadsPrefix + "/" + name, nil
}

func (s *LocalStore) Delete(_ context.Context, location string) error {
	name, ok := strings.CutPrefix(location, UploadsPrefix+"/")
	if !ok || name == "" || name != filepath.Base(name) {
		return ErrForeignLocation
	}

	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}
