// Package storage persists book cover images.
package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrUnsupportedImage = errors.New("unsupported file format")
	ErrEmptyImage       = errors.New("empty image")
	ErrForeignLocation  = errors.New("image location not owned by this store")
)

// ImageStore saves an uploaded image and returns the path or URL the
// browser should use to fetch it. Delete takes that same value; removing an
// object that is already gone is not an error.
type ImageStore interface {
	Save(ctx context.Context, originalName string, data []byte) (string, error)
	Delete(ctx context.Context, location string) error
}

var allowedImages = []string{"image/jpeg", "image/png", "image/gif"}

// Detect sniffs the content type and returns it with the extension the
// stored object should carry. The client's declared type is ignored.
func Detect(originalName string, data []byte) (contentType, ext string, err error) {
	if len(data) == 0 {
		return "", "", ErrEmptyImage
	}

	mt := mimetype.Detect(data)

	for _, allowed := range allowedImages {
		if !mt.Is(allowed) {
			continue
		}

		ext = strings.ToLower(filepath.Ext(originalName))
		if !extMatches(mt, ext) {
			ext = mt.Extension()
		}
		return allowed, ext, nil
	}

	return "", "", ErrUnsupportedImage
}

func extMatches(mt *mimetype.MIME, ext string) bool {
	if ext == "" {
		return false
	}
	if ext == mt.Extension() {
		return true
	}
	return mt.Is("image/jpeg") && ext == ".jpeg"
}

func objectName(ext string) string {
	return uuid.NewString() + ext
}
