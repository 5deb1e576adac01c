// Package storage persists product images behind a tiny Put/Delete
// interface with local-disk and S3 drivers.
package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
)

// ErrUnsupportedType is returned when the upload is not a recognized
// image format.
var ErrUnsupportedType = errors.New("storage: unsupported file type")

type PutInput struct {
	Filename    string
	ContentType string
	Size        int64
}

type PutResult struct {
	Key string
	URL string
}

type Storage interface {
	Put(ctx context.Context, r io.Reader, in PutInput) (PutResult, error)
	Delete(ctx context.Context, key string) error
}

// imageExt returns the lowercase extension when the filename looks like
// an image we serve, or ErrUnsupportedType otherwise.
func imageExt(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp", ".gif":
		return ext, nil
	default:
		return "", ErrUnsupportedType
	}
}
