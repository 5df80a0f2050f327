// Package blobstore wraps the object storage service holding the raw
// knowledge-base documents.
package blobstore

import (
	"context"
	"io"
)

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

type Store interface {
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Get(ctx context.Context, path string) ([]byte, error)
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	Delete(ctx context.Context, path string) error
	// DeletePrefix removes every object under prefix and returns the deleted paths.
	DeletePrefix(ctx context.Context, prefix string) ([]string, error)
}
