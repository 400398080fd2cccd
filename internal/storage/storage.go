// Package storage keeps finalized envelope archives in an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned by Stat for a key that was never written.
var ErrObjectNotFound = errors.New("object not found")

// PutObjectOptions describes an archive upload. Size is -1 when unknown.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo is what the bucket reports about a stored archive.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the archive bucket as seen by the finalize worker.
type Storage interface {
	// Put writes r under key. An existing object is overwritten.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Stat reports ErrObjectNotFound when key is absent.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
}
