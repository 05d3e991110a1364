// Package webdav provides a minimal WebDAV client over resty plus a shared
// per-endpoint client pool. It covers the five operations the sync engine
// needs: stat, mkcol, put, delete and directory listing.
package webdav

import (
	"context"
	"time"
)

// FileInfo describes a single remote resource.
type FileInfo struct {
	Path     string
	Size     int64
	Modified time.Time
	IsDir    bool
	ETag     string
}

// RemoteStore is the remote filesystem capability consumed by the sync
// engine. Paths are absolute, slash-separated remote paths including the
// endpoint's base path component.
type RemoteStore interface {
	Stat(ctx context.Context, path string) (FileInfo, error)
	CreateDirectory(ctx context.Context, path string) error
	PutFileContents(ctx context.Context, path string, data []byte, overwrite bool) error
	DeleteFile(ctx context.Context, path string) error
	GetDirectoryContents(ctx context.Context, path string, deep bool) ([]FileInfo, error)
}
