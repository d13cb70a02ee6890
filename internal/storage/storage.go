package storage

import (
	"context"
	"io"
)

// ObjectInfo carries the metadata callers need to serve an object.
type ObjectInfo struct {
	Size        int64
	ContentType string
}

// Store is the narrow blob-storage surface the application consumes. The
// application never inspects blob contents; it owns only the opaque object
// names it hands out.
type Store interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, objectName string) (io.ReadCloser, ObjectInfo, error)
	Copy(ctx context.Context, src, dst string) error
	Delete(ctx context.Context, objectName string) error
}
