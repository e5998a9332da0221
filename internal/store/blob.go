package store

import (
	"context"
	"io"
)

// BlobStore writes report artifacts and returns a URI for the stored object.
type BlobStore interface {
	PutObject(ctx context.Context, path, contentType string, r io.Reader) (string, error)
}
