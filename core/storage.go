package core

import (
	"context"
	"io"
)

// ObjectStorage stores uploaded files and serves them from a public URL.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, r io.Reader) (publicURL string, err error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}
