// Package storage puts evidence images into object storage.
package storage

import "context"

// ObjectStorage stores a blob and returns its key. An empty key with a nil
// error means storage is not configured.
type ObjectStorage interface {
	Put(ctx context.Context, data []byte, contentType string) (string, error)
}

// Disabled is used when no object storage is configured.
type Disabled struct{}

// Put discards data and returns no key.
func (Disabled) Put(context.Context, []byte, string) (string, error) {
	return "", nil
}

// New returns an S3 store when cfg is complete and Disabled otherwise.
func New(cfg S3Config) (ObjectStorage, error) {
	if !cfg.Enabled() {
		return Disabled{}, nil
	}
	return NewS3Store(cfg)
}
