package memory

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/reelworks/reelstore/pkg/reelstore"
)

// Backend is an in-memory implementation of the reelstore.BlobStore interface
type Backend struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// New creates a new in-memory storage backend
func New() reelstore.BlobStore {
	return &Backend{
		objects: make(map[string][]byte),
	}
}

// GetUploadURL returns a synthetic URL for the given key. The memory backend
// has no transport, so the URL only identifies the object.
func (b *Backend) GetUploadURL(ctx context.Context, objectKey string) (string, error) {
	return "memory://" + objectKey, nil
}

// GetDownloadURL returns a synthetic URL for the given key
func (b *Backend) GetDownloadURL(ctx context.Context, objectKey string) (string, error) {
	return "memory://" + objectKey, nil
}

// Upload uploads content directly
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[objectKey] = data
	return nil
}

// Delete deletes content
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return errors.New("object not found")
	}

	delete(b.objects, objectKey)
	return nil
}
