package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/tendant/simple-posts/pkg/simpleposts"
)

// Backend is an in-memory implementation of the simpleposts.BlobStore interface
type Backend struct {
	mu              sync.RWMutex
	objects         map[string][]byte
	objectsMimeType map[string]string
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects:         make(map[string][]byte),
		objectsMimeType: make(map[string]string),
	}
}

// Upload stores the reader contents under objectKey
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader, params simpleposts.UploadParams) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	mimeType := params.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[objectKey] = data
	b.objectsMimeType[objectKey] = mimeType
	return nil
}

// Download downloads content directly
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, simpleposts.ErrObjectNotFound
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes the objects. Missing keys are skipped.
func (b *Backend) Delete(ctx context.Context, objectKeys []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, key := range objectKeys {
		delete(b.objects, key)
		delete(b.objectsMimeType, key)
	}
	return nil
}

// Exists reports whether an object is stored under objectKey
func (b *Backend) Exists(objectKey string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, exists := b.objects[objectKey]
	return exists
}

// MimeType returns the recorded MIME type of an object
func (b *Backend) MimeType(objectKey string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.objectsMimeType[objectKey]
}

// Len returns the number of stored objects
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.objects)
}
