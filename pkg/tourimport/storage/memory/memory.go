// Package memory provides an in-memory tourimport.BlobStore, used by
// tests and dry development setups.
package memory

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/voyagekit/tourimport/pkg/tourimport"
)

// Backend is an in-memory implementation of the tourimport.BlobStore interface
type Backend struct {
	mu        sync.RWMutex
	objects   map[string][]byte
	mimeTypes map[string]string
	updatedAt map[string]time.Time
	urlPrefix string
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects:   make(map[string][]byte),
		mimeTypes: make(map[string]string),
		updatedAt: make(map[string]time.Time),
		urlPrefix: "memory://",
	}
}

// NewWithURLPrefix creates an in-memory backend whose public URLs carry
// the given prefix.
func NewWithURLPrefix(prefix string) *Backend {
	b := New()
	b.urlPrefix = prefix
	return b
}

// Upload stores content under objectKey, overwriting any prior object.
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[objectKey] = data
	b.updatedAt[objectKey] = time.Now().UTC()
	if _, exists := b.mimeTypes[objectKey]; !exists {
		b.mimeTypes[objectKey] = "application/octet-stream"
	}
	return nil
}

// UploadWithParams uploads content with an explicit MIME type.
func (b *Backend) UploadWithParams(ctx context.Context, reader io.Reader, params tourimport.UploadParams) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[params.ObjectKey] = data
	b.mimeTypes[params.ObjectKey] = params.MimeType
	b.updatedAt[params.ObjectKey] = time.Now().UTC()
	return nil
}

// Download retrieves content directly.
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, tourimport.ErrObjectNotFound
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes content.
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return tourimport.ErrObjectNotFound
	}

	delete(b.objects, objectKey)
	delete(b.mimeTypes, objectKey)
	delete(b.updatedAt, objectKey)
	return nil
}

// GetObjectMeta retrieves metadata for an object in memory.
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*tourimport.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, tourimport.ErrObjectNotFound
	}

	return &tourimport.ObjectMeta{
		Key:         objectKey,
		Size:        int64(len(data)),
		ContentType: b.mimeTypes[objectKey],
		UpdatedAt:   b.updatedAt[objectKey],
		Metadata:    map[string]string{"mime_type": b.mimeTypes[objectKey]},
	}, nil
}

// PublicURL returns the stable public reference for a key.
func (b *Backend) PublicURL(objectKey string) string {
	return b.urlPrefix + objectKey
}

// List returns metadata for every object under prefix, sorted by key.
func (b *Backend) List(ctx context.Context, prefix string) ([]*tourimport.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var metas []*tourimport.ObjectMeta
	for key, data := range b.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		metas = append(metas, &tourimport.ObjectMeta{
			Key:         key,
			Size:        int64(len(data)),
			ContentType: b.mimeTypes[key],
			UpdatedAt:   b.updatedAt[key],
		})
	}

	sort.Slice(metas, func(i, j int) bool { return metas[i].Key < metas[j].Key })
	return metas, nil
}

// Stats aggregates object count and byte size under prefix.
func (b *Backend) Stats(ctx context.Context, prefix string) (*tourimport.StoreStats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := &tourimport.StoreStats{}
	for key, data := range b.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		stats.ObjectCount++
		stats.TotalBytes += int64(len(data))
	}
	return stats, nil
}
