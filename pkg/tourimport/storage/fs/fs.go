// Package fs provides a filesystem tourimport.BlobStore.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/voyagekit/tourimport/pkg/tourimport"
)

// Config options for the filesystem backend.
type Config struct {
	// BaseDir is the directory objects are stored under.
	BaseDir string
	// URLPrefix is prepended to keys to form public URLs.
	URLPrefix string
}

// Backend is a filesystem implementation of the tourimport.BlobStore interface
type Backend struct {
	baseDir   string
	urlPrefix string
}

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{
		baseDir:   config.BaseDir,
		urlPrefix: strings.TrimRight(config.URLPrefix, "/"),
	}, nil
}

// Upload stores content under objectKey, overwriting any prior file.
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	filePath, err := b.safePath(objectKey)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// UploadWithParams uploads content; the filesystem derives MIME type
// from bytes on read, so params beyond the key are ignored.
func (b *Backend) UploadWithParams(ctx context.Context, reader io.Reader, params tourimport.UploadParams) error {
	return b.Upload(ctx, params.ObjectKey, reader)
}

// Download retrieves content directly.
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	filePath, err := b.safePath(objectKey)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filePath)
	if os.IsNotExist(err) {
		return nil, tourimport.ErrObjectNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// Delete removes content.
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	filePath, err := b.safePath(objectKey)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); os.IsNotExist(err) {
		return tourimport.ErrObjectNotFound
	} else if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// GetObjectMeta retrieves metadata for an object on disk.
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*tourimport.ObjectMeta, error) {
	filePath, err := b.safePath(objectKey)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return nil, tourimport.ErrObjectNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	contentType := "application/octet-stream"
	if f, err := os.Open(filePath); err == nil {
		head := make([]byte, 512)
		n, _ := f.Read(head)
		f.Close()
		contentType = http.DetectContentType(head[:n])
	}

	return &tourimport.ObjectMeta{
		Key:         objectKey,
		Size:        info.Size(),
		ContentType: contentType,
		UpdatedAt:   info.ModTime(),
	}, nil
}

// PublicURL returns the stable public reference for a key.
func (b *Backend) PublicURL(objectKey string) string {
	if b.urlPrefix == "" {
		return "file://" + filepath.Join(b.baseDir, filepath.FromSlash(objectKey))
	}
	return b.urlPrefix + "/" + objectKey
}

// List returns metadata for every object under prefix.
func (b *Backend) List(ctx context.Context, prefix string) ([]*tourimport.ObjectMeta, error) {
	var metas []*tourimport.ObjectMeta
	err := filepath.WalkDir(b.baseDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		rel, err := filepath.Rel(b.baseDir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		metas = append(metas, &tourimport.ObjectMeta{
			Key:       key,
			Size:      info.Size(),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	return metas, nil
}

// Stats aggregates object count and byte size under prefix.
func (b *Backend) Stats(ctx context.Context, prefix string) (*tourimport.StoreStats, error) {
	metas, err := b.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	stats := &tourimport.StoreStats{}
	for _, meta := range metas {
		stats.ObjectCount++
		stats.TotalBytes += meta.Size
	}
	return stats, nil
}

// safePath joins a key under baseDir, refusing traversal outside it.
func (b *Backend) safePath(objectKey string) (string, error) {
	clean := path.Clean("/" + objectKey)
	if clean == "/" {
		return "", fmt.Errorf("invalid object key %q", objectKey)
	}
	return filepath.Join(b.baseDir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
