package tourimport

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence for the relational import graph. Every
// write is an upsert keyed by a natural key (slug, name, pair, page id,
// checksum), atomic per key, so arbitrary re-runs are safe.
type Repository interface {
	// Page operations
	GetPageBySlug(ctx context.Context, slug string) (*Page, error)
	GetPageByID(ctx context.Context, id uuid.UUID) (*Page, error)
	// UpsertPage inserts or updates by slug and returns the persisted row
	// (with its id filled, whether new or pre-existing).
	UpsertPage(ctx context.Context, page *Page) (*Page, error)

	// Category operations
	GetCategoryByName(ctx context.Context, name string) (*Category, error)
	UpsertCategory(ctx context.Context, category *Category) (*Category, error)
	// UpsertPageCategory inserts the join if absent; the pair is unique.
	UpsertPageCategory(ctx context.Context, pageID, categoryID uuid.UUID) error

	// Tour operations
	GetTourByPageID(ctx context.Context, pageID uuid.UUID) (*Tour, error)
	// UpsertTour inserts or updates by page_id; at most one tour per page.
	UpsertTour(ctx context.Context, tour *Tour) (*Tour, error)
	ListTours(ctx context.Context) ([]*Tour, error)

	// Image operations
	GetImageByChecksum(ctx context.Context, checksum string) (*Image, error)
	// UpsertImage inserts or updates by checksum. On conflict, owner
	// links (page_id, tour_id) are filled only when currently unset;
	// an existing owner is never reassigned.
	UpsertImage(ctx context.Context, image *Image) (*Image, error)
	ListImagesByPage(ctx context.Context, pageID uuid.UUID) ([]*Image, error)

	// Counts reports per-table row counts.
	Counts(ctx context.Context) (*RowCounts, error)
}

// BlobStore defines the interface for object storage backends. Uploads
// are idempotent by key: the same key uploaded twice overwrites.
type BlobStore interface {
	// Upload stores content under objectKey, overwriting any prior object.
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// UploadWithParams stores content with an explicit MIME type.
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download retrieves content directly.
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes content.
	Delete(ctx context.Context, objectKey string) error

	// GetObjectMeta retrieves metadata for a stored object.
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)

	// PublicURL returns the stable public reference for a key.
	PublicURL(objectKey string) string

	// List returns metadata for every object under prefix.
	List(ctx context.Context, prefix string) ([]*ObjectMeta, error)

	// Stats aggregates object count and byte size under prefix.
	Stats(ctx context.Context, prefix string) (*StoreStats, error)
}

// Scraper retrieves normalized content for a source URL. Failures are
// reported as *ScrapeError.
type Scraper interface {
	Fetch(ctx context.Context, url string) (*PageContent, error)
}

// ImageFetcher downloads raw image bytes. A source answering "does not
// exist" yields ErrNotFoundAtSource; transient failures yield
// *FetchError and may be retried by the caller.
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) (*FetchedImage, error)
}

// Optimizer resizes/recompresses a raw image into a named preset.
type Optimizer interface {
	Optimize(raw []byte, preset string) (*OptimizedImage, error)
}

// ObjectMeta contains metadata about an object in storage.
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}

// UploadParams contains parameters for uploading an object.
type UploadParams struct {
	ObjectKey string
	MimeType  string
}
