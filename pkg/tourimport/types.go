package tourimport

import (
	"time"

	"github.com/google/uuid"
)

// ImageRole identifies the purpose of an image within a tour page.
type ImageRole string

// Image role constants (typed).
const (
	RoleHero      ImageRole = "hero"
	RoleGallery   ImageRole = "gallery"
	RoleCard      ImageRole = "card"
	RoleThumbnail ImageRole = "thumbnail"
)

// Page represents a content page addressed by its slug. The slug is the
// natural key: re-importing the same source updates the row in place.
type Page struct {
	ID              uuid.UUID `json:"id"`
	Slug            string    `json:"slug"`
	URL             string    `json:"url,omitempty"`
	Title           string    `json:"title"`
	MetaDescription string    `json:"meta_description,omitempty"`
	Body            string    `json:"body,omitempty"`
	Language        string    `json:"language"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Category represents a tour category addressed by its name.
type Category struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// PageCategory is the Page-Category join, unique on the pair.
type PageCategory struct {
	PageID     uuid.UUID `json:"page_id"`
	CategoryID uuid.UUID `json:"category_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Highlights is the structured included/excluded payload of a tour.
type Highlights struct {
	Included []string `json:"included,omitempty"`
	Excluded []string `json:"excluded,omitempty"`
}

// Tour carries the commercial fields of a tour page. At most one Tour
// exists per Page (page_id is the natural key).
type Tour struct {
	ID           uuid.UUID  `json:"id"`
	PageID       uuid.UUID  `json:"page_id"`
	Destination  string     `json:"destination,omitempty"`
	Price        float64    `json:"price"`
	ChildPrice   float64    `json:"child_price,omitempty"`
	B2BPrice     float64    `json:"b2b_price,omitempty"`
	Currency     string     `json:"currency"`
	DurationDays int        `json:"duration_days"`
	HeroImageID  *uuid.UUID `json:"hero_image_id,omitempty"`
	Highlights   Highlights `json:"highlights"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Image is the metadata row for a stored asset. Checksum is the natural
// key: byte-identical fetches resolve to a single row and a single
// stored object regardless of source URL.
type Image struct {
	ID          uuid.UUID  `json:"id"`
	Checksum    string     `json:"checksum"`
	SourceURL   string     `json:"source_url,omitempty"`
	StoragePath string     `json:"storage_path"`
	PublicURL   string     `json:"public_url,omitempty"`
	MimeType    string     `json:"mime_type"`
	SizeBytes   int64      `json:"size_bytes"`
	Alt         string     `json:"alt,omitempty"`
	Title       string     `json:"title,omitempty"`
	PageID      *uuid.UUID `json:"page_id,omitempty"`
	TourID      *uuid.UUID `json:"tour_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TourRecord is the typed intermediate record produced by the parser
// (or the scraper adapter) and consumed by the import service. Values
// are already localized to a single language.
type TourRecord struct {
	Row                 int      `json:"row"`
	Title               string   `json:"title"`
	Slug                string   `json:"slug,omitempty"`
	Destination         string   `json:"destination,omitempty"`
	Category            string   `json:"category,omitempty"`
	Language            string   `json:"language"`
	Description         string   `json:"description,omitempty"`
	Body                string   `json:"body,omitempty"`
	SourceURL           string   `json:"source_url,omitempty"`
	DurationDays        int      `json:"duration_days,omitempty"`
	Price               float64  `json:"price,omitempty"`
	ChildPrice          float64  `json:"child_price,omitempty"`
	B2BPrice            float64  `json:"b2b_price,omitempty"`
	Currency            string   `json:"currency,omitempty"`
	Included            []string `json:"included,omitempty"`
	Excluded            []string `json:"excluded,omitempty"`
	ImageURL            string   `json:"image_url,omitempty"`
	DestinationImageURL string   `json:"destination_image_url,omitempty"`
}

// Identity returns the best human-readable identifier for error
// reporting: slug if present, else title, else the row number alone.
func (r TourRecord) Identity() string {
	if r.Slug != "" {
		return r.Slug
	}
	return r.Title
}

// ImportOptions controls a single import run.
type ImportOptions struct {
	// Language selects which localized columns a run imports ("en", "fr").
	Language string
	// DryRun validates without writing rows or objects.
	DryRun bool
	// StorageBackend names the blob store to upload to; empty means the
	// service default.
	StorageBackend string
	// OptimizePreset overrides the role-derived optimizer preset for
	// every image of the run; empty keeps the per-role presets.
	OptimizePreset string
	// MaxImageBytes caps raw image downloads; zero means the 10 MB default.
	MaxImageBytes int64
}

// RecordResult describes the outcome of importing one record.
type RecordResult struct {
	Slug        string      `json:"slug"`
	PageID      uuid.UUID   `json:"page_id"`
	TourID      uuid.UUID   `json:"tour_id"`
	CategoryID  *uuid.UUID  `json:"category_id,omitempty"`
	Images      []*Image    `json:"images,omitempty"`
	ImageErrors []*RunError `json:"image_errors,omitempty"`
	// SkippedImages counts source URLs that answered "not found".
	SkippedImages int `json:"skipped_images,omitempty"`
}

// RunError is one entry of a run-level error collection. Errors are
// collected, never thrown across records: a bad row never aborts a run.
type RunError struct {
	Row      int    `json:"row,omitempty"`
	Identity string `json:"identity,omitempty"`
	Stage    string `json:"stage,omitempty"`
	Err      error  `json:"-"`
	Message  string `json:"message"`
}

func (e *RunError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown import error"
}

func (e *RunError) Unwrap() error { return e.Err }

// ImportReport aggregates counters and errors for a full run. The run
// always completes and returns a report, even when every item failed.
type ImportReport struct {
	TotalRecords   int           `json:"total_records"`
	Succeeded      int           `json:"succeeded"`
	Failed         int           `json:"failed"`
	TotalImages    int           `json:"total_images"`
	MigratedImages int           `json:"migrated_images"`
	SkippedImages  int           `json:"skipped_images"`
	FailedImages   int           `json:"failed_images"`
	StorageBytes   int64         `json:"storage_bytes"`
	Errors         []*RunError   `json:"errors,omitempty"`
	Duration       time.Duration `json:"duration"`
}

// InvalidRecord identifies one rejected row of a validation run.
type InvalidRecord struct {
	Row      int      `json:"row"`
	Identity string   `json:"identity,omitempty"`
	Errors   []string `json:"errors"`
}

// ValidationReport is the output of a dry-run validation pass. It is
// produced without any writes.
type ValidationReport struct {
	TotalRows      int              `json:"total_rows"`
	ValidRecords   int              `json:"valid_records"`
	InvalidRecords []*InvalidRecord `json:"invalid_records,omitempty"`
	Violations     int              `json:"violations"`
}

// RowCounts reports per-table row counts for observability.
type RowCounts struct {
	Pages          int64 `json:"pages"`
	Categories     int64 `json:"categories"`
	PageCategories int64 `json:"page_categories"`
	Tours          int64 `json:"tours"`
	Images         int64 `json:"images"`
}

// StoreStats reports aggregate object count and byte size for a blob
// store prefix.
type StoreStats struct {
	ObjectCount int64 `json:"object_count"`
	TotalBytes  int64 `json:"total_bytes"`
}

// PipelineStats combines relational row counts with blob store stats.
type PipelineStats struct {
	Rows  RowCounts  `json:"rows"`
	Store StoreStats `json:"store"`
}

// PageContent is normalized content returned by a Scraper.
type PageContent struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Markdown    string   `json:"markdown,omitempty"`
	HTML        string   `json:"html,omitempty"`
	ImageURLs   []string `json:"image_urls,omitempty"`
}

// FetchedImage is the raw result of downloading one image.
type FetchedImage struct {
	SourceURL string
	Bytes     []byte
	MimeType  string
}

// OptimizedImage is a resized/recompressed rendition of a raw image.
type OptimizedImage struct {
	Bytes    []byte
	Width    int
	Height   int
	MimeType string
	// Ext is the file extension for the encoded format, without dot.
	Ext string
}
