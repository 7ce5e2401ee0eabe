package tourimport

import "context"

// Service is the import pipeline's main interface: idempotent,
// referential-integrity-preserving upserts of pages, categories, tours
// and images from typed records or scraped URLs.
type Service interface {
	// ImportRecords processes records strictly sequentially, collecting
	// per-record failures instead of aborting; it always returns a
	// complete report. With opts.DryRun no rows or objects are written.
	ImportRecords(ctx context.Context, records []TourRecord, opts ImportOptions) (*ImportReport, error)

	// ImportRecord runs the per-record state machine for one record:
	// slug, page, category join, images, tour, hero link, in that order.
	// A failure after images were migrated returns the partial result
	// alongside the error so the caller can account for written assets.
	ImportRecord(ctx context.Context, record TourRecord, opts ImportOptions) (*RecordResult, error)

	// ImportFromURL scrapes a source URL into a record and imports it.
	ImportFromURL(ctx context.Context, url string, opts ImportOptions) (*RecordResult, error)

	// MigrateImage runs the dedup -> optimize -> upload -> upsert chain
	// for a single image URL on behalf of a page (and optionally a tour).
	MigrateImage(ctx context.Context, req MigrateImageRequest) (*Image, error)

	// Stats reports relational row counts plus blob store usage.
	Stats(ctx context.Context) (*PipelineStats, error)
}
