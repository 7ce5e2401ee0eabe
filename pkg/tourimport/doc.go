// Package tourimport implements the content and media import pipeline
// for tour pages: tabular and scraped sources are normalized into typed
// records, their images are deduplicated by content hash, optimized into
// named presets and uploaded to an object store, and the relational
// graph (pages, categories, tours, images) is maintained with idempotent
// find-or-create upserts keyed on natural keys, so any run can be
// repeated safely.
//
// The package defines the interfaces (Repository, BlobStore, Scraper,
// ImageFetcher, Optimizer) and the orchestrating Service; concrete
// backends live in the storage, repo, scrape, httpfetch and imageproc
// subpackages, and bulk migration with bounded concurrency lives in
// migrate.
package tourimport
