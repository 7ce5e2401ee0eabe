package tourimport

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/voyagekit/tourimport/pkg/tourimport/objectkey"
)

// DefaultMaxImageBytes caps raw image downloads at 10 MB.
const DefaultMaxImageBytes = 10 << 20

// allowedMimeTypes is the raw-image format allowlist. Anything else is
// rejected before the optimizer runs.
var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// AllowedMimeType reports whether a raw image MIME type is importable.
func AllowedMimeType(mime string) bool {
	return allowedMimeTypes[mime]
}

// service implements the Service interface
type service struct {
	repository   Repository
	blobStores   map[string]BlobStore
	defaultStore string
	scraper      Scraper
	fetcher      ImageFetcher
	optimizer    Optimizer
	keys         objectkey.Generator
	retry        RetryConfig
	logger       *slog.Logger
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore adds a blob storage backend
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		if s.blobStores == nil {
			s.blobStores = make(map[string]BlobStore)
		}
		s.blobStores[name] = store
		if s.defaultStore == "" {
			s.defaultStore = name
		}
	}
}

// WithDefaultStorageBackend selects which named blob store uploads use
// when a request does not name one.
func WithDefaultStorageBackend(name string) Option {
	return func(s *service) {
		s.defaultStore = name
	}
}

// WithScraper sets the page content scraper adapter
func WithScraper(scraper Scraper) Option {
	return func(s *service) {
		s.scraper = scraper
	}
}

// WithImageFetcher sets the raw image fetcher
func WithImageFetcher(fetcher ImageFetcher) Option {
	return func(s *service) {
		s.fetcher = fetcher
	}
}

// WithOptimizer sets the image optimizer
func WithOptimizer(opt Optimizer) Option {
	return func(s *service) {
		s.optimizer = opt
	}
}

// WithKeyGenerator sets the destination path strategy
func WithKeyGenerator(gen objectkey.Generator) Option {
	return func(s *service) {
		s.keys = gen
	}
}

// WithRetryConfig overrides the per-transfer retry policy
func WithRetryConfig(cfg RetryConfig) Option {
	return func(s *service) {
		s.retry = cfg
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		blobStores: make(map[string]BlobStore),
		retry:      DefaultRetryConfig(),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.defaultStore != "" {
		if _, ok := s.blobStores[s.defaultStore]; !ok {
			return nil, fmt.Errorf("default storage backend %q is not configured", s.defaultStore)
		}
	}
	if s.keys == nil {
		s.keys = objectkey.NewTourPathGenerator()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

// ImportRecords processes records strictly sequentially. Each record's
// failure is caught at record scope and appended to the report; a single
// bad row never aborts the batch.
func (s *service) ImportRecords(ctx context.Context, records []TourRecord, opts ImportOptions) (*ImportReport, error) {
	started := time.Now()
	report := &ImportReport{TotalRecords: len(records)}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result, err := s.ImportRecord(ctx, rec, opts)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, runErrorFor(rec, "record", err))
			// A record that failed late may still have migrated images;
			// those objects and rows exist, so the counters keep them.
			foldResult(report, result)
			s.logger.Warn("record import failed", "row", rec.Row, "identity", rec.Identity(), "error", err)
			continue
		}

		report.Succeeded++
		foldResult(report, result)
	}

	report.Duration = time.Since(started)
	return report, nil
}

// foldResult accumulates one record's image counters into the report.
func foldResult(report *ImportReport, result *RecordResult) {
	if result == nil {
		return
	}
	report.TotalImages += len(result.Images) + len(result.ImageErrors) + result.SkippedImages
	report.MigratedImages += len(result.Images)
	report.SkippedImages += result.SkippedImages
	report.FailedImages += len(result.ImageErrors)
	report.Errors = append(report.Errors, result.ImageErrors...)
	for _, img := range result.Images {
		report.StorageBytes += img.SizeBytes
	}
}

// ImportRecord runs the per-record state machine: resolve slug, upsert
// page, category and join, images, tour, hero link, strictly in order.
func (s *service) ImportRecord(ctx context.Context, rec TourRecord, opts ImportOptions) (*RecordResult, error) {
	slug := rec.Slug
	if slug == "" {
		slug = Slugify(rec.Title)
	}
	if slug == "" {
		return nil, &RecordError{Row: rec.Row, Identity: rec.Identity(), Step: "resolve slug", Err: ErrMissingIdentity}
	}

	if opts.DryRun {
		if err := validateRecord(rec); err != nil {
			return nil, &RecordError{Row: rec.Row, Identity: slug, Step: "validate", Err: err}
		}
		return &RecordResult{Slug: slug}, nil
	}

	lang := rec.Language
	if lang == "" {
		lang = opts.Language
	}
	if lang == "" {
		lang = "en"
	}

	now := time.Now().UTC()
	page, err := s.repository.UpsertPage(ctx, &Page{
		ID:              uuid.New(),
		Slug:            slug,
		URL:             rec.SourceURL,
		Title:           rec.Title,
		MetaDescription: rec.Description,
		Body:            rec.Body,
		Language:        lang,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return nil, &RecordError{Row: rec.Row, Identity: slug, Step: "upsert page", Err: err}
	}

	result := &RecordResult{Slug: slug, PageID: page.ID}

	if rec.Category != "" {
		category, err := s.repository.UpsertCategory(ctx, &Category{
			ID:        uuid.New(),
			Name:      rec.Category,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return nil, &RecordError{Row: rec.Row, Identity: slug, Step: "upsert category", Err: err}
		}
		if err := s.repository.UpsertPageCategory(ctx, page.ID, category.ID); err != nil {
			return nil, &RecordError{Row: rec.Row, Identity: slug, Step: "link category", Err: err}
		}
		result.CategoryID = &category.ID
	}

	// Image failures are scoped to the image, not the record: the tour
	// row must still be written when every image fails.
	type imageSpec struct {
		url  string
		role ImageRole
	}
	var specs []imageSpec
	if rec.ImageURL != "" {
		specs = append(specs, imageSpec{rec.ImageURL, RoleHero})
	}
	if rec.DestinationImageURL != "" {
		specs = append(specs, imageSpec{rec.DestinationImageURL, RoleCard})
	}

	var heroID *uuid.UUID
	for _, spec := range specs {
		img, err := s.MigrateImage(ctx, MigrateImageRequest{
			SourceURL:      spec.url,
			Role:           spec.role,
			Preset:         opts.OptimizePreset,
			Page:           page,
			Destination:    rec.Destination,
			Alt:            rec.Title,
			Title:          rec.Title,
			StorageBackend: opts.StorageBackend,
			MaxBytes:       opts.MaxImageBytes,
		})
		if errors.Is(err, ErrNotFoundAtSource) {
			result.SkippedImages++
			s.logger.Debug("image absent at source, skipped", "url", spec.url, "slug", slug)
			continue
		}
		if err != nil {
			result.ImageErrors = append(result.ImageErrors, runErrorFor(rec, fmt.Sprintf("image %s", spec.url), err))
			continue
		}
		result.Images = append(result.Images, img)
		if heroID == nil {
			id := img.ID
			heroID = &id
		}
	}

	tour, err := s.repository.UpsertTour(ctx, &Tour{
		ID:           uuid.New(),
		PageID:       page.ID,
		Destination:  rec.Destination,
		Price:        rec.Price,
		ChildPrice:   rec.ChildPrice,
		B2BPrice:     rec.B2BPrice,
		Currency:     rec.Currency,
		DurationDays: rec.DurationDays,
		HeroImageID:  heroID,
		Highlights:   Highlights{Included: rec.Included, Excluded: rec.Excluded},
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		// Images migrated above are already stored; hand the partial
		// result back so the caller can account for them.
		return result, &RecordError{Row: rec.Row, Identity: slug, Step: "upsert tour", Err: err}
	}
	result.TourID = tour.ID

	// Backfill the tour link on image rows created before the tour
	// existed. Owner links only fill when unset, so a shared image keeps
	// its first owner.
	for _, img := range result.Images {
		if img.TourID != nil {
			continue
		}
		linked := *img
		linked.TourID = &tour.ID
		updated, err := s.repository.UpsertImage(ctx, &linked)
		if err != nil {
			s.logger.Warn("tour link update failed", "checksum", img.Checksum, "error", err)
			continue
		}
		*img = *updated
	}

	return result, nil
}

// ImportFromURL scrapes a page and imports it as a single record; image
// URLs beyond the first are migrated in the gallery role.
func (s *service) ImportFromURL(ctx context.Context, url string, opts ImportOptions) (*RecordResult, error) {
	if s.scraper == nil {
		return nil, fmt.Errorf("no scraper configured")
	}

	content, err := s.scraper.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	slug := SlugFromURL(url)
	if slug == "" {
		slug = Slugify(content.Title)
	}

	rec := TourRecord{
		Title:       content.Title,
		Slug:        slug,
		SourceURL:   url,
		Description: content.Description,
		Body:        content.Markdown,
		Language:    opts.Language,
	}
	if len(content.ImageURLs) > 0 {
		rec.ImageURL = content.ImageURLs[0]
	}

	result, err := s.ImportRecord(ctx, rec, opts)
	if err != nil || opts.DryRun {
		return result, err
	}

	var gallery []string
	if len(content.ImageURLs) > 1 {
		gallery = content.ImageURLs[1:]
	}
	page := &Page{ID: result.PageID, Slug: result.Slug}
	for _, imageURL := range gallery {
		img, err := s.MigrateImage(ctx, MigrateImageRequest{
			SourceURL:      imageURL,
			Role:           RoleGallery,
			Preset:         opts.OptimizePreset,
			Page:           page,
			Alt:            content.Title,
			Title:          content.Title,
			StorageBackend: opts.StorageBackend,
			MaxBytes:       opts.MaxImageBytes,
		})
		if errors.Is(err, ErrNotFoundAtSource) {
			result.SkippedImages++
			continue
		}
		if err != nil {
			result.ImageErrors = append(result.ImageErrors, runErrorFor(rec, fmt.Sprintf("image %s", imageURL), err))
			continue
		}
		result.Images = append(result.Images, img)
	}

	return result, nil
}

// MigrateImage runs dedup -> optimize -> upload -> upsert for one image.
// A checksum hit reuses the stored object and only fills unset owner
// links, making repeated imports of an unchanged source network-free.
func (s *service) MigrateImage(ctx context.Context, req MigrateImageRequest) (*Image, error) {
	if req.Page == nil {
		return nil, fmt.Errorf("owning page is required")
	}
	if s.fetcher == nil {
		return nil, fmt.Errorf("no image fetcher configured")
	}
	if s.optimizer == nil {
		return nil, fmt.Errorf("no optimizer configured")
	}

	backend := req.StorageBackend
	if backend == "" {
		backend = s.defaultStore
	}
	store, ok := s.blobStores[backend]
	if !ok {
		return nil, fmt.Errorf("storage backend %q is not configured", backend)
	}

	maxBytes := req.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}

	var fetched *FetchedImage
	err := Retry(ctx, s.retry, Retryable, func() error {
		f, err := s.fetcher.FetchImage(ctx, req.SourceURL)
		if err != nil {
			return err
		}
		fetched = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	if int64(len(fetched.Bytes)) > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes from %s", ErrImageTooLarge, len(fetched.Bytes), req.SourceURL)
	}

	checksum := fmt.Sprintf("%x", sha256.Sum256(fetched.Bytes))

	var tourID *uuid.UUID
	if req.Tour != nil {
		id := req.Tour.ID
		tourID = &id
	}
	pageID := req.Page.ID

	existing, err := s.repository.GetImageByChecksum(ctx, checksum)
	if err == nil {
		// Same bytes already stored: reuse path and URL, no optimize or
		// upload. Only owner links may change.
		row := *existing
		row.SourceURL = req.SourceURL
		row.PageID = &pageID
		row.TourID = tourID
		return s.repository.UpsertImage(ctx, &row)
	}
	if !errors.Is(err, ErrImageNotFound) {
		return nil, &DatastoreError{Entity: "image", Identity: checksum, Op: "lookup", Err: err}
	}

	if !AllowedMimeType(fetched.MimeType) {
		return nil, fmt.Errorf("%w: mime type %q from %s", ErrUnsupportedImage, fetched.MimeType, req.SourceURL)
	}

	preset := req.Preset
	if preset == "" {
		preset = string(req.Role)
	}
	optimized, err := s.optimizer.Optimize(fetched.Bytes, preset)
	if err != nil {
		return nil, err
	}

	key := s.keys.GenerateKey(&objectkey.KeyMetadata{
		Destination: req.Destination,
		Slug:        req.Page.Slug,
		Role:        string(req.Role),
		Checksum:    checksum,
		Ext:         optimized.Ext,
	})

	err = Retry(ctx, s.retry, Retryable, func() error {
		return store.UploadWithParams(ctx, bytes.NewReader(optimized.Bytes), UploadParams{
			ObjectKey: key,
			MimeType:  optimized.MimeType,
		})
	})
	if err != nil {
		return nil, &StorageError{Backend: backend, Key: key, Op: "upload", Err: err}
	}

	now := time.Now().UTC()
	return s.repository.UpsertImage(ctx, &Image{
		ID:          uuid.New(),
		Checksum:    checksum,
		SourceURL:   req.SourceURL,
		StoragePath: key,
		PublicURL:   store.PublicURL(key),
		MimeType:    optimized.MimeType,
		SizeBytes:   int64(len(optimized.Bytes)),
		Alt:         req.Alt,
		Title:       req.Title,
		PageID:      &pageID,
		TourID:      tourID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// Stats reports repository row counts plus default blob store usage.
func (s *service) Stats(ctx context.Context) (*PipelineStats, error) {
	counts, err := s.repository.Counts(ctx)
	if err != nil {
		return nil, err
	}

	stats := &PipelineStats{Rows: *counts}
	if store, ok := s.blobStores[s.defaultStore]; ok {
		storeStats, err := store.Stats(ctx, "")
		if err != nil {
			return nil, &StorageError{Backend: s.defaultStore, Op: "stats", Err: err}
		}
		stats.Store = *storeStats
	}

	return stats, nil
}

func validateRecord(rec TourRecord) error {
	if rec.Title == "" && rec.Slug == "" {
		return ErrMissingIdentity
	}
	if rec.Price < 0 {
		return fmt.Errorf("price must not be negative: %v", rec.Price)
	}
	if rec.DurationDays < 0 {
		return fmt.Errorf("duration_days must not be negative: %d", rec.DurationDays)
	}
	return nil
}

func runErrorFor(rec TourRecord, stage string, err error) *RunError {
	return &RunError{
		Row:      rec.Row,
		Identity: rec.Identity(),
		Stage:    stage,
		Err:      err,
		Message:  err.Error(),
	}
}
