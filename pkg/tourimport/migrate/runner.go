// Package migrate drives bulk image migration: it walks a list of tour
// jobs, migrates each tour's images in small concurrent batches, and
// reports progress after every item. Tours are processed one at a time;
// only images within a batch run concurrently.
package migrate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voyagekit/tourimport/pkg/tourimport"
)

const (
	// DefaultBatchSize is how many images of one tour migrate concurrently.
	DefaultBatchSize = 5

	// DefaultPause is the delay between image batches, to avoid
	// hammering the source host.
	DefaultPause = 1 * time.Second
)

// ImageJob names one source image to migrate for a tour.
type ImageJob struct {
	SourceURL string
	Role      tourimport.ImageRole
	Alt       string
	Title     string
}

// TourJob groups the images of one tour with their owning rows.
type TourJob struct {
	Page        *tourimport.Page
	Tour        *tourimport.Tour
	Destination string
	Images      []ImageJob
}

// Progress is a snapshot delivered to the progress callback after every
// finished item. Counters are cumulative across the whole run.
type Progress struct {
	TotalTours  int
	CurrentTour int
	TotalImages int
	Completed   int
	Skipped     int
	Failed      int
	// Current is the source URL of the item that just finished.
	Current string
}

// ProgressFunc receives progress snapshots. It is called from the
// runner's worker goroutines under a lock, so it must not block.
type ProgressFunc func(Progress)

// Result aggregates the outcome of one migration run. The run always
// completes and returns a result, even when every item failed.
type Result struct {
	TotalTours   int
	TotalImages  int
	Migrated     int
	Skipped      int
	Failed       int
	StorageBytes int64
	Errors       []*tourimport.RunError
	Duration     time.Duration
}

// Runner executes migration runs against an import service.
type Runner struct {
	service   tourimport.Service
	batchSize int
	pause     time.Duration
	progress  ProgressFunc
	logger    *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithBatchSize sets how many images migrate concurrently per batch.
func WithBatchSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithPause sets the delay between batches.
func WithPause(d time.Duration) Option {
	return func(r *Runner) {
		if d >= 0 {
			r.pause = d
		}
	}
}

// WithProgress installs a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Runner) { r.progress = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a migration runner over the given service.
func NewRunner(svc tourimport.Service, opts ...Option) *Runner {
	r := &Runner{
		service:   svc,
		batchSize: DefaultBatchSize,
		pause:     DefaultPause,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run migrates every image of every job. Cancellation is honored at
// batch boundaries: an in-flight batch finishes, then the run returns
// ctx.Err() alongside the partial result.
func (r *Runner) Run(ctx context.Context, jobs []TourJob) (*Result, error) {
	started := time.Now()

	result := &Result{TotalTours: len(jobs)}
	for _, job := range jobs {
		result.TotalImages += len(job.Images)
	}

	var mu sync.Mutex
	completed, skipped, failed := 0, 0, 0

	report := func(url string, tourIndex int) {
		mu.Lock()
		defer mu.Unlock()
		if r.progress == nil {
			return
		}
		r.progress(Progress{
			TotalTours:  len(jobs),
			CurrentTour: tourIndex + 1,
			TotalImages: result.TotalImages,
			Completed:   completed,
			Skipped:     skipped,
			Failed:      failed,
			Current:     url,
		})
	}

	for tourIndex, job := range jobs {
		r.logger.Info("migrating tour images",
			"tour", tourIndex+1,
			"of", len(jobs),
			"page", job.Page.Slug,
			"images", len(job.Images))

		for offset := 0; offset < len(job.Images); offset += r.batchSize {
			if err := ctx.Err(); err != nil {
				result.Duration = time.Since(started)
				return result, err
			}
			if offset > 0 && r.pause > 0 {
				select {
				case <-time.After(r.pause):
				case <-ctx.Done():
					result.Duration = time.Since(started)
					return result, ctx.Err()
				}
			}

			end := offset + r.batchSize
			if end > len(job.Images) {
				end = len(job.Images)
			}

			var g errgroup.Group
			for _, img := range job.Images[offset:end] {
				img := img
				g.Go(func() error {
					image, err := r.service.MigrateImage(ctx, tourimport.MigrateImageRequest{
						SourceURL:   img.SourceURL,
						Role:        img.Role,
						Page:        job.Page,
						Tour:        job.Tour,
						Destination: job.Destination,
						Alt:         img.Alt,
						Title:       img.Title,
					})

					mu.Lock()
					switch {
					case err == nil:
						completed++
						result.Migrated++
						result.StorageBytes += image.SizeBytes
					case errors.Is(err, tourimport.ErrNotFoundAtSource):
						skipped++
						result.Skipped++
					default:
						failed++
						result.Failed++
						result.Errors = append(result.Errors, &tourimport.RunError{
							Identity: job.Page.Slug,
							Stage:    "migrate-image",
							Err:      err,
							Message:  img.SourceURL + ": " + err.Error(),
						})
					}
					mu.Unlock()

					report(img.SourceURL, tourIndex)
					return nil
				})
			}
			// Workers never return errors; failures are collected above.
			_ = g.Wait()
		}
	}

	result.Duration = time.Since(started)

	r.logger.Info("migration run complete",
		"tours", result.TotalTours,
		"images", result.TotalImages,
		"migrated", result.Migrated,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"duration", result.Duration)

	return result, nil
}

// JobsFromRepository builds a migration job list from the rows already
// present in the repository: every stored tour with all images linked
// to its page, re-migrated from their recorded source URLs.
func JobsFromRepository(ctx context.Context, repo tourimport.Repository) ([]TourJob, error) {
	tours, err := repo.ListTours(ctx)
	if err != nil {
		return nil, err
	}

	var jobs []TourJob
	for _, tour := range tours {
		page, err := repo.GetPageByID(ctx, tour.PageID)
		if err != nil {
			return nil, err
		}

		images, err := repo.ListImagesByPage(ctx, page.ID)
		if err != nil {
			return nil, err
		}

		job := TourJob{Page: page, Tour: tour, Destination: tour.Destination}
		for _, img := range images {
			if img.SourceURL == "" {
				continue
			}
			role := tourimport.RoleGallery
			if tour.HeroImageID != nil && *tour.HeroImageID == img.ID {
				role = tourimport.RoleHero
			}
			job.Images = append(job.Images, ImageJob{
				SourceURL: img.SourceURL,
				Role:      role,
				Alt:       img.Alt,
				Title:     img.Title,
			})
		}
		if len(job.Images) > 0 {
			jobs = append(jobs, job)
		}
	}

	return jobs, nil
}
