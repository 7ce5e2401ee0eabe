// Package postgres provides a tourimport.Repository backed by
// PostgreSQL. Find-or-create is expressed with ON CONFLICT upserts on
// the natural keys (slug, name, page/category pair, page_id, checksum),
// so concurrent first-creation of the same key is race-free.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voyagekit/tourimport/pkg/tourimport"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements tourimport.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("duplicate entry in %s: %s", operation, pgErr.ConstraintName)
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found in %s", operation)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Page operations

func (r *Repository) GetPageBySlug(ctx context.Context, slug string) (*tourimport.Page, error) {
	query := `
        SELECT id, slug, url, title, meta_description, body, language, created_at, updated_at
        FROM page WHERE slug = $1`

	var page tourimport.Page
	err := r.db.QueryRow(ctx, query, slug).Scan(
		&page.ID, &page.Slug, &page.URL, &page.Title, &page.MetaDescription,
		&page.Body, &page.Language, &page.CreatedAt, &page.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tourimport.ErrPageNotFound
		}
		return nil, r.handlePostgresError("get page", err)
	}

	return &page, nil
}

func (r *Repository) GetPageByID(ctx context.Context, id uuid.UUID) (*tourimport.Page, error) {
	query := `
        SELECT id, slug, url, title, meta_description, body, language, created_at, updated_at
        FROM page WHERE id = $1`

	var page tourimport.Page
	err := r.db.QueryRow(ctx, query, id).Scan(
		&page.ID, &page.Slug, &page.URL, &page.Title, &page.MetaDescription,
		&page.Body, &page.Language, &page.CreatedAt, &page.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tourimport.ErrPageNotFound
		}
		return nil, r.handlePostgresError("get page", err)
	}

	return &page, nil
}

func (r *Repository) UpsertPage(ctx context.Context, page *tourimport.Page) (*tourimport.Page, error) {
	query := `
		INSERT INTO page (id, slug, url, title, meta_description, body, language, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (slug) DO UPDATE SET
			url = EXCLUDED.url,
			title = EXCLUDED.title,
			meta_description = EXCLUDED.meta_description,
			body = EXCLUDED.body,
			language = EXCLUDED.language,
			updated_at = EXCLUDED.updated_at
		RETURNING id, slug, url, title, meta_description, body, language, created_at, updated_at`

	var result tourimport.Page
	err := r.db.QueryRow(ctx, query,
		page.ID, page.Slug, page.URL, page.Title, page.MetaDescription,
		page.Body, page.Language, page.CreatedAt, page.UpdatedAt).Scan(
		&result.ID, &result.Slug, &result.URL, &result.Title, &result.MetaDescription,
		&result.Body, &result.Language, &result.CreatedAt, &result.UpdatedAt)
	if err != nil {
		return nil, r.handlePostgresError("upsert page", err)
	}

	return &result, nil
}

// Category operations

func (r *Repository) GetCategoryByName(ctx context.Context, name string) (*tourimport.Category, error) {
	query := `SELECT id, name, parent_id, created_at, updated_at FROM category WHERE name = $1`

	var category tourimport.Category
	err := r.db.QueryRow(ctx, query, name).Scan(
		&category.ID, &category.Name, &category.ParentID, &category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tourimport.ErrCategoryNotFound
		}
		return nil, r.handlePostgresError("get category", err)
	}

	return &category, nil
}

func (r *Repository) UpsertCategory(ctx context.Context, category *tourimport.Category) (*tourimport.Category, error) {
	query := `
		INSERT INTO category (id, name, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE SET
			parent_id = COALESCE(EXCLUDED.parent_id, category.parent_id),
			updated_at = EXCLUDED.updated_at
		RETURNING id, name, parent_id, created_at, updated_at`

	var result tourimport.Category
	err := r.db.QueryRow(ctx, query,
		category.ID, category.Name, category.ParentID, category.CreatedAt, category.UpdatedAt).Scan(
		&result.ID, &result.Name, &result.ParentID, &result.CreatedAt, &result.UpdatedAt)
	if err != nil {
		return nil, r.handlePostgresError("upsert category", err)
	}

	return &result, nil
}

func (r *Repository) UpsertPageCategory(ctx context.Context, pageID, categoryID uuid.UUID) error {
	query := `
		INSERT INTO page_category (page_id, category_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (page_id, category_id) DO NOTHING`

	if _, err := r.db.Exec(ctx, query, pageID, categoryID); err != nil {
		return r.handlePostgresError("link page category", err)
	}
	return nil
}

// Tour operations

func (r *Repository) GetTourByPageID(ctx context.Context, pageID uuid.UUID) (*tourimport.Tour, error) {
	query := `
        SELECT id, page_id, destination, price, child_price, b2b_price, currency,
               duration_days, hero_image_id, highlights, created_at, updated_at
        FROM tour WHERE page_id = $1`

	return r.scanTour(r.db.QueryRow(ctx, query, pageID))
}

func (r *Repository) UpsertTour(ctx context.Context, tour *tourimport.Tour) (*tourimport.Tour, error) {
	highlights, err := json.Marshal(tour.Highlights)
	if err != nil {
		return nil, fmt.Errorf("encoding highlights: %w", err)
	}

	query := `
		INSERT INTO tour (id, page_id, destination, price, child_price, b2b_price, currency,
		                  duration_days, hero_image_id, highlights, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (page_id) DO UPDATE SET
			destination = EXCLUDED.destination,
			price = EXCLUDED.price,
			child_price = EXCLUDED.child_price,
			b2b_price = EXCLUDED.b2b_price,
			currency = EXCLUDED.currency,
			duration_days = EXCLUDED.duration_days,
			hero_image_id = COALESCE(EXCLUDED.hero_image_id, tour.hero_image_id),
			highlights = EXCLUDED.highlights,
			updated_at = EXCLUDED.updated_at
		RETURNING id, page_id, destination, price, child_price, b2b_price, currency,
		          duration_days, hero_image_id, highlights, created_at, updated_at`

	return r.scanTour(r.db.QueryRow(ctx, query,
		tour.ID, tour.PageID, tour.Destination, tour.Price, tour.ChildPrice, tour.B2BPrice,
		tour.Currency, tour.DurationDays, tour.HeroImageID, highlights,
		tour.CreatedAt, tour.UpdatedAt))
}

func (r *Repository) ListTours(ctx context.Context) ([]*tourimport.Tour, error) {
	query := `
        SELECT id, page_id, destination, price, child_price, b2b_price, currency,
               duration_days, hero_image_id, highlights, created_at, updated_at
        FROM tour ORDER BY created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, r.handlePostgresError("list tours", err)
	}
	defer rows.Close()

	var tours []*tourimport.Tour
	for rows.Next() {
		tour, err := r.scanTour(rows)
		if err != nil {
			return nil, err
		}
		tours = append(tours, tour)
	}

	return tours, rows.Err()
}

func (r *Repository) scanTour(row pgx.Row) (*tourimport.Tour, error) {
	var tour tourimport.Tour
	var highlights []byte
	err := row.Scan(
		&tour.ID, &tour.PageID, &tour.Destination, &tour.Price, &tour.ChildPrice,
		&tour.B2BPrice, &tour.Currency, &tour.DurationDays, &tour.HeroImageID,
		&highlights, &tour.CreatedAt, &tour.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tourimport.ErrTourNotFound
		}
		return nil, r.handlePostgresError("scan tour", err)
	}

	if len(highlights) > 0 {
		if err := json.Unmarshal(highlights, &tour.Highlights); err != nil {
			return nil, fmt.Errorf("decoding highlights: %w", err)
		}
	}

	return &tour, nil
}

// Image operations

func (r *Repository) GetImageByChecksum(ctx context.Context, checksum string) (*tourimport.Image, error) {
	query := `
        SELECT id, checksum, source_url, storage_path, public_url, mime_type, size_bytes,
               alt, title, page_id, tour_id, created_at, updated_at
        FROM image WHERE checksum = $1`

	var image tourimport.Image
	err := r.db.QueryRow(ctx, query, checksum).Scan(
		&image.ID, &image.Checksum, &image.SourceURL, &image.StoragePath, &image.PublicURL,
		&image.MimeType, &image.SizeBytes, &image.Alt, &image.Title,
		&image.PageID, &image.TourID, &image.CreatedAt, &image.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tourimport.ErrImageNotFound
		}
		return nil, r.handlePostgresError("get image", err)
	}

	return &image, nil
}

func (r *Repository) UpsertImage(ctx context.Context, image *tourimport.Image) (*tourimport.Image, error) {
	// Owner links fill only when unset: COALESCE keeps the first owner.
	query := `
		INSERT INTO image (id, checksum, source_url, storage_path, public_url, mime_type,
		                   size_bytes, alt, title, page_id, tour_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (checksum) DO UPDATE SET
			page_id = COALESCE(image.page_id, EXCLUDED.page_id),
			tour_id = COALESCE(image.tour_id, EXCLUDED.tour_id),
			alt = CASE WHEN image.alt = '' THEN EXCLUDED.alt ELSE image.alt END,
			title = CASE WHEN image.title = '' THEN EXCLUDED.title ELSE image.title END,
			updated_at = EXCLUDED.updated_at
		RETURNING id, checksum, source_url, storage_path, public_url, mime_type,
		          size_bytes, alt, title, page_id, tour_id, created_at, updated_at`

	var result tourimport.Image
	err := r.db.QueryRow(ctx, query,
		image.ID, image.Checksum, image.SourceURL, image.StoragePath, image.PublicURL,
		image.MimeType, image.SizeBytes, image.Alt, image.Title,
		image.PageID, image.TourID, image.CreatedAt, image.UpdatedAt).Scan(
		&result.ID, &result.Checksum, &result.SourceURL, &result.StoragePath, &result.PublicURL,
		&result.MimeType, &result.SizeBytes, &result.Alt, &result.Title,
		&result.PageID, &result.TourID, &result.CreatedAt, &result.UpdatedAt)
	if err != nil {
		return nil, r.handlePostgresError("upsert image", err)
	}

	return &result, nil
}

func (r *Repository) ListImagesByPage(ctx context.Context, pageID uuid.UUID) ([]*tourimport.Image, error) {
	query := `
        SELECT id, checksum, source_url, storage_path, public_url, mime_type, size_bytes,
               alt, title, page_id, tour_id, created_at, updated_at
        FROM image WHERE page_id = $1 ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, pageID)
	if err != nil {
		return nil, r.handlePostgresError("list images", err)
	}
	defer rows.Close()

	var images []*tourimport.Image
	for rows.Next() {
		var image tourimport.Image
		if err := rows.Scan(
			&image.ID, &image.Checksum, &image.SourceURL, &image.StoragePath, &image.PublicURL,
			&image.MimeType, &image.SizeBytes, &image.Alt, &image.Title,
			&image.PageID, &image.TourID, &image.CreatedAt, &image.UpdatedAt); err != nil {
			return nil, r.handlePostgresError("scan image", err)
		}
		images = append(images, &image)
	}

	return images, rows.Err()
}

// Counts reports per-table row counts.
func (r *Repository) Counts(ctx context.Context) (*tourimport.RowCounts, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM page),
			(SELECT COUNT(*) FROM category),
			(SELECT COUNT(*) FROM page_category),
			(SELECT COUNT(*) FROM tour),
			(SELECT COUNT(*) FROM image)`

	var counts tourimport.RowCounts
	err := r.db.QueryRow(ctx, query).Scan(
		&counts.Pages, &counts.Categories, &counts.PageCategories, &counts.Tours, &counts.Images)
	if err != nil {
		return nil, r.handlePostgresError("counts", err)
	}

	return &counts, nil
}
