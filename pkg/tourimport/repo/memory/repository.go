// Package memory provides an in-memory tourimport.Repository. Every
// upsert is atomic per natural key under one mutex, matching the
// conflict-resolution guarantees of the postgres implementation.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voyagekit/tourimport/pkg/tourimport"
)

// Repository implements tourimport.Repository using in-memory storage
type Repository struct {
	mu sync.RWMutex

	pages      map[uuid.UUID]*tourimport.Page
	categories map[uuid.UUID]*tourimport.Category
	tours      map[uuid.UUID]*tourimport.Tour
	images     map[uuid.UUID]*tourimport.Image

	pagesBySlug      map[string]uuid.UUID
	categoriesByName map[string]uuid.UUID
	toursByPage      map[uuid.UUID]uuid.UUID
	imagesByChecksum map[string]uuid.UUID
	pageCategories   map[string]*tourimport.PageCategory // "pageID:categoryID"
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		pages:            make(map[uuid.UUID]*tourimport.Page),
		categories:       make(map[uuid.UUID]*tourimport.Category),
		tours:            make(map[uuid.UUID]*tourimport.Tour),
		images:           make(map[uuid.UUID]*tourimport.Image),
		pagesBySlug:      make(map[string]uuid.UUID),
		categoriesByName: make(map[string]uuid.UUID),
		toursByPage:      make(map[uuid.UUID]uuid.UUID),
		imagesByChecksum: make(map[string]uuid.UUID),
		pageCategories:   make(map[string]*tourimport.PageCategory),
	}
}

// Page operations

func (r *Repository) GetPageBySlug(ctx context.Context, slug string) (*tourimport.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.pagesBySlug[slug]
	if !exists {
		return nil, tourimport.ErrPageNotFound
	}

	pageCopy := *r.pages[id]
	return &pageCopy, nil
}

func (r *Repository) GetPageByID(ctx context.Context, id uuid.UUID) (*tourimport.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	page, exists := r.pages[id]
	if !exists {
		return nil, tourimport.ErrPageNotFound
	}

	pageCopy := *page
	return &pageCopy, nil
}

func (r *Repository) UpsertPage(ctx context.Context, page *tourimport.Page) (*tourimport.Page, error) {
	if page.Slug == "" {
		return nil, fmt.Errorf("page slug is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if id, exists := r.pagesBySlug[page.Slug]; exists {
		existing := r.pages[id]
		existing.URL = page.URL
		existing.Title = page.Title
		existing.MetaDescription = page.MetaDescription
		existing.Body = page.Body
		existing.Language = page.Language
		existing.UpdatedAt = now

		pageCopy := *existing
		return &pageCopy, nil
	}

	pageCopy := *page
	if pageCopy.ID == uuid.Nil {
		pageCopy.ID = uuid.New()
	}
	if pageCopy.CreatedAt.IsZero() {
		pageCopy.CreatedAt = now
	}
	pageCopy.UpdatedAt = now

	r.pages[pageCopy.ID] = &pageCopy
	r.pagesBySlug[pageCopy.Slug] = pageCopy.ID

	result := pageCopy
	return &result, nil
}

// Category operations

func (r *Repository) GetCategoryByName(ctx context.Context, name string) (*tourimport.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.categoriesByName[name]
	if !exists {
		return nil, tourimport.ErrCategoryNotFound
	}

	categoryCopy := *r.categories[id]
	return &categoryCopy, nil
}

func (r *Repository) UpsertCategory(ctx context.Context, category *tourimport.Category) (*tourimport.Category, error) {
	if category.Name == "" {
		return nil, fmt.Errorf("category name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if id, exists := r.categoriesByName[category.Name]; exists {
		existing := r.categories[id]
		if category.ParentID != nil {
			existing.ParentID = category.ParentID
		}
		existing.UpdatedAt = now

		categoryCopy := *existing
		return &categoryCopy, nil
	}

	categoryCopy := *category
	if categoryCopy.ID == uuid.Nil {
		categoryCopy.ID = uuid.New()
	}
	if categoryCopy.CreatedAt.IsZero() {
		categoryCopy.CreatedAt = now
	}
	categoryCopy.UpdatedAt = now

	r.categories[categoryCopy.ID] = &categoryCopy
	r.categoriesByName[categoryCopy.Name] = categoryCopy.ID

	result := categoryCopy
	return &result, nil
}

func (r *Repository) UpsertPageCategory(ctx context.Context, pageID, categoryID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pages[pageID]; !exists {
		return tourimport.ErrPageNotFound
	}
	if _, exists := r.categories[categoryID]; !exists {
		return tourimport.ErrCategoryNotFound
	}

	key := fmt.Sprintf("%s:%s", pageID, categoryID)
	if _, exists := r.pageCategories[key]; exists {
		return nil
	}

	r.pageCategories[key] = &tourimport.PageCategory{
		PageID:     pageID,
		CategoryID: categoryID,
		CreatedAt:  time.Now().UTC(),
	}
	return nil
}

// Tour operations

func (r *Repository) GetTourByPageID(ctx context.Context, pageID uuid.UUID) (*tourimport.Tour, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.toursByPage[pageID]
	if !exists {
		return nil, tourimport.ErrTourNotFound
	}

	tourCopy := *r.tours[id]
	return &tourCopy, nil
}

func (r *Repository) UpsertTour(ctx context.Context, tour *tourimport.Tour) (*tourimport.Tour, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pages[tour.PageID]; !exists {
		return nil, tourimport.ErrPageNotFound
	}

	now := time.Now().UTC()
	if id, exists := r.toursByPage[tour.PageID]; exists {
		existing := r.tours[id]
		existing.Destination = tour.Destination
		existing.Price = tour.Price
		existing.ChildPrice = tour.ChildPrice
		existing.B2BPrice = tour.B2BPrice
		existing.Currency = tour.Currency
		existing.DurationDays = tour.DurationDays
		existing.Highlights = tour.Highlights
		// A run that produced no image keeps the previous hero.
		if tour.HeroImageID != nil {
			existing.HeroImageID = tour.HeroImageID
		}
		existing.UpdatedAt = now

		tourCopy := *existing
		return &tourCopy, nil
	}

	tourCopy := *tour
	if tourCopy.ID == uuid.Nil {
		tourCopy.ID = uuid.New()
	}
	if tourCopy.CreatedAt.IsZero() {
		tourCopy.CreatedAt = now
	}
	tourCopy.UpdatedAt = now

	r.tours[tourCopy.ID] = &tourCopy
	r.toursByPage[tourCopy.PageID] = tourCopy.ID

	result := tourCopy
	return &result, nil
}

func (r *Repository) ListTours(ctx context.Context) ([]*tourimport.Tour, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*tourimport.Tour, 0, len(r.tours))
	for _, tour := range r.tours {
		tourCopy := *tour
		result = append(result, &tourCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Image operations

func (r *Repository) GetImageByChecksum(ctx context.Context, checksum string) (*tourimport.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.imagesByChecksum[checksum]
	if !exists {
		return nil, tourimport.ErrImageNotFound
	}

	imageCopy := *r.images[id]
	return &imageCopy, nil
}

func (r *Repository) UpsertImage(ctx context.Context, image *tourimport.Image) (*tourimport.Image, error) {
	if image.Checksum == "" {
		return nil, fmt.Errorf("image checksum is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if id, exists := r.imagesByChecksum[image.Checksum]; exists {
		existing := r.images[id]
		// Owner links fill only when unset; the first owner is kept.
		if existing.PageID == nil && image.PageID != nil {
			existing.PageID = image.PageID
		}
		if existing.TourID == nil && image.TourID != nil {
			existing.TourID = image.TourID
		}
		if existing.Alt == "" {
			existing.Alt = image.Alt
		}
		if existing.Title == "" {
			existing.Title = image.Title
		}
		existing.UpdatedAt = now

		imageCopy := *existing
		return &imageCopy, nil
	}

	imageCopy := *image
	if imageCopy.ID == uuid.Nil {
		imageCopy.ID = uuid.New()
	}
	if imageCopy.CreatedAt.IsZero() {
		imageCopy.CreatedAt = now
	}
	imageCopy.UpdatedAt = now

	r.images[imageCopy.ID] = &imageCopy
	r.imagesByChecksum[imageCopy.Checksum] = imageCopy.ID

	result := imageCopy
	return &result, nil
}

func (r *Repository) ListImagesByPage(ctx context.Context, pageID uuid.UUID) ([]*tourimport.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*tourimport.Image
	for _, image := range r.images {
		if image.PageID != nil && *image.PageID == pageID {
			imageCopy := *image
			result = append(result, &imageCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Counts reports per-table row counts.
func (r *Repository) Counts(ctx context.Context) (*tourimport.RowCounts, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return &tourimport.RowCounts{
		Pages:          int64(len(r.pages)),
		Categories:     int64(len(r.categories)),
		PageCategories: int64(len(r.pageCategories)),
		Tours:          int64(len(r.tours)),
		Images:         int64(len(r.images)),
	}, nil
}
