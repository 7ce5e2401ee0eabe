package memory_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagekit/tourimport/pkg/tourimport"
	"github.com/voyagekit/tourimport/pkg/tourimport/repo/memory"
)

func TestUpsertPageBySlug(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	first, err := repo.UpsertPage(ctx, &tourimport.Page{Slug: "erawan-falls", Title: "Erawan Falls"})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, first.ID)

	// Same slug updates in place and keeps the id.
	second, err := repo.UpsertPage(ctx, &tourimport.Page{Slug: "erawan-falls", Title: "Erawan Falls Day Trip"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Erawan Falls Day Trip", second.Title)

	got, err := repo.GetPageBySlug(ctx, "erawan-falls")
	require.NoError(t, err)
	assert.Equal(t, "Erawan Falls Day Trip", got.Title)

	byID, err := repo.GetPageByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Slug, byID.Slug)

	counts, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Pages)
}

func TestUpsertPageRequiresSlug(t *testing.T) {
	_, err := memory.New().UpsertPage(context.Background(), &tourimport.Page{Title: "No Slug"})
	assert.Error(t, err)
}

func TestGetPageNotFound(t *testing.T) {
	repo := memory.New()
	_, err := repo.GetPageBySlug(context.Background(), "missing")
	assert.ErrorIs(t, err, tourimport.ErrPageNotFound)

	_, err = repo.GetPageByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, tourimport.ErrPageNotFound)
}

func TestUpsertCategoryByName(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	first, err := repo.UpsertCategory(ctx, &tourimport.Category{Name: "Day Trips"})
	require.NoError(t, err)

	second, err := repo.UpsertCategory(ctx, &tourimport.Category{Name: "Day Trips"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	parent, err := repo.UpsertCategory(ctx, &tourimport.Category{Name: "Activities"})
	require.NoError(t, err)

	// A later upsert may attach a parent; nil parent never clears one.
	withParent, err := repo.UpsertCategory(ctx, &tourimport.Category{Name: "Day Trips", ParentID: &parent.ID})
	require.NoError(t, err)
	require.NotNil(t, withParent.ParentID)

	again, err := repo.UpsertCategory(ctx, &tourimport.Category{Name: "Day Trips"})
	require.NoError(t, err)
	require.NotNil(t, again.ParentID)
	assert.Equal(t, parent.ID, *again.ParentID)
}

func TestUpsertPageCategoryIsUniqueOnPair(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	page, err := repo.UpsertPage(ctx, &tourimport.Page{Slug: "erawan-falls"})
	require.NoError(t, err)
	category, err := repo.UpsertCategory(ctx, &tourimport.Category{Name: "Day Trips"})
	require.NoError(t, err)

	require.NoError(t, repo.UpsertPageCategory(ctx, page.ID, category.ID))
	require.NoError(t, repo.UpsertPageCategory(ctx, page.ID, category.ID))

	counts, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.PageCategories)
}

func TestUpsertPageCategoryChecksReferences(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	page, err := repo.UpsertPage(ctx, &tourimport.Page{Slug: "erawan-falls"})
	require.NoError(t, err)

	err = repo.UpsertPageCategory(ctx, page.ID, uuid.New())
	assert.ErrorIs(t, err, tourimport.ErrCategoryNotFound)

	category, err := repo.UpsertCategory(ctx, &tourimport.Category{Name: "Day Trips"})
	require.NoError(t, err)
	err = repo.UpsertPageCategory(ctx, uuid.New(), category.ID)
	assert.ErrorIs(t, err, tourimport.ErrPageNotFound)
}

func TestUpsertTourByPageID(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	page, err := repo.UpsertPage(ctx, &tourimport.Page{Slug: "erawan-falls"})
	require.NoError(t, err)

	heroID := uuid.New()
	first, err := repo.UpsertTour(ctx, &tourimport.Tour{
		PageID:      page.ID,
		Price:       1900,
		Currency:    "THB",
		HeroImageID: &heroID,
	})
	require.NoError(t, err)

	// Re-upsert with nil hero: commercial fields update, hero survives.
	second, err := repo.UpsertTour(ctx, &tourimport.Tour{
		PageID:   page.ID,
		Price:    2100,
		Currency: "THB",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2100.0, second.Price)
	require.NotNil(t, second.HeroImageID)
	assert.Equal(t, heroID, *second.HeroImageID)

	counts, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Tours)
}

func TestUpsertTourRequiresPage(t *testing.T) {
	_, err := memory.New().UpsertTour(context.Background(), &tourimport.Tour{PageID: uuid.New()})
	assert.ErrorIs(t, err, tourimport.ErrPageNotFound)
}

func TestUpsertImageByChecksum(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	pageA := uuid.New()
	pageB := uuid.New()
	tourB := uuid.New()

	first, err := repo.UpsertImage(ctx, &tourimport.Image{
		Checksum:    "abc123",
		SourceURL:   "https://img.example.com/a.jpg",
		StoragePath: "tours/x/y/hero.jpg",
		PageID:      &pageA,
	})
	require.NoError(t, err)

	// Same checksum from a different owner: row is reused, the first
	// page owner is kept, the unset tour owner fills in.
	second, err := repo.UpsertImage(ctx, &tourimport.Image{
		Checksum: "abc123",
		PageID:   &pageB,
		TourID:   &tourB,
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, second.PageID)
	assert.Equal(t, pageA, *second.PageID)
	require.NotNil(t, second.TourID)
	assert.Equal(t, tourB, *second.TourID)
	assert.Equal(t, "tours/x/y/hero.jpg", second.StoragePath)

	got, err := repo.GetImageByChecksum(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestUpsertImageRequiresChecksum(t *testing.T) {
	_, err := memory.New().UpsertImage(context.Background(), &tourimport.Image{})
	assert.Error(t, err)
}

func TestListImagesByPage(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	pageID := uuid.New()
	otherPage := uuid.New()

	for i, checksum := range []string{"c1", "c2", "c3"} {
		owner := pageID
		if i == 2 {
			owner = otherPage
		}
		_, err := repo.UpsertImage(ctx, &tourimport.Image{Checksum: checksum, PageID: &owner})
		require.NoError(t, err)
	}

	images, err := repo.ListImagesByPage(ctx, pageID)
	require.NoError(t, err)
	assert.Len(t, images, 2)
}

func TestCopyOnReadIsolation(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	page, err := repo.UpsertPage(ctx, &tourimport.Page{Slug: "erawan-falls", Title: "Original"})
	require.NoError(t, err)

	// Mutating a returned row must not leak into the store.
	page.Title = "Mutated"

	got, err := repo.GetPageBySlug(ctx, "erawan-falls")
	require.NoError(t, err)
	assert.Equal(t, "Original", got.Title)
}
