package memory_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagekit/tourimport/pkg/tourimport"
	"github.com/voyagekit/tourimport/pkg/tourimport/storage/memory"
)

func TestUploadDownloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()

	err := backend.UploadWithParams(ctx, strings.NewReader("hero bytes"), tourimport.UploadParams{
		ObjectKey: "tours/kanchanaburi/erawan/hero.jpg",
		MimeType:  "image/jpeg",
	})
	require.NoError(t, err)

	rc, err := backend.Download(ctx, "tours/kanchanaburi/erawan/hero.jpg")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hero bytes", string(data))

	meta, err := backend.GetObjectMeta(ctx, "tours/kanchanaburi/erawan/hero.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(10), meta.Size)
	assert.Equal(t, "image/jpeg", meta.ContentType)
}

func TestUploadOverwritesInPlace(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	key := "tours/bangkok/city/hero.jpg"

	require.NoError(t, backend.Upload(ctx, key, strings.NewReader("first")))
	require.NoError(t, backend.Upload(ctx, key, strings.NewReader("second, longer")))

	stats, err := backend.Stats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ObjectCount)
	assert.Equal(t, int64(14), stats.TotalBytes)
}

func TestDownloadMissingObject(t *testing.T) {
	_, err := memory.New().Download(context.Background(), "nope")
	assert.ErrorIs(t, err, tourimport.ErrObjectNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()

	require.NoError(t, backend.Upload(ctx, "a", strings.NewReader("x")))
	require.NoError(t, backend.Delete(ctx, "a"))
	assert.ErrorIs(t, backend.Delete(ctx, "a"), tourimport.ErrObjectNotFound)
}

func TestListFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()

	require.NoError(t, backend.Upload(ctx, "tours/b/x/hero.jpg", strings.NewReader("1")))
	require.NoError(t, backend.Upload(ctx, "tours/a/y/hero.jpg", strings.NewReader("2")))
	require.NoError(t, backend.Upload(ctx, "other/z.jpg", strings.NewReader("3")))

	metas, err := backend.List(ctx, "tours/")
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, "tours/a/y/hero.jpg", metas[0].Key)
	assert.Equal(t, "tours/b/x/hero.jpg", metas[1].Key)
}

func TestPublicURL(t *testing.T) {
	backend := memory.NewWithURLPrefix("https://cdn.example.com/")
	assert.Equal(t, "https://cdn.example.com/tours/a/hero.jpg", backend.PublicURL("tours/a/hero.jpg"))
}
