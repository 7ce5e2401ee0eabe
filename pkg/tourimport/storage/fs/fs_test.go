package fs_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagekit/tourimport/pkg/tourimport"
	fsstorage "github.com/voyagekit/tourimport/pkg/tourimport/storage/fs"
)

func newBackend(t *testing.T) *fsstorage.Backend {
	t.Helper()
	backend, err := fsstorage.New(fsstorage.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	return backend
}

func TestNewRequiresBaseDir(t *testing.T) {
	_, err := fsstorage.New(fsstorage.Config{})
	assert.Error(t, err)
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := newBackend(t)

	key := "tours/kanchanaburi/erawan/hero.jpg"
	require.NoError(t, backend.Upload(ctx, key, strings.NewReader("hero bytes")))

	rc, err := backend.Download(ctx, key)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hero bytes", string(data))
}

func TestUploadOverwrites(t *testing.T) {
	ctx := context.Background()
	backend := newBackend(t)
	key := "tours/a/b/hero.jpg"

	require.NoError(t, backend.Upload(ctx, key, strings.NewReader("first")))
	require.NoError(t, backend.Upload(ctx, key, strings.NewReader("second")))

	stats, err := backend.Stats(ctx, "tours/")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ObjectCount)
	assert.Equal(t, int64(6), stats.TotalBytes)
}

func TestDownloadMissing(t *testing.T) {
	_, err := newBackend(t).Download(context.Background(), "missing.jpg")
	assert.ErrorIs(t, err, tourimport.ErrObjectNotFound)
}

func TestSafePathRejectsTraversal(t *testing.T) {
	base := t.TempDir()
	backend, err := fsstorage.New(fsstorage.Config{BaseDir: base})
	require.NoError(t, err)

	// Traversal components are cleaned away; the write stays inside base.
	require.NoError(t, backend.Upload(context.Background(), "../../etc/passwd", strings.NewReader("x")))

	outside := filepath.Join(filepath.Dir(base), "etc", "passwd")
	_, statErr := os.Stat(outside)
	assert.True(t, os.IsNotExist(statErr))
}

func TestListAndStats(t *testing.T) {
	ctx := context.Background()
	backend := newBackend(t)

	require.NoError(t, backend.Upload(ctx, "tours/a/hero.jpg", strings.NewReader("aa")))
	require.NoError(t, backend.Upload(ctx, "tours/b/hero.jpg", strings.NewReader("bbb")))
	require.NoError(t, backend.Upload(ctx, "misc/readme.txt", strings.NewReader("c")))

	metas, err := backend.List(ctx, "tours/")
	require.NoError(t, err)
	assert.Len(t, metas, 2)

	stats, err := backend.Stats(ctx, "tours/")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.ObjectCount)
	assert.Equal(t, int64(5), stats.TotalBytes)
}

func TestPublicURL(t *testing.T) {
	backend, err := fsstorage.New(fsstorage.Config{BaseDir: t.TempDir(), URLPrefix: "https://cdn.example.com/media/"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/media/tours/a/hero.jpg", backend.PublicURL("tours/a/hero.jpg"))
}
