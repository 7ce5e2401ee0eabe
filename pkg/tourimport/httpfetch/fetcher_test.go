package httpfetch_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagekit/tourimport/pkg/tourimport"
	"github.com/voyagekit/tourimport/pkg/tourimport/httpfetch"
)

// jpegHeader is enough of a JPEG prefix for content sniffing.
var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

func TestFetchImage(t *testing.T) {
	payload := append(bytes.Clone(jpegHeader), bytes.Repeat([]byte{0xAB}, 100)...)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg; charset=binary")
		w.Write(payload)
	}))
	defer srv.Close()

	f := httpfetch.New(httpfetch.Config{HTTPClient: srv.Client()})
	img, err := f.FetchImage(context.Background(), srv.URL+"/hero.jpg")
	require.NoError(t, err)

	assert.Equal(t, srv.URL+"/hero.jpg", img.SourceURL)
	assert.Equal(t, payload, img.Bytes)
	assert.Equal(t, "image/jpeg", img.MimeType, "content-type parameters are stripped")
}

func TestFetchImageDetectsMimeWhenHeaderMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(jpegHeader)
	}))
	defer srv.Close()

	f := httpfetch.New(httpfetch.Config{HTTPClient: srv.Client()})
	img, err := f.FetchImage(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MimeType)
}

func TestFetchImageNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := httpfetch.New(httpfetch.Config{HTTPClient: srv.Client()})
	_, err := f.FetchImage(context.Background(), srv.URL+"/missing.jpg")
	assert.ErrorIs(t, err, tourimport.ErrNotFoundAtSource)
}

func TestFetchImageGoneMapsToNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	f := httpfetch.New(httpfetch.Config{HTTPClient: srv.Client()})
	_, err := f.FetchImage(context.Background(), srv.URL)
	assert.ErrorIs(t, err, tourimport.ErrNotFoundAtSource)
}

func TestFetchImageServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := httpfetch.New(httpfetch.Config{HTTPClient: srv.Client()})
	_, err := f.FetchImage(context.Background(), srv.URL)

	var fetchErr *tourimport.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusServiceUnavailable, fetchErr.StatusCode)
	assert.True(t, tourimport.Retryable(err))
}

func TestFetchImageEnforcesSizeCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte{0xAB}, 2048))
	}))
	defer srv.Close()

	f := httpfetch.New(httpfetch.Config{HTTPClient: srv.Client(), MaxBytes: 1024})
	_, err := f.FetchImage(context.Background(), srv.URL)
	assert.ErrorIs(t, err, tourimport.ErrImageTooLarge)
}
