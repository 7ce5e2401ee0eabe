// Package httpfetch downloads raw image bytes over HTTP with a size cap
// and a MIME allowlist, implementing tourimport.ImageFetcher. A 404
// from the source maps to ErrNotFoundAtSource so callers can treat it
// as a skip instead of a retryable failure.
package httpfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voyagekit/tourimport/pkg/tourimport"
)

const defaultTimeout = 30 * time.Second

// Config options for the image fetcher.
type Config struct {
	Timeout time.Duration
	// MaxBytes caps the download size; zero means the pipeline default.
	MaxBytes  int64
	UserAgent string
	// HTTPClient overrides the default client when non-nil.
	HTTPClient *http.Client
}

// Fetcher downloads images with net/http.
type Fetcher struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
}

// New creates an image fetcher.
func New(cfg Config) *Fetcher {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = tourimport.DefaultMaxImageBytes
	}
	return &Fetcher{client: client, maxBytes: maxBytes, userAgent: cfg.UserAgent}
}

// FetchImage downloads one image. The size cap is enforced while
// reading, not after, so an oversized body never buffers fully.
func (f *Fetcher) FetchImage(ctx context.Context, url string) (*tourimport.FetchedImage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &tourimport.FetchError{URL: url, Err: err}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &tourimport.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%w: %s", tourimport.ErrNotFoundAtSource, url)
	case resp.StatusCode != http.StatusOK:
		return nil, &tourimport.FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, &tourimport.FetchError{URL: url, Err: err}
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", tourimport.ErrImageTooLarge, url, f.maxBytes)
	}

	mime := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(data)
	}

	return &tourimport.FetchedImage{
		SourceURL: url,
		Bytes:     data,
		MimeType:  mime,
	}, nil
}
