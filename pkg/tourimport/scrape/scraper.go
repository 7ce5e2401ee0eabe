// Package scrape retrieves normalized page content (title, description,
// body text, image URLs) from a source URL. It implements the
// tourimport.Scraper interface over plain HTML; a vendor scraping API
// can be substituted behind the same interface.
package scrape

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/voyagekit/tourimport/pkg/tourimport"
)

const defaultTimeout = 30 * time.Second

// maxBodyBytes caps how much HTML is read from a page.
const maxBodyBytes = 5 << 20

// Config options for the HTML scraper.
type Config struct {
	Timeout   time.Duration
	UserAgent string
	// HTTPClient overrides the default client when non-nil.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Scraper fetches pages over HTTP and extracts content with goquery.
type Scraper struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

// New creates an HTML scraper.
func New(cfg Config) *Scraper {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{client: client, userAgent: cfg.UserAgent, logger: logger}
}

// Fetch retrieves and normalizes one page. All image URLs are resolved
// to absolute form against the page's base URL; unresolvable ones are
// dropped (logged, not fatal).
func (s *Scraper) Fetch(ctx context.Context, pageURL string) (*tourimport.PageContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &tourimport.ScrapeError{URL: pageURL, Reason: "invalid URL", Err: err}
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &tourimport.ScrapeError{URL: pageURL, Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &tourimport.ScrapeError{
			URL:    pageURL,
			Reason: fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &tourimport.ScrapeError{URL: pageURL, Reason: "reading body", Err: err}
	}
	html := string(raw)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &tourimport.ScrapeError{URL: pageURL, Reason: "parsing HTML", Err: err}
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, &tourimport.ScrapeError{URL: pageURL, Reason: "invalid base URL", Err: err}
	}

	content := &tourimport.PageContent{
		URL:         pageURL,
		Title:       extractTitle(doc),
		Description: strings.TrimSpace(doc.Find(`meta[name="description"]`).AttrOr("content", "")),
		Markdown:    extractBodyText(doc),
		HTML:        html,
	}

	content.ImageURLs = s.extractImageURLs(doc, base)
	return content, nil
}

func extractTitle(doc *goquery.Document) string {
	if og := strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", "")); og != "" {
		return og
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// extractBodyText flattens the main content area into paragraph-separated
// text, preferring <article>/<main> over the full body.
func extractBodyText(doc *goquery.Document) string {
	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}

	var paragraphs []string
	root.Find("h1, h2, h3, p, li").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return strings.Join(paragraphs, "\n\n")
}

// extractImageURLs collects structured image references (og:image,
// figures) and falls back to every <img src> when none are found.
func (s *Scraper) extractImageURLs(doc *goquery.Document, base *url.URL) []string {
	var candidates []string
	doc.Find(`meta[property="og:image"]`).Each(func(_ int, sel *goquery.Selection) {
		candidates = append(candidates, sel.AttrOr("content", ""))
	})
	doc.Find("figure img").Each(func(_ int, sel *goquery.Selection) {
		candidates = append(candidates, sel.AttrOr("src", ""))
	})

	if len(candidates) == 0 {
		doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
			candidates = append(candidates, sel.AttrOr("src", ""))
		})
	}

	seen := make(map[string]bool, len(candidates))
	var urls []string
	for _, candidate := range candidates {
		resolved, ok := s.resolve(base, candidate)
		if !ok || seen[resolved] {
			continue
		}
		seen[resolved] = true
		urls = append(urls, resolved)
	}
	return urls
}

// resolve makes an image reference absolute against the page base.
// Invalid or unresolvable references are dropped silently.
func (s *Scraper) resolve(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "data:") {
		return "", false
	}

	parsed, err := url.Parse(ref)
	if err != nil {
		s.logger.Debug("dropping unparseable image URL", "url", ref, "error", err)
		return "", false
	}

	abs := base.ResolveReference(parsed)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		s.logger.Debug("dropping non-http image URL", "url", abs.String())
		return "", false
	}
	return abs.String(), true
}
