// Package upstream implements the PageFetcher port against the live forum.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/microcosm-cc/bluemonday"

	"github.com/ericfisherdev/forumfilter/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PageFetcher = (*Fetcher)(nil)

var (
	// ErrForeignHost is returned for URLs outside the upstream forum.
	ErrForeignHost = errors.New("url is not on the upstream forum")

	// ErrNotHTML is returned when the upstream answers with another media type.
	ErrNotHTML = errors.New("upstream response is not text/html")

	// ErrStatus is returned for non-2xx upstream responses.
	ErrStatus = errors.New("unexpected upstream status")

	// ErrTooLarge is returned for pages above the body size limit.
	ErrTooLarge = errors.New("upstream page too large")
)

const (
	defaultTimeout = 20 * time.Second
	maxBodyBytes   = 8 << 20
	userAgent      = "forumfilter/1.0"
)

// Options configures a Fetcher.
type Options struct {
	// BaseURL is the forum root, e.g. https://www.flashback.org.
	BaseURL string
	// Sanitize strips scripts and active content from fetched pages.
	Sanitize bool
	Timeout  time.Duration
	// Transport is the round tripper under the cache. Nil means
	// http.DefaultTransport.
	Transport http.RoundTripper
	// MaxBodyBytes caps the page size; zero means 8 MiB.
	MaxBodyBytes int64
}

// Fetcher downloads forum pages through an in-memory HTTP cache honoring
// the forum's cache headers.
type Fetcher struct {
	client *http.Client
	base   *url.URL
	policy  *bluemonday.Policy
	maxBody int64
	logger  *slog.Logger
}

// NewFetcher creates a Fetcher for the forum at opts.BaseURL.
func NewFetcher(opts Options, logger *slog.Logger) (*Fetcher, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("parsing base URL %q: scheme and host are required", opts.BaseURL)
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	cache := httpcache.NewMemoryCacheTransport()
	cache.Transport = opts.Transport

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = maxBodyBytes
	}

	f := &Fetcher{
		client:  &http.Client{Transport: cache, Timeout: timeout},
		base:    base,
		maxBody: maxBody,
		logger:  logger,
	}
	if opts.Sanitize {
		f.policy = pagePolicy()
	}
	return f, nil
}

// pagePolicy keeps the markup the annotator relies on: ids, classes, data
// attributes, tables and the cursor style the listing uses to mark authors.
func pagePolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowDataAttributes()
	p.AllowAttrs("id", "class").Globally()
	p.AllowStyles("cursor").Globally()
	p.AllowElements("html", "head", "body", "title", "span", "div")
	return p
}

// Resolve turns a forum-relative path such as "t123p2" into an absolute URL.
func (f *Fetcher) Resolve(path string) string {
	u := *f.base
	u.Path = strings.TrimRight(f.base.Path, "/") + "/" + strings.TrimLeft(path, "/")
	return u.String()
}

// Fetch downloads rawURL. Only pages on the upstream host are fetched.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (driven.Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return driven.Page{}, fmt.Errorf("parsing page URL: %w", err)
	}
	if !strings.EqualFold(u.Host, f.base.Host) {
		return driven.Page{}, fmt.Errorf("%w: %s", ErrForeignHost, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return driven.Page{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return driven.Page{}, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return driven.Page{}, fmt.Errorf("fetching %s: %w: %d", rawURL, ErrStatus, resp.StatusCode)
	}
	if mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mediaType != "text/html" {
		return driven.Page{}, fmt.Errorf("fetching %s: %w (%q)", rawURL, ErrNotHTML, resp.Header.Get("Content-Type"))
	}

	// One byte past the limit tells a full page from a cut one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return driven.Page{}, fmt.Errorf("reading %s: %w", rawURL, err)
	}
	if int64(len(body)) > f.maxBody {
		return driven.Page{}, fmt.Errorf("reading %s: %w (over %d bytes)", rawURL, ErrTooLarge, f.maxBody)
	}
	if f.policy != nil {
		body = f.policy.SanitizeBytes(body)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	f.logger.Debug("fetched upstream page",
		"url", finalURL,
		"bytes", len(body),
		"cached", resp.Header.Get(httpcache.XFromCache) == "1",
	)
	return driven.Page{URL: finalURL, Body: body}, nil
}
