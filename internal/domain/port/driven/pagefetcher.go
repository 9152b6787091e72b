package driven

import "context"

// Page is a fetched forum document.
type Page struct {
	URL  string
	Body []byte
}

// PageFetcher loads forum pages from the upstream site.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}
