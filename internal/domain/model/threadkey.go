package model

import (
	"net/url"
	"regexp"
	"strings"
)

// ThreadKey canonically identifies a thread or one of its alternate views
// (t = thread, s = single post view, p = post permalink), e.g. "t9001234".
type ThreadKey string

// PageKind is the page-type discriminator that selects which annotation pass
// runs against a document.
type PageKind string

const (
	PageKindPosts   PageKind = "posts"
	PageKindListing PageKind = "listing"
	PageKindOther   PageKind = "other"
)

var (
	threadKeyPattern = regexp.MustCompile(`/([tsp])(\d+)`)
	listingPattern   = regexp.MustCompile(`^/f\d+`)
)

// ResolveThreadKey returns the thread key embedded in rawURL. Only the first
// "/<t|s|p><digits>" occurrence counts, so pagination suffixes such as
// "t123p4" resolve to "t123".
func ResolveThreadKey(rawURL string) (ThreadKey, bool) {
	m := threadKeyPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	return ThreadKey(m[1] + m[2]), true
}

// CanonicalThreadKey accepts either a bare key ("t123", "t123p2") or a page
// URL and returns the canonical key. Values that name no thread report false.
func CanonicalThreadKey(raw string) (ThreadKey, bool) {
	if raw == "" {
		return "", false
	}
	if raw[0] != '/' && !strings.Contains(raw, "://") {
		raw = "/" + raw
	}
	return ResolveThreadKey(raw)
}

// ClassifyPage decides which annotation pass applies to a page URL.
// Listing pages are matched on the URL path so a host name never affects
// the result.
func ClassifyPage(rawURL string) PageKind {
	if _, ok := ResolveThreadKey(rawURL); ok {
		return PageKindPosts
	}

	path := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		path = u.Path
	}
	if listingPattern.MatchString(path) {
		return PageKindListing
	}
	return PageKindOther
}
