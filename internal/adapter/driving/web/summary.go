package web

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	summaryRenderer = goldmark.New()
	summaryPolicy   = newSummaryPolicy()
)

// newSummaryPolicy admits only the markup PopupView.Markdown produces.
func newSummaryPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("h2", "h3", "ul", "li", "p", "em")
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.RequireParseableURLs(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// renderSummary converts the popup summary Markdown to HTML. Raw HTML in
// the source is dropped by goldmark and anything else outside the summary
// policy is stripped.
func renderSummary(src string) string {
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := summaryRenderer.Convert([]byte(src), &buf); err != nil {
		return summaryPolicy.Sanitize(src)
	}
	return summaryPolicy.Sanitize(buf.String())
}
