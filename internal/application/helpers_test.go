package application_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/forumfilter/internal/adapter/driven/memory"
	"github.com/ericfisherdev/forumfilter/internal/adapter/driven/prefs"
	"github.com/ericfisherdev/forumfilter/internal/application"
	"github.com/ericfisherdev/forumfilter/internal/domain/model"
	"github.com/ericfisherdev/forumfilter/internal/page"
)

const threadURL = "https://www.flashback.org/t123p2"

const threadHTML = `<html><body>
<div id="posts">
  <div data-postid="1">
    <span class="post-user-username"> alice </span>
    <div class="post-col post-right">first</div>
    <div class="post-footer"><a href="/report/1">Rapportera</a><a href="/q/1">Citera</a><a href="/qp/1">Citera+</a></div>
  </div>
  <div data-postid="2">
    <span class="post-user-username">bob</span>
    <div class="post-col post-right">second</div>
    <div class="post-footer"><a href="/report/2">Rapportera</a></div>
  </div>
  <div data-postid="3">
    <span class="post-user-username">alice</span>
    <div class="post-col post-right">third, no report link</div>
  </div>
</div>
</body></html>`

const listingURL = "https://www.flashback.org/f12"

const listingHTML = `<html><body>
<table id="layout"><tbody><tr><td>
<table id="threads"><tbody>
  <tr id="r100"><td class="td_title" id="td_title_100"><a href="/t100">Thread 100</a><span style="cursor:pointer">alice</span></td></tr>
  <tr id="r200"><td class="td_title" id="td_title_200"><a href="/t200">Thread 200</a><span style="cursor: pointer">eve</span></td></tr>
  <tr id="r300"><td class="td_title" id="td_title_300"><a href="/t300">Thread 300</a><span>eve</span></td></tr>
</tbody></table>
</td></tr></tbody></table>
</body></html>`

func newStore() *prefs.Store {
	return prefs.NewStore(memory.NewKVStore(), nil)
}

func newAnnotator(store *prefs.Store) *application.Annotator {
	return application.NewAnnotator(store, model.DefaultProfile(), nil)
}

func parseDoc(t *testing.T, url, body string) *page.Document {
	t.Helper()
	doc, err := page.ParseString(url, body)
	require.NoError(t, err)
	return doc
}

// inspect runs fn against the live document.
func inspect(doc *page.Document, fn func(root *goquery.Selection)) {
	doc.Edit(func(e *page.Editor) { fn(e.Root()) })
}

// controlID returns the id of the control matching selector.
func controlID(t *testing.T, doc *page.Document, selector string) string {
	t.Helper()
	var id string
	inspect(doc, func(root *goquery.Selection) {
		id, _ = root.Find(selector).First().Attr(page.ControlAttr)
	})
	require.NotEmpty(t, id, "no control matches %s", selector)
	return id
}

func click(t *testing.T, doc *page.Document, selector string) {
	t.Helper()
	require.NoError(t, doc.Click(context.Background(), controlID(t, doc, selector)))
}

func post(id string) string {
	return fmt.Sprintf(`[data-postid="%s"]`, id)
}

func hidden(doc *page.Document, selector string) bool {
	var h bool
	inspect(doc, func(root *goquery.Selection) {
		h = page.IsHidden(root.Find(selector).First())
	})
	return h
}

func styleOf(doc *page.Document, selector, prop string) string {
	var v string
	inspect(doc, func(root *goquery.Selection) {
		v = page.Style(root.Find(selector).First(), prop)
	})
	return v
}

func textOf(doc *page.Document, selector string) string {
	var v string
	inspect(doc, func(root *goquery.Selection) {
		v = root.Find(selector).First().Text()
	})
	return v
}

func renderHTML(t *testing.T, doc *page.Document) string {
	t.Helper()
	out, err := doc.HTML()
	require.NoError(t, err)
	return out
}
