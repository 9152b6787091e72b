// Package page holds a live forum document. It is the Go stand-in for the
// browser DOM the overlay runs against: callers edit it under a lock, bind
// handlers to injected controls, and observe structural changes made by the
// forum side.
package page

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/ericfisherdev/forumfilter/internal/domain/model"
)

// ControlAttr marks an element that has a handler bound to it.
const ControlAttr = "data-ff-control"

// ErrUnknownControl is returned by Click for an id that was never bound or
// whose element is no longer in the document.
var ErrUnknownControl = errors.New("unknown control")

// ClickFunc handles a click on a bound control. It runs without the
// document lock held and may call Edit.
type ClickFunc func(ctx context.Context) error

// Control describes a bound element currently in the document.
type Control struct {
	ID    string `json:"id"`
	Class string `json:"class"`
	Label string `json:"label"`
}

// Document is a parsed HTML page guarded by a mutex.
type Document struct {
	mu   sync.Mutex
	url  string
	doc  *goquery.Document
	seq  int
	bind map[string]ClickFunc

	obsMu     sync.Mutex
	obsSeq    int
	observers map[int]func()
}

// Parse reads an HTML document loaded from rawURL.
func Parse(rawURL string, r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	return &Document{
		url:       rawURL,
		doc:       doc,
		bind:      make(map[string]ClickFunc),
		observers: make(map[int]func()),
	}, nil
}

// ParseString is Parse over a string body.
func ParseString(rawURL, body string) (*Document, error) {
	return Parse(rawURL, strings.NewReader(body))
}

// URL returns the address the document was loaded from.
func (d *Document) URL() string { return d.url }

// Kind classifies the document by its URL.
func (d *Document) Kind() model.PageKind { return model.ClassifyPage(d.url) }

// ThreadKey resolves the thread the document belongs to.
func (d *Document) ThreadKey() (model.ThreadKey, bool) {
	return model.ResolveThreadKey(d.url)
}

// Editor gives access to the document inside Edit.
type Editor struct {
	d *Document
}

// Root returns the whole document as a selection.
func (e *Editor) Root() *goquery.Selection {
	return e.d.doc.Selection
}

// Bind registers fn as the click handler for n and returns the control id.
// The id is written to n's ControlAttr attribute.
func (e *Editor) Bind(n *html.Node, fn ClickFunc) string {
	e.d.seq++
	id := "c" + strconv.Itoa(e.d.seq)
	setAttr(n, ControlAttr, id)
	e.d.bind[id] = fn
	return id
}

// Edit runs fn with exclusive access to the document. Changes made here
// belong to the overlay and do not notify observers.
func (d *Document) Edit(fn func(e *Editor)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(&Editor{d: d})
}

// Mutate applies a structural change made by the page itself, such as
// content loaded after the initial render, and notifies observers.
func (d *Document) Mutate(fn func(root *goquery.Selection) error) error {
	d.mu.Lock()
	err := fn(d.doc.Selection)
	d.mu.Unlock()
	if err != nil {
		return err
	}
	d.notify()
	return nil
}

// Observe registers fn to be called after every Mutate. The returned
// function unregisters it.
func (d *Document) Observe(fn func()) (cancel func()) {
	d.obsMu.Lock()
	defer d.obsMu.Unlock()

	d.obsSeq++
	id := d.obsSeq
	d.observers[id] = fn

	return func() {
		d.obsMu.Lock()
		defer d.obsMu.Unlock()
		delete(d.observers, id)
	}
}

func (d *Document) notify() {
	d.obsMu.Lock()
	fns := make([]func(), 0, len(d.observers))
	for _, fn := range d.observers {
		fns = append(fns, fn)
	}
	d.obsMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Click invokes the handler bound to id.
func (d *Document) Click(ctx context.Context, id string) error {
	d.mu.Lock()
	fn, ok := d.bind[id]
	if ok && d.findControl(id) == nil {
		delete(d.bind, id)
		ok = false
	}
	d.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownControl, id)
	}
	return fn(ctx)
}

// Controls lists the bound controls still present, in document order.
// Handlers whose elements were removed are dropped.
func (d *Document) Controls() []Control {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []Control
	seen := make(map[string]bool)
	d.doc.Find("[" + ControlAttr + "]").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr(ControlAttr)
		if _, bound := d.bind[id]; !bound || seen[id] {
			return
		}
		seen[id] = true
		class, _ := s.Attr("class")
		out = append(out, Control{ID: id, Class: class, Label: strings.TrimSpace(s.Text())})
	})

	for id := range d.bind {
		if !seen[id] {
			delete(d.bind, id)
		}
	}
	return out
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, n := range d.doc.Nodes {
		if err := html.Render(w, n); err != nil {
			return fmt.Errorf("render %s: %w", d.url, err)
		}
	}
	return nil
}

// HTML returns the rendered document.
func (d *Document) HTML() (string, error) {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (d *Document) findControl(id string) *goquery.Selection {
	sel := d.doc.Find(fmt.Sprintf("[%s=%q]", ControlAttr, id))
	if sel.Length() == 0 {
		return nil
	}
	return sel
}
