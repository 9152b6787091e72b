package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/ericfisherdev/forumfilter/internal/domain/model"
	"github.com/ericfisherdev/forumfilter/internal/domain/port/driven"
	"github.com/ericfisherdev/forumfilter/internal/page"
)

// ErrNoThreadKey is returned when a per-thread ignore is requested on a page
// whose URL does not identify a thread.
var ErrNoThreadKey = errors.New("page has no thread key")

// Marker attributes record which inline styles the overlay owns, so a later
// pass can undo them when the store no longer asks for them.
const (
	hiddenAttr    = "data-ff-hidden"
	highlightAttr = "data-ff-highlight"
)

// Classes of the injected controls.
const (
	ClassLike        = "fb-interest-btn"
	ClassHide        = "fb-hide-btn"
	ClassLightIgnore = "fb-lightignore-btn"
	ClassIgnore      = "fb-ignore-btn"
	ClassHideThread  = "hide-thread-btn"
	ClassMarkThread  = "mark-thread-btn"
)

// Annotator projects the preference store onto a forum document and injects
// the per-post and per-thread controls. Every pass re-reads the store and
// re-queries the document; nothing is cached between passes.
type Annotator struct {
	store   driven.PreferenceStore
	profile model.Profile
	logger  *slog.Logger
}

// NewAnnotator creates an Annotator for the given forum profile.
func NewAnnotator(store driven.PreferenceStore, profile model.Profile, logger *slog.Logger) *Annotator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Annotator{store: store, profile: profile, logger: logger}
}

// Apply runs the pass matching the document's page kind. Pages that are
// neither threads nor listings are left alone.
func (a *Annotator) Apply(ctx context.Context, doc *page.Document) error {
	switch doc.Kind() {
	case model.PageKindPosts:
		return a.AnnotatePosts(ctx, doc)
	case model.PageKindListing:
		return a.AnnotateListing(ctx, doc)
	default:
		return nil
	}
}

// ApplyIgnoredUsers re-projects visibility after the global ignore list
// changed. On thread pages this covers posts, on listings the thread rows.
func (a *Annotator) ApplyIgnoredUsers(ctx context.Context, doc *page.Document) error {
	if doc.Kind() == model.PageKindListing {
		return a.refreshListing(ctx, doc)
	}
	return a.refreshPosts(ctx, doc)
}

// ApplyLightIgnored re-projects post visibility for the document's thread.
func (a *Annotator) ApplyLightIgnored(ctx context.Context, doc *page.Document) error {
	if _, ok := doc.ThreadKey(); !ok {
		return nil
	}
	return a.refreshPosts(ctx, doc)
}

// postState is the store content a post-page pass needs.
type postState struct {
	hidden  []string
	liked   []string
	ignored []string
	light   []string
}

func (s postState) hides(id, username string) bool {
	if model.Contains(s.hidden, id) {
		return true
	}
	if username == "" {
		return false
	}
	return model.Contains(s.ignored, username) || model.Contains(s.light, username)
}

func (a *Annotator) loadPostState(ctx context.Context, doc *page.Document) (postState, error) {
	var st postState
	var err error

	if st.hidden, err = a.store.HiddenPosts(ctx); err != nil {
		return st, fmt.Errorf("load hidden posts: %w", err)
	}
	if st.liked, err = a.store.LikedPosts(ctx); err != nil {
		return st, fmt.Errorf("load liked posts: %w", err)
	}
	if st.ignored, err = a.store.IgnoredUsers(ctx); err != nil {
		return st, fmt.Errorf("load ignored users: %w", err)
	}

	if key, ok := doc.ThreadKey(); ok {
		light, err := a.store.LightIgnored(ctx)
		if err != nil {
			return st, fmt.Errorf("load light-ignored users: %w", err)
		}
		st.light = light.Users(key)
	}
	return st, nil
}

// AnnotatePosts runs the thread-page pass: it injects controls into posts
// that lack them and projects visibility and highlight onto every post.
func (a *Annotator) AnnotatePosts(ctx context.Context, doc *page.Document) error {
	st, err := a.loadPostState(ctx, doc)
	if err != nil {
		return err
	}

	doc.Edit(func(e *page.Editor) {
		e.Root().Find(a.profile.Posts.Post).Each(func(_ int, post *goquery.Selection) {
			id, _ := post.Attr(a.profile.Posts.IDAttr)
			if id == "" {
				a.logger.Debug("skipping post without id", "url", doc.URL())
				return
			}
			if !hasPostControls(post) {
				a.insertPostControls(e, doc, post, id)
			}
			a.projectPost(post, id, st)
		})
	})
	return nil
}

func (a *Annotator) refreshPosts(ctx context.Context, doc *page.Document) error {
	st, err := a.loadPostState(ctx, doc)
	if err != nil {
		return err
	}

	doc.Edit(func(e *page.Editor) {
		e.Root().Find(a.profile.Posts.Post).Each(func(_ int, post *goquery.Selection) {
			if id, _ := post.Attr(a.profile.Posts.IDAttr); id != "" {
				a.projectPost(post, id, st)
			}
		})
	})
	return nil
}

func hasPostControls(post *goquery.Selection) bool {
	return post.Find("."+ClassLike+", ."+ClassHide+", ."+ClassLightIgnore+", ."+ClassIgnore).Length() > 0
}

func (a *Annotator) username(post *goquery.Selection) string {
	return strings.TrimSpace(post.Find(a.profile.Posts.Username).First().Text())
}

func (a *Annotator) projectPost(post *goquery.Selection, id string, st postState) {
	hidden := st.hides(id, a.username(post))
	liked := model.Contains(st.liked, id)
	colors := a.profile.Colors

	setHidden(post, hidden)
	setHighlight(post.Find(a.profile.Posts.Content).First(), liked && !hidden, colors.Highlight, colors.HighlightText)

	if btn := post.Find("." + ClassLike).First(); btn.Length() > 0 {
		label, bg := a.profile.Labels.Like, colors.Highlight
		if liked {
			label, bg = a.profile.Labels.Unlike, colors.Active
		}
		page.SetText(btn.Nodes[0], label)
		page.SetStyle(btn, page.Decl{Property: "background", Value: bg})
	}
}

func (a *Annotator) findLink(post *goquery.Selection, label string) *goquery.Selection {
	return post.Find("a").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.TrimSpace(s.Text()) == label
	}).First()
}

func (a *Annotator) insertPostControls(e *page.Editor, doc *page.Document, post *goquery.Selection, id string) {
	anchor := a.findLink(post, a.profile.Posts.ReportLabel)
	if anchor.Length() == 0 {
		a.logger.Debug("skipping controls, report anchor missing", "post", id, "url", doc.URL())
		return
	}

	colors := a.profile.Colors
	labels := a.profile.Labels

	like := page.Button(ClassLike, labels.Like, postButtonStyle(colors.Highlight, colors.HighlightText)...)
	hide := page.Button(ClassHide, labels.Hide, append(postButtonStyle(colors.Neutral, colors.NeutralText),
		page.Decl{Property: "margin-left", Value: "1px"})...)
	light := page.Button(ClassLightIgnore, labels.IgnoreInThread, postButtonStyle(colors.Neutral, colors.NeutralText)...)
	ignore := page.Button(ClassIgnore, labels.Ignore, postButtonStyle(colors.Neutral, colors.NeutralText)...)

	e.Bind(like, func(ctx context.Context) error { return a.toggleLike(ctx, doc, id) })
	e.Bind(hide, func(ctx context.Context) error { return a.hidePost(ctx, doc, id) })
	e.Bind(light, func(ctx context.Context) error { return a.lightIgnoreAuthor(ctx, doc, id) })
	e.Bind(ignore, func(ctx context.Context) error { return a.ignoreAuthor(ctx, doc, id) })

	ref := anchor.Nodes[0]
	page.InsertBefore(ref, like, hide, light, ignore)

	page.SetStyle(anchor, forumLinkStyle(colors)...)
	for _, label := range a.profile.Posts.QuoteLabels {
		link := a.findLink(post, label)
		if link.Length() == 0 {
			continue
		}
		page.SetStyle(link, forumLinkStyle(colors)...)
		page.MoveAfter(ref, link.Nodes[0])
		ref = link.Nodes[0]
	}
}

// usernameOf reads the author of the post with the given id at click time.
func (a *Annotator) usernameOf(doc *page.Document, id string) string {
	var username string
	doc.Edit(func(e *page.Editor) {
		post := e.Root().Find(a.profile.Posts.Post).FilterFunction(func(_ int, s *goquery.Selection) bool {
			v, _ := s.Attr(a.profile.Posts.IDAttr)
			return v == id
		}).First()
		username = a.username(post)
	})
	return username
}

func (a *Annotator) toggleLike(ctx context.Context, doc *page.Document, id string) error {
	liked, err := a.store.LikedPosts(ctx)
	if err != nil {
		return fmt.Errorf("load liked posts: %w", err)
	}
	liked, _ = model.Toggle(liked, id)
	if err := a.store.SetLikedPosts(ctx, liked); err != nil {
		return fmt.Errorf("save liked posts: %w", err)
	}
	return a.refreshPosts(ctx, doc)
}

func (a *Annotator) hidePost(ctx context.Context, doc *page.Document, id string) error {
	hidden, err := a.store.HiddenPosts(ctx)
	if err != nil {
		return fmt.Errorf("load hidden posts: %w", err)
	}
	if hidden, added := model.AppendUnique(hidden, id); added {
		if err := a.store.SetHiddenPosts(ctx, hidden); err != nil {
			return fmt.Errorf("save hidden posts: %w", err)
		}
	}
	return a.refreshPosts(ctx, doc)
}

func (a *Annotator) ignoreAuthor(ctx context.Context, doc *page.Document, id string) error {
	username := a.usernameOf(doc, id)
	if username == "" {
		return nil
	}

	ignored, err := a.store.IgnoredUsers(ctx)
	if err != nil {
		return fmt.Errorf("load ignored users: %w", err)
	}
	if ignored, added := model.AppendUnique(ignored, username); added {
		if err := a.store.SetIgnoredUsers(ctx, ignored); err != nil {
			return fmt.Errorf("save ignored users: %w", err)
		}
	}
	a.logger.Info("user ignored", "username", username)
	return a.ApplyIgnoredUsers(ctx, doc)
}

func (a *Annotator) lightIgnoreAuthor(ctx context.Context, doc *page.Document, id string) error {
	username := a.usernameOf(doc, id)
	if username == "" {
		return nil
	}
	key, ok := doc.ThreadKey()
	if !ok {
		return fmt.Errorf("ignore %s in thread at %s: %w", username, doc.URL(), ErrNoThreadKey)
	}

	light, err := a.store.LightIgnored(ctx)
	if err != nil {
		return fmt.Errorf("load light-ignored users: %w", err)
	}
	if light.Add(key, username) {
		if err := a.store.SetLightIgnored(ctx, light); err != nil {
			return fmt.Errorf("save light-ignored users: %w", err)
		}
	}
	a.logger.Info("user ignored in thread", "username", username, "thread", key)
	return a.ApplyLightIgnored(ctx, doc)
}

// listingState is the store content a listing pass needs.
type listingState struct {
	hidden  []string
	marked  []string
	ignored []string
}

func (a *Annotator) loadListingState(ctx context.Context) (listingState, error) {
	var st listingState
	var err error

	if st.hidden, err = a.store.HiddenThreads(ctx); err != nil {
		return st, fmt.Errorf("load hidden threads: %w", err)
	}
	if st.marked, err = a.store.MarkedThreads(ctx); err != nil {
		return st, fmt.Errorf("load marked threads: %w", err)
	}
	if st.ignored, err = a.store.IgnoredUsers(ctx); err != nil {
		return st, fmt.Errorf("load ignored users: %w", err)
	}
	return st, nil
}

// AnnotateListing runs the forum-listing pass: hide and like controls on
// every thread title cell, row visibility and marked highlight.
func (a *Annotator) AnnotateListing(ctx context.Context, doc *page.Document) error {
	st, err := a.loadListingState(ctx)
	if err != nil {
		return err
	}

	doc.Edit(func(e *page.Editor) {
		e.Root().Find(a.profile.Listing.TitleCell).Each(func(_ int, cell *goquery.Selection) {
			id := a.threadID(cell)
			if id == "" || cell.Closest(a.profile.Listing.Row).Length() == 0 {
				a.logger.Debug("skipping thread cell without id or row", "url", doc.URL())
				return
			}
			if cell.Find("."+ClassHideThread).Length() == 0 {
				a.insertThreadControls(e, doc, cell, id)
			}
		})
		a.projectListing(e.Root(), st)
	})
	return nil
}

func (a *Annotator) refreshListing(ctx context.Context, doc *page.Document) error {
	st, err := a.loadListingState(ctx)
	if err != nil {
		return err
	}
	doc.Edit(func(e *page.Editor) {
		a.projectListing(e.Root(), st)
	})
	return nil
}

func (a *Annotator) threadID(cell *goquery.Selection) string {
	raw, _ := cell.Attr("id")
	id, ok := strings.CutPrefix(raw, a.profile.Listing.TitleIDPrefix)
	if !ok {
		return ""
	}
	return id
}

// listingRow collects what a pass knows about one thread row.
type listingRow struct {
	row     *goquery.Selection
	cell    *goquery.Selection
	id      string
	authors []string
}

// rows maps every title cell and every author element to its nearest row,
// so that outer layout rows are never touched.
func (a *Annotator) rows(root *goquery.Selection) []*listingRow {
	byNode := make(map[*html.Node]*listingRow)
	var order []*listingRow

	rowFor := func(sel *goquery.Selection) *listingRow {
		row := sel.Closest(a.profile.Listing.Row)
		if row.Length() == 0 {
			return nil
		}
		n := row.Nodes[0]
		if r, ok := byNode[n]; ok {
			return r
		}
		r := &listingRow{row: row}
		byNode[n] = r
		order = append(order, r)
		return r
	}

	root.Find(a.profile.Listing.TitleCell).Each(func(_ int, cell *goquery.Selection) {
		id := a.threadID(cell)
		if id == "" {
			return
		}
		if r := rowFor(cell); r != nil {
			r.cell, r.id = cell, id
		}
	})

	root.Find(a.profile.Listing.Author).Each(func(_ int, el *goquery.Selection) {
		if !strings.EqualFold(page.Style(el, "cursor"), "pointer") {
			return
		}
		username := strings.TrimSpace(el.Text())
		if username == "" {
			return
		}
		if r := rowFor(el); r != nil {
			r.authors = append(r.authors, username)
		}
	})

	return order
}

func (a *Annotator) projectListing(root *goquery.Selection, st listingState) {
	colors := a.profile.Colors

	for _, r := range a.rows(root) {
		hidden := r.id != "" && model.Contains(st.hidden, r.id)
		for _, author := range r.authors {
			if model.Contains(st.ignored, author) {
				hidden = true
			}
		}
		marked := r.id != "" && model.Contains(st.marked, r.id)

		setHidden(r.row, hidden)
		setHighlight(r.row, marked, colors.ThreadHighlight, "")

		if r.cell == nil {
			continue
		}
		if btn := r.cell.Find("." + ClassMarkThread).First(); btn.Length() > 0 {
			label, bg := a.profile.Labels.Like, colors.Highlight
			if marked {
				label, bg = a.profile.Labels.Unlike, colors.Active
			}
			page.SetText(btn.Nodes[0], label)
			page.SetStyle(btn, page.Decl{Property: "background", Value: bg})
		}
	}
}

func (a *Annotator) insertThreadControls(e *page.Editor, doc *page.Document, cell *goquery.Selection, id string) {
	colors := a.profile.Colors
	labels := a.profile.Labels

	mark := page.Button(ClassMarkThread, labels.Like, threadButtonStyle("85px", colors.Highlight, colors.HighlightText)...)
	hide := page.Button(ClassHideThread, labels.HideThread, threadButtonStyle("5px", colors.Neutral, colors.NeutralText)...)

	e.Bind(mark, func(ctx context.Context) error { return a.toggleMarkThread(ctx, doc, id) })
	e.Bind(hide, func(ctx context.Context) error { return a.hideThread(ctx, doc, id) })

	page.SetStyle(cell, page.Decl{Property: "position", Value: "relative"})
	cell.AppendNodes(mark, hide)
}

func (a *Annotator) hideThread(ctx context.Context, doc *page.Document, id string) error {
	hidden, err := a.store.HiddenThreads(ctx)
	if err != nil {
		return fmt.Errorf("load hidden threads: %w", err)
	}
	if hidden, added := model.AppendUnique(hidden, id); added {
		if err := a.store.SetHiddenThreads(ctx, hidden); err != nil {
			return fmt.Errorf("save hidden threads: %w", err)
		}
	}
	return a.refreshListing(ctx, doc)
}

func (a *Annotator) toggleMarkThread(ctx context.Context, doc *page.Document, id string) error {
	marked, err := a.store.MarkedThreads(ctx)
	if err != nil {
		return fmt.Errorf("load marked threads: %w", err)
	}
	marked, _ = model.Toggle(marked, id)
	if err := a.store.SetMarkedThreads(ctx, marked); err != nil {
		return fmt.Errorf("save marked threads: %w", err)
	}
	return a.refreshListing(ctx, doc)
}

// setHidden hides sel, or reveals it if an earlier pass hid it.
func setHidden(sel *goquery.Selection, hidden bool) {
	if sel.Length() == 0 {
		return
	}
	if hidden {
		page.SetStyle(sel, page.Decl{Property: "display", Value: "none"})
		sel.SetAttr(hiddenAttr, "1")
		return
	}
	if _, ok := sel.Attr(hiddenAttr); ok {
		page.SetStyle(sel, page.Decl{Property: "display"})
		sel.RemoveAttr(hiddenAttr)
	}
}

// setHighlight colors sel, or clears a highlight an earlier pass applied.
// An empty fg leaves the text color alone.
func setHighlight(sel *goquery.Selection, on bool, bg, fg string) {
	if sel.Length() == 0 {
		return
	}
	if on {
		decls := []page.Decl{{Property: "background-color", Value: bg}}
		if fg != "" {
			decls = append(decls, page.Decl{Property: "color", Value: fg})
		}
		page.SetStyle(sel, decls...)
		sel.SetAttr(highlightAttr, "1")
		return
	}
	if _, ok := sel.Attr(highlightAttr); ok {
		decls := []page.Decl{{Property: "background-color"}}
		if fg != "" {
			decls = append(decls, page.Decl{Property: "color"})
		}
		page.SetStyle(sel, decls...)
		sel.RemoveAttr(highlightAttr)
	}
}

func postButtonStyle(bg, fg string) []page.Decl {
	return []page.Decl{
		{Property: "margin-right", Value: "1px"},
		{Property: "background", Value: bg},
		{Property: "color", Value: fg},
		{Property: "border", Value: "none"},
		{Property: "padding", Value: "3px 6px"},
		{Property: "cursor", Value: "pointer"},
		{Property: "border-radius", Value: "3px"},
		{Property: "font-size", Value: "12px"},
	}
}

func threadButtonStyle(right, bg, fg string) []page.Decl {
	return []page.Decl{
		{Property: "position", Value: "absolute"},
		{Property: "right", Value: right},
		{Property: "top", Value: "50%"},
		{Property: "transform", Value: "translateY(-50%)"},
		{Property: "font-size", Value: "10px"},
		{Property: "padding", Value: "2px 5px"},
		{Property: "cursor", Value: "pointer"},
		{Property: "background", Value: bg},
		{Property: "color", Value: fg},
		{Property: "border", Value: "none"},
		{Property: "border-radius", Value: "3px"},
	}
}

func forumLinkStyle(colors model.Colors) []page.Decl {
	return []page.Decl{
		{Property: "background", Value: colors.Neutral},
		{Property: "color", Value: colors.NeutralText},
		{Property: "border", Value: "none"},
		{Property: "padding", Value: "3px 6px"},
		{Property: "border-radius", Value: "3px"},
		{Property: "font-size", Value: "12px"},
		{Property: "margin-left", Value: "1px"},
		{Property: "text-decoration", Value: "none"},
		{Property: "display", Value: "inline-block"},
		{Property: "margin-top", Value: "-4px"},
	}
}
