package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/forumfilter/internal/domain/model"
	"github.com/ericfisherdev/forumfilter/internal/domain/port/driven"
	"github.com/ericfisherdev/forumfilter/internal/domain/protocol"
	"github.com/ericfisherdev/forumfilter/internal/page"
)

var _ protocol.Handler = (*ContentScript)(nil)

// ContentScript is the per-tab overlay: it annotates the tab's document,
// keeps it annotated as the document changes, and answers popup messages.
type ContentScript struct {
	doc       *page.Document
	annotator *Annotator
	store     driven.PreferenceStore
	watcher   *ReflowWatcher
	logger    *slog.Logger
}

// NewContentScript wires a content script for doc. It does nothing until
// Start is called.
func NewContentScript(doc *page.Document, annotator *Annotator, store driven.PreferenceStore, logger *slog.Logger, opts ...ReflowOption) *ContentScript {
	if logger == nil {
		logger = slog.Default()
	}
	c := &ContentScript{
		doc:       doc,
		annotator: annotator,
		store:     store,
		logger:    logger.With("url", doc.URL()),
	}
	opts = append([]ReflowOption{WithReflowLogger(c.logger)}, opts...)
	c.watcher = NewReflowWatcher(doc, func(ctx context.Context) error {
		return annotator.Apply(ctx, doc)
	}, opts...)
	return c
}

// Start runs the initial pass and begins watching for mutations.
func (c *ContentScript) Start(ctx context.Context) error {
	if err := c.annotator.Apply(ctx, c.doc); err != nil {
		return fmt.Errorf("annotate %s: %w", c.doc.URL(), err)
	}
	return c.watcher.Start(ctx)
}

// Stop ends mutation watching.
func (c *ContentScript) Stop() {
	c.watcher.Stop()
}

// Document returns the tab's document.
func (c *ContentScript) Document() *page.Document {
	return c.doc
}

// Handle answers a popup message.
func (c *ContentScript) Handle(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	return protocol.Dispatch(ctx, c, req)
}

// HandleExportPosts reports the post-level collections, read fresh.
func (c *ContentScript) HandleExportPosts(ctx context.Context, _ protocol.ExportPosts) (protocol.Response, error) {
	var snap model.Snapshot
	var err error

	if snap.HiddenPosts, err = c.store.HiddenPosts(ctx); err != nil {
		return nil, fmt.Errorf("export hidden posts: %w", err)
	}
	if snap.LikedPosts, err = c.store.LikedPosts(ctx); err != nil {
		return nil, fmt.Errorf("export liked posts: %w", err)
	}
	if snap.IgnoredUsers, err = c.store.IgnoredUsers(ctx); err != nil {
		return nil, fmt.Errorf("export ignored users: %w", err)
	}
	if snap.LightIgnored, err = c.store.LightIgnored(ctx); err != nil {
		return nil, fmt.Errorf("export light-ignored users: %w", err)
	}
	return protocol.SnapshotResponse{Snapshot: snap.Normalized()}, nil
}

// HandleImportPosts overwrites every collection present in req, leaves the
// absent ones alone and re-applies the page pass.
func (c *ContentScript) HandleImportPosts(ctx context.Context, req protocol.ImportPosts) (protocol.Response, error) {
	if req.HiddenPosts != nil {
		if err := c.store.SetHiddenPosts(ctx, req.HiddenPosts); err != nil {
			return nil, fmt.Errorf("import hidden posts: %w", err)
		}
	}
	if req.LikedPosts != nil {
		if err := c.store.SetLikedPosts(ctx, req.LikedPosts); err != nil {
			return nil, fmt.Errorf("import liked posts: %w", err)
		}
	}
	if req.IgnoredUsers != nil {
		if err := c.store.SetIgnoredUsers(ctx, req.IgnoredUsers); err != nil {
			return nil, fmt.Errorf("import ignored users: %w", err)
		}
	}
	if req.LightIgnored != nil {
		if err := c.store.SetLightIgnored(ctx, req.LightIgnored); err != nil {
			return nil, fmt.Errorf("import light-ignored users: %w", err)
		}
	}

	if err := c.annotator.Apply(ctx, c.doc); err != nil {
		return nil, fmt.Errorf("re-apply after import: %w", err)
	}
	c.logger.Info("preferences imported")
	return protocol.AckResponse{Success: true}, nil
}

// HandleRemoveLightIgnore lifts a per-thread ignore. The thread may be given
// as a key or a thread URL. It acks false when a field is missing or no such
// entry exists.
func (c *ContentScript) HandleRemoveLightIgnore(ctx context.Context, req protocol.RemoveLightIgnore) (protocol.Response, error) {
	target, ok := model.CanonicalThreadKey(string(req.ThreadKey))
	if !ok || req.Username == "" {
		return protocol.AckResponse{Success: false}, nil
	}

	light, err := c.store.LightIgnored(ctx)
	if err != nil {
		return nil, fmt.Errorf("load light-ignored users: %w", err)
	}
	if !light.Remove(target, req.Username) {
		return protocol.AckResponse{Success: false}, nil
	}
	if err := c.store.SetLightIgnored(ctx, light); err != nil {
		return nil, fmt.Errorf("save light-ignored users: %w", err)
	}

	if key, ok := c.doc.ThreadKey(); ok && key == target {
		if err := c.annotator.ApplyLightIgnored(ctx, c.doc); err != nil {
			return nil, fmt.Errorf("re-apply light ignores: %w", err)
		}
	}
	return protocol.AckResponse{Success: true}, nil
}
