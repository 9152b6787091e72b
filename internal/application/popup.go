package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/forumfilter/internal/domain/model"
	"github.com/ericfisherdev/forumfilter/internal/domain/port/driven"
	"github.com/ericfisherdev/forumfilter/internal/domain/protocol"
)

var (
	// ErrNoForumTab is returned when the active tab is missing or not on the
	// forum domain. Nothing is sent or written in that case.
	ErrNoForumTab = errors.New("no forum tab is active")

	// ErrInvalidBackup is returned when an import document cannot be parsed.
	ErrInvalidBackup = errors.New("invalid backup document")

	// ErrRejected is returned when a tab acks a request with success=false.
	ErrRejected = errors.New("tab rejected the request")
)

// DefaultExportFileName is the suggested name for export documents.
const DefaultExportFileName = "flashback_data.json"

// LightIgnoreGroup is the light-ignored users of one thread.
type LightIgnoreGroup struct {
	ThreadKey model.ThreadKey
	ThreadURL string
	Users     []string
}

// PopupView is what the popup shows: the global ignore list and the
// per-thread ignores grouped by thread key in lexicographic order.
type PopupView struct {
	Tab          model.Tab
	Ignored      []string
	LightIgnored []LightIgnoreGroup
}

// Presenter drives the popup. It reaches post-level state only through the
// active tab's content script and thread-level state through the store.
type Presenter struct {
	channel     driven.TabChannel
	store       driven.PreferenceStore
	forumDomain string
	upstreamURL string
	logger      *slog.Logger
}

// NewPresenter creates a Presenter for tabs on forumDomain. upstreamURL is
// the base for thread links.
func NewPresenter(channel driven.TabChannel, store driven.PreferenceStore, forumDomain, upstreamURL string, logger *slog.Logger) *Presenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Presenter{
		channel:     channel,
		store:       store,
		forumDomain: forumDomain,
		upstreamURL: strings.TrimRight(upstreamURL, "/"),
		logger:      logger,
	}
}

func (p *Presenter) forumTab(ctx context.Context) (model.Tab, error) {
	tab, err := p.channel.ActiveTab(ctx)
	if errors.Is(err, driven.ErrNoActiveTab) {
		return model.Tab{}, ErrNoForumTab
	}
	if err != nil {
		return model.Tab{}, fmt.Errorf("find active tab: %w", err)
	}
	if !tab.OnDomain(p.forumDomain) {
		return model.Tab{}, fmt.Errorf("%w: %s is not on %s", ErrNoForumTab, tab.URL, p.forumDomain)
	}
	return tab, nil
}

func (p *Presenter) snapshot(ctx context.Context, tab model.Tab) (model.Snapshot, error) {
	resp, err := p.channel.Send(ctx, tab.ID, protocol.ExportPosts{})
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("export from tab %s: %w", tab.ID, err)
	}
	snap, ok := resp.(protocol.SnapshotResponse)
	if !ok {
		return model.Snapshot{}, fmt.Errorf("export from tab %s: unexpected response %T", tab.ID, resp)
	}
	return snap.Snapshot.Normalized(), nil
}

func (p *Presenter) send(ctx context.Context, tab model.Tab, req protocol.Request) error {
	resp, err := p.channel.Send(ctx, tab.ID, req)
	if err != nil {
		return fmt.Errorf("send %s to tab %s: %w", req.Type(), tab.ID, err)
	}
	if ack, ok := resp.(protocol.AckResponse); !ok || !ack.Success {
		return fmt.Errorf("send %s to tab %s: %w", req.Type(), tab.ID, ErrRejected)
	}
	return nil
}

// Load fetches a fresh snapshot from the active forum tab.
func (p *Presenter) Load(ctx context.Context) (PopupView, error) {
	tab, err := p.forumTab(ctx)
	if err != nil {
		return PopupView{}, err
	}
	snap, err := p.snapshot(ctx, tab)
	if err != nil {
		return PopupView{}, err
	}

	view := PopupView{Tab: tab, Ignored: snap.IgnoredUsers}
	for _, key := range snap.LightIgnored.Keys() {
		users := snap.LightIgnored.Users(key)
		if len(users) == 0 {
			continue
		}
		view.LightIgnored = append(view.LightIgnored, LightIgnoreGroup{
			ThreadKey: key,
			ThreadURL: p.upstreamURL + "/" + string(key),
			Users:     users,
		})
	}
	return view, nil
}

// Unignore removes username from the global ignore list by re-importing the
// filtered list into the active tab.
func (p *Presenter) Unignore(ctx context.Context, username string) error {
	tab, err := p.forumTab(ctx)
	if err != nil {
		return err
	}
	snap, err := p.snapshot(ctx, tab)
	if err != nil {
		return err
	}

	remaining, _ := model.Without(snap.IgnoredUsers, username)
	if err := p.send(ctx, tab, protocol.ImportPosts{IgnoredUsers: remaining}); err != nil {
		return err
	}
	p.logger.Info("user unignored", "username", username, "tab", tab.ID)
	return nil
}

// RemoveLightIgnore lifts a per-thread ignore and reports whether an entry
// was removed.
func (p *Presenter) RemoveLightIgnore(ctx context.Context, key model.ThreadKey, username string) (bool, error) {
	tab, err := p.forumTab(ctx)
	if err != nil {
		return false, err
	}
	req := protocol.RemoveLightIgnore{ThreadKey: key, Username: username}
	resp, err := p.channel.Send(ctx, tab.ID, req)
	if err != nil {
		return false, fmt.Errorf("send %s to tab %s: %w", req.Type(), tab.ID, err)
	}
	ack, ok := resp.(protocol.AckResponse)
	if !ok {
		return false, fmt.Errorf("send %s to tab %s: unexpected response %T", req.Type(), tab.ID, resp)
	}
	return ack.Success, nil
}

// Reset clears all six collections and reloads the active tab.
func (p *Presenter) Reset(ctx context.Context) error {
	tab, err := p.forumTab(ctx)
	if err != nil {
		return err
	}

	if err := p.store.SetHiddenThreads(ctx, []string{}); err != nil {
		return fmt.Errorf("clear hidden threads: %w", err)
	}
	if err := p.store.SetMarkedThreads(ctx, []string{}); err != nil {
		return fmt.Errorf("clear marked threads: %w", err)
	}
	if err := p.send(ctx, tab, protocol.ClearAll()); err != nil {
		return err
	}
	if err := p.channel.Reload(ctx, tab.ID); err != nil {
		return fmt.Errorf("reload tab %s: %w", tab.ID, err)
	}

	p.logger.Info("preferences reset", "tab", tab.ID)
	return nil
}

// Backup collects every collection into an export document.
func (p *Presenter) Backup(ctx context.Context) (model.Backup, error) {
	tab, err := p.forumTab(ctx)
	if err != nil {
		return model.Backup{}, err
	}

	threadsHidden, err := p.store.HiddenThreads(ctx)
	if err != nil {
		return model.Backup{}, fmt.Errorf("read hidden threads: %w", err)
	}
	threadsMarked, err := p.store.MarkedThreads(ctx)
	if err != nil {
		return model.Backup{}, fmt.Errorf("read marked threads: %w", err)
	}
	snap, err := p.snapshot(ctx, tab)
	if err != nil {
		return model.Backup{}, err
	}

	return model.Backup{
		ThreadsHidden:    threadsHidden,
		ThreadsMarked:    threadsMarked,
		PostsHidden:      snap.HiddenPosts,
		PostsInteresting: snap.LikedPosts,
		UsersIgnored:     snap.IgnoredUsers,
		LightIgnored:     snap.LightIgnored,
	}.Normalized(), nil
}

// Export renders the export document as indented JSON.
func (p *Presenter) Export(ctx context.Context) ([]byte, error) {
	b, err := p.Backup(ctx)
	if err != nil {
		return nil, err
	}
	data, err := protocol.EncodeBackup(b)
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return data, nil
}

// Import reads an export document, overwrites every collection it names
// and reloads the active tab. Absent fields clear their collection; fields
// of the wrong shape are left untouched. Nothing is written when the
// document does not parse.
func (p *Presenter) Import(ctx context.Context, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	b, err := protocol.DecodeBackup(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}

	tab, err := p.forumTab(ctx)
	if err != nil {
		return err
	}

	if b.ThreadsHidden != nil {
		if err := p.store.SetHiddenThreads(ctx, b.ThreadsHidden); err != nil {
			return fmt.Errorf("import hidden threads: %w", err)
		}
	}
	if b.ThreadsMarked != nil {
		if err := p.store.SetMarkedThreads(ctx, b.ThreadsMarked); err != nil {
			return fmt.Errorf("import marked threads: %w", err)
		}
	}

	req := protocol.ImportPosts{
		HiddenPosts:  b.PostsHidden,
		LikedPosts:   b.PostsInteresting,
		IgnoredUsers: b.UsersIgnored,
		LightIgnored: b.LightIgnored,
	}
	if err := p.send(ctx, tab, req); err != nil {
		return err
	}
	if err := p.channel.Reload(ctx, tab.ID); err != nil {
		return fmt.Errorf("reload tab %s: %w", tab.ID, err)
	}

	p.logger.Info("preferences imported from backup", "tab", tab.ID)
	return nil
}
