package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/forumfilter/internal/domain/model"
	"github.com/ericfisherdev/forumfilter/internal/domain/port/driven"
	"github.com/ericfisherdev/forumfilter/internal/domain/protocol"
	"github.com/ericfisherdev/forumfilter/internal/page"
)

// ErrTabNotFound is returned for an unknown tab id.
var ErrTabNotFound = errors.New("tab not found")

var _ driven.TabChannel = (*TabManager)(nil)

type openTab struct {
	tab    model.Tab
	script *ContentScript
	seq    uint64
}

// TabManager holds the open forum tabs of the content host. Each tab owns a
// document and the content script annotating it. The most recently opened
// or activated tab is the active one.
type TabManager struct {
	fetcher   driven.PageFetcher
	annotator *Annotator
	store     driven.PreferenceStore
	logger    *slog.Logger
	opts      []ReflowOption

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	tabs   map[string]*openTab
	active string
	seq    uint64
}

// NewTabManager creates an empty tab host. Reflow options apply to every
// tab's watcher.
func NewTabManager(fetcher driven.PageFetcher, annotator *Annotator, store driven.PreferenceStore, logger *slog.Logger, opts ...ReflowOption) *TabManager {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TabManager{
		fetcher:   fetcher,
		annotator: annotator,
		store:     store,
		logger:    logger,
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		tabs:      make(map[string]*openTab),
	}
}

// Open fetches url from the upstream forum and opens it in a new active tab.
func (m *TabManager) Open(ctx context.Context, url string) (model.Tab, error) {
	p, err := m.fetcher.Fetch(ctx, url)
	if err != nil {
		return model.Tab{}, fmt.Errorf("open %s: %w", url, err)
	}
	return m.Load(ctx, p.URL, bytes.NewReader(p.Body))
}

// Load opens a new active tab from a document body the caller already has.
func (m *TabManager) Load(_ context.Context, url string, body io.Reader) (model.Tab, error) {
	script, err := m.startScript(url, body)
	if err != nil {
		return model.Tab{}, err
	}

	key, _ := script.Document().ThreadKey()
	tab := model.Tab{
		ID:        uuid.NewString(),
		URL:       url,
		Kind:      script.Document().Kind(),
		ThreadKey: key,
		OpenedAt:  time.Now().UTC(),
	}

	m.mu.Lock()
	m.seq++
	m.tabs[tab.ID] = &openTab{tab: tab, script: script, seq: m.seq}
	m.active = tab.ID
	m.mu.Unlock()

	m.logger.Info("tab opened", "tab", tab.ID, "url", url, "kind", tab.Kind)
	tab.Active = true
	return tab, nil
}

func (m *TabManager) startScript(url string, body io.Reader) (*ContentScript, error) {
	doc, err := page.Parse(url, body)
	if err != nil {
		return nil, err
	}
	script := NewContentScript(doc, m.annotator, m.store, m.logger, m.opts...)
	if err := script.Start(m.ctx); err != nil {
		script.Stop()
		return nil, err
	}
	return script, nil
}

// Tab returns the tab with the given id.
func (m *TabManager) Tab(id string) (model.Tab, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tabs[id]
	if !ok {
		return model.Tab{}, fmt.Errorf("%w: %s", ErrTabNotFound, id)
	}
	tab := t.tab
	tab.Active = id == m.active
	return tab, nil
}

// Document returns the live document of a tab.
func (m *TabManager) Document(id string) (*page.Document, error) {
	script, err := m.script(id)
	if err != nil {
		return nil, err
	}
	return script.Document(), nil
}

// script returns the tab's current content script. Reload swaps it under
// the write lock, so it is only read under the lock.
func (m *TabManager) script(id string) (*ContentScript, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tabs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTabNotFound, id)
	}
	return t.script, nil
}

// List returns the open tabs, oldest first.
func (m *TabManager) List() []model.Tab {
	m.mu.RLock()
	defer m.mu.RUnlock()

	open := make([]*openTab, 0, len(m.tabs))
	for _, t := range m.tabs {
		open = append(open, t)
	}
	sort.Slice(open, func(i, j int) bool { return open[i].seq < open[j].seq })

	out := make([]model.Tab, 0, len(open))
	for _, t := range open {
		tab := t.tab
		tab.Active = tab.ID == m.active
		out = append(out, tab)
	}
	return out
}

// Activate makes the tab the active one.
func (m *TabManager) Activate(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tabs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrTabNotFound, id)
	}
	m.active = id
	return nil
}

// ActiveTab returns the active tab or driven.ErrNoActiveTab.
func (m *TabManager) ActiveTab(_ context.Context) (model.Tab, error) {
	m.mu.RLock()
	id := m.active
	m.mu.RUnlock()

	if id == "" {
		return model.Tab{}, driven.ErrNoActiveTab
	}
	return m.Tab(id)
}

// Send delivers a message to the tab's content script. Messages the script
// does not understand yield protocol.ErrNotHandled.
func (m *TabManager) Send(ctx context.Context, tabID string, req protocol.Request) (protocol.Response, error) {
	script, err := m.script(tabID)
	if err != nil {
		return nil, err
	}

	resp, err := script.Handle(ctx, req)
	if errors.Is(err, protocol.ErrUnknownMessage) {
		return nil, fmt.Errorf("tab %s: %w", tabID, protocol.ErrNotHandled)
	}
	return resp, err
}

// Click presses a bound control in the tab's document.
func (m *TabManager) Click(ctx context.Context, tabID, controlID string) error {
	doc, err := m.Document(tabID)
	if err != nil {
		return err
	}
	return doc.Click(ctx, controlID)
}

// Reload re-fetches the tab's URL and rebuilds its document from scratch,
// so the overlay is reproduced from the store alone. When the forum
// redirects, the tab takes on the final URL.
func (m *TabManager) Reload(ctx context.Context, tabID string) error {
	current, err := m.Tab(tabID)
	if err != nil {
		return err
	}

	p, err := m.fetcher.Fetch(ctx, current.URL)
	if err != nil {
		return fmt.Errorf("reload %s: %w", current.URL, err)
	}
	script, err := m.startScript(p.URL, bytes.NewReader(p.Body))
	if err != nil {
		return fmt.Errorf("reload %s: %w", current.URL, err)
	}

	m.mu.Lock()
	t, ok := m.tabs[tabID]
	if !ok {
		m.mu.Unlock()
		script.Stop()
		return fmt.Errorf("%w: %s", ErrTabNotFound, tabID)
	}
	old := t.script
	t.script = script
	key, _ := script.Document().ThreadKey()
	t.tab.URL = p.URL
	t.tab.Kind = script.Document().Kind()
	t.tab.ThreadKey = key
	m.mu.Unlock()

	old.Stop()
	m.logger.Info("tab reloaded", "tab", tabID, "url", p.URL)
	return nil
}

// Close stops the tab's content script and forgets the tab. Closing the
// active tab activates the most recently opened remaining one.
func (m *TabManager) Close(tabID string) error {
	m.mu.Lock()
	t, ok := m.tabs[tabID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTabNotFound, tabID)
	}
	delete(m.tabs, tabID)
	script := t.script

	if m.active == tabID {
		m.active = ""
		var newest uint64
		for id, other := range m.tabs {
			if other.seq > newest {
				m.active, newest = id, other.seq
			}
		}
	}
	m.mu.Unlock()

	script.Stop()
	m.logger.Info("tab closed", "tab", tabID)
	return nil
}

// Shutdown closes every tab.
func (m *TabManager) Shutdown() {
	m.mu.Lock()
	scripts := make([]*ContentScript, 0, len(m.tabs))
	for _, t := range m.tabs {
		scripts = append(scripts, t.script)
	}
	m.tabs = make(map[string]*openTab)
	m.active = ""
	m.mu.Unlock()

	for _, script := range scripts {
		script.Stop()
	}
	m.cancel()
}
