package application_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/forumfilter/internal/adapter/driven/prefs"
	"github.com/ericfisherdev/forumfilter/internal/application"
	"github.com/ericfisherdev/forumfilter/internal/domain/model"
	"github.com/ericfisherdev/forumfilter/internal/domain/port/driven"
	"github.com/ericfisherdev/forumfilter/internal/domain/protocol"
)

const forumDomain = "flashback.org"

// --- Mock implementations ---

type fakeChannel struct {
	tab      model.Tab
	tabErr   error
	resp     protocol.Response
	sendErr  error
	sent     []protocol.Request
	reloaded []string
}

func (f *fakeChannel) ActiveTab(context.Context) (model.Tab, error) {
	return f.tab, f.tabErr
}

func (f *fakeChannel) Send(_ context.Context, _ string, req protocol.Request) (protocol.Response, error) {
	f.sent = append(f.sent, req)
	return f.resp, f.sendErr
}

func (f *fakeChannel) Reload(_ context.Context, tabID string) error {
	f.reloaded = append(f.reloaded, tabID)
	return nil
}

func newPresenter(t *testing.T, store *prefs.Store) (*application.Presenter, *application.TabManager, *fakeFetcher) {
	t.Helper()
	m, fetcher := newTabManager(t, store)
	_, err := m.Open(context.Background(), threadURL)
	require.NoError(t, err)
	return application.NewPresenter(m, store, forumDomain, "https://www.flashback.org/", nil), m, fetcher
}

func TestPresenter_LoadGroupsLightIgnoresByThread(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	require.NoError(t, store.SetIgnoredUsers(ctx, []string{"alice"}))
	require.NoError(t, store.SetLightIgnored(ctx, model.LightIgnoreMap{"t9": {"carol"}, "t123": {"bob", "dave"}}))
	p, _, _ := newPresenter(t, store)

	view, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, view.Ignored)
	assert.Equal(t, []application.LightIgnoreGroup{
		{ThreadKey: "t123", ThreadURL: "https://www.flashback.org/t123", Users: []string{"bob", "dave"}},
		{ThreadKey: "t9", ThreadURL: "https://www.flashback.org/t9", Users: []string{"carol"}},
	}, view.LightIgnored)
	assert.Equal(t, threadURL, view.Tab.URL)
}

func TestPresenter_UnignoreReimportsFilteredList(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	require.NoError(t, store.SetIgnoredUsers(ctx, []string{"alice", "bob"}))
	p, m, _ := newPresenter(t, store)

	tab, err := m.ActiveTab(ctx)
	require.NoError(t, err)
	doc, err := m.Document(tab.ID)
	require.NoError(t, err)
	require.True(t, hidden(doc, post("1")))

	require.NoError(t, p.Unignore(ctx, "alice"))

	ignored, err := store.IgnoredUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, ignored)
	assert.False(t, hidden(doc, post("1")))
	assert.False(t, hidden(doc, post("3")))
	assert.True(t, hidden(doc, post("2")))
}

func TestPresenter_RemoveLightIgnore(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	require.NoError(t, store.SetLightIgnored(ctx, model.LightIgnoreMap{"t123": {"bob"}}))
	p, _, _ := newPresenter(t, store)

	removed, err := p.RemoveLightIgnore(ctx, "t123", "bob")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = p.RemoveLightIgnore(ctx, "t123", "bob")
	require.NoError(t, err)
	assert.False(t, removed)

	light, err := store.LightIgnored(ctx)
	require.NoError(t, err)
	assert.Empty(t, light)
}

func TestPresenter_ResetClearsEverythingAndReloads(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	require.NoError(t, store.SetHiddenThreads(ctx, []string{"100"}))
	require.NoError(t, store.SetMarkedThreads(ctx, []string{"200"}))
	require.NoError(t, store.SetHiddenPosts(ctx, []string{"1"}))
	require.NoError(t, store.SetLikedPosts(ctx, []string{"2"}))
	require.NoError(t, store.SetIgnoredUsers(ctx, []string{"alice"}))
	require.NoError(t, store.SetLightIgnored(ctx, model.LightIgnoreMap{"t123": {"bob"}}))
	p, _, fetcher := newPresenter(t, store)

	require.NoError(t, p.Reset(ctx))

	b, err := p.Backup(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Backup{}.Normalized(), b)
	assert.Equal(t, []string{threadURL, threadURL}, fetcher.fetches)
}

func TestPresenter_ExportDocument(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	require.NoError(t, store.SetHiddenThreads(ctx, []string{"100"}))
	require.NoError(t, store.SetHiddenPosts(ctx, []string{"1"}))
	require.NoError(t, store.SetIgnoredUsers(ctx, []string{"eve"}))
	require.NoError(t, store.SetLightIgnored(ctx, model.LightIgnoreMap{"t9": {"carol"}}))
	p, _, _ := newPresenter(t, store)

	data, err := p.Export(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"threadsHidden\": [\n    \"100\"\n  ]")

	got, err := protocol.DecodeBackup(data)
	require.NoError(t, err)
	assert.Equal(t, model.Backup{
		ThreadsHidden:    []string{"100"},
		ThreadsMarked:    []string{},
		PostsHidden:      []string{"1"},
		PostsInteresting: []string{},
		UsersIgnored:     []string{"eve"},
		LightIgnored:     model.LightIgnoreMap{"t9": {"carol"}},
	}, got)
}

func TestPresenter_ImportOverwritesAndReloads(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	require.NoError(t, store.SetMarkedThreads(ctx, []string{"300"}))
	require.NoError(t, store.SetIgnoredUsers(ctx, []string{"alice"}))
	p, m, fetcher := newPresenter(t, store)

	doc := `{
		"threadsHidden": ["100"],
		"threadsMarked": "not a list",
		"postsHidden": ["2"],
		"lightIgnored": {"t123": ["alice"]}
	}`
	require.NoError(t, p.Import(ctx, strings.NewReader(doc)))

	threadsHidden, _ := store.HiddenThreads(ctx)
	threadsMarked, _ := store.MarkedThreads(ctx)
	postsHidden, _ := store.HiddenPosts(ctx)
	ignored, _ := store.IgnoredUsers(ctx)
	assert.Equal(t, []string{"100"}, threadsHidden)
	assert.Equal(t, []string{"300"}, threadsMarked, "malformed field is left alone")
	assert.Equal(t, []string{"2"}, postsHidden)
	assert.Empty(t, ignored, "absent field is cleared")

	assert.Equal(t, []string{threadURL, threadURL}, fetcher.fetches)
	tab, err := m.ActiveTab(ctx)
	require.NoError(t, err)
	reloaded, err := m.Document(tab.ID)
	require.NoError(t, err)
	assert.True(t, hidden(reloaded, post("1")), "light-ignored in this thread")
	assert.True(t, hidden(reloaded, post("2")))
}

func TestPresenter_ImportInvalidWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	require.NoError(t, store.SetHiddenThreads(ctx, []string{"100"}))
	ch := &fakeChannel{tab: model.Tab{ID: "tab-1", URL: threadURL}}
	p := application.NewPresenter(ch, store, forumDomain, "https://www.flashback.org", nil)

	for _, doc := range []string{"not json", "[1, 2]", "null"} {
		err := p.Import(ctx, strings.NewReader(doc))
		assert.ErrorIs(t, err, application.ErrInvalidBackup, doc)
	}

	threadsHidden, _ := store.HiddenThreads(ctx)
	assert.Equal(t, []string{"100"}, threadsHidden)
	assert.Empty(t, ch.sent)
	assert.Empty(t, ch.reloaded)
}

func TestPresenter_RequiresForumTab(t *testing.T) {
	tests := []struct {
		name string
		ch   *fakeChannel
	}{
		{name: "no tab", ch: &fakeChannel{tabErr: driven.ErrNoActiveTab}},
		{name: "other site", ch: &fakeChannel{tab: model.Tab{ID: "tab-1", URL: "https://example.com/t123"}}},
		{name: "lookalike host", ch: &fakeChannel{tab: model.Tab{ID: "tab-1", URL: "https://notflashback.org/t123"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore()
			require.NoError(t, store.SetHiddenThreads(ctx, []string{"100"}))
			p := application.NewPresenter(tt.ch, store, forumDomain, "https://www.flashback.org", nil)

			_, err := p.Load(ctx)
			assert.ErrorIs(t, err, application.ErrNoForumTab)
			assert.ErrorIs(t, p.Unignore(ctx, "alice"), application.ErrNoForumTab)
			_, err = p.RemoveLightIgnore(ctx, "t123", "bob")
			assert.ErrorIs(t, err, application.ErrNoForumTab)
			assert.ErrorIs(t, p.Reset(ctx), application.ErrNoForumTab)
			_, err = p.Export(ctx)
			assert.ErrorIs(t, err, application.ErrNoForumTab)
			assert.ErrorIs(t, p.Import(ctx, strings.NewReader(`{}`)), application.ErrNoForumTab)

			threadsHidden, _ := store.HiddenThreads(ctx)
			assert.Equal(t, []string{"100"}, threadsHidden)
			assert.Empty(t, tt.ch.sent)
			assert.Empty(t, tt.ch.reloaded)
		})
	}
}

func TestPresenter_SurfacesUnhandledMessages(t *testing.T) {
	ch := &fakeChannel{
		tab:     model.Tab{ID: "tab-1", URL: threadURL},
		sendErr: protocol.ErrNotHandled,
	}
	p := application.NewPresenter(ch, newStore(), forumDomain, "https://www.flashback.org", nil)

	_, err := p.Load(context.Background())
	assert.ErrorIs(t, err, protocol.ErrNotHandled)
}

func TestPresenter_RejectedImportSkipsReload(t *testing.T) {
	ch := &fakeChannel{
		tab:  model.Tab{ID: "tab-1", URL: threadURL},
		resp: protocol.AckResponse{Success: false},
	}
	p := application.NewPresenter(ch, newStore(), forumDomain, "https://www.flashback.org", nil)

	err := p.Import(context.Background(), strings.NewReader(`{"postsHidden": ["1"]}`))
	assert.ErrorIs(t, err, application.ErrRejected)
	assert.Empty(t, ch.reloaded)
}

func TestPresenter_ActiveTabFailure(t *testing.T) {
	ch := &fakeChannel{tabErr: errors.New("host unreachable")}
	p := application.NewPresenter(ch, newStore(), forumDomain, "https://www.flashback.org", nil)

	_, err := p.Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, application.ErrNoForumTab)
	assert.Contains(t, err.Error(), "host unreachable")
}

func TestPopupView_Markdown(t *testing.T) {
	view := application.PopupView{
		Ignored: []string{"a_b", "eve"},
		LightIgnored: []application.LightIgnoreGroup{
			{ThreadKey: "t123", ThreadURL: "https://www.flashback.org/t123", Users: []string{"bob"}},
		},
	}

	md := view.Markdown()
	assert.Contains(t, md, "## Ignorerade användare\n\n- a\\_b\n- eve\n")
	assert.Contains(t, md, "### [t123](https://www.flashback.org/t123)\n\n- bob\n")

	empty := application.PopupView{}.Markdown()
	assert.Contains(t, empty, "_Inga ignorerade användare._")
	assert.Contains(t, empty, "_Inga användare ignorerade i trådar._")
}
