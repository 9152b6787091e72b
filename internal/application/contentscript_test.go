package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/forumfilter/internal/adapter/driven/prefs"
	"github.com/ericfisherdev/forumfilter/internal/application"
	"github.com/ericfisherdev/forumfilter/internal/domain/model"
	"github.com/ericfisherdev/forumfilter/internal/domain/protocol"
)

func startScript(t *testing.T, store *prefs.Store, url, body string) *application.ContentScript {
	t.Helper()
	doc := parseDoc(t, url, body)
	cs := application.NewContentScript(doc, newAnnotator(store), store, nil)
	require.NoError(t, cs.Start(context.Background()))
	t.Cleanup(cs.Stop)
	return cs
}

func TestContentScript_ExportPosts(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	require.NoError(t, store.SetHiddenPosts(ctx, []string{"1"}))
	require.NoError(t, store.SetLightIgnored(ctx, model.LightIgnoreMap{"t1": {"bob"}}))
	require.NoError(t, store.SetHiddenThreads(ctx, []string{"100"}))

	cs := startScript(t, store, threadURL, threadHTML)

	resp, err := cs.Handle(ctx, protocol.ExportPosts{})
	require.NoError(t, err)
	assert.Equal(t, protocol.SnapshotResponse{Snapshot: model.Snapshot{
		HiddenPosts:  []string{"1"},
		LikedPosts:   []string{},
		IgnoredUsers: []string{},
		LightIgnored: model.LightIgnoreMap{"t1": {"bob"}},
	}}, resp)
}

func TestContentScript_ImportPostsPatchesPresentFields(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	require.NoError(t, store.SetHiddenPosts(ctx, []string{"1"}))
	require.NoError(t, store.SetLikedPosts(ctx, []string{"2"}))

	cs := startScript(t, store, threadURL, threadHTML)
	require.True(t, hidden(cs.Document(), post("1")))

	resp, err := cs.Handle(ctx, protocol.ImportPosts{
		HiddenPosts:  []string{},
		IgnoredUsers: []string{"bob"},
	})
	require.NoError(t, err)
	assert.Equal(t, protocol.AckResponse{Success: true}, resp)

	hiddenPosts, _ := store.HiddenPosts(ctx)
	liked, _ := store.LikedPosts(ctx)
	ignored, _ := store.IgnoredUsers(ctx)
	assert.Empty(t, hiddenPosts)
	assert.Equal(t, []string{"2"}, liked, "absent field is untouched")
	assert.Equal(t, []string{"bob"}, ignored)

	assert.False(t, hidden(cs.Document(), post("1")), "import re-applies the pass")
	assert.True(t, hidden(cs.Document(), post("2")))
}

func TestContentScript_ImportClearAll(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	require.NoError(t, store.SetIgnoredUsers(ctx, []string{"alice"}))
	require.NoError(t, store.SetLightIgnored(ctx, model.LightIgnoreMap{"t123": {"bob"}}))

	cs := startScript(t, store, threadURL, threadHTML)

	_, err := cs.Handle(ctx, protocol.ClearAll())
	require.NoError(t, err)

	resp, err := cs.Handle(ctx, protocol.ExportPosts{})
	require.NoError(t, err)
	assert.Equal(t, protocol.SnapshotResponse{Snapshot: model.Snapshot{}.Normalized()}, resp)
	for _, id := range []string{"1", "2", "3"} {
		assert.False(t, hidden(cs.Document(), post(id)), "post %s", id)
	}
}

func TestContentScript_RemoveLightIgnore(t *testing.T) {
	tests := []struct {
		name        string
		req         protocol.RemoveLightIgnore
		wantSuccess bool
		wantMap     model.LightIgnoreMap
	}{
		{
			name:        "removes and prunes",
			req:         protocol.RemoveLightIgnore{ThreadKey: "t123", Username: "bob"},
			wantSuccess: true,
			wantMap:     model.LightIgnoreMap{"t9": {"carol"}},
		},
		{
			name:        "missing username",
			req:         protocol.RemoveLightIgnore{ThreadKey: "t123"},
			wantSuccess: false,
			wantMap:     model.LightIgnoreMap{"t123": {"bob"}, "t9": {"carol"}},
		},
		{
			name:        "missing thread key",
			req:         protocol.RemoveLightIgnore{Username: "bob"},
			wantSuccess: false,
			wantMap:     model.LightIgnoreMap{"t123": {"bob"}, "t9": {"carol"}},
		},
		{
			name:        "no such entry",
			req:         protocol.RemoveLightIgnore{ThreadKey: "t9", Username: "bob"},
			wantSuccess: false,
			wantMap:     model.LightIgnoreMap{"t123": {"bob"}, "t9": {"carol"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore()
			require.NoError(t, store.SetLightIgnored(ctx, model.LightIgnoreMap{"t123": {"bob"}, "t9": {"carol"}}))
			cs := startScript(t, store, threadURL, threadHTML)

			resp, err := cs.Handle(ctx, tt.req)
			require.NoError(t, err)
			assert.Equal(t, protocol.AckResponse{Success: tt.wantSuccess}, resp)

			got, err := store.LightIgnored(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMap, got)
			assert.Equal(t, !tt.wantSuccess, hidden(cs.Document(), post("2")))
		})
	}
}

func TestContentScript_RemoveLightIgnoreOtherThreadLeavesPage(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	require.NoError(t, store.SetLightIgnored(ctx, model.LightIgnoreMap{"t123": {"bob"}, "t9": {"carol"}}))
	cs := startScript(t, store, threadURL, threadHTML)
	before := renderHTML(t, cs.Document())

	resp, err := cs.Handle(ctx, protocol.RemoveLightIgnore{ThreadKey: "t9", Username: "carol"})
	require.NoError(t, err)
	assert.Equal(t, protocol.AckResponse{Success: true}, resp)
	assert.Equal(t, before, renderHTML(t, cs.Document()))
}

func TestContentScript_ImportCanonicalizesThreadKeys(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	cs := startScript(t, store, threadURL, threadHTML)

	req, err := protocol.DecodeRequest([]byte(`{"type":"IMPORT_POSTS","lightIgnored":{` +
		`"https://www.flashback.org/t123p2":["bob"],"t123":["carol","bob"],"/f12":["dave"]}}`))
	require.NoError(t, err)

	_, err = cs.Handle(ctx, req)
	require.NoError(t, err)

	light, err := store.LightIgnored(ctx)
	require.NoError(t, err)
	require.Equal(t, []model.ThreadKey{"t123"}, light.Keys())
	assert.ElementsMatch(t, []string{"bob", "carol"}, light.Users("t123"))
	assert.True(t, hidden(cs.Document(), post("2")))

	resp, err := cs.Handle(ctx, protocol.RemoveLightIgnore{ThreadKey: "https://www.flashback.org/t123p2", Username: "bob"})
	require.NoError(t, err)
	assert.Equal(t, protocol.AckResponse{Success: true}, resp)
	assert.False(t, hidden(cs.Document(), post("2")))

	light, err = store.LightIgnored(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.LightIgnoreMap{"t123": {"carol"}}, light)
}
