package upstream_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/forumfilter/internal/adapter/driven/upstream"
)

const postPage = `<html><body>
<div data-postid="7"><span class="post-user-username">alice</span>
<script>alert(1)</script>
<div class="post-footer"><a href="/report/7">Rapportera</a></div></div>
</body></html>`

func newServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/t7", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "max-age=60")
		_, _ = w.Write([]byte(postPage))
	})
	mux.HandleFunc("/feed", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetcher_FetchesAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits)

	f, err := upstream.NewFetcher(upstream.Options{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	for range 2 {
		p, err := f.Fetch(context.Background(), srv.URL+"/t7")
		require.NoError(t, err)
		assert.Equal(t, srv.URL+"/t7", p.URL)
		assert.Contains(t, string(p.Body), "<script>")
	}
	assert.Equal(t, int32(1), hits.Load(), "second fetch is served from cache")
}

func TestFetcher_Sanitizes(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits)

	f, err := upstream.NewFetcher(upstream.Options{BaseURL: srv.URL, Sanitize: true}, nil)
	require.NoError(t, err)

	p, err := f.Fetch(context.Background(), srv.URL+"/t7")
	require.NoError(t, err)
	body := string(p.Body)
	assert.NotContains(t, body, "<script>")
	assert.NotContains(t, body, "alert(1)")
	assert.Contains(t, body, `data-postid="7"`)
	assert.Contains(t, body, `class="post-user-username"`)
	assert.Contains(t, body, "Rapportera")
}

func TestFetcher_Errors(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits)
	f, err := upstream.NewFetcher(upstream.Options{BaseURL: srv.URL}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = f.Fetch(ctx, srv.URL+"/feed")
	assert.ErrorIs(t, err, upstream.ErrNotHTML)

	_, err = f.Fetch(ctx, srv.URL+"/gone")
	assert.ErrorIs(t, err, upstream.ErrStatus)

	_, err = f.Fetch(ctx, "https://example.com/t7")
	assert.ErrorIs(t, err, upstream.ErrForeignHost)
}

func TestFetcher_RejectsOversizedPage(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits)
	ctx := context.Background()

	f, err := upstream.NewFetcher(upstream.Options{BaseURL: srv.URL, MaxBodyBytes: int64(len(postPage)) - 1}, nil)
	require.NoError(t, err)
	_, err = f.Fetch(ctx, srv.URL+"/t7")
	assert.ErrorIs(t, err, upstream.ErrTooLarge)

	f, err = upstream.NewFetcher(upstream.Options{BaseURL: srv.URL, MaxBodyBytes: int64(len(postPage))}, nil)
	require.NoError(t, err)
	p, err := f.Fetch(ctx, srv.URL+"/t7")
	require.NoError(t, err)
	assert.Equal(t, postPage, string(p.Body), "a page exactly at the limit is kept whole")
}

func TestFetcher_Resolve(t *testing.T) {
	f, err := upstream.NewFetcher(upstream.Options{BaseURL: "https://www.flashback.org/"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "https://www.flashback.org/t123p2", f.Resolve("t123p2"))
	assert.Equal(t, "https://www.flashback.org/f12", f.Resolve("/f12"))
}

func TestNewFetcher_RejectsBadBaseURL(t *testing.T) {
	for _, base := range []string{"", "www.flashback.org", "://bad"} {
		_, err := upstream.NewFetcher(upstream.Options{BaseURL: base}, nil)
		assert.Error(t, err, base)
	}
	_, err := upstream.NewFetcher(upstream.Options{BaseURL: "https://www.flashback.org"}, nil)
	assert.NoError(t, err)
}
