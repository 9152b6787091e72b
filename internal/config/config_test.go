package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/forumfilter/internal/domain/model"
)

// allConfigKeys lists every FORUMFILTER_ env var that Load() reads.
var allConfigKeys = []string{
	"FORUMFILTER_LISTEN_ADDR",
	"FORUMFILTER_STORE",
	"FORUMFILTER_DB_PATH",
	"FORUMFILTER_REDIS_ADDR",
	"FORUMFILTER_REDIS_PASSWORD",
	"FORUMFILTER_REDIS_DB",
	"FORUMFILTER_REDIS_PREFIX",
	"FORUMFILTER_UPSTREAM_URL",
	"FORUMFILTER_FORUM_DOMAIN",
	"FORUMFILTER_REFLOW_DELAY",
	"FORUMFILTER_PROFILE",
	"FORUMFILTER_SANITIZE",
	"FORUMFILTER_HOST_URL",
}

// isolateConfigEnv saves and unsets all FORUMFILTER_ env vars so tests don't
// inherit values from the host environment.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, "forumfilter.db", cfg.DBPath)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, "forumfilter:", cfg.RedisPrefix)
	assert.Equal(t, "https://www.flashback.org", cfg.UpstreamURL)
	assert.Equal(t, "flashback.org", cfg.ForumDomain)
	assert.Equal(t, 150*time.Millisecond, cfg.ReflowDelay)
	assert.True(t, cfg.Sanitize)
	assert.Equal(t, model.DefaultProfile(), cfg.Profile)
	assert.Equal(t, "http://127.0.0.1:8080", cfg.HostURL)
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("FORUMFILTER_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("FORUMFILTER_STORE", "Redis")
	t.Setenv("FORUMFILTER_REDIS_ADDR", "cache:6380")
	t.Setenv("FORUMFILTER_REDIS_PASSWORD", "hunter2")
	t.Setenv("FORUMFILTER_REDIS_DB", "3")
	t.Setenv("FORUMFILTER_UPSTREAM_URL", "http://forum.test/")
	t.Setenv("FORUMFILTER_FORUM_DOMAIN", "forum.test")
	t.Setenv("FORUMFILTER_REFLOW_DELAY", "0s")
	t.Setenv("FORUMFILTER_SANITIZE", "false")
	t.Setenv("FORUMFILTER_HOST_URL", "http://host:1/")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, "cache:6380", cfg.RedisAddr)
	assert.Equal(t, "hunter2", cfg.RedisPassword)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, "http://forum.test", cfg.UpstreamURL)
	assert.Equal(t, "forum.test", cfg.ForumDomain)
	assert.Equal(t, time.Duration(0), cfg.ReflowDelay)
	assert.False(t, cfg.Sanitize)
	assert.Equal(t, "http://host:1", cfg.HostURL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"FORUMFILTER_STORE", "postgres"},
		{"FORUMFILTER_REDIS_DB", "one"},
		{"FORUMFILTER_REDIS_DB", "-1"},
		{"FORUMFILTER_REFLOW_DELAY", "soon"},
		{"FORUMFILTER_REFLOW_DELAY", "-5ms"},
		{"FORUMFILTER_SANITIZE", "maybe"},
		{"FORUMFILTER_UPSTREAM_URL", "www.flashback.org"},
		{"FORUMFILTER_PROFILE", "/nonexistent/profile.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_Profile(t *testing.T) {
	isolateConfigEnv(t)
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("labels:\n  hide: Hide\n  ignore: Ignore\ncolors:\n  highlight: \"#fff\"\n"), 0o600))
	t.Setenv("FORUMFILTER_PROFILE", path)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "Hide", cfg.Profile.Labels.Hide)
	assert.Equal(t, "Ignore", cfg.Profile.Labels.Ignore)
	assert.Equal(t, "Gilla", cfg.Profile.Labels.Like, "unset labels keep defaults")
	assert.Equal(t, "#fff", cfg.Profile.Colors.Highlight)
	assert.Equal(t, model.DefaultProfile().Posts, cfg.Profile.Posts)
}

func TestParseProfile_Malformed(t *testing.T) {
	_, err := ParseProfile([]byte("labels: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding profile")
}
