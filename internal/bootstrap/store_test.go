package bootstrap_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/forumfilter/internal/bootstrap"
	"github.com/ericfisherdev/forumfilter/internal/config"
)

func TestOpenStore_Memory(t *testing.T) {
	ctx := context.Background()
	store, closeFn, err := bootstrap.OpenStore(ctx, &config.Config{Store: config.StoreMemory}, nil)
	require.NoError(t, err)
	defer func() { require.NoError(t, closeFn()) }()

	require.NoError(t, store.SetHiddenPosts(ctx, []string{"1"}))
	got, err := store.HiddenPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, got)
}

func TestOpenStore_SQLitePersists(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{Store: config.StoreSQLite, DBPath: filepath.Join(t.TempDir(), "prefs.db")}

	store, closeFn, err := bootstrap.OpenStore(ctx, cfg, nil)
	require.NoError(t, err)
	require.NoError(t, store.SetIgnoredUsers(ctx, []string{"eve"}))
	require.NoError(t, closeFn())

	store, closeFn, err = bootstrap.OpenStore(ctx, cfg, nil)
	require.NoError(t, err)
	defer func() { require.NoError(t, closeFn()) }()

	got, err := store.IgnoredUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"eve"}, got)
}

func TestOpenStore_RedisUnreachable(t *testing.T) {
	cfg := &config.Config{Store: config.StoreRedis, RedisAddr: "127.0.0.1:1"}

	_, _, err := bootstrap.OpenStore(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}

func TestOpenStore_Unknown(t *testing.T) {
	_, _, err := bootstrap.OpenStore(context.Background(), &config.Config{Store: "etcd"}, nil)
	require.Error(t, err)
}
