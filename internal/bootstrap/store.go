// Package bootstrap opens the preference store backend selected by config.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/forumfilter/internal/adapter/driven/memory"
	"github.com/ericfisherdev/forumfilter/internal/adapter/driven/prefs"
	redisadapter "github.com/ericfisherdev/forumfilter/internal/adapter/driven/redis"
	sqliteadapter "github.com/ericfisherdev/forumfilter/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/forumfilter/internal/config"
)

// OpenStore opens the backend named by cfg.Store and wraps it in a
// preference store. The returned close function releases the backend.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*prefs.Store, func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Store {
	case config.StoreMemory:
		logger.Info("using in-memory preference store")
		return prefs.NewStore(memory.NewKVStore(), logger), func() error { return nil }, nil

	case config.StoreRedis:
		kv, err := redisadapter.NewKVStore(ctx, redisadapter.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		logger.Info("redis preference store connected", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		return prefs.NewStore(kv, logger), kv.Close, nil

	case config.StoreSQLite:
		db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logger.Info("sqlite preference store opened", "path", cfg.DBPath)
		return prefs.NewStore(sqliteadapter.NewKVRepo(db), logger), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
}
