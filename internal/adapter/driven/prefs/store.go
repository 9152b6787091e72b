// Package prefs implements the preference store on top of a key/value backend.
// Every collection lives under its own key as a JSON document.
package prefs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"

	"github.com/ericfisherdev/forumfilter/internal/domain/model"
	"github.com/ericfisherdev/forumfilter/internal/domain/port/driven"
)

// Storage keys. They match the keys written by earlier releases.
const (
	KeyHiddenThreads = "hiddenThreads"
	KeyMarkedThreads = "markedThreads"
	KeyHiddenPosts   = "hiddenPosts"
	KeyLikedPosts    = "likedPosts"
	KeyIgnoredUsers  = "ignoredUsers"
	KeyLightIgnored  = "lightIgnored"
)

// Keys lists every storage key in a stable order.
var Keys = []string{
	KeyHiddenThreads,
	KeyMarkedThreads,
	KeyHiddenPosts,
	KeyLikedPosts,
	KeyIgnoredUsers,
	KeyLightIgnored,
}

var _ driven.PreferenceStore = (*Store)(nil)

// Store is a PreferenceStore backed by a driven.KVStore.
type Store struct {
	kv     driven.KVStore
	logger *slog.Logger
}

// NewStore wraps kv. A nil logger falls back to slog.Default().
func NewStore(kv driven.KVStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, logger: logger}
}

func (s *Store) HiddenThreads(ctx context.Context) ([]string, error) {
	return s.readList(ctx, KeyHiddenThreads)
}

func (s *Store) SetHiddenThreads(ctx context.Context, ids []string) error {
	return s.writeList(ctx, KeyHiddenThreads, ids)
}

func (s *Store) MarkedThreads(ctx context.Context) ([]string, error) {
	return s.readList(ctx, KeyMarkedThreads)
}

func (s *Store) SetMarkedThreads(ctx context.Context, ids []string) error {
	return s.writeList(ctx, KeyMarkedThreads, ids)
}

func (s *Store) HiddenPosts(ctx context.Context) ([]string, error) {
	return s.readList(ctx, KeyHiddenPosts)
}

func (s *Store) SetHiddenPosts(ctx context.Context, ids []string) error {
	return s.writeList(ctx, KeyHiddenPosts, ids)
}

func (s *Store) LikedPosts(ctx context.Context) ([]string, error) {
	return s.readList(ctx, KeyLikedPosts)
}

func (s *Store) SetLikedPosts(ctx context.Context, ids []string) error {
	return s.writeList(ctx, KeyLikedPosts, ids)
}

func (s *Store) IgnoredUsers(ctx context.Context) ([]string, error) {
	return s.readList(ctx, KeyIgnoredUsers)
}

func (s *Store) SetIgnoredUsers(ctx context.Context, usernames []string) error {
	return s.writeList(ctx, KeyIgnoredUsers, usernames)
}

// LightIgnored returns the per-thread ignore map. A stored value of the wrong
// shape is logged and read as empty.
func (s *Store) LightIgnored(ctx context.Context) (model.LightIgnoreMap, error) {
	raw, found, err := s.kv.Get(ctx, KeyLightIgnored)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", KeyLightIgnored, err)
	}
	if !found {
		return model.LightIgnoreMap{}, nil
	}

	var m model.LightIgnoreMap
	if err := json.Unmarshal(raw, &m); err != nil {
		s.logger.Warn("discarding malformed preference", "key", KeyLightIgnored, "error", err)
		return model.LightIgnoreMap{}, nil
	}
	return m.Normalize(), nil
}

// SetLightIgnored stores m with duplicates and empty entries removed.
func (s *Store) SetLightIgnored(ctx context.Context, m model.LightIgnoreMap) error {
	raw, err := json.Marshal(m.Normalize())
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeyLightIgnored, err)
	}
	if err := s.kv.Set(ctx, KeyLightIgnored, raw); err != nil {
		return fmt.Errorf("write %s: %w", KeyLightIgnored, err)
	}
	return nil
}

// Clear deletes every stored collection.
func (s *Store) Clear(ctx context.Context) error {
	for _, key := range Keys {
		if err := s.kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}

func (s *Store) readList(ctx context.Context, key string) ([]string, error) {
	raw, found, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if !found {
		return []string{}, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		s.logger.Warn("discarding malformed preference", "key", key, "error", err)
		return []string{}, nil
	}
	return model.Dedupe(list), nil
}

func (s *Store) writeList(ctx context.Context, key string, list []string) error {
	raw, err := json.Marshal(model.Dedupe(list))
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
