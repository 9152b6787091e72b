package driven

import (
	"context"

	"github.com/ericfisherdev/forumfilter/internal/domain/model"
)

// PreferenceStore holds the six user-preference collections shared by every
// tab and the popup. A collection that was never written reads as empty.
// Writes replace the whole collection; there is no partial update.
type PreferenceStore interface {
	HiddenThreads(ctx context.Context) ([]string, error)
	SetHiddenThreads(ctx context.Context, ids []string) error

	MarkedThreads(ctx context.Context) ([]string, error)
	SetMarkedThreads(ctx context.Context, ids []string) error

	HiddenPosts(ctx context.Context) ([]string, error)
	SetHiddenPosts(ctx context.Context, ids []string) error

	LikedPosts(ctx context.Context) ([]string, error)
	SetLikedPosts(ctx context.Context, ids []string) error

	IgnoredUsers(ctx context.Context) ([]string, error)
	SetIgnoredUsers(ctx context.Context, usernames []string) error

	LightIgnored(ctx context.Context) (model.LightIgnoreMap, error)
	SetLightIgnored(ctx context.Context, m model.LightIgnoreMap) error
}
