package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/forumfilter/internal/domain/model"
	"github.com/ericfisherdev/forumfilter/internal/domain/protocol"
)

// ErrNoActiveTab is returned by ActiveTab when no tab is open.
var ErrNoActiveTab = errors.New("no active tab")

// TabChannel reaches the content scripts running in open forum tabs.
// Send returns protocol.ErrNotHandled when the tab gave no response.
type TabChannel interface {
	ActiveTab(ctx context.Context) (model.Tab, error)
	Send(ctx context.Context, tabID string, req protocol.Request) (protocol.Response, error)
	Reload(ctx context.Context, tabID string) error
}
