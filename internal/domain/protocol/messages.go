// Package protocol defines the request/response contract between the popup
// and a tab's content script. Requests form a closed set of variants; each
// variant is dispatched to its own Handler method, so adding a variant fails
// to compile until every handler implements it.
package protocol

import (
	"context"
	"errors"

	"github.com/ericfisherdev/forumfilter/internal/domain/model"
)

// MessageType is the wire discriminator carried in the "type" field.
type MessageType string

const (
	TypeExportPosts       MessageType = "EXPORT_POSTS"
	TypeImportPosts       MessageType = "IMPORT_POSTS"
	TypeRemoveLightIgnore MessageType = "REMOVE_LIGHT_IGNORE"
)

var (
	// ErrUnknownMessage is returned when a message carries a type the
	// content script does not handle. Such messages get no response.
	ErrUnknownMessage = errors.New("unknown message type")

	// ErrNotHandled is returned to a sender whose message got no response.
	ErrNotHandled = errors.New("message not handled")
)

// Handler answers each request variant.
type Handler interface {
	HandleExportPosts(ctx context.Context, req ExportPosts) (Response, error)
	HandleImportPosts(ctx context.Context, req ImportPosts) (Response, error)
	HandleRemoveLightIgnore(ctx context.Context, req RemoveLightIgnore) (Response, error)
}

// Request is one of ExportPosts, ImportPosts or RemoveLightIgnore.
type Request interface {
	Type() MessageType
	dispatch(ctx context.Context, h Handler) (Response, error)
}

// Dispatch routes req to the matching Handler method.
func Dispatch(ctx context.Context, h Handler, req Request) (Response, error) {
	if req == nil {
		return nil, ErrUnknownMessage
	}
	return req.dispatch(ctx, h)
}

// ExportPosts asks for a snapshot of the post-level preference state.
type ExportPosts struct{}

func (ExportPosts) Type() MessageType { return TypeExportPosts }

func (r ExportPosts) dispatch(ctx context.Context, h Handler) (Response, error) {
	return h.HandleExportPosts(ctx, r)
}

// ImportPosts patches the post-level collections. A nil field is absent and
// leaves its collection untouched; a non-nil field, even an empty one,
// replaces the collection wholesale.
type ImportPosts struct {
	HiddenPosts  []string
	LikedPosts   []string
	IgnoredUsers []string
	LightIgnored model.LightIgnoreMap
}

func (ImportPosts) Type() MessageType { return TypeImportPosts }

func (r ImportPosts) dispatch(ctx context.Context, h Handler) (Response, error) {
	return h.HandleImportPosts(ctx, r)
}

// ClearAll returns a patch that empties every post-level collection.
func ClearAll() ImportPosts {
	return ImportPosts{
		HiddenPosts:  []string{},
		LikedPosts:   []string{},
		IgnoredUsers: []string{},
		LightIgnored: model.LightIgnoreMap{},
	}
}

// RemoveLightIgnore lifts a per-thread ignore.
type RemoveLightIgnore struct {
	ThreadKey model.ThreadKey
	Username  string
}

func (RemoveLightIgnore) Type() MessageType { return TypeRemoveLightIgnore }

func (r RemoveLightIgnore) dispatch(ctx context.Context, h Handler) (Response, error) {
	return h.HandleRemoveLightIgnore(ctx, r)
}

// Response is one of SnapshotResponse or AckResponse.
type Response interface {
	isResponse()
}

// SnapshotResponse answers ExportPosts.
type SnapshotResponse struct {
	model.Snapshot
}

// AckResponse answers ImportPosts and RemoveLightIgnore.
type AckResponse struct {
	Success bool `json:"success"`
}

func (SnapshotResponse) isResponse() {}
func (AckResponse) isResponse()      {}
