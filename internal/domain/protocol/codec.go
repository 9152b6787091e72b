package protocol

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/ericfisherdev/forumfilter/internal/domain/model"
)

// ErrMalformedDocument is returned when a backup document is not a JSON object.
var ErrMalformedDocument = errors.New("malformed document")

// EncodeRequest renders req in its wire form: a flat JSON object with a
// "type" discriminator. Absent ImportPosts fields are omitted; present empty
// fields are encoded as [] or {}.
func EncodeRequest(req Request) ([]byte, error) {
	msg := map[string]any{"type": req.Type()}

	switch r := req.(type) {
	case ExportPosts:
	case ImportPosts:
		if r.HiddenPosts != nil {
			msg["hiddenPosts"] = r.HiddenPosts
		}
		if r.LikedPosts != nil {
			msg["likedPosts"] = r.LikedPosts
		}
		if r.IgnoredUsers != nil {
			msg["ignoredUsers"] = r.IgnoredUsers
		}
		if r.LightIgnored != nil {
			msg["lightIgnored"] = r.LightIgnored
		}
	case RemoveLightIgnore:
		msg["threadKey"] = r.ThreadKey
		msg["username"] = r.Username
	default:
		return nil, fmt.Errorf("encode %T: %w", req, ErrUnknownMessage)
	}

	return json.Marshal(msg)
}

// DecodeRequest parses a wire message. Unknown or missing types yield
// ErrUnknownMessage. ImportPosts fields of the wrong shape are dropped, so
// they leave their collection untouched instead of failing the whole message.
func DecodeRequest(data []byte) (Request, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	msgType, _ := stringField(envelope["type"])

	switch MessageType(msgType) {
	case TypeExportPosts:
		return ExportPosts{}, nil
	case TypeImportPosts:
		req := ImportPosts{}
		req.HiddenPosts, _ = stringList(envelope["hiddenPosts"])
		req.LikedPosts, _ = stringList(envelope["likedPosts"])
		req.IgnoredUsers, _ = stringList(envelope["ignoredUsers"])
		req.LightIgnored, _ = lightIgnoreMap(envelope["lightIgnored"])
		return req, nil
	case TypeRemoveLightIgnore:
		key, _ := stringField(envelope["threadKey"])
		username, _ := stringField(envelope["username"])
		return RemoveLightIgnore{ThreadKey: model.ThreadKey(key), Username: username}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, msgType)
	}
}

// EncodeResponse renders a response body.
func EncodeResponse(resp Response) ([]byte, error) {
	if snap, ok := resp.(SnapshotResponse); ok {
		return json.Marshal(snap.Snapshot.Normalized())
	}
	return json.Marshal(resp)
}

// DecodeResponse parses the response body for a request of type t.
func DecodeResponse(t MessageType, data []byte) (Response, error) {
	switch t {
	case TypeExportPosts:
		var snap model.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		return SnapshotResponse{Snapshot: snap.Normalized()}, nil
	case TypeImportPosts, TypeRemoveLightIgnore:
		var ack AckResponse
		if err := json.Unmarshal(data, &ack); err != nil {
			return nil, fmt.Errorf("decode ack: %w", err)
		}
		return ack, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, t)
	}
}

// DecodeBackup parses an export document. An absent field decodes as an
// empty collection, because importing a document replaces everything. A
// field of the wrong shape decodes as nil and is left untouched.
func DecodeBackup(data []byte) (model.Backup, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.Backup{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if doc == nil {
		return model.Backup{}, fmt.Errorf("%w: not an object", ErrMalformedDocument)
	}

	return model.Backup{
		ThreadsHidden:    backupList(doc, "threadsHidden"),
		ThreadsMarked:    backupList(doc, "threadsMarked"),
		PostsHidden:      backupList(doc, "postsHidden"),
		PostsInteresting: backupList(doc, "postsInteresting"),
		UsersIgnored:     backupList(doc, "usersIgnored"),
		LightIgnored:     backupMap(doc, "lightIgnored"),
	}, nil
}

// EncodeBackup renders an export document with two-space indentation.
func EncodeBackup(b model.Backup) ([]byte, error) {
	return json.MarshalIndent(b.Normalized(), "", "  ")
}

func backupList(doc map[string]json.RawMessage, field string) []string {
	raw, ok := doc[field]
	if !ok || isNull(raw) {
		return []string{}
	}
	list, _ := stringList(raw)
	return list
}

func backupMap(doc map[string]json.RawMessage, field string) model.LightIgnoreMap {
	raw, ok := doc[field]
	if !ok || isNull(raw) {
		return model.LightIgnoreMap{}
	}
	m, _ := lightIgnoreMap(raw)
	return m
}

// stringList decodes a JSON array of strings. It reports false, with a nil
// slice, when the field is absent or not an array of strings.
func stringList(raw json.RawMessage) ([]string, bool) {
	if raw == nil || isNull(raw) {
		return nil, false
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, false
	}
	if list == nil {
		list = []string{}
	}
	return list, true
}

// lightIgnoreMap decodes a JSON object of thread key to username arrays.
func lightIgnoreMap(raw json.RawMessage) (model.LightIgnoreMap, bool) {
	if raw == nil || isNull(raw) {
		return nil, false
	}
	var m model.LightIgnoreMap
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false
	}
	if m == nil {
		m = model.LightIgnoreMap{}
	}
	return m, true
}

func stringField(raw json.RawMessage) (string, bool) {
	if raw == nil {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
