package protocol

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/forumfilter/internal/domain/model"
)

func TestDecodeRequest_Variants(t *testing.T) {
	tests := []struct {
		name string
		wire string
		want Request
	}{
		{
			name: "export",
			wire: `{"type":"EXPORT_POSTS"}`,
			want: ExportPosts{},
		},
		{
			name: "import with every field",
			wire: `{"type":"IMPORT_POSTS","hiddenPosts":["1"],"likedPosts":["2"],"ignoredUsers":["eve"],"lightIgnored":{"t1":["bob"]}}`,
			want: ImportPosts{
				HiddenPosts:  []string{"1"},
				LikedPosts:   []string{"2"},
				IgnoredUsers: []string{"eve"},
				LightIgnored: model.LightIgnoreMap{"t1": {"bob"}},
			},
		},
		{
			name: "import with absent fields",
			wire: `{"type":"IMPORT_POSTS","ignoredUsers":[]}`,
			want: ImportPosts{IgnoredUsers: []string{}},
		},
		{
			name: "import drops malformed fields",
			wire: `{"type":"IMPORT_POSTS","hiddenPosts":"1,2","likedPosts":[1,2],"ignoredUsers":["eve"],"lightIgnored":["t1"]}`,
			want: ImportPosts{IgnoredUsers: []string{"eve"}},
		},
		{
			name: "import null mapping is absent",
			wire: `{"type":"IMPORT_POSTS","lightIgnored":null}`,
			want: ImportPosts{},
		},
		{
			name: "remove light ignore",
			wire: `{"type":"REMOVE_LIGHT_IGNORE","threadKey":"t5","username":"bob"}`,
			want: RemoveLightIgnore{ThreadKey: "t5", Username: "bob"},
		},
		{
			name: "remove light ignore with missing username",
			wire: `{"type":"REMOVE_LIGHT_IGNORE","threadKey":"t5"}`,
			want: RemoveLightIgnore{ThreadKey: "t5"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRequest([]byte(tt.wire))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeRequest_UnknownType(t *testing.T) {
	for _, wire := range []string{`{"type":"PING"}`, `{}`, `{"type":7}`} {
		_, err := DecodeRequest([]byte(wire))
		assert.ErrorIs(t, err, ErrUnknownMessage, wire)
	}
}

func TestDecodeRequest_InvalidJSON(t *testing.T) {
	_, err := DecodeRequest([]byte(`{"type":`))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnknownMessage))
}

func TestEncodeRequest_KeepsEmptyFieldsPresent(t *testing.T) {
	data, err := EncodeRequest(ClearAll())
	require.NoError(t, err)

	decoded, err := DecodeRequest(data)
	require.NoError(t, err)
	assert.Equal(t, ClearAll(), decoded)
}

func TestEncodeRequest_OmitsAbsentFields(t *testing.T) {
	data, err := EncodeRequest(ImportPosts{IgnoredUsers: []string{"eve"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"IMPORT_POSTS","ignoredUsers":["eve"]}`, string(data))
}

func TestResponses_RoundTrip(t *testing.T) {
	snap := SnapshotResponse{Snapshot: model.Snapshot{
		HiddenPosts:  []string{"1"},
		LightIgnored: model.LightIgnoreMap{"t1": {"bob"}},
	}}
	data, err := EncodeResponse(snap)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hiddenPosts":["1"],"likedPosts":[],"ignoredUsers":[],"lightIgnored":{"t1":["bob"]}}`, string(data))

	got, err := DecodeResponse(TypeExportPosts, data)
	require.NoError(t, err)
	assert.Equal(t, SnapshotResponse{Snapshot: snap.Snapshot.Normalized()}, got)

	data, err = EncodeResponse(AckResponse{Success: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true}`, string(data))

	ack, err := DecodeResponse(TypeRemoveLightIgnore, data)
	require.NoError(t, err)
	assert.Equal(t, AckResponse{Success: true}, ack)
}

func TestDecodeBackup(t *testing.T) {
	data := []byte(`{
		"threadsHidden": ["100"],
		"postsHidden": "oops",
		"usersIgnored": ["eve"],
		"lightIgnored": {"t1": ["bob"]}
	}`)

	b, err := DecodeBackup(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"100"}, b.ThreadsHidden)
	assert.Equal(t, []string{}, b.ThreadsMarked, "absent field replaces with empty")
	assert.Nil(t, b.PostsHidden, "malformed field is left untouched")
	assert.Equal(t, []string{}, b.PostsInteresting)
	assert.Equal(t, []string{"eve"}, b.UsersIgnored)
	assert.Equal(t, model.LightIgnoreMap{"t1": {"bob"}}, b.LightIgnored)
}

func TestDecodeBackup_Malformed(t *testing.T) {
	for _, doc := range []string{`not json`, `[1,2]`, `null`, `"x"`} {
		_, err := DecodeBackup([]byte(doc))
		assert.ErrorIs(t, err, ErrMalformedDocument, doc)
	}
}

func TestBackup_RoundTrip(t *testing.T) {
	in := model.Backup{
		ThreadsHidden:    []string{"100", "200"},
		ThreadsMarked:    []string{"300"},
		PostsHidden:      []string{"1"},
		PostsInteresting: []string{"2", "3"},
		UsersIgnored:     []string{"eve"},
		LightIgnored:     model.LightIgnoreMap{"t1": {"bob", "carol"}, "s2": {"dave"}},
	}

	data, err := EncodeBackup(in)
	require.NoError(t, err)
	out, err := DecodeBackup(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	again, err := EncodeBackup(out)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

type recordingHandler struct {
	called MessageType
}

func (h *recordingHandler) HandleExportPosts(_ context.Context, r ExportPosts) (Response, error) {
	h.called = r.Type()
	return SnapshotResponse{}, nil
}

func (h *recordingHandler) HandleImportPosts(_ context.Context, r ImportPosts) (Response, error) {
	h.called = r.Type()
	return AckResponse{Success: true}, nil
}

func (h *recordingHandler) HandleRemoveLightIgnore(_ context.Context, r RemoveLightIgnore) (Response, error) {
	h.called = r.Type()
	return AckResponse{Success: false}, nil
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()
	h := &recordingHandler{}

	for _, req := range []Request{ExportPosts{}, ImportPosts{}, RemoveLightIgnore{}} {
		_, err := Dispatch(ctx, h, req)
		require.NoError(t, err)
		assert.Equal(t, req.Type(), h.called)
	}

	_, err := Dispatch(ctx, h, nil)
	assert.ErrorIs(t, err, ErrUnknownMessage)
}
