package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVStore_GetMissing(t *testing.T) {
	s := NewKVStore()

	v, found, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, v)
}

func TestKVStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewKVStore()

	in := []byte(`["1"]`)
	require.NoError(t, s.Set(ctx, "k", in))
	in[0] = 'x'

	v, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `["1"]`, string(v), "stored value must not alias caller bytes")

	v[0] = 'y'
	again, _, _ := s.Get(ctx, "k")
	assert.Equal(t, `["1"]`, string(again))

	require.NoError(t, s.Delete(ctx, "k"))
	_, found, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}
