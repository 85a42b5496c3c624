package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchored-notes/anchored-sync-service/internal/domain"
)

func TestStore_SetAndGet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	v1, err := s.Set(ctx, "example.com", []byte(`[{"id":"n1"}]`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1)

	v2, err := s.Set(ctx, "example.com", []byte(`[{"id":"n1"},{"id":"n2"}]`))
	require.NoError(t, err)
	assert.Equal(t, int64(2), v2)

	got, err := s.Get(ctx, "example.com")
	require.NoError(t, err)
	require.Contains(t, got, "example.com")
	assert.Equal(t, int64(2), got["example.com"].Version)
	assert.JSONEq(t, `[{"id":"n1"},{"id":"n2"}]`, string(got["example.com"].Data))
}

func TestStore_GetAllAndMissing(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_, err := s.Set(ctx, "a.com", []byte(`[]`))
	require.NoError(t, err)
	_, err = s.Set(ctx, "b.com", []byte(`[]`))
	require.NoError(t, err)

	all, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	got, err := s.Get(ctx, "a.com", "missing.com")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.NotContains(t, got, "missing.com")
}

func TestStore_CompareAndSwap(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	// version 0 means the key must not exist yet
	v, err := s.CompareAndSwap(ctx, "notes", []byte(`[]`), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	// stale expect must conflict
	_, err = s.CompareAndSwap(ctx, "notes", []byte(`[1]`), 0)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	v, err = s.CompareAndSwap(ctx, "notes", []byte(`[1]`), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestStore_RemoveAndClear(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_, err := s.Set(ctx, "a.com", []byte(`[]`))
	require.NoError(t, err)
	_, err = s.Set(ctx, "b.com", []byte(`[]`))
	require.NoError(t, err)

	require.NoError(t, s.Remove(ctx, "a.com", "missing.com"))
	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.com"}, keys)

	require.NoError(t, s.Clear(ctx))
	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_, err := s.Set(ctx, "a.com", []byte(`[1]`))
	require.NoError(t, err)

	got, err := s.Get(ctx, "a.com")
	require.NoError(t, err)
	got["a.com"].Data[0] = 'X'

	again, err := s.Get(ctx, "a.com")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[1]`), again["a.com"].Data)
}
