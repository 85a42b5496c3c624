package localfs

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchored-notes/anchored-sync-service/internal/domain"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.json")
	s, err := NewStore(&Config{SavePath: path}, nil)
	require.NoError(t, err)
	return s, path
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	v, err := s.Set(ctx, "example.com", []byte(`[{"id":"n1"}]`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	require.NoError(t, s.Close())

	reopened, err := NewStore(&Config{SavePath: path}, nil)
	require.NoError(t, err)

	got, err := reopened.Get(ctx, "example.com")
	require.NoError(t, err)
	require.Contains(t, got, "example.com")
	assert.Equal(t, int64(1), got["example.com"].Version)
	assert.JSONEq(t, `[{"id":"n1"}]`, string(got["example.com"].Data))
}

func TestStore_CompareAndSwapConflict(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.CompareAndSwap(ctx, "notes", []byte(`[]`), 0)
	require.NoError(t, err)

	_, err = s.CompareAndSwap(ctx, "notes", []byte(`[1]`), 0)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	v, err := s.CompareAndSwap(ctx, "notes", []byte(`[1]`), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestStore_RemovePersisted(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	_, err := s.Set(ctx, "a.com", []byte(`[]`))
	require.NoError(t, err)
	_, err = s.Set(ctx, "b.com", []byte(`[]`))
	require.NoError(t, err)
	require.NoError(t, s.Remove(ctx, "a.com"))

	reopened, err := NewStore(&Config{SavePath: path}, nil)
	require.NoError(t, err)

	keys, err := reopened.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.com"}, keys)
}

func TestStore_MissingFileIsEmpty(t *testing.T) {
	s, _ := newTestStore(t)

	all, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}
