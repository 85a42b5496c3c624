package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchored-notes/anchored-sync-service/internal/bus"
	"github.com/anchored-notes/anchored-sync-service/internal/dto"
	"github.com/anchored-notes/anchored-sync-service/internal/kvstore/memory"
	"github.com/anchored-notes/anchored-sync-service/internal/repository"
)

func saveReq(domainName, title string) *dto.NoteSaveRequest {
	return &dto.NoteSaveRequest{Domain: domainName, Title: title}
}

func newNoteFixture(t *testing.T) NoteService {
	t.Helper()
	repo := repository.NewNoteRepository(memory.NewStore(), bus.New(nil), nil, "1.0.0", nil)
	require.NoError(t, repo.Load(context.Background()))
	return NewNoteService(repo, &ServiceConfig{
		AppVersion:          "1.0.0",
		SoftDeleteRetention: 24 * time.Hour,
		ExportSource:        "test",
	})
}

func TestNoteService_ListFilters(t *testing.T) {
	svc := newNoteFixture(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, &dto.NoteSaveRequest{Domain: "a.com", URL: "https://a.com/x"})
	require.NoError(t, err)
	_, err = svc.Save(ctx, saveReq("a.com", "second"))
	require.NoError(t, err)
	_, err = svc.Save(ctx, saveReq("b.com", "third"))
	require.NoError(t, err)

	all, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byDomain, err := svc.List(ctx, &dto.NoteListRequest{Domain: "a.com"})
	require.NoError(t, err)
	assert.Len(t, byDomain, 2)

	byURL, err := svc.List(ctx, &dto.NoteListRequest{URL: "https://a.com/x"})
	require.NoError(t, err)
	assert.Len(t, byURL, 1)
}

func TestNoteService_SaveGetDelete(t *testing.T) {
	svc := newNoteFixture(t)
	ctx := context.Background()

	saved, err := svc.Save(ctx, saveReq("example.com", "roundtrip"))
	require.NoError(t, err)

	got, err := svc.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "roundtrip", got.Title)

	_, err = svc.Delete(ctx, saved.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, saved.ID)
	assert.Error(t, err)
}

func TestNoteService_ExportUsesConfigSource(t *testing.T) {
	svc := newNoteFixture(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, saveReq("example.com", "exported"))
	require.NoError(t, err)

	env, err := svc.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test", env.Meta.Source)

	narrowed, err := svc.Export(ctx, "missing.com")
	require.NoError(t, err)
	assert.Empty(t, narrowed.Domains)
}

func TestNoteService_DeleteDomain(t *testing.T) {
	svc := newNoteFixture(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, saveReq("gone.com", "one"))
	require.NoError(t, err)
	_, err = svc.Save(ctx, saveReq("gone.com", "two"))
	require.NoError(t, err)

	count, err := svc.DeleteDomain(ctx, "gone.com")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	domains, err := svc.Domains(ctx)
	require.NoError(t, err)
	assert.Empty(t, domains)
}
