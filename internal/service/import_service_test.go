package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchored-notes/anchored-sync-service/internal/bus"
	"github.com/anchored-notes/anchored-sync-service/internal/domain"
	"github.com/anchored-notes/anchored-sync-service/internal/kvstore/memory"
	"github.com/anchored-notes/anchored-sync-service/internal/repository"
	"github.com/anchored-notes/anchored-sync-service/pkg/code"
)

type importFixture struct {
	repo *repository.NoteRepository
	bus  *bus.Bus
	svc  ImportService
}

func newImportFixture(t *testing.T) *importFixture {
	t.Helper()
	eventBus := bus.New(nil)
	repo := repository.NewNoteRepository(memory.NewStore(), eventBus, nil, "1.0.0", nil)
	require.NoError(t, repo.Load(context.Background()))
	return &importFixture{
		repo: repo,
		bus:  eventBus,
		svc:  NewImportService(repo, eventBus, nil),
	}
}

func TestImport_Envelope(t *testing.T) {
	f := newImportFixture(t)
	ctx := context.Background()

	var imported []domain.Event
	f.bus.Subscribe(domain.EventNotesImported, func(e domain.Event) {
		imported = append(imported, e)
	})

	payload := []byte(`{
		"_anchored": {"version":"0.9.0","exportedAt":"2024-01-02T03:04:05.000Z","source":"extension","format":"anchored-notes"},
		"example.com": [{"id":"n1","domain":"example.com","title":"one","tags":[]}],
		"other.com": [{"id":"n2","domain":"other.com","title":"two","tags":[]}, {"domain":"other.com"}]
	}`)

	result, err := f.svc.Import(ctx, payload)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, "ok", result.Domains["example.com"])
	assert.Equal(t, "ok", result.Domains["other.com"])

	require.Len(t, imported, 1)
	assert.Same(t, result, imported[0].Payload)

	notes, err := f.repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, notes, 2)
}

func TestImport_InvalidJSON(t *testing.T) {
	f := newImportFixture(t)

	_, err := f.svc.Import(context.Background(), []byte(`not json at all`))
	assert.ErrorIs(t, err, code.ErrorImportInvalidPayload)
}

func TestImport_MissingHeaderRejected(t *testing.T) {
	f := newImportFixture(t)
	ctx := context.Background()

	payload := []byte(`{"example.com": [{"id":"n1","domain":"example.com","title":"one"}]}`)
	_, err := f.svc.Import(ctx, payload)
	assert.ErrorIs(t, err, code.ErrorImportInvalidPayload)

	notes, err := f.repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestImport_WrongFormatRejected(t *testing.T) {
	f := newImportFixture(t)

	payload := []byte(`{
		"_anchored": {"version":"1","format":"someone-elses-notes"},
		"example.com": [{"id":"n1","domain":"example.com"}]
	}`)
	_, err := f.svc.Import(context.Background(), payload)
	assert.ErrorIs(t, err, code.ErrorImportInvalidPayload)
}

func TestImport_NoDomains(t *testing.T) {
	f := newImportFixture(t)

	payload := []byte(`{"_anchored": {"version":"1","format":"anchored-notes"}}`)
	_, err := f.svc.Import(context.Background(), payload)
	assert.ErrorIs(t, err, code.ErrorImportInvalidPayload)
}

func TestImport_ReservedKeysIgnored(t *testing.T) {
	f := newImportFixture(t)
	ctx := context.Background()

	// a raw store dump includes settings; the import skips it
	payload := []byte(`{
		"_anchored": {"version":"1","format":"anchored-notes"},
		"settings": {"theme":"dark"},
		"example.com": [{"id":"n1","domain":"example.com"}]
	}`)

	result, err := f.svc.Import(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.NotContains(t, result.Domains, "settings")
}

func TestImport_LoadsBeforeMerging(t *testing.T) {
	eventBus := bus.New(nil)
	repo := repository.NewNoteRepository(memory.NewStore(), eventBus, nil, "1.0.0", nil)
	svc := NewImportService(repo, eventBus, nil)

	payload := []byte(`{
		"_anchored": {"version":"1","format":"anchored-notes"},
		"example.com": [{"id":"n1","domain":"example.com"}]
	}`)

	_, err := svc.Import(context.Background(), payload)
	require.NoError(t, err)
	assert.True(t, repo.Loaded())
}
