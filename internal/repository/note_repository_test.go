package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchored-notes/anchored-sync-service/internal/bus"
	"github.com/anchored-notes/anchored-sync-service/internal/domain"
	"github.com/anchored-notes/anchored-sync-service/internal/kvstore/memory"
	"github.com/anchored-notes/anchored-sync-service/pkg/code"
	"github.com/anchored-notes/anchored-sync-service/pkg/timex"
)

func newTestRepo(t *testing.T) (*NoteRepository, *memory.Store, *bus.Bus) {
	t.Helper()
	store := memory.NewStore()
	eventBus := bus.New(nil)
	repo := NewNoteRepository(store, eventBus, nil, "1.0.0", nil)
	require.NoError(t, repo.Load(context.Background()))
	return repo, store, eventBus
}

func TestSave_AssignsIDAndEmitsCreated(t *testing.T) {
	repo, _, eventBus := newTestRepo(t)
	ctx := context.Background()

	var events []domain.Event
	eventBus.SubscribeAll(func(e domain.Event) { events = append(events, e) })

	saved, err := repo.Save(ctx, &domain.Note{Domain: "Example.COM", Title: "first"})
	require.NoError(t, err)

	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "example.com", saved.Domain)
	assert.False(t, saved.UpdatedAt.IsZero())
	assert.False(t, saved.CreatedAt.IsZero())

	require.Len(t, events, 1)
	assert.Equal(t, domain.EventNoteCreated, events[0].Type)
}

func TestSave_NormalizesTags(t *testing.T) {
	repo, _, _ := newTestRepo(t)

	saved, err := repo.Save(context.Background(), &domain.Note{
		Domain: "example.com",
		Tags:   []string{" work", "todo", "work", "", "todo"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"work", "todo"}, saved.Tags)
}

func TestSave_MissingDomain(t *testing.T) {
	repo, _, _ := newTestRepo(t)

	_, err := repo.Save(context.Background(), &domain.Note{Title: "no home"})
	assert.ErrorIs(t, err, code.ErrorInvalidNote)
}

func TestSave_UpdatedAtStrictlyIncreasing(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	ctx := context.Background()

	saved, err := repo.Save(ctx, &domain.Note{Domain: "example.com", Title: "v1"})
	require.NoError(t, err)

	prev := saved.UpdatedAt
	for i := 0; i < 10; i++ {
		saved.Title = "next"
		saved, err = repo.Save(ctx, saved)
		require.NoError(t, err)
		assert.True(t, saved.UpdatedAt.After(prev),
			"updatedAt must strictly increase on every persisted mutation")
		prev = saved.UpdatedAt
	}
}

func TestSave_UpdateEmitsUpdated(t *testing.T) {
	repo, _, eventBus := newTestRepo(t)
	ctx := context.Background()

	saved, err := repo.Save(ctx, &domain.Note{Domain: "example.com"})
	require.NoError(t, err)

	var types []domain.EventType
	eventBus.SubscribeAll(func(e domain.Event) { types = append(types, e.Type) })

	saved.Content = "changed"
	_, err = repo.Save(ctx, saved)
	require.NoError(t, err)

	assert.Equal(t, []domain.EventType{domain.EventNoteUpdated}, types)
}

func TestSave_DomainChangeMovesBucket(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	ctx := context.Background()

	saved, err := repo.Save(ctx, &domain.Note{Domain: "a.com", Title: "mover"})
	require.NoError(t, err)

	saved.Domain = "b.com"
	_, err = repo.Save(ctx, saved)
	require.NoError(t, err)

	aNotes, err := repo.GetByDomain(ctx, "a.com")
	require.NoError(t, err)
	assert.Empty(t, aNotes)

	bNotes, err := repo.GetByDomain(ctx, "b.com")
	require.NoError(t, err)
	require.Len(t, bNotes, 1)
	assert.Equal(t, saved.ID, bNotes[0].ID)
}

func TestLoad_UsesIndexKey(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	bucket, _ := sonic.Marshal([]*domain.Note{{ID: "n1", Domain: "example.com"}})
	_, err := store.Set(ctx, "example.com", bucket)
	require.NoError(t, err)
	idx, _ := sonic.Marshal([]string{"example.com"})
	_, err = store.Set(ctx, domain.IndexKey, idx)
	require.NoError(t, err)
	// settings is a reserved key and must never be scanned as a bucket
	_, err = store.Set(ctx, "settings", []byte(`{"theme":"dark"}`))
	require.NoError(t, err)

	repo := NewNoteRepository(store, bus.New(nil), nil, "1.0.0", nil)
	require.NoError(t, repo.Load(ctx))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "n1", all[0].ID)
}

func TestLoad_ShapeFallbackWithoutIndex(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	bucket, _ := sonic.Marshal([]*domain.Note{{ID: "n1", Domain: "legacy.com"}})
	_, err := store.Set(ctx, "legacy.com", bucket)
	require.NoError(t, err)
	_, err = store.Set(ctx, "editorState", []byte(`{"cursor":3}`))
	require.NoError(t, err)
	// an array without note identity fields is not a bucket
	_, err = store.Set(ctx, "misc", []byte(`[{"foo":1}]`))
	require.NoError(t, err)

	repo := NewNoteRepository(store, bus.New(nil), nil, "1.0.0", nil)
	require.NoError(t, repo.Load(ctx))

	domains, err := repo.Domains(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"legacy.com"}, domains)
}

func TestLoad_CorruptBucketDegradesToEmpty(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	_, err := store.Set(ctx, "good.com", mustMarshalNotes(t, &domain.Note{ID: "n1", Domain: "good.com"}))
	require.NoError(t, err)
	_, err = store.Set(ctx, "bad.com", []byte(`{{{not json`))
	require.NoError(t, err)
	idx, _ := sonic.Marshal([]string{"good.com", "bad.com"})
	_, err = store.Set(ctx, domain.IndexKey, idx)
	require.NoError(t, err)

	repo := NewNoteRepository(store, bus.New(nil), nil, "1.0.0", nil)
	require.NoError(t, repo.Load(ctx))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDelete(t *testing.T) {
	repo, _, eventBus := newTestRepo(t)
	ctx := context.Background()

	saved, err := repo.Save(ctx, &domain.Note{Domain: "example.com"})
	require.NoError(t, err)

	var types []domain.EventType
	eventBus.SubscribeAll(func(e domain.Event) { types = append(types, e.Type) })

	removed, err := repo.Delete(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, removed.ID)
	assert.Equal(t, []domain.EventType{domain.EventNoteDeleted}, types)

	_, err = repo.GetByID(ctx, saved.ID)
	assert.ErrorIs(t, err, code.ErrorNoteNotFound)

	_, err = repo.Delete(ctx, "no-such-id")
	assert.ErrorIs(t, err, code.ErrorNoteNotFound)
}

func TestDeleteByDomain(t *testing.T) {
	repo, store, eventBus := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.Save(ctx, &domain.Note{Domain: "example.com"})
		require.NoError(t, err)
	}
	_, err := repo.Save(ctx, &domain.Note{Domain: "other.com"})
	require.NoError(t, err)

	var payloads []interface{}
	eventBus.Subscribe(domain.EventDomainDeleted, func(e domain.Event) {
		payloads = append(payloads, e.Payload)
	})

	count, err := repo.DeleteByDomain(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.Len(t, payloads, 1)
	payload := payloads[0].(*domain.DomainEventPayload)
	assert.Equal(t, "example.com", payload.Domain)
	assert.Equal(t, 3, payload.Count)

	// the bucket and its index entry are gone from the store
	values, err := store.Get(ctx, "example.com", domain.IndexKey)
	require.NoError(t, err)
	assert.NotContains(t, values, "example.com")
	var domains []string
	require.NoError(t, sonic.Unmarshal(values[domain.IndexKey].Data, &domains))
	assert.Equal(t, []string{"other.com"}, domains)

	_, err = repo.DeleteByDomain(ctx, "  ")
	assert.ErrorIs(t, err, code.ErrorInvalidDomain)
}

func TestExport_LoadsWhenNeverLoaded(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	_, err := store.Set(ctx, "example.com", mustMarshalNotes(t, &domain.Note{
		ID:               "n1",
		Domain:           "example.com",
		Title:            "plain",
		TitleEncrypted:   "zzz",
		ContentEncrypted: "zzz",
		SyncPending:      true,
		UpdatedAt:        timex.Now(),
	}))
	require.NoError(t, err)
	idx, _ := sonic.Marshal([]string{"example.com"})
	_, err = store.Set(ctx, domain.IndexKey, idx)
	require.NoError(t, err)

	repo := NewNoteRepository(store, bus.New(nil), nil, "1.2.3", nil)
	env, err := repo.Export(ctx, "server")
	require.NoError(t, err)

	assert.True(t, repo.Loaded())
	assert.Equal(t, "1.2.3", env.Meta.Version)
	assert.Equal(t, domain.EnvelopeFormat, env.Meta.Format)
	assert.Equal(t, "server", env.Meta.Source)

	require.Len(t, env.Domains["example.com"], 1)
	exported := env.Domains["example.com"][0]
	assert.Empty(t, exported.TitleEncrypted)
	assert.Empty(t, exported.ContentEncrypted)
	assert.False(t, exported.SyncPending)
	assert.NotNil(t, exported.Tags)
}

func TestExport_EnvelopeWireShape(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Save(ctx, &domain.Note{Domain: "example.com", Title: "wire"})
	require.NoError(t, err)

	env, err := repo.Export(ctx, "server")
	require.NoError(t, err)

	data, err := sonic.Marshal(env)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, sonic.Unmarshal(data, &raw))
	require.Contains(t, raw, "_anchored")
	require.Contains(t, raw, "example.com")

	meta := raw["_anchored"].(map[string]interface{})
	assert.Equal(t, "anchored-notes", meta["format"])
}

func TestExport_EmptyStore(t *testing.T) {
	repo, _, _ := newTestRepo(t)

	env, err := repo.Export(context.Background(), "server")
	require.NoError(t, err)
	assert.Empty(t, env.Domains)
	assert.Equal(t, domain.EnvelopeFormat, env.Meta.Format)
}

func TestMergeBucket(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	ctx := context.Background()

	existing, err := repo.Save(ctx, &domain.Note{Domain: "example.com", Title: "local"})
	require.NoError(t, err)

	incoming := []*domain.Note{
		{ID: existing.ID, Domain: "example.com", Title: "imported wins"},
		{ID: "new-1", Domain: "example.com", Title: "fresh"},
		{Domain: "example.com", Title: "no id"},
	}

	result, err := repo.MergeBucket(ctx, "example.com", incoming)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Skipped)

	merged, err := repo.GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "imported wins", merged.Title)
	assert.True(t, merged.UpdatedAt.After(existing.UpdatedAt),
		"imported note must win future last-write-wins comparisons")
}

func TestMergeBucket_ResurrectsDeleted(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	ctx := context.Background()

	now := timex.Now()
	incoming := []*domain.Note{
		{ID: "ghost", Domain: "example.com", IsDeleted: true, DeletedAt: &now},
	}
	_, err := repo.MergeBucket(ctx, "example.com", incoming)
	require.NoError(t, err)

	n, err := repo.GetByID(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, n.IsDeleted)
	assert.Nil(t, n.DeletedAt)
}

func TestMergeBucket_DuplicateIDsLastWins(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	ctx := context.Background()

	incoming := []*domain.Note{
		{ID: "dup", Domain: "example.com", Title: "first"},
		{ID: "dup", Domain: "example.com", Title: "last"},
	}
	result, err := repo.MergeBucket(ctx, "example.com", incoming)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Skipped)

	n, err := repo.GetByID(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, "last", n.Title)
}

func TestGetByURLAndDomainOrdering(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.Save(ctx, &domain.Note{Domain: "example.com", URL: "https://example.com/a"})
	require.NoError(t, err)
	second, err := repo.Save(ctx, &domain.Note{Domain: "example.com", URL: "https://example.com/a"})
	require.NoError(t, err)
	_, err = repo.Save(ctx, &domain.Note{Domain: "example.com", URL: "https://example.com/b"})
	require.NoError(t, err)

	byURL, err := repo.GetByURL(ctx, "https://example.com/a")
	require.NoError(t, err)
	require.Len(t, byURL, 2)
	// newest first
	assert.Equal(t, second.ID, byURL[0].ID)
	assert.Equal(t, first.ID, byURL[1].ID)

	byDomain, err := repo.GetByDomain(ctx, "example.com")
	require.NoError(t, err)
	assert.Len(t, byDomain, 3)
}

func TestPurge(t *testing.T) {
	repo, store, _ := newTestRepo(t)
	ctx := context.Background()

	old := timex.Time(time.Now().AddDate(0, 0, -40))
	fresh := timex.Now()
	bucket := mustMarshalNotes(t,
		&domain.Note{ID: "old", Domain: "example.com", IsDeleted: true, DeletedAt: &old},
		&domain.Note{ID: "fresh", Domain: "example.com", IsDeleted: true, DeletedAt: &fresh},
		&domain.Note{ID: "live", Domain: "example.com", UpdatedAt: fresh},
	)
	_, err := store.Set(ctx, "example.com", bucket)
	require.NoError(t, err)
	idx, _ := sonic.Marshal([]string{"example.com"})
	_, err = store.Set(ctx, domain.IndexKey, idx)
	require.NoError(t, err)
	require.NoError(t, repo.Load(ctx))

	removed, err := repo.Purge(ctx, time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = repo.GetByID(ctx, "live")
	assert.NoError(t, err)
}

func mustMarshalNotes(t *testing.T, notes ...*domain.Note) []byte {
	t.Helper()
	data, err := sonic.Marshal(notes)
	require.NoError(t, err)
	return data
}
