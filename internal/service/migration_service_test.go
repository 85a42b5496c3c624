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

func newMigrationFixture(t *testing.T, canDecrypt bool) (MigrationService, *repository.NoteRepository, *bus.Bus) {
	t.Helper()
	eventBus := bus.New(nil)
	repo := repository.NewNoteRepository(memory.NewStore(), eventBus, nil, "2.0.0", nil)
	require.NoError(t, repo.Load(context.Background()))
	importSvc := NewImportService(repo, eventBus, nil)
	svc := NewMigrationService(repo, importSvc, eventBus, "2.0.0", canDecrypt, nil)
	return svc, repo, eventBus
}

func TestCheckLocalData_EmptyStoreNeedsMigration(t *testing.T) {
	svc, _, _ := newMigrationFixture(t, false)

	report, err := svc.CheckLocalData(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Needed)
	assert.Equal(t, 0, report.NoteCount)
	assert.Equal(t, "2.0.0", report.ToVersion)
}

func TestCheckLocalData_ShortCircuitsWithLocalNotes(t *testing.T) {
	svc, repo, _ := newMigrationFixture(t, false)
	ctx := context.Background()

	_, err := repo.Save(ctx, &domain.Note{Domain: "example.com"})
	require.NoError(t, err)

	report, err := svc.CheckLocalData(ctx)
	require.NoError(t, err)
	assert.False(t, report.Needed)
	assert.Equal(t, 1, report.NoteCount)
	assert.Equal(t, []string{"example.com"}, report.Domains)
}

func TestValidatePayload(t *testing.T) {
	svc, _, _ := newMigrationFixture(t, false)
	ctx := context.Background()

	valid := []byte(`{
		"_anchored": {"version":"1","format":"anchored-notes"},
		"example.com": [{"id":"n1","domain":"example.com"}]
	}`)
	res := svc.ValidatePayload(ctx, valid)
	assert.True(t, res.Valid)
	assert.True(t, res.EncryptionCompatible)
	assert.Equal(t, 1, res.NoteCount)
	assert.Equal(t, 1, res.DomainCount)

	// wrong format tag
	wrongFormat := []byte(`{"_anchored": {"format":"something-else"}, "example.com": []}`)
	assert.False(t, svc.ValidatePayload(ctx, wrongFormat).Valid)

	// header without any domain entry
	headerOnly := []byte(`{"_anchored": {"format":"anchored-notes"}}`)
	assert.False(t, svc.ValidatePayload(ctx, headerOnly).Valid)

	// not JSON
	assert.False(t, svc.ValidatePayload(ctx, []byte(`garbage`)).Valid)
}

func TestValidatePayload_EncryptedNotes(t *testing.T) {
	payload := []byte(`{
		"_anchored": {"version":"1","format":"anchored-notes"},
		"example.com": [{"id":"n1","domain":"example.com","title_encrypted":"AAA"}]
	}`)

	withoutKey, _, _ := newMigrationFixture(t, false)
	res := withoutKey.ValidatePayload(context.Background(), payload)
	assert.True(t, res.Valid)
	assert.True(t, res.HasEncryptedNotes)
	assert.False(t, res.EncryptionCompatible)

	withKey, _, _ := newMigrationFixture(t, true)
	res = withKey.ValidatePayload(context.Background(), payload)
	assert.True(t, res.EncryptionCompatible)
}

func TestRunMigration_Success(t *testing.T) {
	svc, repo, eventBus := newMigrationFixture(t, false)
	ctx := context.Background()

	var events []domain.Event
	eventBus.Subscribe(domain.EventMigrationComplete, func(e domain.Event) {
		events = append(events, e)
	})

	payload := []byte(`{
		"_anchored": {"version":"0.9.0","format":"anchored-notes"},
		"example.com": [{"id":"n1","domain":"example.com"},{"id":"n2","domain":"example.com"}]
	}`)

	report, err := svc.RunMigration(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, "0.9.0", report.FromVersion)
	assert.Equal(t, "2.0.0", report.ToVersion)
	assert.Equal(t, 2, report.NoteCount)
	assert.Empty(t, report.Error)

	require.Len(t, events, 1)

	notes, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, notes, 2)
}

func TestRunMigration_InvalidPayloadEmitsError(t *testing.T) {
	svc, _, eventBus := newMigrationFixture(t, false)

	var events []domain.Event
	eventBus.Subscribe(domain.EventMigrationError, func(e domain.Event) {
		events = append(events, e)
	})

	report, err := svc.RunMigration(context.Background(), []byte(`{}`))
	assert.ErrorIs(t, err, code.ErrorImportInvalidPayload)
	assert.NotEmpty(t, report.Error)
	assert.Len(t, events, 1)
}

func TestRunMigration_EncryptionIncompatible(t *testing.T) {
	svc, _, eventBus := newMigrationFixture(t, false)

	errEvents := 0
	eventBus.Subscribe(domain.EventMigrationError, func(domain.Event) { errEvents++ })

	payload := []byte(`{
		"_anchored": {"version":"1","format":"anchored-notes"},
		"example.com": [{"id":"n1","domain":"example.com","content_encrypted":"AAA"}]
	}`)

	_, err := svc.RunMigration(context.Background(), payload)
	assert.ErrorIs(t, err, code.ErrorEncryptionIncompatible)
	assert.Equal(t, 1, errEvents)
}
