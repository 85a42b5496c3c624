package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchored-notes/anchored-sync-service/internal/bus"
	"github.com/anchored-notes/anchored-sync-service/internal/domain"
	"github.com/anchored-notes/anchored-sync-service/internal/kvstore/memory"
	"github.com/anchored-notes/anchored-sync-service/internal/repository"
	"github.com/anchored-notes/anchored-sync-service/pkg/blobstore"
	"github.com/anchored-notes/anchored-sync-service/pkg/code"
	"github.com/anchored-notes/anchored-sync-service/pkg/workerpool"
)

func newBackupFixture(t *testing.T, targets []*blobstore.Config) (BackupService, NoteService) {
	t.Helper()
	eventBus := bus.New(nil)
	repo := repository.NewNoteRepository(memory.NewStore(), eventBus, nil, "1.0.0", nil)
	require.NoError(t, repo.Load(context.Background()))
	noteSvc := NewNoteService(repo, nil)

	pool := workerpool.New(&workerpool.Config{MaxWorkers: 4, QueueSize: 16}, nil)
	t.Cleanup(func() { _ = pool.Shutdown(context.Background()) })

	return NewBackupService(noteSvc, pool, targets, nil), noteSvc
}

func TestBackupExecute_LocalTarget(t *testing.T) {
	dir := t.TempDir()
	svc, noteSvc := newBackupFixture(t, []*blobstore.Config{{
		Type:      blobstore.LOCAL,
		IsEnabled: true,
		SavePath:  dir,
	}})
	ctx := context.Background()

	_, err := noteSvc.Save(ctx, saveReq("example.com", "backed up"))
	require.NoError(t, err)

	result, err := svc.Execute(ctx)
	require.NoError(t, err)

	assert.Regexp(t, `^anchored-notes-\d{8}-\d{6}\.json$`, result.FileName)
	assert.Equal(t, 1, result.NoteCount)
	assert.Equal(t, "ok", result.Targets[blobstore.LOCAL])

	data, err := os.ReadFile(filepath.Join(dir, result.FileName))
	require.NoError(t, err)

	var env domain.Envelope
	require.NoError(t, sonic.Unmarshal(data, &env))
	assert.Equal(t, domain.EnvelopeFormat, env.Meta.Format)
	assert.Len(t, env.Domains["example.com"], 1)
}

func TestBackupExecute_NoTargets(t *testing.T) {
	svc, _ := newBackupFixture(t, nil)

	_, err := svc.Execute(context.Background())
	assert.ErrorIs(t, err, code.ErrorInvalidBackupTarget)
	assert.Equal(t, 0, svc.TargetCount())
}

func TestBackupService_SkipsDisabledTargets(t *testing.T) {
	svc, _ := newBackupFixture(t, []*blobstore.Config{
		{Type: blobstore.LOCAL, IsEnabled: false, SavePath: t.TempDir()},
		{Type: blobstore.LOCAL, IsEnabled: true, SavePath: t.TempDir()},
	})
	assert.Equal(t, 1, svc.TargetCount())
}
