package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/anchored-notes/anchored-sync-service/pkg/blobstore"
	"github.com/anchored-notes/anchored-sync-service/pkg/code"
	"github.com/anchored-notes/anchored-sync-service/pkg/logger"
	"github.com/anchored-notes/anchored-sync-service/pkg/workerpool"
)

// BackupService snapshots the store as an export envelope and fans the
// artifact out to the configured targets.
type BackupService interface {
	// Execute runs one backup across all enabled targets
	Execute(ctx context.Context) (*BackupResult, error)

	// TargetCount returns the number of enabled targets
	TargetCount() int
}

// BackupResult reports one backup run.
type BackupResult struct {
	FileName  string            `json:"fileName"`
	NoteCount int               `json:"noteCount"`
	Size      int               `json:"size"`
	Targets   map[string]string `json:"targets"`
}

type backupTarget struct {
	name   string
	client blobstore.Storager
}

type backupService struct {
	noteSvc NoteService
	pool    *workerpool.Pool
	targets []backupTarget
	logger  *zap.Logger
}

// NewBackupService creates a BackupService. Disabled or misconfigured
// targets are skipped with a log line rather than failing startup.
func NewBackupService(noteSvc NoteService, pool *workerpool.Pool, configs []*blobstore.Config, lg *zap.Logger) BackupService {
	if lg == nil {
		lg = zap.NewNop()
	}

	s := &backupService{
		noteSvc: noteSvc,
		pool:    pool,
		logger:  lg,
	}

	for _, cfg := range configs {
		if cfg == nil || !cfg.IsEnabled {
			continue
		}
		client, err := blobstore.NewClient(cfg, lg)
		if err != nil {
			lg.Warn("backup target unavailable",
				zap.String(logger.FieldTarget, cfg.Type),
				zap.Error(err))
			continue
		}
		s.targets = append(s.targets, backupTarget{name: cfg.Type, client: client})
	}

	return s
}

func (s *backupService) TargetCount() int {
	return len(s.targets)
}

// Execute exports everything and uploads one artifact per target
// through the worker pool. A failing target is reported in the result;
// the run fails only when every target fails.
func (s *backupService) Execute(ctx context.Context) (*BackupResult, error) {
	if len(s.targets) == 0 {
		return nil, code.ErrorInvalidBackupTarget.WithDetails("no enabled targets")
	}

	env, err := s.noteSvc.Export(ctx)
	if err != nil {
		return nil, err
	}

	data, err := sonic.Marshal(env)
	if err != nil {
		return nil, code.ErrorBackupFailed.WithDetails(err.Error())
	}

	result := &BackupResult{
		FileName:  fmt.Sprintf("anchored-notes-%s.json", time.Now().Format("20060102-150405")),
		NoteCount: env.NoteCount(),
		Size:      len(data),
		Targets:   make(map[string]string, len(s.targets)),
	}

	type outcome struct {
		name string
		err  error
	}
	outcomes := make(chan outcome, len(s.targets))

	for _, target := range s.targets {
		target := target
		submitErr := s.pool.SubmitAsync(ctx, func(taskCtx context.Context) error {
			_, err := target.client.SendContent(result.FileName, data)
			outcomes <- outcome{name: target.name, err: err}
			return err
		})
		if submitErr != nil {
			outcomes <- outcome{name: target.name, err: submitErr}
		}
	}

	failed := 0
	for range s.targets {
		o := <-outcomes
		if o.err != nil {
			failed++
			result.Targets[o.name] = o.err.Error()
			s.logger.Error("backup upload failed",
				zap.String(logger.FieldTarget, o.name),
				zap.Error(o.err))
			continue
		}
		result.Targets[o.name] = "ok"
	}

	if failed == len(s.targets) {
		return result, code.ErrorBackupFailed.WithDetails("all targets failed")
	}

	s.logger.Info("backup finished",
		zap.String("fileName", result.FileName),
		zap.Int(logger.FieldCount, result.NoteCount),
		zap.Int("size", result.Size),
		zap.Int("failedTargets", failed))

	return result, nil
}
