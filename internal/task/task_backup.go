package task

import (
	"context"
	"time"

	"github.com/anchored-notes/anchored-sync-service/internal/app"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// init 注册备份任务
func init() {
	RegisterWithApp(NewBackupTask)
}

// BackupTask 定时备份任务
// 每分钟检查一次 cron 表达式是否到期
type BackupTask struct {
	app      *app.App
	schedule cron.Schedule
	next     time.Time
}

// NewBackupTask 创建备份任务
// 备份未启用或没有可用目标时任务被禁用
func NewBackupTask(appContainer *app.App) (Task, error) {
	cfg := appContainer.Config()
	if !cfg.Backup.Enabled {
		return nil, nil
	}
	if appContainer.BackupService.TargetCount() == 0 {
		appContainer.Logger().Warn("backup enabled but no usable targets configured")
		return nil, nil
	}

	schedule, err := cron.ParseStandard(cfg.Backup.Cron)
	if err != nil {
		return nil, err
	}

	return &BackupTask{
		app:      appContainer,
		schedule: schedule,
		next:     schedule.Next(time.Now()),
	}, nil
}

// Name 返回任务名称
func (t *BackupTask) Name() string {
	return "BackupTask"
}

// Run 执行备份任务
func (t *BackupTask) Run(ctx context.Context) error {
	now := time.Now()
	if now.Before(t.next) {
		return nil
	}
	t.next = t.schedule.Next(now)

	result, err := t.app.BackupService.Execute(ctx)
	if err != nil {
		t.app.Logger().Error(t.Name()+" failed", zap.Error(err))
		return err
	}

	t.app.Logger().Info(t.Name()+" completed",
		zap.String("fileName", result.FileName),
		zap.Int("noteCount", result.NoteCount),
		zap.Int("size", result.Size))
	return nil
}

// LoopInterval 返回执行间隔
func (t *BackupTask) LoopInterval() time.Duration {
	return 1 * time.Minute
}

// IsStartupRun 是否立即执行一次
func (t *BackupTask) IsStartupRun() bool {
	return false
}
