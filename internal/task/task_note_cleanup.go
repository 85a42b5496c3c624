package task

import (
	"context"
	"time"

	"github.com/anchored-notes/anchored-sync-service/internal/app"
	"go.uber.org/zap"
)

// init 自动注册清理任务
func init() {
	RegisterWithApp(NewNoteCleanupTask)
}

// NoteCleanupTask 过期软删除笔记清理任务
type NoteCleanupTask struct {
	app      *app.App
	interval time.Duration
	firstRun bool
}

// NewNoteCleanupTask 创建清理任务
// 保留时间未配置或为 0 时任务被禁用
func NewNoteCleanupTask(appContainer *app.App) (Task, error) {
	retention := appContainer.Config().GetSoftDeleteRetention()
	if retention <= 0 {
		return nil, nil
	}

	return &NoteCleanupTask{
		app:      appContainer,
		interval: 10 * time.Minute,
		firstRun: true,
	}, nil
}

// Name 返回任务名称
func (t *NoteCleanupTask) Name() string {
	return "NoteCleanupTask"
}

// Run 执行清理任务
func (t *NoteCleanupTask) Run(ctx context.Context) error {
	status := "scheduled"
	if t.firstRun {
		status = "first-run"
		t.firstRun = false
	}

	count, err := t.app.NoteService.Cleanup(ctx)
	if err != nil {
		t.app.Logger().Error(t.Name()+" failed ["+status+"]", zap.Error(err))
		return err
	}

	if count > 0 {
		t.app.Logger().Info(t.Name()+" completed ["+status+"]", zap.Int("purged", count))
	}
	return nil
}

// LoopInterval 返回执行间隔
func (t *NoteCleanupTask) LoopInterval() time.Duration {
	return t.interval
}

// IsStartupRun 是否立即执行一次
func (t *NoteCleanupTask) IsStartupRun() bool {
	return true
}
