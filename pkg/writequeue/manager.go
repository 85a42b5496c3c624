// Package writequeue provides Per-Bucket Write Queue implementation
// Package writequeue 提供 Per-Bucket Write Queue 实现
// Used to serialize write operations for the same domain bucket, closing the read-modify-write lost-update window
// 用于串行化同一域名 bucket 的写操作，消除读-改-写的更新丢失窗口
package writequeue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Error definitions
// 错误定义
var (
	// ErrWriteQueueFull returned when a bucket write queue is full
	// ErrWriteQueueFull 当 bucket 写队列已满时返回
	ErrWriteQueueFull = errors.New("write queue is full")
	// ErrWriteQueueClosed returned when the write queue manager is closed
	// ErrWriteQueueClosed 当写队列管理器已关闭时返回
	ErrWriteQueueClosed = errors.New("write queue is closed")
	// ErrWriteTimeout returned when a write operation times out
	// ErrWriteTimeout 当写操作超时时返回
	ErrWriteTimeout = errors.New("write operation timeout")
)

// Config write queue configuration
// Config 写队列配置
type Config struct {
	// QueueCapacity per-bucket queue capacity, default 100
	// QueueCapacity 每 bucket 队列容量，默认 100
	QueueCapacity int
	// WriteTimeout write operation timeout, default 30 seconds
	// WriteTimeout 写操作超时时间，默认 30 秒
	WriteTimeout time.Duration
	// IdleTimeout idle cleanup timeout, default 10 minutes
	// IdleTimeout 空闲清理超时时间，默认 10 分钟
	IdleTimeout time.Duration
}

// DefaultConfig returns default configuration
// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		QueueCapacity: 100,
		WriteTimeout:  30 * time.Second,
		IdleTimeout:   10 * time.Minute,
	}
}

// writeOp write operation
// writeOp 写操作
type writeOp struct {
	ctx    context.Context
	fn     func() error
	result chan error
}

// bucketWriteQueue serializes writes for a single key
// bucketWriteQueue 串行化单个 key 的写操作
type bucketWriteQueue struct {
	key      string
	ch       chan writeOp
	lastUsed atomic.Int64
	closed   atomic.Bool
	workerWg sync.WaitGroup
	stopCh   chan struct{}
}

// Manager manages write queues for all buckets
// Manager 管理所有 bucket 的写队列
type Manager struct {
	config Config
	logger *zap.Logger

	queues sync.Map // map[string]*bucketWriteQueue

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool

	cleanupWg sync.WaitGroup
}

// New creates a write queue manager, nil cfg uses defaults, nil logger uses a nop logger
// New 创建写队列管理器，cfg 为 nil 使用默认配置，logger 为 nil 使用 nop logger
func New(cfg *Config, logger *zap.Logger) *Manager {
	if cfg == nil {
		defaultCfg := DefaultConfig()
		cfg = &defaultCfg
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 100
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		config: *cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	m.cleanupWg.Add(1)
	go m.cleanupIdleQueues()

	m.logger.Info("write queue manager started",
		zap.Int("queueCapacity", cfg.QueueCapacity),
		zap.Duration("writeTimeout", cfg.WriteTimeout),
		zap.Duration("idleTimeout", cfg.IdleTimeout))

	return m
}

// Execute runs fn serialized against all other writes for the same key, FIFO order
// Execute 串行执行同一 key 的写操作，按 FIFO 顺序处理
func (m *Manager) Execute(ctx context.Context, key string, fn func() error) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrWriteQueueClosed
	}
	m.mu.RUnlock()

	queue := m.getOrCreateQueue(key)
	if queue == nil {
		return ErrWriteQueueClosed
	}

	result := make(chan error, 1)
	op := writeOp{
		ctx:    ctx,
		fn:     fn,
		result: result,
	}

	select {
	case queue.ch <- op:
	default:
		return ErrWriteQueueFull
	}

	timeout := m.config.WriteTimeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining < timeout {
			timeout = remaining
		}
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(timeout):
		return ErrWriteTimeout
	case <-m.ctx.Done():
		return ErrWriteQueueClosed
	}
}

// getOrCreateQueue lazily creates the queue for a key.
func (m *Manager) getOrCreateQueue(key string) *bucketWriteQueue {
	if v, ok := m.queues.Load(key); ok {
		queue := v.(*bucketWriteQueue)
		if !queue.closed.Load() {
			queue.lastUsed.Store(time.Now().UnixNano())
			return queue
		}
	}

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil
	}
	m.mu.RUnlock()

	queue := &bucketWriteQueue{
		key:    key,
		ch:     make(chan writeOp, m.config.QueueCapacity),
		stopCh: make(chan struct{}),
	}
	queue.lastUsed.Store(time.Now().UnixNano())

	actual, loaded := m.queues.LoadOrStore(key, queue)
	if loaded {
		close(queue.stopCh)
		existingQueue := actual.(*bucketWriteQueue)
		if !existingQueue.closed.Load() {
			existingQueue.lastUsed.Store(time.Now().UnixNano())
			return existingQueue
		}
		m.queues.Store(key, queue)
	}

	queue.workerWg.Add(1)
	go m.worker(queue)

	m.logger.Debug("created write queue for bucket",
		zap.String("key", key),
		zap.Int("capacity", m.config.QueueCapacity))

	return queue
}

// worker drains a single bucket queue.
func (m *Manager) worker(queue *bucketWriteQueue) {
	defer queue.workerWg.Done()
	defer func() {
		queue.closed.Store(true)
		m.logger.Debug("write queue worker stopped", zap.String("key", queue.key))
	}()

	for {
		select {
		case <-m.ctx.Done():
			m.drainQueue(queue)
			return
		case <-queue.stopCh:
			m.drainQueue(queue)
			return
		case op, ok := <-queue.ch:
			if !ok {
				return
			}
			m.executeOp(queue, op)
		}
	}
}

func (m *Manager) executeOp(queue *bucketWriteQueue, op writeOp) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("write operation panic",
				zap.String("key", queue.key),
				zap.Any("panic", r),
				zap.Stack("stack"))
			op.result <- ErrWriteQueueClosed
		}
	}()

	if op.ctx != nil && op.ctx.Err() != nil {
		op.result <- op.ctx.Err()
		return
	}

	queue.lastUsed.Store(time.Now().UnixNano())
	op.result <- op.fn()
}

// drainQueue rejects all pending operations when shutting down.
func (m *Manager) drainQueue(queue *bucketWriteQueue) {
	for {
		select {
		case op := <-queue.ch:
			op.result <- ErrWriteQueueClosed
		default:
			return
		}
	}
}

// cleanupIdleQueues periodically removes queues that saw no writes for
// IdleTimeout.
func (m *Manager) cleanupIdleQueues() {
	defer m.cleanupWg.Done()

	ticker := time.NewTicker(m.config.IdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-m.config.IdleTimeout).UnixNano()
			m.queues.Range(func(k, v interface{}) bool {
				queue := v.(*bucketWriteQueue)
				if queue.lastUsed.Load() < cutoff && len(queue.ch) == 0 {
					close(queue.stopCh)
					m.queues.Delete(k)
					m.logger.Debug("removed idle write queue", zap.String("key", queue.key))
				}
				return true
			})
		}
	}
}

// Shutdown stops all queues, pending operations are rejected with ErrWriteQueueClosed
// Shutdown 停止所有队列，未执行的操作以 ErrWriteQueueClosed 拒绝
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.cancel()

	done := make(chan struct{})
	go func() {
		m.queues.Range(func(_, v interface{}) bool {
			queue := v.(*bucketWriteQueue)
			queue.workerWg.Wait()
			return true
		})
		m.cleanupWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("write queue manager stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
