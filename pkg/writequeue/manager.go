// Package writequeue serializes mutations per key so one replica never sees two concurrent writers
// Package writequeue 按 key 串行化写操作，保证同一副本只有一个写者
package writequeue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrWriteQueueFull 当 key 对应的写队列已满时返回
	ErrWriteQueueFull = errors.New("write queue is full")
	// ErrWriteQueueClosed 当写队列管理器已关闭时返回
	ErrWriteQueueClosed = errors.New("write queue is closed")
	// ErrWriteTimeout 当写操作等待超时时返回
	ErrWriteTimeout = errors.New("write operation timeout")
)

// Config 写队列配置
type Config struct {
	// QueueCapacity 每个 key 的队列容量，默认 64
	QueueCapacity int
	// WriteTimeout 单次写操作等待上限，默认 10 秒
	WriteTimeout time.Duration
	// IdleTimeout 空闲队列回收时间，默认 10 分钟
	IdleTimeout time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		QueueCapacity: 64,
		WriteTimeout:  10 * time.Second,
		IdleTimeout:   10 * time.Minute,
	}
}

type writeOp struct {
	ctx    context.Context
	fn     func() error
	result chan error
}

type keyQueue struct {
	key      string
	ch       chan writeOp
	lastUsed atomic.Int64
	stopped  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

func (q *keyQueue) stop() {
	q.stopOnce.Do(func() {
		q.stopped.Store(true)
		close(q.stopCh)
	})
}

// Manager 管理所有 key 的写队列，队列按需创建、空闲回收
type Manager struct {
	config Config
	logger *zap.Logger

	mu     sync.Mutex
	queues map[string]*keyQueue
	closed bool

	ctx         context.Context
	cancel      context.CancelFunc
	cleanupDone chan struct{}
	cleanupWg   sync.WaitGroup
}

// New 创建写队列管理器
// cfg 为 nil 时使用默认配置，logger 为 nil 时使用 nop logger
func New(cfg *Config, logger *zap.Logger) *Manager {
	c := DefaultConfig()
	if cfg != nil {
		if cfg.QueueCapacity > 0 {
			c.QueueCapacity = cfg.QueueCapacity
		}
		if cfg.WriteTimeout > 0 {
			c.WriteTimeout = cfg.WriteTimeout
		}
		if cfg.IdleTimeout > 0 {
			c.IdleTimeout = cfg.IdleTimeout
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		config:      c,
		logger:      logger,
		queues:      make(map[string]*keyQueue),
		ctx:         ctx,
		cancel:      cancel,
		cleanupDone: make(chan struct{}),
	}

	m.cleanupWg.Add(1)
	go m.cleanupIdleQueues()

	m.logger.Debug("write queue manager started",
		zap.Int("queueCapacity", c.QueueCapacity),
		zap.Duration("writeTimeout", c.WriteTimeout))

	return m
}

// Execute 在 key 的写队列中执行 fn
// 同一 key 的写操作按 FIFO 顺序逐个执行
func (m *Manager) Execute(ctx context.Context, key string, fn func() error) error {
	result := make(chan error, 1)
	op := writeOp{ctx: ctx, fn: fn, result: result}

	if err := m.submit(key, op); err != nil {
		return err
	}

	timeout := m.config.WriteTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrWriteTimeout
	case <-m.ctx.Done():
		return ErrWriteQueueClosed
	}
}

// submit enqueues under the manager lock so a queue is never stopped between lookup and send
func (m *Manager) submit(key string, op writeOp) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrWriteQueueClosed
	}

	q, ok := m.queues[key]
	if !ok || q.stopped.Load() {
		q = &keyQueue{
			key:    key,
			ch:     make(chan writeOp, m.config.QueueCapacity),
			stopCh: make(chan struct{}),
			done:   make(chan struct{}),
		}
		m.queues[key] = q
		go m.worker(q)
		m.logger.Debug("created write queue", zap.String("key", key))
	}
	q.lastUsed.Store(time.Now().UnixNano())

	select {
	case q.ch <- op:
		return nil
	default:
		return ErrWriteQueueFull
	}
}

func (m *Manager) worker(q *keyQueue) {
	defer close(q.done)

	for {
		select {
		case op := <-q.ch:
			m.executeOp(q, op)
		case <-q.stopCh:
			m.drain(q)
			return
		}
	}
}

func (m *Manager) executeOp(q *keyQueue, op writeOp) {
	q.lastUsed.Store(time.Now().UnixNano())

	if err := op.ctx.Err(); err != nil {
		op.result <- err
		return
	}

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("write queue op panic",
					zap.String("key", q.key), zap.Any("panic", r), zap.Stack("stack"))
				err = fmt.Errorf("write op panic: %v", r)
			}
		}()
		err = op.fn()
	}()

	op.result <- err
}

func (m *Manager) drain(q *keyQueue) {
	for {
		select {
		case op := <-q.ch:
			m.executeOp(q, op)
		default:
			return
		}
	}
}

func (m *Manager) cleanupIdleQueues() {
	defer m.cleanupWg.Done()

	ticker := time.NewTicker(m.config.IdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-m.cleanupDone:
			return
		case <-ticker.C:
			m.doCleanup()
		}
	}
}

func (m *Manager) doCleanup() {
	threshold := time.Now().Add(-m.config.IdleTimeout).UnixNano()

	m.mu.Lock()
	defer m.mu.Unlock()
	for key, q := range m.queues {
		if q.lastUsed.Load() < threshold && len(q.ch) == 0 {
			q.stop()
			delete(m.queues, key)
			m.logger.Debug("cleaned up idle write queue", zap.String("key", key))
		}
	}
}

// QueuedCount 返回 key 队列中等待执行的操作数
func (m *Manager) QueuedCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok := m.queues[key]; ok {
		return len(q.ch)
	}
	return 0
}

// Shutdown 关闭管理器，已入队的操作会执行完毕
// ctx 用于控制关闭超时
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	queues := make([]*keyQueue, 0, len(m.queues))
	for _, q := range m.queues {
		q.stop()
		queues = append(queues, q)
	}
	m.mu.Unlock()

	close(m.cleanupDone)

	done := make(chan struct{})
	go func() {
		for _, q := range queues {
			<-q.done
		}
		m.cleanupWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.cancel()
		m.logger.Debug("write queue manager shutdown completed")
		return nil
	case <-ctx.Done():
		m.cancel()
		m.logger.Warn("write queue manager shutdown timeout, forcing cancellation")
		return ctx.Err()
	}
}
