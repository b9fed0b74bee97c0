package client

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haierkeys/lww-note-sync/internal/domain"
	"github.com/haierkeys/lww-note-sync/internal/store"
	"github.com/haierkeys/lww-note-sync/internal/task"
	"github.com/haierkeys/lww-note-sync/pkg/logger"
	"github.com/haierkeys/lww-note-sync/pkg/safe_close"
	"github.com/haierkeys/lww-note-sync/pkg/workerpool"
)

// Options 客户端运行参数
type Options struct {
	Replica        string
	ProbeInterval  time.Duration
	ProbeTimeout   time.Duration
	SyncInterval   time.Duration
	RequestTimeout time.Duration
	SyncOnMutation bool
	Pool           workerpool.Config
}

// Client 客户端副本：本地 Store 加上与服务端同步的运行时
type Client struct {
	opts      Options
	id        string
	store     *store.Store
	transport Transport
	monitor   *Monitor
	syncer    *Syncer
	pool      *workerpool.Pool
	logger    *zap.Logger

	sc      *safe_close.SafeClose
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// New 组装客户端，Start 之前不会发起任何网络请求
func New(st *store.Store, t Transport, opts Options, lg *zap.Logger) *Client {
	if lg == nil {
		lg = zap.NewNop()
	}
	id := uuid.NewString()
	lg = lg.With(zap.String(logger.FieldReplica, opts.Replica), zap.String("instance", id))

	pool := workerpool.New(&opts.Pool, lg)
	monitor := NewMonitor(t, opts.ProbeTimeout, lg)
	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		opts:      opts,
		id:        id,
		store:     st,
		transport: t,
		monitor:   monitor,
		pool:      pool,
		logger:    lg,
		sc:        safe_close.NewSafeClose(),
		ctx:       ctx,
		cancel:    cancel,
	}
	c.syncer = NewSyncer(SyncerConfig{
		Store:          st,
		Transport:      t,
		Monitor:        monitor,
		Pool:           pool,
		RequestTimeout: opts.RequestTimeout,
		Logger:         lg,
	})

	monitor.OnReconnect(func(context.Context) {
		_ = c.syncer.Trigger(c.ctx, "reconnect")
	})

	return c
}

// Start 启动探测与周期同步任务
func (c *Client) Start() {
	if c.started {
		return
	}
	c.started = true

	scheduler := task.NewScheduler(c.logger, c.sc)
	scheduler.AddTask(&probeTask{monitor: c.monitor, interval: c.opts.ProbeInterval})
	scheduler.AddTask(&syncTask{syncer: c.syncer, interval: c.opts.SyncInterval})
	scheduler.Start()

	c.logger.Info("client started",
		zap.Duration("probeInterval", c.opts.ProbeInterval),
		zap.Duration("syncInterval", c.opts.SyncInterval))
}

// Stop 停止任务并关闭 worker pool，本地状态已随每次修改保存
func (c *Client) Stop(ctx context.Context) error {
	c.sc.SendCloseSignal(nil)
	c.cancel()

	done := make(chan error, 1)
	go func() { done <- c.sc.WaitClosed() }()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	return c.pool.Shutdown(ctx)
}

func (c *Client) afterMutation(reason string) {
	if !c.opts.SyncOnMutation || !c.monitor.Online() {
		return
	}
	_ = c.syncer.Trigger(c.ctx, reason)
}

// Create 新建笔记
func (c *Client) Create(ctx context.Context, title, content string) (domain.Note, error) {
	n, err := c.store.Create(ctx, title, content)
	if err != nil {
		return domain.Note{}, err
	}
	c.afterMutation("create")
	return n, nil
}

// Update 修改笔记
func (c *Client) Update(ctx context.Context, id, title, content string) (domain.Note, error) {
	n, err := c.store.Update(ctx, id, title, content)
	if err != nil {
		return domain.Note{}, err
	}
	c.afterMutation("update")
	return n, nil
}

// Delete 删除笔记，未知 ID 视为成功
// 在线时立即通知服务端，失败时由下一次同步周期补发
func (c *Client) Delete(ctx context.Context, id string) error {
	err := c.store.Delete(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		c.logger.Debug("delete of unknown note ignored", zap.String(logger.FieldNoteID, id))
		return nil
	}
	if err != nil {
		return err
	}

	if c.monitor.Online() {
		dctx, cancel := context.WithTimeout(ctx, c.syncer.timeout)
		derr := c.transport.Delete(dctx, id)
		cancel()
		if errors.Is(derr, domain.ErrNetwork) {
			c.monitor.MarkOffline(derr)
		} else if derr != nil {
			c.logger.Warn("server rejected delete", zap.String(logger.FieldNoteID, id), zap.Error(derr))
		}
	}

	c.afterMutation("delete")
	return nil
}

// List 按 lastModified 倒序列出笔记
func (c *Client) List() []domain.Note {
	return c.store.List()
}

// Get 获取单条笔记
func (c *Client) Get(id string) (domain.Note, bool) {
	return c.store.Get(id)
}

// BeginEdit 打开编辑，期间服务端快照排队合并
func (c *Client) BeginEdit(id string) error {
	return c.store.BeginEdit(id)
}

// EndEdit 关闭编辑并合并排队的快照
func (c *Client) EndEdit(ctx context.Context) error {
	if _, err := c.store.EndEdit(ctx); err != nil {
		return err
	}
	c.afterMutation("edit-closed")
	return nil
}

// SyncNow 探测连通性后同步一次，离线时返回 ErrOffline
func (c *Client) SyncNow(ctx context.Context) error {
	if c.monitor.Probe(ctx) != Online {
		return ErrOffline
	}
	return c.syncer.Cycle(ctx)
}

// State 当前连通性
func (c *Client) State() State {
	return c.monitor.State()
}

// Monitor 连通性监测
func (c *Client) Monitor() *Monitor {
	return c.monitor
}

// Syncer 同步器
func (c *Client) Syncer() *Syncer {
	return c.syncer
}

// Store 本地副本
func (c *Client) Store() *store.Store {
	return c.store
}

// ID 本次运行的实例 ID
func (c *Client) ID() string {
	return c.id
}
