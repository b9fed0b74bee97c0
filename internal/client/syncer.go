package client

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/haierkeys/lww-note-sync/internal/domain"
	"github.com/haierkeys/lww-note-sync/internal/merge"
	"github.com/haierkeys/lww-note-sync/internal/store"
	"github.com/haierkeys/lww-note-sync/pkg/logger"
	"github.com/haierkeys/lww-note-sync/pkg/workerpool"
)

// ErrOffline 离线时同步周期被跳过
var ErrOffline = errors.New("replica is offline")

// SyncerConfig Syncer 依赖
type SyncerConfig struct {
	Store          *store.Store
	Transport      Transport
	Monitor        *Monitor
	Pool           *workerpool.Pool
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// Syncer 执行同步周期：补发本地删除、上传完整快照、合并服务端快照
type Syncer struct {
	store     *store.Store
	transport Transport
	monitor   *Monitor
	pool      *workerpool.Pool
	timeout   time.Duration
	logger    *zap.Logger

	cycles   atomic.Int64
	failures atomic.Int64
}

// NewSyncer 创建 Syncer
func NewSyncer(cfg SyncerConfig) *Syncer {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	return &Syncer{
		store:     cfg.Store,
		transport: cfg.Transport,
		monitor:   cfg.Monitor,
		pool:      cfg.Pool,
		timeout:   cfg.RequestTimeout,
		logger:    cfg.Logger,
	}
}

// Cycles 成功完成的同步周期数
func (s *Syncer) Cycles() int64 {
	return s.cycles.Load()
}

// fail 网络错误将监测器置为离线，其余错误只记录
func (s *Syncer) fail(err error) error {
	s.failures.Add(1)
	if errors.Is(err, domain.ErrNetwork) {
		s.monitor.MarkOffline(err)
	}
	s.logger.Warn("sync cycle failed", zap.Error(err))
	return err
}

// Cycle 执行一次同步周期，离线时返回 ErrOffline
func (s *Syncer) Cycle(ctx context.Context) error {
	if !s.monitor.Online() {
		return ErrOffline
	}
	start := time.Now()

	// 补发尚未被服务端确认的本地删除，DELETE 是幂等的
	for _, id := range s.store.Tombstones() {
		dctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.transport.Delete(dctx, id)
		cancel()
		if err == nil {
			continue
		}
		if errors.Is(err, domain.ErrNetwork) {
			return s.fail(err)
		}
		s.logger.Warn("replay delete rejected", zap.String(logger.FieldNoteID, id), zap.Error(err))
	}

	local := s.store.Snapshot()

	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	peer, err := s.transport.Sync(sctx, local.Notes)
	cancel()
	if err != nil {
		return s.fail(err)
	}

	res, err := s.store.Merge(ctx, peer)
	switch {
	case errors.Is(err, domain.ErrMergeDeferred):
		s.logger.Debug("merge deferred until edit closes")
	case err != nil:
		return s.fail(err)
	}

	s.cycles.Add(1)
	s.logMerge(res, len(local.Notes), time.Since(start))
	return nil
}

func (s *Syncer) logMerge(res merge.Result, sent int, d time.Duration) {
	s.logger.Debug("sync cycle completed",
		zap.Int("sent", sent),
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated),
		zap.Int("removed", res.Removed),
		zap.Int("tombstonesPurged", res.TombstonesPurged),
		zap.Duration(logger.FieldDuration, d))
}

// Trigger 在 worker pool 中异步执行一次同步周期
func (s *Syncer) Trigger(ctx context.Context, reason string) error {
	if !s.monitor.Online() {
		return ErrOffline
	}
	err := s.pool.SubmitAsync(ctx, func(ctx context.Context) error {
		if err := s.Cycle(ctx); err != nil && !errors.Is(err, ErrOffline) {
			return err
		}
		return nil
	})
	if err != nil {
		s.logger.Debug("sync trigger dropped", zap.String(logger.FieldReason, reason), zap.Error(err))
		return err
	}
	s.logger.Debug("sync triggered", zap.String(logger.FieldReason, reason))
	return nil
}
