// Package service 实现服务端副本
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/haierkeys/lww-note-sync/internal/domain"
	"github.com/haierkeys/lww-note-sync/internal/merge"
	"github.com/haierkeys/lww-note-sync/pkg/code"
	apperrors "github.com/haierkeys/lww-note-sync/pkg/errors"
	"github.com/haierkeys/lww-note-sync/pkg/logger"
	"github.com/haierkeys/lww-note-sync/pkg/writequeue"
)

// ReplicaService 服务端副本业务接口
type ReplicaService interface {
	// Sync 合并客户端的完整笔记列表，返回合并后的全部笔记与墓碑
	Sync(ctx context.Context, notes []domain.Note) (domain.Snapshot, error)

	// Delete 删除笔记，未知或已删除的 ID 同样成功
	Delete(ctx context.Context, id string) error

	// Snapshot 当前已提交状态
	Snapshot(ctx context.Context) (domain.Snapshot, error)

	// Restore 从持久化存储恢复状态
	Restore(ctx context.Context) error

	// Stats 副本规模
	Stats() ReplicaStats
}

// ReplicaStats 副本规模统计
type ReplicaStats struct {
	Notes      int   `json:"notes"`
	Tombstones int   `json:"tombstones"`
	Syncs      int64 `json:"syncs"`
	Deletes    int64 `json:"deletes"`
}

// ReplicaServiceConfig 服务端副本依赖
type ReplicaServiceConfig struct {
	// Name 副本名称，同时作为写队列 key 与数据库中的 replica 字段
	Name string
	// Queue 写队列，保证同一副本只有一个写者
	Queue *writequeue.Manager
	// Persist 持久化存储，为 nil 时仅保存在内存
	Persist domain.StateStore
	// Metrics 指标，可为 nil
	Metrics *Metrics
	Logger  *zap.Logger
}

type replicaService struct {
	name    string
	queue   *writequeue.Manager
	persist domain.StateStore
	metrics *Metrics
	logger  *zap.Logger

	mu      sync.RWMutex
	state   *domain.ReplicaState
	syncs   int64
	deletes int64
}

// NewReplicaService 创建服务端副本
func NewReplicaService(cfg ReplicaServiceConfig) ReplicaService {
	if cfg.Name == "" {
		cfg.Name = "server"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Queue == nil {
		cfg.Queue = writequeue.New(nil, cfg.Logger)
	}
	return &replicaService{
		name:    cfg.Name,
		queue:   cfg.Queue,
		persist: cfg.Persist,
		metrics: cfg.Metrics,
		logger:  cfg.Logger.With(zap.String(logger.FieldReplica, cfg.Name)),
		state:   domain.NewReplicaState(),
	}
}

// mutate 在写队列中对状态副本执行 fn，持久化成功后才替换已提交状态
func (s *replicaService) mutate(ctx context.Context, op string, fn func(next *domain.ReplicaState) bool) (domain.Snapshot, error) {
	var snap domain.Snapshot

	err := s.queue.Execute(ctx, s.name, func() error {
		s.mu.RLock()
		next := s.state.Clone()
		s.mu.RUnlock()

		if fn(next) && s.persist != nil {
			if err := s.persist.Save(ctx, next.Snapshot()); err != nil {
				return apperrors.NewAppError(code.ErrorReplicaPersist, err)
			}
		}

		s.mu.Lock()
		s.state = next
		switch op {
		case "sync":
			s.syncs++
		case "delete":
			s.deletes++
		}
		s.mu.Unlock()

		snap = next.Snapshot()
		return nil
	})
	if err != nil {
		s.metrics.incError(op)
		return domain.Snapshot{}, translateQueueError(err)
	}

	s.metrics.setSize(ReplicaStats{Notes: len(snap.Notes), Tombstones: len(snap.DeletedIDs)})
	return snap, nil
}

func translateQueueError(err error) error {
	switch {
	case errors.Is(err, writequeue.ErrWriteQueueFull):
		return apperrors.NewAppError(code.ErrorReplicaWriteBusy, err)
	case errors.Is(err, writequeue.ErrWriteTimeout), errors.Is(err, writequeue.ErrWriteQueueClosed):
		return apperrors.NewAppError(code.ErrorServerBusy, err)
	}
	return err
}

// Sync 服务端不回收墓碑：一个客户端的快照里没有某条笔记，不代表其他客户端也已删除
func (s *replicaService) Sync(ctx context.Context, notes []domain.Note) (domain.Snapshot, error) {
	start := time.Now()
	var res merge.Result

	snap, err := s.mutate(ctx, "sync", func(next *domain.ReplicaState) bool {
		res = merge.Apply(next, notes, nil, merge.Options{CollectTombstones: false})
		return res.Changed()
	})
	if err != nil {
		s.logger.Warn("sync merge failed", zap.Int(logger.FieldNotes, len(notes)), zap.Error(err))
		return domain.Snapshot{}, err
	}

	if s.metrics != nil {
		s.metrics.SyncRequests.Inc()
		s.metrics.SyncDuration.Observe(time.Since(start).Seconds())
		s.metrics.observeMerge(res)
	}

	s.logger.Debug("sync merged",
		zap.Int(logger.FieldNotes, len(notes)),
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated),
		zap.Int("suppressed", res.Suppressed),
		zap.Duration(logger.FieldDuration, time.Since(start)))

	return snap, nil
}

func (s *replicaService) Delete(ctx context.Context, id string) error {
	var removed, added bool

	_, err := s.mutate(ctx, "delete", func(next *domain.ReplicaState) bool {
		removed = next.Remove(id)
		added = next.AddTombstone(id)
		return removed || added
	})
	if err != nil {
		s.logger.Warn("delete failed", zap.String(logger.FieldNoteID, id), zap.Error(err))
		return err
	}

	if s.metrics != nil {
		s.metrics.DeleteRequests.Inc()
	}
	s.logger.Debug("note deleted",
		zap.String(logger.FieldNoteID, id),
		zap.Bool("removed", removed),
		zap.Bool("newTombstone", added))
	return nil
}

func (s *replicaService) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Snapshot(), nil
}

func (s *replicaService) Restore(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}

	snap, ok, err := s.persist.Load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Info("no persisted replica state, starting empty")
		return nil
	}

	state := domain.NewReplicaStateFromSnapshot(snap)
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	stats := s.Stats()
	s.metrics.setSize(stats)
	s.logger.Info("replica state restored",
		zap.Int(logger.FieldNotes, stats.Notes),
		zap.Int(logger.FieldTombstones, stats.Tombstones))
	return nil
}

func (s *replicaService) Stats() ReplicaStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ReplicaStats{
		Notes:      s.state.Len(),
		Tombstones: s.state.TombstoneCount(),
		Syncs:      s.syncs,
		Deletes:    s.deletes,
	}
}
