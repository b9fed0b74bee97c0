package task

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/haierkeys/lww-note-sync/internal/app"
	"github.com/haierkeys/lww-note-sync/pkg/logger"
)

// ReplicaStatsTask 周期输出服务端副本规模并刷新指标
type ReplicaStatsTask struct {
	app      *app.App
	interval time.Duration
}

func init() {
	RegisterWithApp(func(appContainer *app.App) (Task, error) {
		return NewReplicaStatsTask(appContainer), nil
	})
}

// NewReplicaStatsTask 创建副本统计任务
func NewReplicaStatsTask(appContainer *app.App) *ReplicaStatsTask {
	return &ReplicaStatsTask{
		app:      appContainer,
		interval: appContainer.Config().GetStatsInterval(),
	}
}

func (t *ReplicaStatsTask) Name() string {
	return "replica_stats"
}

func (t *ReplicaStatsTask) LoopInterval() time.Duration {
	return t.interval
}

func (t *ReplicaStatsTask) IsStartupRun() bool {
	return false
}

func (t *ReplicaStatsTask) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer t.app.TrackOperation()()

	stats := t.app.ReplicaService.Stats()
	if t.app.Metrics != nil {
		t.app.Metrics.LiveNotes.Set(float64(stats.Notes))
		t.app.Metrics.Tombstones.Set(float64(stats.Tombstones))
	}

	t.app.Logger().Info("task log",
		zap.String("task", t.Name()),
		zap.Int(logger.FieldNotes, stats.Notes),
		zap.Int(logger.FieldTombstones, stats.Tombstones),
		zap.Int64("syncs", stats.Syncs),
		zap.Int64("deletes", stats.Deletes),
		zap.Int("queued", t.app.WriteQueueManager().QueuedCount(app.ServerReplica)))
	return nil
}
