package task

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/haierkeys/lww-note-sync/internal/app"
	"github.com/haierkeys/lww-note-sync/internal/domain"
	"github.com/haierkeys/lww-note-sync/pkg/safe_close"
)

type countingTask struct {
	interval time.Duration
	startup  bool
	runs     atomic.Int32
	panicOn  int32
	lastCtx  atomic.Value
}

func (t *countingTask) Name() string                { return "counting" }
func (t *countingTask) LoopInterval() time.Duration { return t.interval }
func (t *countingTask) IsStartupRun() bool          { return t.startup }
func (t *countingTask) Run(ctx context.Context) error {
	n := t.runs.Add(1)
	t.lastCtx.Store(ctx)
	if n == t.panicOn {
		panic("boom")
	}
	return nil
}

func TestScheduler_StartupAndLoop(t *testing.T) {
	sc := safe_close.NewSafeClose()
	s := NewScheduler(zap.NewNop(), sc)

	ct := &countingTask{interval: 10 * time.Millisecond, startup: true, panicOn: 2}
	s.AddTask(ct)
	s.Start()

	assert.Eventually(t, func() bool { return ct.runs.Load() >= 4 }, time.Second, 5*time.Millisecond,
		"a panicking run must not stop later ticks")

	sc.SendCloseSignal(nil)
	require.NoError(t, sc.WaitClosed())

	ctx := ct.lastCtx.Load().(context.Context)
	assert.Error(t, ctx.Err(), "task context is cancelled on close")

	stopped := ct.runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, ct.runs.Load())
}

func TestScheduler_StartupOnly(t *testing.T) {
	sc := safe_close.NewSafeClose()
	s := NewScheduler(nil, sc)

	ct := &countingTask{startup: true}
	s.AddTask(ct)
	s.Start()

	require.NoError(t, sc.WaitClosed())
	assert.Equal(t, int32(1), ct.runs.Load())
}

func TestReplicaStatsTask_RefreshesGauges(t *testing.T) {
	cfg, err := app.ParseConfig(nil)
	require.NoError(t, err)

	a, err := app.NewApp(cfg, zap.NewNop(), nil, prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })

	ctx := context.Background()
	_, err = a.ReplicaService.Sync(ctx, []domain.Note{
		{ID: "a", Title: "t", Content: "c", CreatedAt: 1, LastModified: 1},
		{ID: "b", Title: "t", Content: "c", CreatedAt: 1, LastModified: 1},
	})
	require.NoError(t, err)
	require.NoError(t, a.ReplicaService.Delete(ctx, "b"))

	// 模拟指标被外部重置
	a.Metrics.LiveNotes.Set(0)

	task := NewReplicaStatsTask(a)
	assert.Equal(t, time.Minute, task.LoopInterval())
	require.NoError(t, task.Run(ctx))

	assert.Equal(t, float64(1), testutil.ToFloat64(a.Metrics.LiveNotes))
	assert.Equal(t, float64(1), testutil.ToFloat64(a.Metrics.Tombstones))
}

func TestManager_RegistersReplicaStats(t *testing.T) {
	cfg, err := app.ParseConfig(nil)
	require.NoError(t, err)

	a, err := app.NewApp(cfg, zap.NewNop(), nil, prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })

	sc := safe_close.NewSafeClose()
	m := NewManager(zap.NewNop(), sc, a)
	require.NoError(t, m.RegisterTasks())

	names := make([]string, 0)
	for _, task := range m.scheduler.Tasks() {
		names = append(names, task.Name())
	}
	assert.Contains(t, names, "replica_stats")

	m.Start()
	sc.SendCloseSignal(nil)
	require.NoError(t, sc.WaitClosed())
}
