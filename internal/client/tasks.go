package client

import (
	"context"
	"errors"
	"time"
)

// probeTask 周期探测连通性，启动时立即执行一次
type probeTask struct {
	monitor  *Monitor
	interval time.Duration
}

func (t *probeTask) Name() string                { return "connectivity_probe" }
func (t *probeTask) LoopInterval() time.Duration { return t.interval }
func (t *probeTask) IsStartupRun() bool          { return true }

func (t *probeTask) Run(ctx context.Context) error {
	t.monitor.Probe(ctx)
	return nil
}

// syncTask 周期同步，离线时跳过
type syncTask struct {
	syncer   *Syncer
	interval time.Duration
}

func (t *syncTask) Name() string                { return "periodic_sync" }
func (t *syncTask) LoopInterval() time.Duration { return t.interval }
func (t *syncTask) IsStartupRun() bool          { return false }

func (t *syncTask) Run(ctx context.Context) error {
	if err := t.syncer.Cycle(ctx); err != nil && !errors.Is(err, ErrOffline) {
		return err
	}
	return nil
}
