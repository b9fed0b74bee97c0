package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/haierkeys/lww-note-sync/pkg/logger"
)

// State 连通性状态
type State int32

const (
	Offline State = iota
	Online
)

func (s State) String() string {
	if s == Online {
		return "online"
	}
	return "offline"
}

// Monitor 连通性监测，初始为 Offline
// 并发的探测合并为一次请求，Offline -> Online 时触发重连回调
type Monitor struct {
	transport Transport
	timeout   time.Duration
	logger    *zap.Logger

	state atomic.Int32
	group singleflight.Group

	mu          sync.Mutex
	onReconnect []func(context.Context)
}

// NewMonitor 创建连通性监测
func NewMonitor(t Transport, probeTimeout time.Duration, lg *zap.Logger) *Monitor {
	if lg == nil {
		lg = zap.NewNop()
	}
	if probeTimeout <= 0 {
		probeTimeout = 2 * time.Second
	}
	m := &Monitor{transport: t, timeout: probeTimeout, logger: lg}
	m.state.Store(int32(Offline))
	return m
}

// State 当前状态
func (m *Monitor) State() State {
	return State(m.state.Load())
}

// Online 是否在线
func (m *Monitor) Online() bool {
	return m.State() == Online
}

// OnReconnect 注册重连回调，每次 Offline -> Online 都会调用
func (m *Monitor) OnReconnect(fn func(context.Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconnect = append(m.onReconnect, fn)
}

// Probe 执行一次健康检查并返回探测后的状态
func (m *Monitor) Probe(ctx context.Context) State {
	v, _, _ := m.group.Do("probe", func() (interface{}, error) {
		pctx, cancel := context.WithTimeout(ctx, m.timeout)
		defer cancel()

		if err := m.transport.Health(pctx); err != nil {
			m.logger.Debug("probe failed", zap.Error(err))
			m.MarkOffline(err)
			return Offline, nil
		}
		m.markOnline(ctx)
		return Online, nil
	})
	return v.(State)
}

// MarkOffline 标记离线，同步或删除请求失败时调用
func (m *Monitor) MarkOffline(reason error) {
	if m.state.CompareAndSwap(int32(Online), int32(Offline)) {
		m.logger.Info("connectivity changed",
			zap.String(logger.FieldState, Offline.String()),
			zap.NamedError(logger.FieldReason, reason))
	}
}

func (m *Monitor) markOnline(ctx context.Context) {
	if !m.state.CompareAndSwap(int32(Offline), int32(Online)) {
		return
	}
	m.logger.Info("connectivity changed", zap.String(logger.FieldState, Online.String()))

	m.mu.Lock()
	callbacks := make([]func(context.Context), len(m.onReconnect))
	copy(callbacks, m.onReconnect)
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn(ctx)
	}
}
