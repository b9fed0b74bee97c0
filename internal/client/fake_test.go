package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/haierkeys/lww-note-sync/internal/domain"
)

var errUnreachable = errors.New("connection refused")

// switchTransport 可切换在线/离线的 Transport，在线时转发给 next
type switchTransport struct {
	next    Transport
	down    atomic.Bool
	health  atomic.Int32
	syncs   atomic.Int32
	deletes atomic.Int32

	mu      sync.Mutex
	blockCh chan struct{}
}

func (t *switchTransport) setDown(down bool) { t.down.Store(down) }

func (t *switchTransport) Health(ctx context.Context) error {
	t.health.Add(1)
	t.mu.Lock()
	block := t.blockCh
	t.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return &domain.NetworkError{Op: "health", Err: ctx.Err()}
		}
	}
	if t.down.Load() {
		return &domain.NetworkError{Op: "health", Err: errUnreachable}
	}
	if t.next == nil {
		return nil
	}
	return t.next.Health(ctx)
}

func (t *switchTransport) Sync(ctx context.Context, notes []domain.Note) (domain.Snapshot, error) {
	t.syncs.Add(1)
	if t.down.Load() {
		return domain.Snapshot{}, &domain.NetworkError{Op: "sync", Err: errUnreachable}
	}
	return t.next.Sync(ctx, notes)
}

func (t *switchTransport) Delete(ctx context.Context, id string) error {
	t.deletes.Add(1)
	if t.down.Load() {
		return &domain.NetworkError{Op: "delete", Err: errUnreachable}
	}
	return t.next.Delete(ctx, id)
}
