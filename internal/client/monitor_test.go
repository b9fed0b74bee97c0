package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_InitiallyOffline(t *testing.T) {
	m := NewMonitor(&switchTransport{}, time.Second, nil)
	assert.Equal(t, Offline, m.State())
	assert.False(t, m.Online())
}

func TestMonitor_ReconnectFiresOnEdgeOnly(t *testing.T) {
	ctx := context.Background()
	tr := &switchTransport{}
	m := NewMonitor(tr, time.Second, nil)

	var reconnects atomic.Int32
	m.OnReconnect(func(context.Context) { reconnects.Add(1) })

	assert.Equal(t, Online, m.Probe(ctx))
	assert.Equal(t, Online, m.Probe(ctx))
	assert.Equal(t, int32(1), reconnects.Load(), "staying online is not a reconnect")

	tr.setDown(true)
	assert.Equal(t, Offline, m.Probe(ctx))
	assert.Equal(t, Offline, m.Probe(ctx))
	assert.Equal(t, int32(1), reconnects.Load())

	tr.setDown(false)
	assert.Equal(t, Online, m.Probe(ctx))
	assert.Equal(t, int32(2), reconnects.Load())
}

func TestMonitor_MarkOffline(t *testing.T) {
	ctx := context.Background()
	m := NewMonitor(&switchTransport{}, time.Second, nil)

	require.Equal(t, Online, m.Probe(ctx))
	m.MarkOffline(errUnreachable)
	assert.Equal(t, Offline, m.State())

	// 重复标记无副作用
	m.MarkOffline(errUnreachable)
	assert.Equal(t, Offline, m.State())
}

func TestMonitor_ConcurrentProbesCoalesce(t *testing.T) {
	tr := &switchTransport{blockCh: make(chan struct{})}
	m := NewMonitor(tr, 5*time.Second, nil)

	var reconnects atomic.Int32
	m.OnReconnect(func(context.Context) { reconnects.Add(1) })

	var wg sync.WaitGroup
	results := make([]State, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.Probe(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return tr.health.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(tr.blockCh)
	wg.Wait()

	assert.Equal(t, int32(1), tr.health.Load())
	assert.Equal(t, int32(1), reconnects.Load())
	for _, s := range results {
		assert.Equal(t, Online, s)
	}
}

func TestMonitor_ProbeTimeout(t *testing.T) {
	tr := &switchTransport{blockCh: make(chan struct{})}
	defer close(tr.blockCh)
	m := NewMonitor(tr, 20*time.Millisecond, nil)

	start := time.Now()
	assert.Equal(t, Offline, m.Probe(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestMonitor_HTTPNon2xxIsOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	m := NewMonitor(NewHTTPTransport(srv.URL, nil, time.Second, nil), time.Second, nil)
	assert.Equal(t, Offline, m.Probe(context.Background()))
}

func TestMonitor_HTTPClosedServerIsOffline(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	m := NewMonitor(NewHTTPTransport(url, nil, time.Second, nil), time.Second, nil)
	assert.Equal(t, Offline, m.Probe(context.Background()))
}
