// Package safe_close coordinates the shutdown of long running goroutines
// Package safe_close 协调长期运行 goroutine 的关闭
package safe_close

import (
	"sync"
)

// SafeClose broadcasts a single close signal to attached workers and waits for them to finish
// SafeClose 向已挂载的任务广播一次关闭信号并等待它们结束
type SafeClose struct {
	closeSignal chan struct{}
	once        sync.Once
	wg          sync.WaitGroup

	mu  sync.Mutex
	err error
}

// NewSafeClose creates a SafeClose
// NewSafeClose 创建 SafeClose
func NewSafeClose() *SafeClose {
	return &SafeClose{
		closeSignal: make(chan struct{}),
	}
}

// Attach runs fn in its own goroutine. fn must call done when it returns and should stop once
// closeSignal is closed.
// Attach 在独立 goroutine 中运行 fn，fn 返回时必须调用 done，并在 closeSignal 关闭后退出
func (s *SafeClose) Attach(fn func(done func(), closeSignal <-chan struct{})) {
	s.wg.Add(1)
	var doneOnce sync.Once
	go fn(func() { doneOnce.Do(s.wg.Done) }, s.closeSignal)
}

// SendCloseSignal closes the signal channel once. The first non-nil err is kept for WaitClosed.
// SendCloseSignal 仅关闭一次信号通道，保留首个非 nil 错误
func (s *SafeClose) SendCloseSignal(err error) {
	s.mu.Lock()
	if s.err == nil && err != nil {
		s.err = err
	}
	s.mu.Unlock()
	s.once.Do(func() {
		close(s.closeSignal)
	})
}

// Closed reports whether the close signal was sent
// Closed 是否已发送关闭信号
func (s *SafeClose) Closed() bool {
	select {
	case <-s.closeSignal:
		return true
	default:
		return false
	}
}

// WaitClosed blocks until every attached function called done
// WaitClosed 阻塞直到所有挂载任务调用 done
func (s *SafeClose) WaitClosed() error {
	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
