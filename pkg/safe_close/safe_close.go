// Package safe_close coordinates graceful shutdown across goroutines.
// Workers attach with a done callback and a shared close signal; the
// first close reason wins and WaitClosed blocks until every attached
// worker reports done.
package safe_close

import (
	"sync"
)

type SafeClose struct {
	mu          sync.Mutex
	closeSignal chan struct{}
	closed      bool
	err         error
	wg          sync.WaitGroup
}

func NewSafeClose() *SafeClose {
	return &SafeClose{
		closeSignal: make(chan struct{}),
	}
}

// Attach runs fn in its own goroutine. fn must call done() when it has
// fully stopped, and should begin shutting down once closeSignal fires.
func (s *SafeClose) Attach(fn func(done func(), closeSignal <-chan struct{})) {
	s.wg.Add(1)
	var once sync.Once
	done := func() {
		once.Do(s.wg.Done)
	}
	go fn(done, s.closeSignal)
}

// SendCloseSignal asks every attached worker to stop. The first non-nil
// err is kept and returned from WaitClosed. Safe to call multiple times.
func (s *SafeClose) SendCloseSignal(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	close(s.closeSignal)
}

// CloseSignal exposes the shared close channel for select loops that are
// not attached workers.
func (s *SafeClose) CloseSignal() <-chan struct{} {
	return s.closeSignal
}

// WaitClosed blocks until all attached workers are done and returns the
// close reason, if any.
func (s *SafeClose) WaitClosed() error {
	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
