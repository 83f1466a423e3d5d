package shutdown

import (
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned when an operation starts after shutdown began.
var ErrClosed = errors.New("shutdown: in progress, operation rejected")

// ErrWaitTimeout is returned when operations outlive the wait.
var ErrWaitTimeout = errors.New("shutdown: operations did not complete in time")

// tracker counts in-flight operations so shutdown can wait for them.
type tracker struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	active int
	closed bool
}

func (t *tracker) start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return false
	}
	t.wg.Add(1)
	t.active++
	return true
}

func (t *tracker) done() {
	t.mu.Lock()
	t.active--
	t.mu.Unlock()
	t.wg.Done()
}

func (t *tracker) close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

func (t *tracker) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

func (t *tracker) wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrWaitTimeout
	}
}
