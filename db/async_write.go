package db

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"genfill/logging"

	"go.uber.org/zap"
)

// DefaultChannelCapacity is the default buffer size for queued writes.
const DefaultChannelCapacity = 100

// DefaultDrainTimeout bounds how long Stop waits for queued writes.
const DefaultDrainTimeout = 10 * time.Second

// WriteOperation is one queued write.
type WriteOperation struct {
	// Data holds the write payload
	Data any
	// Timestamp when the operation was queued
	Timestamp time.Time
}

// WriteHandler performs one queued write.
type WriteHandler func(op WriteOperation) error

// AsyncWriterConfig holds configuration for the async writer.
type AsyncWriterConfig struct {
	// ChannelCapacity is the buffer size for pending writes
	ChannelCapacity int
	// DrainTimeout is the maximum wait time during Stop
	DrainTimeout time.Duration
}

// DefaultAsyncWriterConfig returns the default configuration.
func DefaultAsyncWriterConfig() AsyncWriterConfig {
	return AsyncWriterConfig{
		ChannelCapacity: DefaultChannelCapacity,
		DrainTimeout:    DefaultDrainTimeout,
	}
}

// AsyncWriter runs writes on a background goroutine fed by a buffered channel.
//
// Thread-Safety: Write may be called from any goroutine. Writes queued before
// Stop are drained before Stop returns, up to the drain timeout.
type AsyncWriter struct {
	writeChan chan WriteOperation
	handler   WriteHandler
	logger    *logging.Logger
	config    AsyncWriterConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	started bool
	stopped bool

	failed atomic.Int64
}

// NewAsyncWriter creates a writer with the default configuration.
func NewAsyncWriter(handler WriteHandler, logger *logging.Logger) *AsyncWriter {
	return NewAsyncWriterWithConfig(handler, logger, DefaultAsyncWriterConfig())
}

// NewAsyncWriterWithConfig creates a writer with a custom configuration.
// A nil logger discards handler failures.
func NewAsyncWriterWithConfig(handler WriteHandler, logger *logging.Logger, config AsyncWriterConfig) *AsyncWriter {
	if logger == nil {
		logger = logging.NewNop()
	}
	if config.ChannelCapacity <= 0 {
		config.ChannelCapacity = DefaultChannelCapacity
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = DefaultDrainTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &AsyncWriter{
		writeChan: make(chan WriteOperation, config.ChannelCapacity),
		handler:   handler,
		logger:    logger.Named("async_writer"),
		config:    config,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the background goroutine. Calling it twice is a no-op.
func (w *AsyncWriter) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started || w.stopped {
		return
	}
	w.started = true
	w.wg.Add(1)
	go w.processWrites()
}

func (w *AsyncWriter) processWrites() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			w.drain()
			return
		case op := <-w.writeChan:
			w.handle(op)
		}
	}
}

func (w *AsyncWriter) drain() {
	for {
		select {
		case op := <-w.writeChan:
			w.handle(op)
		default:
			return
		}
	}
}

func (w *AsyncWriter) handle(op WriteOperation) {
	if err := w.handler(op); err != nil {
		w.failed.Add(1)
		w.logger.Warn("async write failed",
			zap.Error(err),
			zap.Duration("queued_for", time.Since(op.Timestamp)))
	}
}

// Write queues data without blocking. It returns false when the writer is not
// running or the buffer is full.
func (w *AsyncWriter) Write(data any) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if !w.started || w.stopped {
		return false
	}
	select {
	case w.writeChan <- WriteOperation{Data: data, Timestamp: time.Now()}:
		return true
	default:
		return false
	}
}

// Pending returns the number of queued writes.
func (w *AsyncWriter) Pending() int {
	return len(w.writeChan)
}

// Failed returns the number of writes whose handler returned an error.
func (w *AsyncWriter) Failed() int64 {
	return w.failed.Load()
}

// IsStarted reports whether the writer accepts writes.
func (w *AsyncWriter) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started && !w.stopped
}

// Stop rejects further writes, drains the queue and waits for the goroutine.
// It returns false when the drain timeout elapsed first.
func (w *AsyncWriter) Stop() bool {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return true
	}
	w.stopped = true
	started := w.started
	w.mu.Unlock()

	w.cancel()
	if !started {
		return true
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(w.config.DrainTimeout):
		w.logger.Warn("async writer drain timed out", zap.Int("pending", w.Pending()))
		return false
	}
}
