// Package shutdown coordinates signal handling and ordered cleanup for the CLI.
package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"genfill/core"
	"genfill/logging"

	"go.uber.org/zap"
)

// DefaultTimeout bounds the whole shutdown sequence.
const DefaultTimeout = 30 * time.Second

// Manager composes:
//   - signal handling: the first SIGINT/SIGTERM cancels Context, a second one exits
//   - an operation tracker: Shutdown waits for running operations
//   - a Registry of cleanup handlers run in priority order
//
// Usage:
//
//	manager := shutdown.NewManager(logger)
//	manager.Register("history", 20, func(ctx context.Context) error { writer.Stop(); return nil })
//	manager.Register("database", 30, func(ctx context.Context) error { return database.Close() })
//	manager.Start()
//	err := manager.Run("batch", runBatch)
//	manager.Shutdown()
//	os.Exit(manager.ExitCode(code))
type Manager struct {
	logger  *logging.Logger
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	tracker  tracker
	registry *Registry

	mu       sync.Mutex
	started  bool
	shutdown bool
	signals  []os.Signal
	sigChan  chan os.Signal

	// exit is called on the second signal. Replaced in tests.
	exit func(code int)
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeout sets the shutdown timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		if timeout > 0 {
			m.timeout = timeout
		}
	}
}

// NewManager creates a manager. Call Start to listen for signals.
func NewManager(logger *logging.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		logger:   logger.Named("shutdown"),
		timeout:  DefaultTimeout,
		ctx:      ctx,
		cancel:   cancel,
		registry: NewRegistry(),
		sigChan:  make(chan os.Signal, 2),
		exit:     os.Exit,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Context is cancelled by the first signal or by Shutdown.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a cleanup handler. Lower priorities run first.
func (m *Manager) Register(name string, priority int, fn Func) {
	m.registry.Register(name, priority, fn)
	m.logger.Debug("registered shutdown handler", zap.String("name", name), zap.Int("priority", priority))
}

// Start listens for SIGINT and SIGTERM. Calling it twice is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return
	}
	m.started = true
	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range m.sigChan {
			m.handleSignal(sig)
		}
	}()
}

func (m *Manager) handleSignal(sig os.Signal) {
	m.mu.Lock()
	m.signals = append(m.signals, sig)
	count := len(m.signals)
	m.mu.Unlock()

	if count == 1 {
		m.logger.Info("received signal, cancelling current run", zap.String("signal", sig.String()))
		m.cancel()
		return
	}
	m.logger.Warn("received second signal, exiting immediately", zap.String("signal", sig.String()))
	m.exit(exitCodeFor(sig))
}

// Signal returns the first signal received, or nil.
func (m *Manager) Signal() os.Signal {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.signals) == 0 {
		return nil
	}
	return m.signals[0]
}

// ExitCode returns the signal exit code when a signal interrupted the run,
// otherwise code.
func (m *Manager) ExitCode(code int) int {
	if sig := m.Signal(); sig != nil {
		return exitCodeFor(sig)
	}
	return code
}

func exitCodeFor(sig os.Signal) int {
	if sig == syscall.SIGTERM {
		return core.ExitCodeSIGTERM
	}
	return core.ExitCodeSIGINT
}

// Run executes fn with the managed context as a tracked operation. It returns
// ErrClosed once Shutdown has begun.
func (m *Manager) Run(name string, fn func(ctx context.Context) error) error {
	if !m.tracker.start() {
		m.logger.Debug("operation rejected", zap.String("operation", name))
		return ErrClosed
	}
	defer m.tracker.done()

	if err := m.ctx.Err(); err != nil {
		return err
	}
	return fn(m.ctx)
}

// ActiveOperations returns the number of running operations.
func (m *Manager) ActiveOperations() int {
	return m.tracker.count()
}

// Shutdown stops accepting operations, waits for running ones, then runs
// the cleanup handlers with what is left of the timeout (at least one
// second). Later calls return nil.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	started := m.started
	m.mu.Unlock()

	start := time.Now()
	m.tracker.close()
	if err := m.tracker.wait(m.timeout); err != nil {
		m.logger.Warn("operations still running at shutdown", zap.Int("active", m.tracker.count()))
	}
	m.cancel()

	remaining := m.timeout - time.Since(start)
	if remaining < time.Second {
		remaining = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), remaining)
	defer cancel()

	m.logger.Debug("running cleanup handlers", zap.Strings("handlers", m.registry.Names()))
	errs := m.registry.Run(ctx)
	for _, err := range errs {
		m.logger.Error("cleanup handler failed", zap.Error(err))
	}

	if started {
		signal.Stop(m.sigChan)
		close(m.sigChan)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown: %d cleanup handlers failed", len(errs))
	}
	m.logger.Debug("shutdown complete", zap.Duration("duration", time.Since(start)))
	return nil
}
