// Package shutdown coordinates graceful termination of a crawl session.
package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/urlharvest/urlharvest/internal/logger"
)

// Callback is invoked during shutdown. It should respect the context
// deadline and return promptly once the session has been persisted.
type Callback func(ctx context.Context) error

// Config configures a shutdown handler.
type Config struct {
	// Timeout is the maximum time allowed for all callbacks combined.
	Timeout time.Duration

	// Signals are the OS signals that trigger shutdown.
	Signals []os.Signal

	// Logger for shutdown events.
	Logger *logger.Logger
}

// DefaultConfig returns a default shutdown configuration.
func DefaultConfig() Config {
	return Config{
		Timeout: 30 * time.Second,
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Logger:  logger.NewDefault(),
	}
}

// Handler listens for termination signals and runs registered callbacks
// in reverse registration order, so the most recently started component
// stops first.
type Handler struct {
	config Config
	log    *logger.Logger

	mu        sync.Mutex
	callbacks []namedCallback

	ctx       context.Context
	cancelCtx context.CancelFunc

	triggered atomic.Bool
	done      chan struct{}
	sigCh     chan os.Signal
}

type namedCallback struct {
	name string
	fn   Callback
}

// New creates a shutdown handler and starts listening for signals.
func New(cfg Config) *Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if len(cfg.Signals) == 0 {
		cfg.Signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewDefault()
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Handler{
		config:    cfg,
		log:       cfg.Logger.WithComponent("shutdown"),
		ctx:       ctx,
		cancelCtx: cancel,
		done:      make(chan struct{}),
		sigCh:     make(chan os.Signal, 1),
	}

	signal.Notify(h.sigCh, cfg.Signals...)
	go h.listen()

	return h
}

// Register adds a named callback to run during shutdown.
func (h *Handler) Register(name string, fn Callback) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.callbacks = append(h.callbacks, namedCallback{name: name, fn: fn})
}

// Context returns a context cancelled when shutdown begins.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// Trigger starts shutdown programmatically.
func (h *Handler) Trigger() {
	h.shutdown("manual")
}

// Wait blocks until shutdown has completed.
func (h *Handler) Wait() {
	<-h.done
}

// Triggered reports whether shutdown has started.
func (h *Handler) Triggered() bool {
	return h.triggered.Load()
}

func (h *Handler) listen() {
	sig, ok := <-h.sigCh
	if !ok {
		return
	}
	h.shutdown(sig.String())
}

func (h *Handler) shutdown(reason string) {
	if !h.triggered.CompareAndSwap(false, true) {
		return
	}

	h.log.WithField("reason", reason).Info("Shutdown started")
	signal.Stop(h.sigCh)
	h.cancelCtx()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.mu.Lock()
	callbacks := make([]namedCallback, len(h.callbacks))
	copy(callbacks, h.callbacks)
	h.mu.Unlock()

	for i := len(callbacks) - 1; i >= 0; i-- {
		cb := callbacks[i]
		if err := h.run(ctx, cb); err != nil {
			h.log.WithError(err).WithField("callback", cb.name).Error("Shutdown callback failed")
		}
	}

	h.log.Info("Shutdown complete")
	close(h.done)
}

func (h *Handler) run(ctx context.Context, cb namedCallback) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- cb.fn(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return &TimeoutError{Name: cb.name, Timeout: h.config.Timeout}
	}
}

// TimeoutError indicates a callback did not finish within the
// shutdown timeout.
type TimeoutError struct {
	Name    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("shutdown callback %q timed out after %s", e.Name, e.Timeout)
}
