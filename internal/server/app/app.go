package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// State is the lifecycle phase of one listener.
type State string

const (
	StateIdle         State = "idle"
	StateBinding      State = "binding"
	StateRunning      State = "running"
	StateShuttingDown State = "shutting_down"
	StateStopped      State = "stopped"
)

const (
	ListenerUI  = "ui"
	ListenerAPI = "api"
)

// errListenerExited reports a server that stopped serving without being asked to.
var errListenerExited = errors.New("listener exited unexpectedly")

// Params configures the runtime.
type Params struct {
	Logger          *slog.Logger
	UIAddr          string
	APIAddr         string
	UIHandler       http.Handler
	APIHandler      http.Handler
	ShutdownTimeout time.Duration
	// OnShutdown runs once, synchronously, when the first listener begins
	// shutting down and before in-flight requests are drained. Long-lived
	// streams use it to end.
	OnShutdown func()
	// OnBound, if set, is called with each listener's bound address.
	OnBound func(listener string, addr net.Addr)
}

type listener struct {
	name   string
	server *http.Server
	mu     sync.Mutex
	state  State
}

func (l *listener) set(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

func (l *listener) get() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// App runs the UI and API listeners on one host and stops them together.
type App struct {
	logger          *slog.Logger
	listeners       []*listener
	shutdownTimeout time.Duration
	onShutdown      func()
	onBound         func(string, net.Addr)
	shutdownOnce    sync.Once
}

// New constructs the runtime. Both handlers are required.
func New(p Params) (*App, error) {
	if p.Logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if p.UIHandler == nil || p.APIHandler == nil {
		return nil, fmt.Errorf("ui and api handlers are required")
	}
	if p.ShutdownTimeout <= 0 {
		p.ShutdownTimeout = 15 * time.Second
	}

	newServer := func(addr string, h http.Handler) *http.Server {
		return &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
	}
	return &App{
		logger: p.Logger,
		listeners: []*listener{
			{name: ListenerUI, server: newServer(p.UIAddr, p.UIHandler), state: StateIdle},
			{name: ListenerAPI, server: newServer(p.APIAddr, p.APIHandler), state: StateIdle},
		},
		shutdownTimeout: p.ShutdownTimeout,
		onShutdown:      p.OnShutdown,
		onBound:         p.OnBound,
	}, nil
}

// Run binds and serves both listeners until ctx is cancelled or either
// listener fails. It returns only after both have stopped. A cancelled ctx
// yields nil; a bind or serve failure is returned as is.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, l := range a.listeners {
		g.Go(func() error { return a.serve(gctx, l) })
	}
	return g.Wait()
}

// State reports the current phase of the named listener.
func (a *App) State(name string) State {
	for _, l := range a.listeners {
		if l.name == name {
			return l.get()
		}
	}
	return ""
}

func (a *App) serve(ctx context.Context, l *listener) error {
	logger := a.logger.With("listener", l.name)
	defer l.set(StateStopped)

	l.set(StateBinding)
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", l.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s server to %s: %w", l.name, l.server.Addr, err)
	}
	l.set(StateRunning)
	logger.Info("listener bound", "addr", ln.Addr().String())
	if a.onBound != nil {
		a.onBound(l.name, ln.Addr())
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- l.server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		l.set(StateShuttingDown)
		logger.Info("listener shutting down")
		if a.onShutdown != nil {
			a.shutdownOnce.Do(a.onShutdown)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()
		if err := l.server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown", "error", err)
			_ = l.server.Close()
		}
		<-errCh
		logger.Info("listener stopped")
		return nil
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			err = errListenerExited
		}
		return fmt.Errorf("%s server failed: %w", l.name, err)
	}
}
