package app

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ccheshirecat/safepaw/internal/shared/logging"
)

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, body)
	})
}

type boundAddrs struct {
	mu    sync.Mutex
	addrs map[string]net.Addr
	ready chan struct{}
	want  int
}

func newBoundAddrs(want int) *boundAddrs {
	return &boundAddrs{addrs: map[string]net.Addr{}, ready: make(chan struct{}), want: want}
}

func (b *boundAddrs) record(name string, addr net.Addr) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addrs[name] = addr
	if len(b.addrs) == b.want {
		close(b.ready)
	}
}

func (b *boundAddrs) get(name string) net.Addr {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addrs[name]
}

func fetch(t *testing.T, addr net.Addr) string {
	t.Helper()
	resp, err := http.Get("http://" + addr.String() + "/")
	if err != nil {
		t.Fatalf("get %s: %v", addr, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return string(data)
}

func TestRunServesBothAndStopsOnCancel(t *testing.T) {
	bound := newBoundAddrs(2)
	var shutdownHooks int
	var hookMu sync.Mutex
	a, err := New(Params{
		Logger:     logging.Discard(),
		UIAddr:     "127.0.0.1:0",
		APIAddr:    "127.0.0.1:0",
		UIHandler:  okHandler("ui"),
		APIHandler: okHandler("api"),
		OnShutdown: func() {
			hookMu.Lock()
			shutdownHooks++
			hookMu.Unlock()
		},
		OnBound: bound.record,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	select {
	case <-bound.ready:
	case err := <-done:
		t.Fatalf("run exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("listeners did not bind")
	}

	if got := fetch(t, bound.get(ListenerUI)); got != "ui" {
		t.Fatalf("ui body = %q", got)
	}
	if got := fetch(t, bound.get(ListenerAPI)); got != "api" {
		t.Fatalf("api body = %q", got)
	}
	if a.State(ListenerUI) != StateRunning || a.State(ListenerAPI) != StateRunning {
		t.Fatalf("states = %s/%s", a.State(ListenerUI), a.State(ListenerAPI))
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run after cancel: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return after cancel")
	}

	if a.State(ListenerUI) != StateStopped || a.State(ListenerAPI) != StateStopped {
		t.Fatalf("states after stop = %s/%s", a.State(ListenerUI), a.State(ListenerAPI))
	}
	hookMu.Lock()
	defer hookMu.Unlock()
	if shutdownHooks != 1 {
		t.Fatalf("shutdown hook ran %d times", shutdownHooks)
	}
}

func TestAPIBindFailureStopsUIListener(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("occupy port: %v", err)
	}
	defer occupied.Close()

	bound := newBoundAddrs(1)
	a, err := New(Params{
		Logger:     logging.Discard(),
		UIAddr:     "127.0.0.1:0",
		APIAddr:    occupied.Addr().String(),
		UIHandler:  okHandler("ui"),
		APIHandler: okHandler("api"),
		OnBound:    bound.record,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	var runErr error
	select {
	case runErr = <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not fail")
	}
	if runErr == nil || !strings.Contains(runErr.Error(), "failed to bind api server") {
		t.Fatalf("run error = %v", runErr)
	}
	if a.State(ListenerUI) != StateStopped {
		t.Fatalf("ui state = %s", a.State(ListenerUI))
	}
	if addr := bound.get(ListenerUI); addr != nil {
		conn, err := net.DialTimeout("tcp", addr.String(), time.Second)
		if err == nil {
			conn.Close()
			t.Fatalf("ui listener still accepting on %s", addr)
		}
	}
}

func TestNewRequiresHandlers(t *testing.T) {
	if _, err := New(Params{Logger: logging.Discard(), UIHandler: okHandler("ui")}); err == nil {
		t.Fatalf("expected error without api handler")
	}
	if _, err := New(Params{UIHandler: okHandler("ui"), APIHandler: okHandler("api")}); err == nil {
		t.Fatalf("expected error without logger")
	}
}
