package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ccheshirecat/safepaw/internal/server/eventbus/memory"
	"github.com/ccheshirecat/safepaw/internal/server/httpapi"
	"github.com/ccheshirecat/safepaw/internal/shared/logging"
	"github.com/ccheshirecat/safepaw/internal/vm"
	"github.com/ccheshirecat/safepaw/internal/vm/events"
)

type stubAPI struct {
	mu     sync.Mutex
	calls  []string
	status vm.Status
	list   []vm.Summary
	err    error
}

func (s *stubAPI) record(call string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
	return s.err
}

func (s *stubAPI) Launch(_ context.Context, name string) error  { return s.record("launch:" + name) }
func (s *stubAPI) Start(_ context.Context, name string) error   { return s.record("start:" + name) }
func (s *stubAPI) Stop(_ context.Context, name string) error    { return s.record("stop:" + name) }
func (s *stubAPI) Restart(_ context.Context, name string) error { return s.record("restart:" + name) }
func (s *stubAPI) Delete(_ context.Context, name string) error  { return s.record("delete:" + name) }

func (s *stubAPI) Info(_ context.Context, name string) (vm.Status, error) {
	if err := s.record("info:" + name); err != nil {
		return vm.Status{}, err
	}
	return s.status, nil
}

func (s *stubAPI) List(_ context.Context) ([]vm.Summary, error) {
	if err := s.record("list"); err != nil {
		return nil, err
	}
	return s.list, nil
}

func newServer(t *testing.T, api vm.API, opts httpapi.Options) (*Client, *memory.Bus) {
	t.Helper()
	bus := memory.New(logging.Discard())
	srv := httptest.NewServer(httpapi.New(logging.Discard(), api, bus, opts))
	t.Cleanup(func() {
		bus.Close()
		srv.Close()
	})
	c, err := New(srv.URL, opts.APIKey)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c, bus
}

func TestNewRejectsBadScheme(t *testing.T) {
	if _, err := New("ftp://example.com", ""); err == nil {
		t.Fatalf("expected scheme error")
	}
}

func TestRoundTrip(t *testing.T) {
	release := "22.04"
	api := &stubAPI{
		status: vm.Status{Name: "agent-1", State: "Running", Release: &release},
		list:   []vm.Summary{vm.NewSummary("agent-1", "Running")},
	}
	c, _ := newServer(t, api, httpapi.Options{})
	ctx := context.Background()

	if err := c.Health(ctx); err != nil {
		t.Fatalf("health: %v", err)
	}
	vms, err := c.ListVMs(ctx)
	if err != nil || len(vms) != 1 || vms[0].Name != "agent-1" {
		t.Fatalf("list = %v, %v", vms, err)
	}
	got, err := c.GetVM(ctx, "agent-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Release == nil || *got.Release != "22.04" || got.CPUCount != nil {
		t.Fatalf("get = %+v", got)
	}

	msg, err := c.LaunchVM(ctx, "agent-1")
	if err != nil || msg != "launched `agent-1`" {
		t.Fatalf("launch = %q, %v", msg, err)
	}
	for _, op := range []func(context.Context, string) (string, error){c.StartVM, c.StopVM, c.RestartVM, c.DeleteVM} {
		if _, err := op(ctx, "agent-1"); err != nil {
			t.Fatalf("lifecycle: %v", err)
		}
	}
	want := []string{"list", "info:agent-1", "launch:agent-1", "start:agent-1", "stop:agent-1", "restart:agent-1", "delete:agent-1"}
	if len(api.calls) != len(want) {
		t.Fatalf("calls = %v", api.calls)
	}
	for i := range want {
		if api.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", api.calls, want)
		}
	}
}

func TestErrorsCarryStatus(t *testing.T) {
	api := &stubAPI{err: &vm.CommandFailedError{Action: "info", StatusCode: 2, Stderr: "instance \"ghost\" does not exist"}}
	c, _ := newServer(t, api, httpapi.Options{})

	_, err := c.GetVM(context.Background(), "ghost")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 APIError, got %v", err)
	}
	if apiErr.Message == "" {
		t.Fatalf("error body lost")
	}
}

func TestAPIKeyIsSent(t *testing.T) {
	c, _ := newServer(t, &stubAPI{}, httpapi.Options{APIKey: "secret"})
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("health with key: %v", err)
	}

	c.apiKey = ""
	err := c.Health(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func waitForSubscriber(t *testing.T, bus *memory.Bus) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for bus.Subscribers(events.TopicVMEvents) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("stream never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEventStreams(t *testing.T) {
	transports := map[string]func(*Client) func(context.Context, func(VMEvent)) error{
		"sse":       func(c *Client) func(context.Context, func(VMEvent)) error { return c.WatchVMEvents },
		"websocket": func(c *Client) func(context.Context, func(VMEvent)) error { return c.StreamVMEvents },
	}
	for name, pick := range transports {
		t.Run(name, func(t *testing.T) {
			c, bus := newServer(t, &stubAPI{}, httpapi.Options{})
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			received := make(chan VMEvent, 1)
			done := make(chan error, 1)
			go func() {
				done <- pick(c)(ctx, func(ev VMEvent) {
					select {
					case received <- ev:
					default:
					}
				})
			}()

			waitForSubscriber(t, bus)
			if _, err := c.StopVM(ctx, "agent-1"); err != nil {
				t.Fatalf("stop: %v", err)
			}

			select {
			case ev := <-received:
				if ev.Type != events.TypeVMStopped || ev.Name != "agent-1" {
					t.Fatalf("event = %+v", ev)
				}
			case err := <-done:
				t.Fatalf("stream ended early: %v", err)
			case <-ctx.Done():
				t.Fatalf("no event received")
			}

			cancel()
			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatalf("stream did not stop after cancel")
			}
		})
	}
}
