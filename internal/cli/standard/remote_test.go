package standard

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ccheshirecat/safepaw/internal/cli/client"
	"github.com/ccheshirecat/safepaw/internal/server/httpapi"
	"github.com/ccheshirecat/safepaw/internal/shared/logging"
	"github.com/ccheshirecat/safepaw/internal/vm"
)

func newRemoteServer(t *testing.T, tool *fakeMultipass, opts httpapi.Options) *httptest.Server {
	t.Helper()
	api := vm.NewLocalAPI(tool, logging.Discard())
	srv := httptest.NewServer(httpapi.New(logging.Discard(), api, nil, opts))
	t.Cleanup(srv.Close)
	return srv
}

func runRemote(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	h := &harness{tool: &fakeMultipass{}}
	cmd := newRootCmd(h.deps())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"remote", "--api", srv.URL}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRemoteHealth(t *testing.T) {
	srv := newRemoteServer(t, &fakeMultipass{}, httpapi.Options{})
	out, err := runRemote(t, srv, "health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if strings.TrimSpace(out) != "ok" {
		t.Fatalf("output = %q", out)
	}
}

func TestRemoteLifecyclePrintsServerMessage(t *testing.T) {
	cases := map[string]string{
		"launch":  "launched `agent-1`",
		"start":   "started `agent-1`",
		"stop":    "stopped `agent-1`",
		"restart": "restarted `agent-1`",
		"delete":  "deleted `agent-1`",
	}
	for verb, want := range cases {
		t.Run(verb, func(t *testing.T) {
			tool := &fakeMultipass{}
			srv := newRemoteServer(t, tool, httpapi.Options{})
			out, err := runRemote(t, srv, verb, "agent-1")
			if err != nil {
				t.Fatalf("%s: %v", verb, err)
			}
			if strings.TrimSpace(out) != want {
				t.Fatalf("output = %q, want %q", out, want)
			}
			if len(tool.calls) != 1 || tool.calls[0] != verb+" agent-1" {
				t.Fatalf("calls = %v", tool.calls)
			}
		})
	}
}

func TestRemoteListAndInfo(t *testing.T) {
	tool := &fakeMultipass{
		list: []vm.Summary{
			{Name: "agent-1", State: "Running", IPv4: []string{"10.0.0.1"}, Release: strPtr("22.04")},
			{Name: "agent-2", State: "Stopped"},
		},
		status: vm.Status{Name: "agent-1", State: "Running", IPv4: []string{"10.0.0.1"}},
	}
	srv := newRemoteServer(t, tool, httpapi.Options{})

	out, err := runRemote(t, srv, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := "agent-1 | Running | 10.0.0.1 | 22.04\nagent-2 | Stopped\n"
	if out != want {
		t.Fatalf("list output = %q, want %q", out, want)
	}

	out, err = runRemote(t, srv, "info", "agent-1", "-o", "json")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if !strings.Contains(out, `"state": "Running"`) || !strings.Contains(out, `"10.0.0.1"`) {
		t.Fatalf("info output = %q", out)
	}
}

func TestRemoteSurfacesAPIErrors(t *testing.T) {
	tool := &fakeMultipass{err: &vm.CommandFailedError{Action: "info", StatusCode: 2, Stderr: `instance "ghost" does not exist`}}
	srv := newRemoteServer(t, tool, httpapi.Options{})
	_, err := runRemote(t, srv, "info", "ghost")
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 APIError, got %v", err)
	}
}

func TestRemoteSendsAPIKey(t *testing.T) {
	srv := newRemoteServer(t, &fakeMultipass{}, httpapi.Options{APIKey: "secret"})

	_, err := runRemote(t, srv, "list")
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 APIError without key, got %v", err)
	}

	if _, err := runRemote(t, srv, "--api-key", "secret", "list"); err != nil {
		t.Fatalf("list with key: %v", err)
	}
}
