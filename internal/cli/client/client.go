// Package client talks to a running safepaw API listener.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ccheshirecat/safepaw/internal/vm/events"
)

const (
	DefaultBaseURL = "http://127.0.0.1:8889"
	apiKeyHeader   = "X-Safepaw-API-Key"
)

// Client wraps REST access to the safepaw API.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
	// streamClient has no overall timeout; event streams stay open.
	streamClient *http.Client
}

// New creates a client with the provided base URL (e.g. http://127.0.0.1:8889).
func New(rawURL, apiKey string) (*Client, error) {
	if rawURL == "" {
		rawURL = DefaultBaseURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("client: parse url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("client: unsupported scheme %q", parsed.Scheme)
	}
	return &Client{
		baseURL: parsed,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
		streamClient: &http.Client{},
	}, nil
}

// VM mirrors the API's VM object; unreported fields stay nil.
type VM struct {
	Name         string   `json:"name"`
	State        string   `json:"state"`
	IPv4         []string `json:"ipv4,omitempty"`
	Release      *string  `json:"release,omitempty"`
	ImageRelease *string  `json:"image_release,omitempty"`
	CPUCount     *string  `json:"cpu_count,omitempty"`
	MemoryTotal  *uint64  `json:"memory_total,omitempty"`
	MemoryUsed   *uint64  `json:"memory_used,omitempty"`
	DiskTotal    *uint64  `json:"disk_total,omitempty"`
	DiskUsed     *uint64  `json:"disk_used,omitempty"`
}

// VMEvent represents a lifecycle event streamed from the server.
type VMEvent = events.VMEvent

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("client: http %d", e.StatusCode)
	}
	return fmt.Sprintf("client: http %d: %s", e.StatusCode, e.Message)
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Health reports whether the API answers /health.
func (c *Client) Health(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.do(req, &body); err != nil {
		return err
	}
	if body.Status != "ok" {
		return fmt.Errorf("client: unexpected health status %q", body.Status)
	}
	return nil
}

func (c *Client) ListVMs(ctx context.Context) ([]VM, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/vms", nil)
	if err != nil {
		return nil, err
	}
	var vms []VM
	if err := c.do(req, &vms); err != nil {
		return nil, err
	}
	return vms, nil
}

func (c *Client) GetVM(ctx context.Context, name string) (*VM, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/vms/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, err
	}
	var vm VM
	if err := c.do(req, &vm); err != nil {
		return nil, err
	}
	return &vm, nil
}

// LaunchVM returns the server's success message.
func (c *Client) LaunchVM(ctx context.Context, name string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/vms", map[string]string{"name": name})
	if err != nil {
		return "", err
	}
	return c.doEnvelope(req)
}

func (c *Client) StartVM(ctx context.Context, name string) (string, error) {
	return c.lifecycle(ctx, name, "start")
}

func (c *Client) StopVM(ctx context.Context, name string) (string, error) {
	return c.lifecycle(ctx, name, "stop")
}

func (c *Client) RestartVM(ctx context.Context, name string) (string, error) {
	return c.lifecycle(ctx, name, "restart")
}

func (c *Client) DeleteVM(ctx context.Context, name string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodDelete, "/vms/"+url.PathEscape(name), nil)
	if err != nil {
		return "", err
	}
	return c.doEnvelope(req)
}

func (c *Client) lifecycle(ctx context.Context, name, action string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/vms/"+url.PathEscape(name)+"/"+action, nil)
	if err != nil {
		return "", err
	}
	return c.doEnvelope(req)
}

// WatchVMEvents streams VM lifecycle events over server-sent events and
// invokes handler for each payload until the context is cancelled or the
// server closes the stream.
func (c *Client) WatchVMEvents(ctx context.Context, handler func(VMEvent)) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/events/vms", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("client: watch events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}

		var event VMEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return fmt.Errorf("client: decode event: %w", err)
		}
		if handler != nil {
			handler(event)
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("client: event stream error: %w", err)
	}
	return nil
}

// StreamVMEvents is WatchVMEvents over the websocket endpoint.
func (c *Client) StreamVMEvents(ctx context.Context, handler func(VMEvent)) error {
	wsURL := *c.baseURL.ResolveReference(&url.URL{Path: "/ws/v1/events"})
	if wsURL.Scheme == "https" {
		wsURL.Scheme = "wss"
	} else {
		wsURL.Scheme = "ws"
	}
	header := http.Header{}
	if c.apiKey != "" {
		header.Set(apiKeyHeader, c.apiKey)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), header)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			defer resp.Body.Close()
			return decodeError(resp)
		}
		return fmt.Errorf("client: dial events: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	for {
		var event VMEvent
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("client: event stream error: %w", err)
		}
		if handler != nil {
			handler(event)
		}
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	resolved := c.baseURL.ResolveReference(&url.URL{Path: path})
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("client: encode body: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, resolved.String(), &buf)
	if err != nil {
		return nil, fmt.Errorf("client: new request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

func (c *Client) doEnvelope(req *http.Request) (string, error) {
	var env envelope
	if err := c.do(req, &env); err != nil {
		return "", err
	}
	if !env.Success {
		return "", errors.New("client: server reported failure without an error")
	}
	return env.Message, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Message = body.Error
	}
	return apiErr
}
