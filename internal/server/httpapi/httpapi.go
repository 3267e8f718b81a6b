package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ccheshirecat/safepaw/internal/server/eventbus"
	"github.com/ccheshirecat/safepaw/internal/vm"
	"github.com/ccheshirecat/safepaw/internal/vm/events"
	"github.com/ccheshirecat/safepaw/internal/vm/handlers"
)

// Options toggles the optional access controls.
type Options struct {
	APIKey     string
	AllowCIDRs []string
}

const requestIDHeader = "X-Request-ID"

// New constructs the REST router backed by the VM API. bus may be nil, in
// which case mutations are not published and the event streams report 503.
func New(logger *slog.Logger, api vm.API, bus eventbus.Bus, opts Options) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(requestLogger(logger))
	r.Use(corsMiddleware())

	if len(opts.AllowCIDRs) > 0 {
		r.Use(ipFilterMiddleware(logger, opts.AllowCIDRs))
	}
	if opts.APIKey != "" {
		r.Use(apiKeyMiddleware(opts.APIKey))
	}

	s := &apiServer{logger: logger, api: api, bus: bus}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/openapi.json", s.serveOpenAPI)

	vms := r.Group("/vms")
	{
		vms.GET("", s.listVMs)
		vms.POST("", s.launchVM)
		vms.GET("/:name", s.getVM)
		vms.DELETE("/:name", s.mutation("delete", handlers.DeleteVM))
		vms.POST("/:name/start", s.mutation("start", handlers.StartVM))
		vms.POST("/:name/stop", s.mutation("stop", handlers.StopVM))
		vms.POST("/:name/restart", s.mutation("restart", handlers.RestartVM))
	}

	r.GET("/api/v1/events/vms", s.streamVMEvents)
	r.GET("/ws/v1/events", s.eventsWebSocket)

	return r
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// requestLogger adapts slog to Gin's middleware interface.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		args := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.String("latency", latency.String()),
			slog.String("client_ip", c.ClientIP()),
			slog.String("request_id", c.GetString("request_id")),
		}
		if len(c.Errors) > 0 {
			args = append(args, slog.String("error", c.Errors.String()))
			logger.Error("http request", args...)
		} else {
			logger.Info("http request", args...)
		}
	}
}

// corsMiddleware allows any origin, method and header.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Add("Vary", "Origin")
		if c.Request.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			if reqHeaders := c.GetHeader("Access-Control-Request-Headers"); reqHeaders != "" {
				h.Set("Access-Control-Allow-Headers", reqHeaders)
			} else {
				h.Set("Access-Control-Allow-Headers", "*")
			}
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func ipFilterMiddleware(logger *slog.Logger, cidrs []string) gin.HandlerFunc {
	var networks []*net.IPNet
	for _, raw := range cidrs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		_, network, err := net.ParseCIDR(raw)
		if err != nil {
			logger.Warn("invalid CIDR", "cidr", raw, "error", err)
			continue
		}
		networks = append(networks, network)
	}
	if len(networks) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ip := net.ParseIP(c.ClientIP())
		if ip == nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid client IP"})
			return
		}
		for _, network := range networks {
			if network.Contains(ip) {
				c.Next()
				return
			}
		}
		logger.Warn("request blocked by CIDR filter", "ip", ip.String())
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
	}
}

func apiKeyMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("X-Safepaw-API-Key")
		if provided == "" {
			provided = c.Query("api_key")
		}
		if provided != expected {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}
		c.Next()
	}
}

type apiServer struct {
	logger *slog.Logger
	api    vm.API
	bus    eventbus.Bus
}

type launchVMRequest struct {
	Name string `json:"name" binding:"required"`
}

type envelopeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *apiServer) listVMs(c *gin.Context) {
	res := handlers.ListVMs(c.Request.Context(), s.api)
	if !res.Success {
		s.logger.Warn("failed to list VMs", "error", res.Err)
		c.JSON(statusFromError(res.Err), errorResponse{Error: res.Message})
		return
	}
	resp := make([]vmResponse, 0, len(*res.Data))
	for _, summary := range *res.Data {
		resp = append(resp, summaryToResponse(summary))
	}
	c.JSON(http.StatusOK, resp)
}

func (s *apiServer) getVM(c *gin.Context) {
	name := c.Param("name")
	res := handlers.GetVMInfo(c.Request.Context(), s.api, name)
	if !res.Success {
		s.logger.Warn("failed to get VM info", "vm", name, "error", res.Err)
		c.JSON(statusFromError(res.Err), errorResponse{Error: res.Message})
		return
	}
	c.JSON(http.StatusOK, statusToResponse(*res.Data))
}

func (s *apiServer) launchVM(c *gin.Context) {
	var req launchVMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, envelopeResponse{Success: false, Error: err.Error()})
		return
	}
	s.respondMutation(c, "launch", req.Name, handlers.LaunchVM(c.Request.Context(), s.api, req.Name), http.StatusCreated)
}

func (s *apiServer) mutation(action string, op func(context.Context, vm.API, string) handlers.Result[handlers.Empty]) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		s.respondMutation(c, action, name, op(c.Request.Context(), s.api, name), http.StatusOK)
	}
}

func (s *apiServer) respondMutation(c *gin.Context, action, name string, res handlers.Result[handlers.Empty], okStatus int) {
	if !res.Success {
		s.logger.Warn("vm operation failed", "action", action, "vm", name, "error", res.Err)
		status := http.StatusInternalServerError
		if errors.Is(res.Err, vm.ErrInvalidName) {
			status = http.StatusBadRequest
		}
		c.JSON(status, envelopeResponse{Success: false, Error: res.Message})
		return
	}
	s.publish(c, events.New(action, name, res.Message))
	c.JSON(okStatus, envelopeResponse{Success: true, Message: res.Message})
}

func (s *apiServer) publish(c *gin.Context, ev events.VMEvent) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(c.Request.Context(), events.TopicVMEvents, ev); err != nil {
		s.logger.Warn("publish vm event", "type", ev.Type, "vm", ev.Name, "error", err)
	}
}

func (s *apiServer) streamVMEvents(c *gin.Context) {
	if s.bus == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "event streaming not available"})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
		return
	}

	ctx := c.Request.Context()
	eventsCh, unsubscribe, err := s.bus.Subscribe(events.TopicVMEvents, 16)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to subscribe"})
		return
	}
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case payload, open := <-eventsCh:
			if !open {
				return
			}
			vmEvent, ok := payload.(events.VMEvent)
			if !ok {
				continue
			}
			data, err := json.Marshal(vmEvent)
			if err != nil {
				s.logger.Error("marshal vm event", "error", err)
				continue
			}
			if _, err := c.Writer.Write([]byte("event: " + vmEvent.Type + "\n")); err != nil {
				return
			}
			if _, err := c.Writer.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

func (s *apiServer) eventsWebSocket(c *gin.Context) {
	if s.bus == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "event streaming not available"})
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	eventsCh, unsubscribe, err := s.bus.Subscribe(events.TopicVMEvents, 16)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"),
			time.Now().Add(time.Second))
		return
	}
	defer unsubscribe()

	// Drain client frames so close and ping control messages are processed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case payload, open := <-eventsCh:
			if !open {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(time.Second))
				return
			}
			vmEvent, ok := payload.(events.VMEvent)
			if !ok {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(vmEvent); err != nil {
				return
			}
		}
	}
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, vm.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, vm.ErrVMNotFound):
		return http.StatusNotFound
	case errors.Is(err, vm.ErrNotImplemented):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
