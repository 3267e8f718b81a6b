package ui

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed assets
var embedded embed.FS

// Assets is the embedded UI tree rooted at the assets directory.
func Assets() fs.FS {
	sub, err := fs.Sub(embedded, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}

// Handler serves the embedded UI.
type Handler struct {
	logger  *slog.Logger
	files   fs.FS
	apiPort int
}

// New builds the UI router. apiPort is advertised to the browser through
// /config.js so the page can reach the API listener on the same host.
func New(logger *slog.Logger, files fs.FS, apiPort int) http.Handler {
	if files == nil {
		files = Assets()
	}
	h := &Handler{logger: logger, files: files, apiPort: apiPort}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/config.js", h.handleConfig)
	r.Get("/*", h.handleFile)
	r.Head("/*", h.handleFile)
	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Debug("ui request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"latency", time.Since(start).String(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = fmt.Fprintf(w, "window.SAFEPAW_API_PORT = %d;\n", h.apiPort)
}

func (h *Handler) handleFile(w http.ResponseWriter, r *http.Request) {
	name := assetPath(r.URL.Path)
	data, err := fs.ReadFile(h.files, name)
	if err != nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("404 Not Found"))
		return
	}
	w.Header().Set("Content-Type", contentType(name))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(data)
	}
}

// assetPath maps a request path onto the embedded tree. The root and any
// path ending in "/" serve index.html.
func assetPath(urlPath string) string {
	if urlPath == "" || strings.HasSuffix(urlPath, "/") {
		return "index.html"
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if cleaned == "" {
		return "index.html"
	}
	return cleaned
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
