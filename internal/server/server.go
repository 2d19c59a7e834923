// Package server exposes the choropleth, comparison card and population data
// over HTTP.
package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/popmap/internal/dataset"
	"github.com/sells-group/popmap/internal/metrics"
	"github.com/sells-group/popmap/internal/render"
)

const (
	contentTypeSVG  = "image/svg+xml"
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json"
)

// Options configure a Server.
type Options struct {
	CORSOrigins []string
	// Cache may be nil to render every request.
	Cache   *render.Cache
	Metrics *metrics.Metrics
}

// Server serves one loaded dataset.
type Server struct {
	ds      *dataset.Dataset
	cache   *render.Cache
	metrics *metrics.Metrics
	origins []string
}

// New creates a Server. A nil Metrics gets a private instance.
func New(ds *dataset.Dataset, opts Options) *Server {
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	return &Server{
		ds:      ds,
		cache:   opts.Cache,
		metrics: m,
		origins: opts.CORSOrigins,
	}
}

// Router returns the HTTP handler with middleware applied.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
			ExposedHeaders: []string{RequestIDHeader, "X-Cache"},
			MaxAge:         300,
		}))
	}
	s.Register(r)
	return r
}

// Register mounts the endpoints on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Get("/", s.handlePage)
	r.Get("/map.svg", s.handleMap)
	r.Get("/card.svg", s.handleCard)
	r.Get("/api/countries", s.handleCountries)
	r.Get("/api/buckets", s.handleBuckets)
	r.Get("/api/select", s.handleSelect)
	r.Get("/cache/stats", s.handleCacheStats)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// cached serves kind/fingerprint from the render cache, rendering on a miss.
func (s *Server) cached(w http.ResponseWriter, r *http.Request, kind, fingerprint, contentType string, fn func(*bytes.Buffer) error) {
	if s.cache != nil {
		if data := s.cache.Get(kind, fingerprint); data != nil {
			s.metrics.ObserveCache(true)
			w.Header().Set("Content-Type", contentType)
			w.Header().Set("X-Cache", "hit")
			_, _ = w.Write(data)
			return
		}
		s.metrics.ObserveCache(false)
	}

	start := time.Now()
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		zap.L().Error("server: render failed",
			zap.String("kind", kind),
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	s.metrics.ObserveRender(kind, start)

	data := buf.Bytes()
	if s.cache != nil {
		s.cache.Put(kind, fingerprint, data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Cache", "miss")
	_, _ = w.Write(data)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	if s.cache == nil {
		writeJSON(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}
	writeJSON(w, http.StatusOK, s.cache.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
