// Package server exposes the listing provider over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/listing-features/internal/cache"
	"github.com/sells-group/listing-features/internal/feature"
	"github.com/sells-group/listing-features/internal/provider"
)

// ContentTypeGeoJSON is the media type of collection responses.
const ContentTypeGeoJSON = "application/geo+json"

// statusClientClosed is logged when the caller goes away mid-fetch.
const statusClientClosed = 499

// Provider is the subset of *provider.Provider the handlers use.
type Provider interface {
	Lookup(ctx context.Context, city, category string) (*feature.Collection, bool, error)
	IDField() string
	TTL() int
	Categories() []string
}

// Server routes HTTP requests to a Provider.
type Server struct {
	provider Provider
	cache    *cache.Cache[*feature.Collection]
	router   chi.Router
}

// New builds the router. c may be nil when caching is disabled.
func New(p Provider, c *cache.Cache[*feature.Collection], allowedOrigins []string) *Server {
	s := &Server{provider: p, cache: c}

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP, LoggerMiddleware(zap.L()), middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Trace-ID"},
		ExposedHeaders: []string{"X-Cache", "X-Trace-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/provider", s.handleProvider)
	r.Route("/cache", func(r chi.Router) {
		r.Get("/stats", s.handleCacheStats)
		r.Delete("/{city}", s.handleCacheInvalidate)
	})
	r.Get("/{city}/{category}", s.handleCollection)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on port until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProvider(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, providerInfo{
		Name:       provider.Name,
		IDField:    s.provider.IDField(),
		TTL:        s.provider.TTL(),
		Categories: s.provider.Categories(),
	})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	if s.cache == nil {
		writeJSON(w, http.StatusOK, cache.Stats{})
		return
	}
	writeJSON(w, http.StatusOK, s.cache.Stats())
}

func (s *Server) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	city := strings.ToLower(chi.URLParam(r, "city"))
	removed := 0
	if s.cache != nil {
		removed = s.cache.Invalidate(city)
	}
	zap.L().Info("cache invalidated", zap.String("city", city), zap.Int("removed", removed))
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	city := chi.URLParam(r, "city")
	category := chi.URLParam(r, "category")

	fc, cached, err := s.provider.Lookup(r.Context(), city, category)
	if err != nil {
		status := statusFor(err)
		zap.L().Warn("collection request failed",
			zap.String("city", city),
			zap.String("category", category),
			zap.Int("status", status),
			zap.Error(err),
		)
		writeJSONError(w, status, errorMessage(status))
		return
	}

	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", fc.TTL))
	if cached {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	writeBody(w, http.StatusOK, ContentTypeGeoJSON, fc)
}

// statusFor maps provider errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, provider.ErrInvalidCity):
		return http.StatusBadRequest
	case errors.Is(err, provider.ErrUnknownCategory):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled):
		return statusClientClosed
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// errorMessage hides upstream details behind a generic message.
func errorMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid city"
	case http.StatusNotFound:
		return "unknown category"
	case http.StatusGatewayTimeout:
		return "upstream timed out"
	case statusClientClosed:
		return "request cancelled"
	default:
		return "upstream listing search failed"
	}
}
