package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/JakeFAU/gallery-resolver/internal/config"
	"github.com/JakeFAU/gallery-resolver/internal/gallery"
	"github.com/JakeFAU/gallery-resolver/internal/metrics"
	"github.com/JakeFAU/gallery-resolver/internal/policy/ratelimit"
)

const (
	bannerText = "gallery resolver is running\n"

	msgTagsRequired = "tags is required"
	msgBadPage      = "page must be an integer >= 1"
	msgFetchFailed  = "Failed to fetch HTML content."
	msgNoResults    = "No results found."
	msgTimedOut     = "request timed out"
)

// Server wires HTTP handlers to the resolver pipeline.
type Server struct {
	router   chi.Router
	handler  http.Handler
	searcher gallery.Searcher
	renderer gallery.Renderer
	cfg      config.Config
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes. renderer and
// limiter may be nil.
func NewServer(
	searcher gallery.Searcher,
	renderer gallery.Renderer,
	cfg config.Config,
	limiter *ratelimit.Limiter,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		searcher: searcher,
		renderer: renderer,
		cfg:      cfg,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)

	r.Get("/", s.banner)
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		if limiter != nil {
			r.Use(limiter.Middleware)
		}
		r.Use(timeoutMiddleware(cfg.RequestTimeout()))
		r.Get("/search", s.search)
		r.Post("/v1", s.render)
	})

	s.router = r
	s.handler = otelhttp.NewHandler(r, "resolver.api",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
	return s
}

// Handler returns the traced router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) banner(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte(bannerText)); err != nil {
		s.logger.Warn("banner write failed", zap.Error(err))
	}
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// Nothing is held between requests, so the process is ready once serving.
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	req, msg := parseSearchQuery(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	result, err := s.searcher.Search(r.Context(), req)
	if err != nil {
		status, body := s.searchError(r, req, err)
		if status == 0 {
			return
		}
		writeError(w, status, body)
		return
	}
	if result.Results == nil {
		result.Results = []gallery.ResolvedPost{}
	}
	writeJSON(w, http.StatusOK, result)
}

// searchError maps a pipeline failure onto a status and message. A zero
// status means the client is gone and nothing should be written.
func (s *Server) searchError(r *http.Request, req gallery.ListingRequest, err error) (int, string) {
	logger := s.logger.With(
		zap.String("request_id", RequestID(r.Context())),
		zap.String("tags", req.Tags),
		zap.Int("page", req.Page),
	)

	if status, ok := gallery.StatusOf(err); ok {
		logger.Info("listing fetch rejected upstream", zap.Int("upstream_status", status))
		return status, msgFetchFailed
	}
	switch {
	case errors.Is(err, gallery.ErrNoResults):
		return http.StatusNotFound, msgNoResults
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("search timed out", zap.Error(err))
		return http.StatusGatewayTimeout, msgTimedOut
	case errors.Is(err, context.Canceled):
		logger.Debug("search canceled by client", zap.Error(err))
		return 0, ""
	default:
		logger.Error("search failed", zap.Error(err))
		return http.StatusBadGateway, msgFetchFailed
	}
}

// parseSearchQuery validates the query string. page defaults to 1.
func parseSearchQuery(r *http.Request) (gallery.ListingRequest, string) {
	q := r.URL.Query()
	tags := q.Get("tags")
	if strings.TrimSpace(tags) == "" {
		return gallery.ListingRequest{}, msgTagsRequired
	}

	page := 1
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return gallery.ListingRequest{}, msgBadPage
		}
		page = n
	}
	return gallery.ListingRequest{Tags: tags, Page: page}, ""
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
