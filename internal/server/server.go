package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/klauspost/compress/gzhttp"

	"github.com/backyonatan-alt/fiftyone/internal/cache"
	"github.com/backyonatan-alt/fiftyone/internal/config"
	"github.com/backyonatan-alt/fiftyone/internal/configflow"
	"github.com/backyonatan-alt/fiftyone/internal/metrics"
	"github.com/backyonatan-alt/fiftyone/internal/model"
	"github.com/backyonatan-alt/fiftyone/internal/registry"
	"github.com/backyonatan-alt/fiftyone/internal/store"
)

// Flow is the configuration dialog driven by the entry endpoints.
type Flow interface {
	User(ctx context.Context, in configflow.UserInput) (model.Entry, error)
	Options(ctx context.Context, id string, sources []model.ImageSource) (model.Entry, error)
	Remove(ctx context.Context, id string) error
}

// Deps are the collaborators of the HTTP surface.
type Deps struct {
	Registry  *registry.Registry
	Flow      Flow
	Store     store.Store
	Responses cache.Responses
	Metrics   metrics.Provider
	Logger    *slog.Logger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	cfg       config.ServerConfig
	registry  *registry.Registry
	flow      Flow
	store     store.Store
	responses cache.Responses
	metrics   metrics.Provider
	logger    *slog.Logger
}

func New(cfg config.ServerConfig, deps Deps) *Server {
	s := &Server{
		cfg:       cfg,
		registry:  deps.Registry,
		flow:      deps.Flow,
		store:     deps.Store,
		responses: deps.Responses,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
	}
	if s.responses == nil {
		s.responses = cache.NewResponses(0, 0, s.logger)
	}
	if s.metrics == nil {
		s.metrics = metrics.New(false)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if len(s.cfg.AllowedOrigins) == 0 {
		s.cfg.AllowedOrigins = []string{"*"}
	}
	return s
}

// Router returns the HTTP handler with all routes registered.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /api/entries", s.handleListEntries)
	mux.HandleFunc("POST /api/entries", s.handleCreateEntry)
	mux.HandleFunc("PUT /api/entries/{id}/image_sources", s.handleImageSources)
	mux.HandleFunc("DELETE /api/entries/{id}", s.handleDeleteEntry)
	mux.HandleFunc("POST /api/entries/{id}/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/entries/{id}/states", s.handleStates)
	mux.HandleFunc("GET /api/entries/{id}/entities/{uid}", s.handleEntity)
	mux.HandleFunc("GET /api/entries/{id}/entities/{uid}/image", s.handleImage)

	return metrics.Middleware(s.metrics, s.corsMiddleware(gzhttp.GzipHandler(mux)))
}

// InvalidateStates drops every cached state rendering. Called after each
// refresh cycle.
func (s *Server) InvalidateStates() {
	s.responses.Clear()
}
