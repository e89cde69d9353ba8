// Package server exposes the JSON API for residents and the token-guarded
// admin surface.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/moscooltech/suggest-ila2/internal/config"
	"github.com/moscooltech/suggest-ila2/internal/core"
	"github.com/moscooltech/suggest-ila2/internal/logger"
	"github.com/moscooltech/suggest-ila2/internal/metrics"
	"github.com/moscooltech/suggest-ila2/internal/pipeline"
	"github.com/moscooltech/suggest-ila2/internal/providers"
	"github.com/moscooltech/suggest-ila2/internal/store"
)

// Database is the persistence surface the handlers need. *store.Store
// satisfies it; tests substitute an in-memory fake.
type Database interface {
	Ping(ctx context.Context) error

	CreateSuggestion(ctx context.Context, sugg *core.Suggestion) error
	GetSuggestion(ctx context.Context, id string) (*core.Suggestion, error)
	ListSuggestions(ctx context.Context, opts store.ListOptions) ([]core.Suggestion, error)
	RecentCandidates(ctx context.Context, limit int) ([]core.Suggestion, error)
	UpdateSuggestionText(ctx context.Context, sugg *core.Suggestion) error
	ChangeStatus(ctx context.Context, change *core.StatusChange) error
	StatusHistory(ctx context.Context, suggestionID string) ([]core.StatusChange, error)
	MergeSuggestions(ctx context.Context, duplicateID, targetID string) error
	CountSuggestionsByStatus(ctx context.Context) (map[string]int, error)

	CreateComment(ctx context.Context, comment *core.Comment) error
	ListComments(ctx context.Context, suggestionID string) ([]core.Comment, error)
	CastVote(ctx context.Context, suggestionID, sessionID, userID, voteType string) (*core.Suggestion, error)
	ToggleBookmark(ctx context.Context, suggestionID, sessionID, userID string) (bool, error)
	ListBookmarked(ctx context.Context, sessionID string) ([]core.Suggestion, error)

	ListAnnouncements(ctx context.Context, activeOnly bool) ([]core.Announcement, error)
	CreateAnnouncement(ctx context.Context, a *core.Announcement) error
	UpdateAnnouncement(ctx context.Context, a *core.Announcement) error
	DeleteAnnouncement(ctx context.Context, id string) error

	ListAreas(ctx context.Context, activeOnly bool) ([]core.CommunityArea, error)
	CreateArea(ctx context.Context, area *core.CommunityArea) error
	UpdateArea(ctx context.Context, area *core.CommunityArea) error
	ToggleArea(ctx context.Context, id string) error
	DeleteArea(ctx context.Context, id string) error
}

// MetricsAnalytics reads aggregated AI operation stats for the admin
// dashboard. Nil when metrics are kept in memory only.
type MetricsAnalytics interface {
	Analytics(ctx context.Context, window time.Duration) ([]metrics.OperationStats, error)
}

// Server is the HTTP server.
type Server struct {
	router         *chi.Mux
	httpServer     *http.Server
	db             Database
	pipe           *pipeline.Pipeline
	probe          *providers.Probe
	analytics      MetricsAnalytics
	config         config.Server
	candidateLimit int
	log            *slog.Logger
}

// New creates a server over its collaborators.
func New(db Database, pipe *pipeline.Pipeline, probe *providers.Probe, analytics MetricsAnalytics, cfg config.Server, candidateLimit int) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		db:             db,
		pipe:           pipe,
		probe:          probe,
		analytics:      analytics,
		config:         cfg,
		candidateLimit: candidateLimit,
		log:            logger.Get(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if s.config.CORS.Enabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/suggestions", func(r chi.Router) {
			r.Post("/", s.handleSubmitSuggestion)
			r.Get("/", s.handleListSuggestions)
			r.Get("/{id}", s.handleGetSuggestion)
			r.Put("/{id}", s.handleEditSuggestion)
			r.Post("/{id}/vote", s.handleVote)
			r.Post("/{id}/comments", s.handleCreateComment)
			r.Post("/{id}/bookmark", s.handleToggleBookmark)
		})

		r.Get("/bookmarks", s.handleListBookmarks)

		r.Get("/announcements", s.handleListAnnouncements)
		r.Get("/areas", s.handleListAreas)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Get("/dashboard", s.handleAdminDashboard)
			r.Get("/metrics", s.handleAdminMetrics)
			r.Get("/providers", s.handleAdminProviders)
			r.Get("/export", s.handleAdminExport)

			r.Put("/suggestions/{id}/status", s.handleChangeStatus)
			r.Get("/suggestions/{id}/history", s.handleStatusHistory)
			r.Post("/suggestions/{id}/merge/{targetID}", s.handleMergeSuggestions)

			r.Post("/announcements", s.handleCreateAnnouncement)
			r.Put("/announcements/{id}", s.handleUpdateAnnouncement)
			r.Delete("/announcements/{id}", s.handleDeleteAnnouncement)

			r.Get("/areas", s.handleAdminListAreas)
			r.Post("/areas", s.handleCreateArea)
			r.Put("/areas/{id}", s.handleUpdateArea)
			r.Post("/areas/{id}/toggle", s.handleToggleArea)
			r.Delete("/areas/{id}", s.handleDeleteArea)
		})
	})
}

// Start runs the server and a background loop refreshing the provider
// availability snapshot until ctx is canceled.
func (s *Server) Start(ctx context.Context, probeInterval time.Duration) error {
	go s.probeLoop(ctx, probeInterval)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) probeLoop(ctx context.Context, interval time.Duration) {
	s.probe.Refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.probe.Refresh(ctx)
		}
	}
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.log.Error("failed to encode response", "error", err.Error())
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"database": "ok"}
	if err := s.db.Ping(r.Context()); err != nil {
		checks["database"] = "error"
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unhealthy",
			"checks": checks,
		})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"checks": checks,
	})
}
