package server

import (
	"crypto/subtle"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/moscooltech/suggest-ila2/internal/core"
	"github.com/moscooltech/suggest-ila2/internal/store"
)

// requireAdmin guards the admin routes with a static bearer token. When no
// token is configured the whole admin surface is disabled.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.AdminToken == "" {
			s.respondError(w, http.StatusForbidden, "admin access is disabled")
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.config.AdminToken)) != 1 {
			s.respondError(w, http.StatusUnauthorized, "invalid admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	counts, err := s.db.CountSuggestionsByStatus(r.Context())
	if err != nil {
		s.log.Error("failed to count suggestions", "error", err.Error())
		s.respondError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"total":     total,
		"by_status": counts,
	})
}

// handleAdminMetrics reports per-operation/per-provider success rates and
// latencies over a trailing window (?days=N, default 7).
func (s *Server) handleAdminMetrics(w http.ResponseWriter, r *http.Request) {
	if s.analytics == nil {
		s.respondError(w, http.StatusNotFound, "metrics persistence is not configured")
		return
	}

	days := queryInt(r.URL.Query().Get("days"), 7)
	if days == 0 {
		days = 7
	}
	window := time.Duration(days) * 24 * time.Hour

	stats, err := s.analytics.Analytics(r.Context(), window)
	if err != nil {
		s.log.Error("failed to load AI metrics", "error", err.Error())
		s.respondError(w, http.StatusInternalServerError, "failed to load metrics")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"window_days": days,
		"operations":  stats,
	})
}

// handleAdminProviders re-probes every provider and reports reachability.
func (s *Server) handleAdminProviders(w http.ResponseWriter, r *http.Request) {
	avail := s.probe.Refresh(r.Context())
	s.respondJSON(w, http.StatusOK, map[string]any{
		"providers": avail,
		"errors":    s.probe.LastErrors(),
	})
}

// handleAdminExport streams all suggestions as JSON (default) or CSV.
func (s *Server) handleAdminExport(w http.ResponseWriter, r *http.Request) {
	suggestions, err := s.db.ListSuggestions(r.Context(), store.ListOptions{Limit: 10000})
	if err != nil {
		s.log.Error("failed to export suggestions", "error", err.Error())
		s.respondError(w, http.StatusInternalServerError, "failed to export suggestions")
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="suggestions.csv"`)
		cw := csv.NewWriter(w)
		// Write errors are sticky on csv.Writer; checked once after Flush.
		_ = cw.Write([]string{"id", "text", "category", "summary", "sentiment", "status", "area", "upvotes", "downvotes", "created_at"})
		for _, sugg := range suggestions {
			_ = cw.Write([]string{
				sugg.ID,
				sugg.Text,
				string(sugg.Category),
				sugg.Summary,
				string(sugg.Sentiment),
				sugg.Status,
				sugg.Area,
				strconv.Itoa(sugg.Upvotes),
				strconv.Itoa(sugg.Downvotes),
				sugg.CreatedAt.Format(time.RFC3339),
			})
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			s.log.Error("failed to stream CSV export", "error", err.Error())
		}
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="suggestions.json"`)
	s.respondJSON(w, http.StatusOK, map[string]any{
		"exported_at": time.Now().UTC(),
		"suggestions": suggestions,
	})
}

type changeStatusRequest struct {
	Status        string `json:"status"`
	Notes         string `json:"notes"`
	AdminResponse string `json:"admin_response"`
	ChangedBy     string `json:"changed_by"`
}

func (s *Server) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !core.ValidStatus(req.Status) {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown status: %s", req.Status))
		return
	}

	change := &core.StatusChange{
		SuggestionID:  id,
		Status:        req.Status,
		Notes:         strings.TrimSpace(req.Notes),
		AdminResponse: strings.TrimSpace(req.AdminResponse),
		ChangedBy:     req.ChangedBy,
	}
	if err := s.db.ChangeStatus(r.Context(), change); err != nil {
		s.respondStoreError(w, err, "failed to change status")
		return
	}
	s.respondJSON(w, http.StatusOK, change)
}

func (s *Server) handleStatusHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	history, err := s.db.StatusHistory(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err, "failed to load status history")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"history": history})
}

// handleMergeSuggestions folds a duplicate into its target, moving votes and
// comments before deleting it.
func (s *Server) handleMergeSuggestions(w http.ResponseWriter, r *http.Request) {
	duplicateID := chi.URLParam(r, "id")
	targetID := chi.URLParam(r, "targetID")
	if duplicateID == targetID {
		s.respondError(w, http.StatusBadRequest, "cannot merge a suggestion into itself")
		return
	}

	if err := s.db.MergeSuggestions(r.Context(), duplicateID, targetID); err != nil {
		s.respondStoreError(w, err, "failed to merge suggestions")
		return
	}

	target, err := s.db.GetSuggestion(r.Context(), targetID)
	if err != nil {
		s.respondStoreError(w, err, "failed to load merge target")
		return
	}
	s.respondJSON(w, http.StatusOK, target)
}

type announcementRequest struct {
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	ImageURL  string     `json:"image_url"`
	ExpiresAt *time.Time `json:"expires_at"`
}

func (s *Server) handleCreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req announcementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		s.respondError(w, http.StatusBadRequest, "title and content are required")
		return
	}

	a := &core.Announcement{
		Title:     strings.TrimSpace(req.Title),
		Content:   strings.TrimSpace(req.Content),
		ImageURL:  strings.TrimSpace(req.ImageURL),
		ExpiresAt: req.ExpiresAt,
	}
	if err := s.db.CreateAnnouncement(r.Context(), a); err != nil {
		s.log.Error("failed to create announcement", "error", err.Error())
		s.respondError(w, http.StatusInternalServerError, "failed to save announcement")
		return
	}
	s.respondJSON(w, http.StatusCreated, a)
}

func (s *Server) handleUpdateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req announcementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a := &core.Announcement{
		ID:        chi.URLParam(r, "id"),
		Title:     strings.TrimSpace(req.Title),
		Content:   strings.TrimSpace(req.Content),
		ImageURL:  strings.TrimSpace(req.ImageURL),
		ExpiresAt: req.ExpiresAt,
	}
	if err := s.db.UpdateAnnouncement(r.Context(), a); err != nil {
		s.respondStoreError(w, err, "failed to update announcement")
		return
	}
	s.respondJSON(w, http.StatusOK, a)
}

func (s *Server) handleDeleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteAnnouncement(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondStoreError(w, err, "failed to delete announcement")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleAdminListAreas includes inactive areas, unlike the public listing.
func (s *Server) handleAdminListAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := s.db.ListAreas(r.Context(), false)
	if err != nil {
		s.log.Error("failed to list areas", "error", err.Error())
		s.respondError(w, http.StatusInternalServerError, "failed to list areas")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"areas": areas})
}

type areaRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleCreateArea(w http.ResponseWriter, r *http.Request) {
	var req areaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	area := &core.CommunityArea{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
	}
	if err := s.db.CreateArea(r.Context(), area); err != nil {
		s.log.Error("failed to create area", "error", err.Error())
		s.respondError(w, http.StatusInternalServerError, "failed to save area")
		return
	}
	s.respondJSON(w, http.StatusCreated, area)
}

func (s *Server) handleUpdateArea(w http.ResponseWriter, r *http.Request) {
	var req areaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	area := &core.CommunityArea{
		ID:          chi.URLParam(r, "id"),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
	}
	if err := s.db.UpdateArea(r.Context(), area); err != nil {
		s.respondStoreError(w, err, "failed to update area")
		return
	}
	s.respondJSON(w, http.StatusOK, area)
}

func (s *Server) handleToggleArea(w http.ResponseWriter, r *http.Request) {
	if err := s.db.ToggleArea(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondStoreError(w, err, "failed to toggle area")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "toggled"})
}

func (s *Server) handleDeleteArea(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteArea(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondStoreError(w, err, "failed to delete area")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
