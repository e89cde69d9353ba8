package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/moscooltech/suggest-ila2/internal/core"
	"github.com/moscooltech/suggest-ila2/internal/store"
)

const maxSuggestionLength = 4000

type submitSuggestionRequest struct {
	Text        string `json:"text"`
	IsAnonymous bool   `json:"is_anonymous"`
	ContactInfo string `json:"contact_info"`
	Location    string `json:"location"`
	Area        string `json:"area"`
	AuthorID    string `json:"author_id"`
}

// handleSubmitSuggestion runs the AI pipeline on the submitted text. A
// detected duplicate returns 409 with the existing suggestion instead of
// creating a new one.
func (s *Server) handleSubmitSuggestion(w http.ResponseWriter, r *http.Request) {
	var req submitSuggestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}
	if len(text) > maxSuggestionLength {
		s.respondError(w, http.StatusBadRequest, "text exceeds maximum length")
		return
	}

	ctx := r.Context()

	// A candidate load failure degrades to no duplicate checking rather
	// than rejecting the submission.
	candidates, err := s.db.RecentCandidates(ctx, s.candidateLimit)
	if err != nil {
		s.log.Warn("failed to load duplicate candidates", "error", err.Error())
		candidates = nil
	}

	result := s.pipe.Process(ctx, s.probe.Snapshot(), text, candidates)
	if result.Duplicate != nil {
		s.respondJSON(w, http.StatusConflict, map[string]any{
			"error":     "a similar suggestion already exists",
			"duplicate": result.Duplicate,
		})
		return
	}

	sugg := &core.Suggestion{
		Text:        text,
		Category:    result.Category,
		Summary:     result.Summary,
		Sentiment:   result.Sentiment,
		Embedding:   result.Embedding,
		IsAnonymous: req.IsAnonymous,
		ContactInfo: strings.TrimSpace(req.ContactInfo),
		Location:    strings.TrimSpace(req.Location),
		Area:        strings.TrimSpace(req.Area),
		AuthorID:    req.AuthorID,
	}
	if err := s.db.CreateSuggestion(ctx, sugg); err != nil {
		s.log.Error("failed to create suggestion", "error", err.Error())
		s.respondError(w, http.StatusInternalServerError, "failed to save suggestion")
		return
	}

	s.respondJSON(w, http.StatusCreated, sugg)
}

func (s *Server) handleListSuggestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := store.ListOptions{
		Status:   q.Get("status"),
		Category: q.Get("category"),
		Area:     q.Get("area"),
		Sort:     q.Get("sort"),
		Limit:    queryInt(q.Get("limit"), 50),
		Offset:   queryInt(q.Get("offset"), 0),
	}
	if opts.Status != "" && !core.ValidStatus(opts.Status) {
		s.respondError(w, http.StatusBadRequest, "unknown status")
		return
	}
	if opts.Category != "" && !core.ValidCategory(opts.Category) {
		s.respondError(w, http.StatusBadRequest, "unknown category")
		return
	}

	suggestions, err := s.db.ListSuggestions(r.Context(), opts)
	if err != nil {
		s.log.Error("failed to list suggestions", "error", err.Error())
		s.respondError(w, http.StatusInternalServerError, "failed to list suggestions")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"suggestions": suggestions,
		"count":       len(suggestions),
	})
}

func (s *Server) handleGetSuggestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sugg, err := s.db.GetSuggestion(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err, "failed to load suggestion")
		return
	}

	comments, err := s.db.ListComments(r.Context(), id)
	if err != nil {
		s.log.Warn("failed to load comments", "suggestion_id", id, "error", err.Error())
		comments = nil
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"suggestion": sugg,
		"comments":   comments,
	})
}

type editSuggestionRequest struct {
	Text string `json:"text"`
}

// handleEditSuggestion lets the author rewrite the text while the suggestion
// is still pending. The edit re-runs classification but not duplicate
// resolution.
func (s *Server) handleEditSuggestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req editSuggestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}
	if len(text) > maxSuggestionLength {
		s.respondError(w, http.StatusBadRequest, "text exceeds maximum length")
		return
	}

	ctx := r.Context()
	sugg, err := s.db.GetSuggestion(ctx, id)
	if err != nil {
		s.respondStoreError(w, err, "failed to load suggestion")
		return
	}
	if !sugg.CanEdit || sugg.Status != core.StatusPending {
		s.respondError(w, http.StatusConflict, "suggestion can no longer be edited")
		return
	}

	result := s.pipe.Reclassify(ctx, s.probe.Snapshot(), text)
	sugg.Text = text
	sugg.Category = result.Category
	sugg.Summary = result.Summary
	sugg.Sentiment = result.Sentiment
	sugg.Embedding = result.Embedding

	if err := s.db.UpdateSuggestionText(ctx, sugg); err != nil {
		s.respondStoreError(w, err, "failed to update suggestion")
		return
	}
	s.respondJSON(w, http.StatusOK, sugg)
}

type voteRequest struct {
	Direction string `json:"direction"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

// handleVote casts, toggles, or switches a vote. Repeating the same
// direction removes the vote; the opposite direction replaces it.
func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Direction != core.VoteUp && req.Direction != core.VoteDown {
		s.respondError(w, http.StatusBadRequest, "direction must be up or down")
		return
	}
	if req.SessionID == "" {
		s.respondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	sugg, err := s.db.CastVote(r.Context(), id, req.SessionID, req.UserID, req.Direction)
	if err != nil {
		s.respondStoreError(w, err, "failed to record vote")
		return
	}
	s.respondJSON(w, http.StatusOK, sugg)
}

type createCommentRequest struct {
	Text     string `json:"text"`
	UserName string `json:"user_name"`
	UserID   string `json:"user_id"`
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req createCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	// Ensure the suggestion exists before attaching a comment.
	if _, err := s.db.GetSuggestion(r.Context(), id); err != nil {
		s.respondStoreError(w, err, "failed to load suggestion")
		return
	}

	comment := &core.Comment{
		SuggestionID: id,
		Text:         text,
		UserName:     strings.TrimSpace(req.UserName),
		UserID:       req.UserID,
	}
	if err := s.db.CreateComment(r.Context(), comment); err != nil {
		s.log.Error("failed to create comment", "error", err.Error())
		s.respondError(w, http.StatusInternalServerError, "failed to save comment")
		return
	}
	s.respondJSON(w, http.StatusCreated, comment)
}

type bookmarkRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

// handleToggleBookmark bookmarks a suggestion for a session; a repeat call
// removes the bookmark.
func (s *Server) handleToggleBookmark(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req bookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		s.respondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	if _, err := s.db.GetSuggestion(r.Context(), id); err != nil {
		s.respondStoreError(w, err, "failed to load suggestion")
		return
	}

	bookmarked, err := s.db.ToggleBookmark(r.Context(), id, req.SessionID, req.UserID)
	if err != nil {
		s.respondStoreError(w, err, "failed to toggle bookmark")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"bookmarked": bookmarked})
}

func (s *Server) handleListBookmarks(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		s.respondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	suggestions, err := s.db.ListBookmarked(r.Context(), sessionID)
	if err != nil {
		s.log.Error("failed to list bookmarks", "error", err.Error())
		s.respondError(w, http.StatusInternalServerError, "failed to list bookmarks")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"suggestions": suggestions,
		"count":       len(suggestions),
	})
}

func (s *Server) handleListAnnouncements(w http.ResponseWriter, r *http.Request) {
	announcements, err := s.db.ListAnnouncements(r.Context(), true)
	if err != nil {
		s.log.Error("failed to list announcements", "error", err.Error())
		s.respondError(w, http.StatusInternalServerError, "failed to list announcements")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"announcements": announcements})
}

func (s *Server) handleListAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := s.db.ListAreas(r.Context(), true)
	if err != nil {
		s.log.Error("failed to list areas", "error", err.Error())
		s.respondError(w, http.StatusInternalServerError, "failed to list areas")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"areas": areas})
}

// respondStoreError maps store.ErrNotFound to 404 and everything else to 500.
func (s *Server) respondStoreError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, store.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "not found")
		return
	}
	s.log.Error(message, "error", err.Error())
	s.respondError(w, http.StatusInternalServerError, message)
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
