package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/moscooltech/suggest-ila2/internal/core"
	"github.com/moscooltech/suggest-ila2/internal/logger"
)

// ListOptions filters and orders suggestion listings.
type ListOptions struct {
	Status   string
	Category string
	Area     string
	Sort     string // "new" (default) or "top"
	Limit    int
	Offset   int
}

const suggestionColumns = `id, text, category, summary, sentiment, is_anonymous, contact_info,
	location, area, status, upvotes, downvotes, embedding_vector, author_id, can_edit,
	created_at, updated_at`

// CreateSuggestion inserts a new suggestion, assigning an ID and timestamps.
func (s *Store) CreateSuggestion(ctx context.Context, sugg *core.Suggestion) error {
	if sugg.ID == "" {
		sugg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sugg.CreatedAt = now
	sugg.UpdatedAt = now
	if sugg.Status == "" {
		sugg.Status = core.StatusPending
	}
	sugg.CanEdit = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suggestions (id, text, category, summary, sentiment, is_anonymous,
			contact_info, location, area, status, upvotes, downvotes, embedding_vector,
			author_id, can_edit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, 0, $11, $12, $13, $14, $15)`,
		sugg.ID, sugg.Text, string(sugg.Category), sugg.Summary, string(sugg.Sentiment),
		sugg.IsAnonymous, nullString(sugg.ContactInfo), nullString(sugg.Location),
		nullString(sugg.Area), sugg.Status, encodeEmbedding(sugg.Embedding),
		nullString(sugg.AuthorID), sugg.CanEdit, sugg.CreatedAt, sugg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create suggestion: %w", err)
	}
	return nil
}

// GetSuggestion retrieves a suggestion by ID.
func (s *Store) GetSuggestion(ctx context.Context, id string) (*core.Suggestion, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+suggestionColumns+` FROM suggestions WHERE id = $1`, id)
	return scanSuggestion(row)
}

// ListSuggestions retrieves suggestions matching opts.
func (s *Store) ListSuggestions(ctx context.Context, opts ListOptions) ([]core.Suggestion, error) {
	var conditions []string
	var args []any

	addCondition := func(column, value string) {
		if value != "" {
			args = append(args, value)
			conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
		}
	}
	addCondition("status", opts.Status)
	addCondition("category", opts.Category)
	addCondition("area", opts.Area)

	query := `SELECT ` + suggestionColumns + ` FROM suggestions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	if opts.Sort == "top" {
		query += " ORDER BY (upvotes - downvotes) DESC, created_at DESC"
	} else {
		query += " ORDER BY created_at DESC"
	}
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list suggestions: %w", err)
	}
	defer rows.Close()
	return scanSuggestions(rows)
}

// RecentCandidates supplies the duplicate resolver with the most recent
// pending and approved suggestions, newest first, embeddings included.
func (s *Store) RecentCandidates(ctx context.Context, limit int) ([]core.Suggestion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+suggestionColumns+`
		FROM suggestions
		WHERE status IN ($1, $2)
		ORDER BY created_at DESC
		LIMIT $3`,
		core.StatusPending, core.StatusApproved, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	defer rows.Close()
	return scanSuggestions(rows)
}

// UpdateSuggestionText applies an author edit with its reclassified fields.
func (s *Store) UpdateSuggestionText(ctx context.Context, sugg *core.Suggestion) error {
	sugg.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE suggestions
		SET text = $1, category = $2, summary = $3, sentiment = $4,
		    embedding_vector = $5, updated_at = $6
		WHERE id = $7`,
		sugg.Text, string(sugg.Category), sugg.Summary, string(sugg.Sentiment),
		encodeEmbedding(sugg.Embedding), sugg.UpdatedAt, sugg.ID)
	if err != nil {
		return fmt.Errorf("failed to update suggestion: %w", err)
	}
	return requireRow(res)
}

// ChangeStatus transitions a suggestion and appends a status-history row.
// Editing is locked once a suggestion leaves pending.
func (s *Store) ChangeStatus(ctx context.Context, change *core.StatusChange) error {
	if !core.ValidStatus(change.Status) {
		return fmt.Errorf("invalid status: %s", change.Status)
	}
	if change.ID == "" {
		change.ID = uuid.NewString()
	}
	change.CreatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer rollback(tx)

	res, err := tx.ExecContext(ctx, `
		UPDATE suggestions
		SET status = $1, can_edit = ($1 = $2), updated_at = $3
		WHERE id = $4`,
		change.Status, core.StatusPending, change.CreatedAt, change.SuggestionID)
	if err != nil {
		return fmt.Errorf("failed to change status: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO status_history (id, suggestion_id, status, notes, admin_response, changed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		change.ID, change.SuggestionID, change.Status, nullString(change.Notes),
		nullString(change.AdminResponse), nullString(change.ChangedBy), change.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record status change: %w", err)
	}

	return tx.Commit()
}

// StatusHistory lists a suggestion's status transitions, oldest first.
func (s *Store) StatusHistory(ctx context.Context, suggestionID string) ([]core.StatusChange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, suggestion_id, status, COALESCE(notes, ''), COALESCE(admin_response, ''),
		       COALESCE(changed_by, ''), created_at
		FROM status_history
		WHERE suggestion_id = $1
		ORDER BY created_at`, suggestionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load status history: %w", err)
	}
	defer rows.Close()

	var history []core.StatusChange
	for rows.Next() {
		var c core.StatusChange
		if err := rows.Scan(&c.ID, &c.SuggestionID, &c.Status, &c.Notes, &c.AdminResponse, &c.ChangedBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, c)
	}
	return history, rows.Err()
}

// MergeSuggestions folds a duplicate suggestion into target: votes and
// comments move over, vote counts are recomputed, and the duplicate is
// deleted.
func (s *Store) MergeSuggestions(ctx context.Context, duplicateID, targetID string) error {
	if duplicateID == targetID {
		return fmt.Errorf("cannot merge a suggestion into itself")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer rollback(tx)

	// Move votes, dropping any that would collide with an existing vote by
	// the same session on the target.
	_, err = tx.ExecContext(ctx, `
		UPDATE votes SET suggestion_id = $1
		WHERE suggestion_id = $2
		  AND session_id NOT IN (SELECT session_id FROM votes WHERE suggestion_id = $1)`,
		targetID, duplicateID)
	if err != nil {
		return fmt.Errorf("failed to move votes: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE comments SET suggestion_id = $1 WHERE suggestion_id = $2`,
		targetID, duplicateID); err != nil {
		return fmt.Errorf("failed to move comments: %w", err)
	}

	if err := recountVotes(ctx, tx, targetID); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM suggestions WHERE id = $1`, duplicateID)
	if err != nil {
		return fmt.Errorf("failed to delete duplicate: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	return tx.Commit()
}

// CountSuggestionsByStatus returns counts per status for the admin
// dashboard.
func (s *Store) CountSuggestionsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM suggestions GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSuggestion(row rowScanner) (*core.Suggestion, error) {
	var sugg core.Suggestion
	var summary, sentiment, contactInfo, location, area, embedding, authorID sql.NullString
	var category string

	err := row.Scan(&sugg.ID, &sugg.Text, &category, &summary, &sentiment,
		&sugg.IsAnonymous, &contactInfo, &location, &area, &sugg.Status,
		&sugg.Upvotes, &sugg.Downvotes, &embedding, &authorID, &sugg.CanEdit,
		&sugg.CreatedAt, &sugg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan suggestion: %w", err)
	}

	sugg.Category = core.Category(category)
	sugg.Summary = summary.String
	sugg.Sentiment = core.Sentiment(sentiment.String)
	sugg.ContactInfo = contactInfo.String
	sugg.Location = location.String
	sugg.Area = area.String
	sugg.AuthorID = authorID.String
	sugg.Embedding = decodeEmbedding(embedding.String)
	return &sugg, nil
}

func scanSuggestions(rows *sql.Rows) ([]core.Suggestion, error) {
	var out []core.Suggestion
	for rows.Next() {
		sugg, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sugg)
	}
	return out, rows.Err()
}

// encodeEmbedding stores the vector as a JSON array string, empty vectors as
// NULL.
func encodeEmbedding(v []float64) sql.NullString {
	if len(v) == 0 {
		return sql.NullString{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(data), Valid: true}
}

func decodeEmbedding(raw string) []float64 {
	if raw == "" {
		return nil
	}
	var v []float64
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		logger.Warn("failed to decode stored embedding", "error", err.Error())
		return nil
	}
	return v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func rollback(tx *sql.Tx) {
	_ = tx.Rollback()
}

func recountVotes(ctx context.Context, tx *sql.Tx, suggestionID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE suggestions SET
			upvotes = (SELECT COUNT(*) FROM votes WHERE suggestion_id = $1 AND vote_type = $2),
			downvotes = (SELECT COUNT(*) FROM votes WHERE suggestion_id = $1 AND vote_type = $3)
		WHERE id = $1`,
		suggestionID, core.VoteUp, core.VoteDown)
	if err != nil {
		return fmt.Errorf("failed to recount votes: %w", err)
	}
	return nil
}
