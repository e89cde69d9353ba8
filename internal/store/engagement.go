package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/moscooltech/suggest-ila2/internal/core"
)

// CreateComment inserts a comment on a suggestion.
func (s *Store) CreateComment(ctx context.Context, comment *core.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.UserName == "" {
		comment.UserName = "Anonymous"
	}
	comment.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, suggestion_id, text, user_name, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		comment.ID, comment.SuggestionID, comment.Text, comment.UserName,
		nullString(comment.UserID), comment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// ListComments returns a suggestion's comments, oldest first.
func (s *Store) ListComments(ctx context.Context, suggestionID string) ([]core.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, suggestion_id, text, user_name, COALESCE(user_id, ''), created_at
		FROM comments
		WHERE suggestion_id = $1
		ORDER BY created_at`, suggestionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []core.Comment
	for rows.Next() {
		var c core.Comment
		if err := rows.Scan(&c.ID, &c.SuggestionID, &c.Text, &c.UserName, &c.UserID, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// CastVote applies an up/down vote for a session: a repeated same-direction
// vote is removed (toggle), an opposite vote switches direction. Returns the
// suggestion with refreshed counts.
func (s *Store) CastVote(ctx context.Context, suggestionID, sessionID, userID, voteType string) (*core.Suggestion, error) {
	if voteType != core.VoteUp && voteType != core.VoteDown {
		return nil, fmt.Errorf("invalid vote type: %s", voteType)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer rollback(tx)

	var existingID, existingType string
	err = tx.QueryRowContext(ctx,
		`SELECT id, vote_type FROM votes WHERE suggestion_id = $1 AND session_id = $2`,
		suggestionID, sessionID).Scan(&existingID, &existingType)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO votes (id, suggestion_id, user_id, vote_type, session_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.NewString(), suggestionID, nullString(userID), voteType, sessionID, time.Now().UTC())
	case err != nil:
		return nil, fmt.Errorf("failed to look up vote: %w", err)
	case existingType == voteType:
		// Toggle off.
		_, err = tx.ExecContext(ctx, `DELETE FROM votes WHERE id = $1`, existingID)
	default:
		// Switch direction.
		_, err = tx.ExecContext(ctx, `UPDATE votes SET vote_type = $1 WHERE id = $2`, voteType, existingID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to apply vote: %w", err)
	}

	if err := recountVotes(ctx, tx, suggestionID); err != nil {
		return nil, err
	}

	sugg, err := scanSuggestion(tx.QueryRowContext(ctx,
		`SELECT `+suggestionColumns+` FROM suggestions WHERE id = $1`, suggestionID))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return sugg, nil
}

// ToggleBookmark adds a bookmark for a session, or removes it when one
// already exists. Returns whether the suggestion ends up bookmarked.
func (s *Store) ToggleBookmark(ctx context.Context, suggestionID, sessionID, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE suggestion_id = $1 AND session_id = $2`,
		suggestionID, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to toggle bookmark: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, nil
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bookmarks (id, suggestion_id, user_id, session_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), suggestionID, nullString(userID), sessionID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to create bookmark: %w", err)
	}
	return true, nil
}

// ListBookmarked returns the suggestions a session has bookmarked, newest
// suggestion first.
func (s *Store) ListBookmarked(ctx context.Context, sessionID string) ([]core.Suggestion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+suggestionColumns+` FROM suggestions
		WHERE id IN (SELECT suggestion_id FROM bookmarks WHERE session_id = $1)
		ORDER BY created_at DESC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	defer rows.Close()
	return scanSuggestions(rows)
}
