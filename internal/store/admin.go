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

// CreateUser inserts a user.
func (s *Store) CreateUser(ctx context.Context, user *core.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now().UTC()
	user.IsActive = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, first_name, last_name, location,
			reputation_score, is_active, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $9)`,
		user.ID, user.Username, user.Email, nullString(user.FirstName),
		nullString(user.LastName), nullString(user.Location),
		user.IsActive, user.IsAdmin, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByUsername retrieves a user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	var u core.User
	var firstName, lastName, location sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, first_name, last_name, location,
		       reputation_score, is_active, is_admin, created_at
		FROM users WHERE username = $1`, username).
		Scan(&u.ID, &u.Username, &u.Email, &firstName, &lastName, &location,
			&u.ReputationScore, &u.IsActive, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.FirstName = firstName.String
	u.LastName = lastName.String
	u.Location = location.String
	return &u, nil
}

// CreateAnnouncement inserts an announcement.
func (s *Store) CreateAnnouncement(ctx context.Context, a *core.Announcement) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO announcements (id, title, content, image_url, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.Title, a.Content, nullString(a.ImageURL), a.ExpiresAt, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create announcement: %w", err)
	}
	return nil
}

// UpdateAnnouncement updates title, content, image, and expiry.
func (s *Store) UpdateAnnouncement(ctx context.Context, a *core.Announcement) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE announcements SET title = $1, content = $2, image_url = $3, expires_at = $4
		WHERE id = $5`,
		a.Title, a.Content, nullString(a.ImageURL), a.ExpiresAt, a.ID)
	if err != nil {
		return fmt.Errorf("failed to update announcement: %w", err)
	}
	return requireRow(res)
}

// DeleteAnnouncement removes an announcement.
func (s *Store) DeleteAnnouncement(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete announcement: %w", err)
	}
	return requireRow(res)
}

// ListAnnouncements returns announcements, newest first. When activeOnly is
// set, expired ones are excluded.
func (s *Store) ListAnnouncements(ctx context.Context, activeOnly bool) ([]core.Announcement, error) {
	query := `SELECT id, title, content, COALESCE(image_url, ''), expires_at, created_at
		FROM announcements`
	if activeOnly {
		query += ` WHERE expires_at IS NULL OR expires_at > NOW()`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list announcements: %w", err)
	}
	defer rows.Close()

	var out []core.Announcement
	for rows.Next() {
		var a core.Announcement
		if err := rows.Scan(&a.ID, &a.Title, &a.Content, &a.ImageURL, &a.ExpiresAt, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateArea inserts a community area.
func (s *Store) CreateArea(ctx context.Context, area *core.CommunityArea) error {
	if area.ID == "" {
		area.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	area.CreatedAt = now
	area.UpdatedAt = now
	area.IsActive = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO community_areas (id, name, description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		area.ID, area.Name, nullString(area.Description), area.IsActive, area.CreatedAt, area.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create area: %w", err)
	}
	return nil
}

// UpdateArea updates an area's name and description.
func (s *Store) UpdateArea(ctx context.Context, area *core.CommunityArea) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE community_areas SET name = $1, description = $2, updated_at = $3
		WHERE id = $4`,
		area.Name, nullString(area.Description), time.Now().UTC(), area.ID)
	if err != nil {
		return fmt.Errorf("failed to update area: %w", err)
	}
	return requireRow(res)
}

// ToggleArea flips an area's active flag.
func (s *Store) ToggleArea(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE community_areas SET is_active = NOT is_active, updated_at = $1
		WHERE id = $2`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to toggle area: %w", err)
	}
	return requireRow(res)
}

// DeleteArea removes an area.
func (s *Store) DeleteArea(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM community_areas WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete area: %w", err)
	}
	return requireRow(res)
}

// ListAreas returns community areas by name. When activeOnly is set,
// inactive areas are excluded.
func (s *Store) ListAreas(ctx context.Context, activeOnly bool) ([]core.CommunityArea, error) {
	query := `SELECT id, name, COALESCE(description, ''), is_active, created_at, updated_at
		FROM community_areas`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list areas: %w", err)
	}
	defer rows.Close()

	var out []core.CommunityArea
	for rows.Next() {
		var a core.CommunityArea
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
