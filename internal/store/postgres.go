// Package store implements Postgres persistence for suggestions, users,
// engagement, and admin data.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // Postgres driver
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Options configures the connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store wraps the Postgres connection and exposes repository methods.
type Store struct {
	db *sql.DB
}

// New opens a Postgres connection and verifies it.
func New(connectionString string, opts Options) (*Store, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// DB exposes the underlying connection for collaborators that share it, such
// as the metrics recorder.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the schema idempotently.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			email TEXT UNIQUE NOT NULL,
			first_name TEXT,
			last_name TEXT,
			location TEXT,
			reputation_score INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS suggestions (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			category TEXT NOT NULL,
			summary TEXT,
			sentiment TEXT,
			is_anonymous BOOLEAN NOT NULL DEFAULT FALSE,
			contact_info TEXT,
			location TEXT,
			area TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			upvotes INTEGER NOT NULL DEFAULT 0,
			downvotes INTEGER NOT NULL DEFAULT 0,
			embedding_vector TEXT,
			author_id TEXT REFERENCES users(id),
			can_edit BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_suggestions_status ON suggestions(status)`,
		`CREATE INDEX IF NOT EXISTS idx_suggestions_category ON suggestions(category)`,
		`CREATE INDEX IF NOT EXISTS idx_suggestions_created_at ON suggestions(created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS comments (
			id TEXT PRIMARY KEY,
			suggestion_id TEXT NOT NULL REFERENCES suggestions(id) ON DELETE CASCADE,
			text TEXT NOT NULL,
			user_name TEXT NOT NULL DEFAULT 'Anonymous',
			user_id TEXT REFERENCES users(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_suggestion ON comments(suggestion_id)`,
		`CREATE TABLE IF NOT EXISTS votes (
			id TEXT PRIMARY KEY,
			suggestion_id TEXT NOT NULL REFERENCES suggestions(id) ON DELETE CASCADE,
			user_id TEXT REFERENCES users(id),
			vote_type TEXT NOT NULL,
			session_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (suggestion_id, session_id)
		)`,
		`CREATE TABLE IF NOT EXISTS bookmarks (
			id TEXT PRIMARY KEY,
			suggestion_id TEXT NOT NULL REFERENCES suggestions(id) ON DELETE CASCADE,
			user_id TEXT REFERENCES users(id),
			session_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (suggestion_id, session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bookmarks_session ON bookmarks(session_id)`,
		`CREATE TABLE IF NOT EXISTS status_history (
			id TEXT PRIMARY KEY,
			suggestion_id TEXT NOT NULL REFERENCES suggestions(id) ON DELETE CASCADE,
			status TEXT NOT NULL,
			notes TEXT,
			admin_response TEXT,
			changed_by TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS announcements (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			image_url TEXT,
			expires_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS community_areas (
			id TEXT PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			description TEXT,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ai_metrics (
			id TEXT PRIMARY KEY,
			operation TEXT NOT NULL,
			provider TEXT NOT NULL,
			success BOOLEAN NOT NULL DEFAULT TRUE,
			response_time DOUBLE PRECISION,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ai_metrics_created_at ON ai_metrics(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
