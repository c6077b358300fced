package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/medflow/medstock/pkg/database"
	apperrors "github.com/medflow/medstock/pkg/errors"
)

// Session is the server-side record behind a session cookie
type Session struct {
	ID        string    `db:"-" json:"-"`
	LoggedIn  bool      `db:"logged_in" json:"logged_in"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// PostgresSessionStore persists sessions in the sessions table.
// Rows are keyed by the SHA-256 of the session ID so a leaked table
// cannot be replayed as cookies.
type PostgresSessionStore struct {
	db *database.DB
}

// NewPostgresSessionStore creates a new Postgres-backed session store
func NewPostgresSessionStore(db *database.DB) *PostgresSessionStore {
	return &PostgresSessionStore{db: db}
}

// Create stores a new session
func (r *PostgresSessionStore) Create(ctx context.Context, s *Session) error {
	query := `
		INSERT INTO sessions (id_hash, logged_in, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.db.ExecContext(ctx, query, hashID(s.ID), s.LoggedIn, s.CreatedAt, s.ExpiresAt); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Get returns an unexpired session or NotFound
func (r *PostgresSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	var s Session
	query := `
		SELECT logged_in, created_at, expires_at
		FROM sessions
		WHERE id_hash = $1 AND expires_at > NOW()
	`

	if err := r.db.GetContext(ctx, &s, query, hashID(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("session")
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	s.ID = id
	return &s, nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (r *PostgresSessionStore) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id_hash = $1`, hashID(id)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// CleanExpired removes expired sessions and returns how many were purged
func (r *PostgresSessionStore) CleanExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to clean expired sessions: %w", err)
	}
	return result.RowsAffected()
}

// Health reports the store's reachability
func (r *PostgresSessionStore) Health(ctx context.Context) map[string]string {
	status := r.db.Health(ctx)
	status["store"] = "postgres"
	return status
}

func hashID(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}
