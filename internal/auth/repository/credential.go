package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/medflow/medstock/pkg/config"
	"github.com/medflow/medstock/pkg/database"
	"github.com/medflow/medstock/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

const adminPasswordKey = "admin_password"

// CredentialRepository persists the single admin password hash in the settings table
type CredentialRepository struct {
	db              *database.DB
	defaultPassword string
	cost            int
	logger          *logger.Logger
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db *database.DB, cfg *config.AuthConfig, log *logger.Logger) *CredentialRepository {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &CredentialRepository{
		db:              db,
		defaultPassword: cfg.DefaultPassword,
		cost:            cost,
		logger:          log,
	}
}

// GetPasswordHash returns the stored hash, seeding it from the default password
// when no row exists yet.
func (r *CredentialRepository) GetPasswordHash(ctx context.Context) (string, error) {
	hash, err := r.readHash(ctx)
	if err == nil {
		return hash, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to read password hash: %w", err)
	}

	return r.bootstrap(ctx)
}

// SetPasswordHash replaces the stored hash
func (r *CredentialRepository) SetPasswordHash(ctx context.Context, hash string) error {
	query := `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`

	if _, err := r.db.ExecContext(ctx, query, adminPasswordKey, hash); err != nil {
		return fmt.Errorf("failed to store password hash: %w", err)
	}
	return nil
}

func (r *CredentialRepository) readHash(ctx context.Context) (string, error) {
	var hash string
	err := r.db.GetContext(ctx, &hash, `SELECT value FROM settings WHERE key = $1`, adminPasswordKey)
	return hash, err
}

// bootstrap inserts the default hash unless another writer got there first,
// then re-reads so every caller sees the same row.
func (r *CredentialRepository) bootstrap(ctx context.Context) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(r.defaultPassword), r.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash default password: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`,
		adminPasswordKey, string(hash))
	if err != nil {
		return "", fmt.Errorf("failed to seed default password: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 1 {
		r.logger.Info().Msg("default admin password set")
	}

	stored, err := r.readHash(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read password hash: %w", err)
	}
	return stored, nil
}
