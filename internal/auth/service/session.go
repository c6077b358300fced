package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/medflow/medstock/internal/auth/jwt"
	"github.com/medflow/medstock/internal/auth/repository"
	apperrors "github.com/medflow/medstock/pkg/errors"
	"github.com/medflow/medstock/pkg/logger"
)

// SessionStore persists server-side session records
type SessionStore interface {
	Create(ctx context.Context, s *repository.Session) error
	Get(ctx context.Context, id string) (*repository.Session, error)
	Delete(ctx context.Context, id string) error
}

// IssuedSession is a freshly created session and its signed cookie value
type IssuedSession struct {
	ID        string
	Token     string
	ExpiresAt time.Time
}

// SessionManager issues, validates and destroys login sessions.
// A session lives for a fixed TTL from issue; validation never extends it.
type SessionManager struct {
	store  SessionStore
	tokens *jwt.Manager
	ttl    time.Duration
	now    func() time.Time
	logger *logger.Logger
}

// NewSessionManager creates a new session manager
func NewSessionManager(store SessionStore, tokens *jwt.Manager, ttl time.Duration, log *logger.Logger) *SessionManager {
	return &SessionManager{
		store:  store,
		tokens: tokens,
		ttl:    ttl,
		now:    time.Now,
		logger: log.WithComponent("sessions"),
	}
}

// Issue creates a new authenticated session with a fresh random identity
func (m *SessionManager) Issue(ctx context.Context) (*IssuedSession, error) {
	now := m.now()
	s := &repository.Session{
		ID:        uuid.NewString(),
		LoggedIn:  true,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	if err := m.store.Create(ctx, s); err != nil {
		return nil, err
	}

	token, err := m.tokens.Sign(s.ID, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		return nil, apperrors.Internal("failed to sign session")
	}

	return &IssuedSession{ID: s.ID, Token: token, ExpiresAt: s.ExpiresAt}, nil
}

// Validate resolves a cookie value to an authenticated session, or nil.
// Any failure along the way means the caller is anonymous.
func (m *SessionManager) Validate(ctx context.Context, token string) *repository.Session {
	if token == "" {
		return nil
	}

	id, err := m.tokens.Parse(token)
	if err != nil {
		m.logger.Debug().Err(err).Msg("rejected session token")
		return nil
	}

	s, err := m.store.Get(ctx, id)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrNotFound) {
			m.logger.Warn().Err(err).Msg("session lookup failed")
		}
		return nil
	}

	if !s.LoggedIn || s.Expired(m.now()) {
		return nil
	}
	return s
}

// Destroy removes the session behind a cookie value.
// Unparseable tokens have nothing to destroy and are ignored.
func (m *SessionManager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	id, err := m.tokens.Parse(token)
	if err != nil {
		return nil
	}

	return m.store.Delete(ctx, id)
}

// SessionCleaner purges expired sessions from a store
type SessionCleaner interface {
	CleanExpired(ctx context.Context) (int64, error)
}

// SessionJanitor periodically removes expired sessions
type SessionJanitor struct {
	cleaner  SessionCleaner
	interval time.Duration
	logger   *logger.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSessionJanitor creates a new session janitor
func NewSessionJanitor(cleaner SessionCleaner, interval time.Duration, log *logger.Logger) *SessionJanitor {
	return &SessionJanitor{
		cleaner:  cleaner,
		interval: interval,
		logger:   log.WithComponent("session-janitor"),
	}
}

// Start starts the janitor in a background goroutine
func (j *SessionJanitor) Start(ctx context.Context) {
	ctx, j.cancel = context.WithCancel(ctx)
	j.done = make(chan struct{})

	go func() {
		defer close(j.done)
		j.logger.Info().Dur("interval", j.interval).Msg("session janitor started")

		j.sweep(ctx)

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				j.logger.Info().Msg("session janitor stopped")
				return
			case <-ticker.C:
				j.sweep(ctx)
			}
		}
	}()
}

// Stop stops the janitor and waits for the current sweep to finish
func (j *SessionJanitor) Stop() {
	if j.cancel != nil {
		j.cancel()
		<-j.done
	}
}

func (j *SessionJanitor) sweep(ctx context.Context) {
	n, err := j.cleaner.CleanExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			j.logger.Error().Err(err).Msg("failed to purge expired sessions")
		}
		return
	}
	if n > 0 {
		j.logger.Info().Int64("purged", n).Msg("purged expired sessions")
	}
}
