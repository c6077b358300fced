package service

import (
	"context"
	"errors"
	"sync"

	"github.com/medflow/medstock/internal/auth/repository"
	apperrors "github.com/medflow/medstock/pkg/errors"
)

type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]repository.Session
	getErr   error
	deleted  []string
	cleaned  int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: map[string]repository.Session{}}
}

func (m *memoryStore) Create(_ context.Context, s *repository.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *memoryStore) Get(_ context.Context, id string) (*repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil, apperrors.NotFound("session")
	}
	return &s, nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memoryStore) CleanExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleaned++
	return 0, nil
}

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *memoryStore) sweeps() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleaned
}

type memoryCredentials struct {
	hash   string
	getErr error
}

func (m *memoryCredentials) GetPasswordHash(context.Context) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	if m.hash == "" {
		return "", errors.New("no hash")
	}
	return m.hash, nil
}

func (m *memoryCredentials) SetPasswordHash(_ context.Context, hash string) error {
	m.hash = hash
	return nil
}
