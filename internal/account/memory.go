package account

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var _ Repository = (*MemoryStore)(nil)

// MemoryStore keeps accounts in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*Account
	byEmail map[string]string
}

// NewMemoryStore creates an empty in-memory account store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*Account),
		byEmail: make(map[string]string),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create stores a copy of acc, assigning an ID when missing.
func (s *MemoryStore) Create(_ context.Context, acc Account) (*Account, error) {
	acc.Email = normalizeEmail(acc.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[acc.Email]; taken {
		return nil, ErrConflict
	}
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	acc.CreatedAt, acc.UpdatedAt = now, now

	stored := acc
	s.byID[acc.ID] = &stored
	s.byEmail[acc.Email] = acc.ID

	out := stored
	return &out, nil
}

// UpdateEmail changes the email of an existing account. Credentials issued
// for the previous email stop verifying afterwards.
func (s *MemoryStore) UpdateEmail(_ context.Context, id, email string) error {
	email = normalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if owner, taken := s.byEmail[email]; taken && owner != id {
		return ErrConflict
	}
	delete(s.byEmail, acc.Email)
	acc.Email = email
	acc.UpdatedAt = time.Now().UTC()
	s.byEmail[email] = id
	return nil
}

// Delete removes an account.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byEmail, acc.Email)
	delete(s.byID, id)
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *acc
	return &out, nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	out := *s.byID[id]
	return &out, nil
}
