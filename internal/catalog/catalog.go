// Package catalog is the resource collection the audited routes operate on.
package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("resource not found")
	ErrInvalid  = errors.New("resource name is required")
)

// Resource is one catalog entry.
type Resource struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Input carries the mutable fields of a resource.
type Input struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (in Input) normalize() (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return in, ErrInvalid
	}
	return in, nil
}

// Store keeps resources in memory.
type Store struct {
	mu    sync.RWMutex
	items map[string]Resource
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{
		items: make(map[string]Resource),
		now:   time.Now,
	}
}

// List returns every resource, oldest first.
func (s *Store) List(_ context.Context) []Resource {
	s.mu.RLock()
	out := make([]Resource, 0, len(s.items))
	for _, r := range s.items {
		out = append(out, r)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *Store) Get(_ context.Context, id string) (Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.items[id]
	if !ok {
		return Resource{}, ErrNotFound
	}
	return r, nil
}

// Create adds a resource owned by createdBy.
func (s *Store) Create(_ context.Context, in Input, createdBy string) (Resource, error) {
	in, err := in.normalize()
	if err != nil {
		return Resource{}, err
	}

	now := s.now().UTC()
	r := Resource{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	s.items[r.ID] = r
	s.mu.Unlock()
	return r, nil
}

func (s *Store) Update(_ context.Context, id string, in Input) (Resource, error) {
	in, err := in.normalize()
	if err != nil {
		return Resource{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.items[id]
	if !ok {
		return Resource{}, ErrNotFound
	}
	r.Name = in.Name
	r.Description = in.Description
	r.UpdatedAt = s.now().UTC()
	s.items[id] = r
	return r, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	return nil
}
