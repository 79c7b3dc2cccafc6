// Package account defines the account record consumed by credential
// verification and the store contract it is looked up through.
package account

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no account matches the lookup key.
	ErrNotFound = errors.New("account not found")
	// ErrConflict is returned when an email is already taken.
	ErrConflict = errors.New("account email already in use")
)

// Role names used by the default access policy.
const (
	RoleAdmin          = "ADMIN"
	RoleContentManager = "CONTENT_MANAGER"
	RoleViewer         = "VIEWER"
)

// Account is a registered user as persisted by the account store.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Store resolves accounts. Implementations must be safe for concurrent use.
type Store interface {
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
}

// Repository is a Store that can also register accounts.
type Repository interface {
	Store
	Create(ctx context.Context, acc Account) (*Account, error)
}
