package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neogan74/catalog/internal/account"
)

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Identity  Identity
}

// Authenticator exchanges email and password for a signed credential.
type Authenticator struct {
	tokens   *TokenService
	accounts account.Store
}

func NewAuthenticator(tokens *TokenService, accounts account.Store) *Authenticator {
	return &Authenticator{tokens: tokens, accounts: accounts}
}

func (a *Authenticator) Login(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidLogin
	}

	acc, err := a.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrInvalidLogin
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if err := CheckPassword(acc.PasswordHash, password); err != nil {
		return nil, err
	}

	token, expiresAt, err := a.tokens.Issue(acc)
	if err != nil {
		return nil, fmt.Errorf("issue credential: %w", err)
	}

	return &Session{
		Token:     token,
		ExpiresAt: expiresAt,
		Identity:  Identity{ID: acc.ID, Email: acc.Email, Role: acc.Role, Name: acc.Name},
	}, nil
}
