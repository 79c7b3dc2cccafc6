package auth

import (
	"context"
	"testing"
	"time"

	"github.com/neogan74/catalog/internal/account"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticator_Login(t *testing.T) {
	ctx := context.Background()
	store := account.NewMemoryStore()

	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	acc, err := store.Create(ctx, account.Account{Email: "admin@example.com", Role: account.RoleAdmin, Name: "Admin", PasswordHash: hash})
	require.NoError(t, err)

	tokens := NewTokenService("test-secret", time.Hour, "catalog")
	authn := NewAuthenticator(tokens, store)

	session, err := authn.Login(ctx, "admin@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, session.Identity.ID)

	identity, err := NewVerifier(tokens, store).Verify(ctx, "Bearer "+session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.Identity, *identity)
}

func TestAuthenticator_LoginFailures(t *testing.T) {
	ctx := context.Background()
	store := account.NewMemoryStore()
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	_, err = store.Create(ctx, account.Account{Email: "admin@example.com", PasswordHash: hash})
	require.NoError(t, err)

	authn := NewAuthenticator(NewTokenService("test-secret", time.Hour, "catalog"), store)

	for _, tc := range []struct{ email, password string }{
		{"admin@example.com", "wrong"},
		{"nobody@example.com", "s3cret"},
		{"", "s3cret"},
		{"admin@example.com", ""},
	} {
		_, err := authn.Login(ctx, tc.email, tc.password)
		assert.ErrorIs(t, err, ErrInvalidLogin)
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}
