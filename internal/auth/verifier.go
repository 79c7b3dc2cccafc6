package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neogan74/catalog/internal/account"
)

// Verifier turns an Authorization header into a live Identity.
type Verifier struct {
	tokens   *TokenService
	accounts account.Store
}

func NewVerifier(tokens *TokenService, accounts account.Store) *Verifier {
	return &Verifier{tokens: tokens, accounts: accounts}
}

// Verify checks, in order: header shape, signature and expiry, payload
// completeness, that the subject still exists, and that the subject's
// current email equals the one the credential was issued for.
//
// Errors outside the credential taxonomy (see Describe) come from the
// account store and must be reported as internal failures.
func (v *Verifier) Verify(ctx context.Context, header string) (*Identity, error) {
	token, err := bearerToken(header)
	if err != nil {
		return nil, err
	}

	claims, err := v.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	if claims.UserID == "" || claims.Email == "" {
		return nil, ErrPayloadIncomplete
	}

	acc, err := v.accounts.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrSubjectNotFound
		}
		return nil, fmt.Errorf("resolve credential subject: %w", err)
	}

	if acc.Email != claims.Email {
		return nil, ErrCredentialStale
	}

	return &Identity{
		ID:    acc.ID,
		Email: acc.Email,
		Role:  acc.Role,
		Name:  acc.Name,
	}, nil
}

func bearerToken(header string) (string, error) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrMissingCredential
	}
	return parts[1], nil
}
