package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/neogan74/catalog/internal/account"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAccount() *account.Account {
	return &account.Account{ID: "u-1", Email: "cm@example.com", Role: account.RoleContentManager, Name: "Casey"}
}

func TestTokenService_IssueAndParse(t *testing.T) {
	svc := NewTokenService("test-secret", 15*time.Minute, "catalog")

	token, expiresAt, err := svc.Issue(testAccount())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 2*time.Second)

	claims, err := svc.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "cm@example.com", claims.Email)
	assert.Equal(t, account.RoleContentManager, claims.Role)
	assert.Equal(t, "Casey", claims.Name)
	assert.Equal(t, "u-1", claims.Subject)
	assert.NotNil(t, claims.IssuedAt)
}

func TestTokenService_Expired(t *testing.T) {
	svc := NewTokenService("test-secret", time.Minute, "catalog")
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := svc.Issue(testAccount())
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Parse(token)
	assert.ErrorIs(t, err, ErrCredentialExpired)
}

func TestTokenService_Invalid(t *testing.T) {
	svc := NewTokenService("test-secret", time.Minute, "catalog")
	other := NewTokenService("other-secret", time.Minute, "catalog")
	foreignIssuer := NewTokenService("test-secret", time.Minute, "someone-else")

	signedElsewhere, _, err := other.Issue(testAccount())
	require.NoError(t, err)
	wrongIssuer, _, err := foreignIssuer.Issue(testAccount())
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u-1", Email: "cm@example.com"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"wrong secret", signedElsewhere},
		{"wrong issuer", wrongIssuer},
		{"alg none", unsigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Parse(tt.token)
			assert.ErrorIs(t, err, ErrCredentialInvalid)
		})
	}
}

func TestTokenService_ExpiredWithWrongSignatureIsInvalid(t *testing.T) {
	svc := NewTokenService("test-secret", time.Minute, "catalog")
	other := NewTokenService("other-secret", time.Minute, "catalog")
	other.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, _, err := other.Issue(testAccount())
	require.NoError(t, err)

	_, err = svc.Parse(token)
	assert.ErrorIs(t, err, ErrCredentialInvalid)
}
