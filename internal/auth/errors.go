package auth

import "errors"

// Credential verification failures. Each one maps to a 401 response with a
// stable message, see Describe.
var (
	ErrMissingCredential = errors.New("authorization header missing or malformed")
	ErrCredentialExpired = errors.New("credential has expired")
	ErrCredentialInvalid = errors.New("credential is invalid")
	ErrPayloadIncomplete = errors.New("credential payload is incomplete")
	ErrSubjectNotFound   = errors.New("credential subject not found")
	ErrCredentialStale   = errors.New("credential issued for a previous email")
)

// ErrInvalidLogin is returned by the login flow for unknown emails and
// wrong passwords alike.
var ErrInvalidLogin = errors.New("invalid email or password")

// Failure is the client facing description of a verification error.
type Failure struct {
	Kind    string
	Message string
}

var failures = []struct {
	err     error
	failure Failure
}{
	{ErrMissingCredential, Failure{"missing_or_malformed", "Authorization token is missing or malformed"}},
	{ErrCredentialExpired, Failure{"expired", "Token has expired, please sign in again"}},
	{ErrCredentialInvalid, Failure{"invalid", "Invalid token"}},
	{ErrPayloadIncomplete, Failure{"payload_incomplete", "Invalid token payload"}},
	{ErrSubjectNotFound, Failure{"subject_not_found", "User not found"}},
	{ErrCredentialStale, Failure{"stale", "Token is no longer valid, please sign in again"}},
}

// Describe maps a verification error to its failure description. The
// second return value is false for errors outside the credential taxonomy,
// which callers must treat as internal errors.
func Describe(err error) (Failure, bool) {
	for _, f := range failures {
		if errors.Is(err, f.err) {
			return f.failure, true
		}
	}
	return Failure{}, false
}
