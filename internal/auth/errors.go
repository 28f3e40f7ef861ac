package auth

import "errors"

var (
	ErrNotFound      = errors.New("auth: not found")
	ErrAlreadyExists = errors.New("auth: already exists")
	ErrInvalidInput  = errors.New("auth: invalid input")

	// ErrAuthentication rejects a login. It never says which credential was wrong.
	ErrAuthentication = errors.New("auth: authentication failed")

	ErrTokenMalformed        = errors.New("auth: token malformed")
	ErrTokenInvalidSignature = errors.New("auth: token signature invalid")
	ErrTokenExpired          = errors.New("auth: token expired")

	// ErrPrincipalNotFound marks a token whose subject no longer exists.
	ErrPrincipalNotFound = errors.New("auth: principal not found")

	ErrAccessDenied = errors.New("auth: access denied")
)

// TokenFailureReason returns a short metric label for a token decode error.
func TokenFailureReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, ErrPrincipalNotFound):
		return "principal_not_found"
	default:
		return "other"
	}
}
