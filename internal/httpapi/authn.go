package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ludwingperezt/mobileappws/internal/auth"
	"github.com/ludwingperezt/mobileappws/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var errNoBearer = errors.New("no bearer token")

// withAuthorization attaches the principal named by a valid bearer token.
// Requests without a usable token continue anonymously and the policy
// decides whether that is enough.
func (a *API) withAuthorization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := a.authn.Authenticate(r.Context(), token)
		if err != nil {
			if isTokenFailure(err) {
				reason := auth.TokenFailureReason(err)
				obs.TokenRejected(reason)
				a.logger.DebugContext(r.Context(), "bearer token ignored",
					slog.String("reason", reason),
					slog.String("path", r.URL.Path),
				)
				next.ServeHTTP(w, r)
				return
			}
			writeInternal(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), principal)))
	})
}

// enforcePolicy rejects requests the access policy does not allow.
func (a *API) enforcePolicy(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, _ := auth.PrincipalFromContext(r.Context())
		decision := a.policy.Evaluate(r.Method, r.URL.EscapedPath(), principal)
		obs.AccessDecision(decision.String())
		switch decision {
		case Allow:
			next.ServeHTTP(w, r)
		case Unauthenticated:
			writeError(w, r, http.StatusUnauthorized, "authentication required")
		default:
			writeError(w, r, http.StatusForbidden, "access denied")
		}
	})
}

func isTokenFailure(err error) bool {
	return errors.Is(err, auth.ErrTokenMalformed) ||
		errors.Is(err, auth.ErrTokenInvalidSignature) ||
		errors.Is(err, auth.ErrTokenExpired) ||
		errors.Is(err, auth.ErrPrincipalNotFound)
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, bearer) {
		return "", errNoBearer
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errNoBearer
	}
	return token, nil
}
