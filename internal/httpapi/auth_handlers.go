package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/ludwingperezt/mobileappws/internal/audit"
	"github.com/ludwingperezt/mobileappws/internal/auth"
	"github.com/ludwingperezt/mobileappws/internal/obs"
)

const (
	userIDHeader = "UserID"
	loginFailed  = "authentication failed"
)

// handleLogin checks the credentials and returns the token in headers only.
// An unreadable body is rejected like bad credentials.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := decodeBody(r, &creds); err != nil {
		obs.LoginAttempt("rejected")
		_ = audit.LogEvent(r.Context(), "auth.login.failed", map[string]any{
			"reason": "unreadable body",
		})
		writeError(w, r, http.StatusUnauthorized, loginFailed)
		return
	}

	session, err := a.authn.Login(r.Context(), creds)
	if err != nil {
		if errors.Is(err, auth.ErrAuthentication) {
			obs.LoginAttempt("rejected")
			_ = audit.LogEvent(r.Context(), "auth.login.failed", map[string]any{
				"email": auth.NormalizeEmail(creds.Email),
			})
			writeError(w, r, http.StatusUnauthorized, loginFailed)
			return
		}
		obs.LoginAttempt("error")
		writeInternal(w, r, err)
		return
	}

	obs.LoginAttempt("success")
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id":    session.UserID,
		"expires_at": session.ExpiresAt.Format(time.RFC3339),
	})

	w.Header().Set(authHeader, bearer+session.Token)
	w.Header().Set(userIDHeader, session.UserID)
	w.WriteHeader(http.StatusOK)
}
