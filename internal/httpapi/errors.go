package httpapi

import (
	"encoding/xml"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ludwingperezt/mobileappws/internal/audit"
	"github.com/ludwingperezt/mobileappws/internal/auth"
	"github.com/ludwingperezt/mobileappws/internal/obs"
)

type errorMessage struct {
	XMLName   xml.Name  `json:"-" xml:"ErrorMessage"`
	Timestamp time.Time `json:"timestamp" xml:"timestamp"`
	Message   string    `json:"message" xml:"message"`
}

// genericErrorMessage is the body of every 500. It never carries error details.
type genericErrorMessage struct {
	XMLName   xml.Name  `json:"-" xml:"GenericErrorMessage"`
	Timestamp time.Time `json:"timestamp" xml:"timestamp"`
	Status    int       `json:"status" xml:"status"`
	Error     string    `json:"error" xml:"error"`
	Message   string    `json:"message" xml:"message"`
	Path      string    `json:"path" xml:"path"`
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	if code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="mobileappws"`)
	}
	respond(w, r, code, errorMessage{Timestamp: time.Now().UTC(), Message: msg})
}

func writeInternal(w http.ResponseWriter, r *http.Request, err error) {
	obs.Logger().ErrorContext(r.Context(), "request failed",
		slog.String("request_id", audit.RequestIDFromContext(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	respond(w, r, http.StatusInternalServerError, genericErrorMessage{
		Timestamp: time.Now().UTC(),
		Status:    http.StatusInternalServerError,
		Error:     http.StatusText(http.StatusInternalServerError),
		Message:   "internal error",
		Path:      r.URL.Path,
	})
}

// writeServiceError maps domain errors onto status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, publicMessage(err))
	case errors.Is(err, auth.ErrAuthentication):
		writeError(w, r, http.StatusUnauthorized, "authentication failed")
	case errors.Is(err, auth.ErrAccessDenied):
		writeError(w, r, http.StatusForbidden, "access denied")
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, publicMessage(err))
	case errors.Is(err, auth.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, publicMessage(err))
	default:
		writeInternal(w, r, err)
	}
}

func publicMessage(err error) string {
	return strings.TrimPrefix(err.Error(), "auth: ")
}
