package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ludwingperezt/mobileappws/api/openapi"
	"github.com/ludwingperezt/mobileappws/internal/auth"
	"github.com/ludwingperezt/mobileappws/internal/obs"
	"github.com/ludwingperezt/mobileappws/internal/users"
)

const serviceName = "mobileappws"

// Pinger is anything that can report backend health, typically the store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe checks that the store answers.
type ReadyProbe struct {
	Store Pinger
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.Store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return rp.Store.Ping(ctx)
}

type readinessChecker interface {
	Check(ctx context.Context) error
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe readinessChecker
	version    string

	users  *users.Service
	authn  *auth.Authenticator
	policy *Policy
	logger *slog.Logger

	corsOrigins []string
	maxBody     int64
}

// Option configures the API.
type Option func(*API)

// WithPolicy replaces the default access policy.
func WithPolicy(p *Policy) Option {
	return func(a *API) {
		if p != nil {
			a.policy = p
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithCORSOrigins sets the browser origins allowed to call the API.
func WithCORSOrigins(origins []string) Option {
	return func(a *API) { a.corsOrigins = origins }
}

// WithMaxBodyBytes caps request bodies. Zero disables the cap.
func WithMaxBodyBytes(n int64) Option {
	return func(a *API) { a.maxBody = n }
}

func New(rp readinessChecker, version string, svc *users.Service, authn *auth.Authenticator, opts ...Option) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		users:      svc,
		authn:      authn,
		policy:     DefaultPolicy(),
		logger:     obs.Logger(),
		maxBody:    1 << 20,
	}
	for _, opt := range opts {
		opt(a)
	}

	// health/ready/docs
	a.mux.HandleFunc("GET /{$}", a.Root)
	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.HandleFunc("GET /openapi.yaml", a.OpenAPIDocument)
	a.mux.HandleFunc("GET /docs", a.Docs)
	a.mux.HandleFunc("GET /docs/", a.Docs)
	a.mux.Handle("GET /metrics", obs.Handler())

	// users
	a.mux.HandleFunc("POST /users", a.handleSignup)
	a.mux.HandleFunc("GET /users", a.handleListUsers)
	a.mux.HandleFunc("POST /users/login", a.handleLogin)
	a.mux.HandleFunc("GET /users/email-verification", a.handleVerifyEmail)
	a.mux.HandleFunc("POST /users/reset-password-request", a.handlePasswordResetRequest)
	a.mux.HandleFunc("POST /users/password-reset-request", a.handlePasswordResetRequest)
	a.mux.HandleFunc("POST /users/password-reset", a.handlePasswordReset)
	a.mux.HandleFunc("GET /users/{id}", a.handleGetUser)
	a.mux.HandleFunc("PUT /users/{id}", a.handleUpdateUser)
	a.mux.HandleFunc("DELETE /users/{id}", a.handleDeleteUser)
	a.mux.HandleFunc("GET /users/{id}/addresses", a.handleListAddresses)
	a.mux.HandleFunc("GET /users/{id}/addresses/{addressId}", a.handleGetAddress)

	// access rule demos
	a.mux.HandleFunc("GET /user-security/me", a.handleWhoAmI)
	a.mux.HandleFunc("GET /user-security/roles/admin", a.handleAdminRoleCheck)
	a.mux.HandleFunc("GET /user-security/authorities/delete", a.handleDeleteAuthorityCheck)
	a.mux.HandleFunc("DELETE /user-security/owner/{userid}", a.handleOwnerOrAdminCheck)

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.enforcePolicy(h)
	h = a.withAuthorization(h)
	h = MaxBodyBytes(h, a.maxBody)
	h = CORS(a.corsOrigins)(h)
	h = SecurityHeaders(h)
	h = Recover(h)
	h = obs.Instrument(h)
	h = Logging(h)
	return RequestID(h)
}

// --- Handlers ---

// Root answers plain "ok" for load balancers that probe "/".
func (a *API) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		a.logger.WarnContext(r.Context(), "readiness check failed", slog.Any("error", err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) OpenAPIDocument(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(openapi.Document)
}

func (a *API) Docs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(openapi.DocsPage)
}
