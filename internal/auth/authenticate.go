package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Credentials is a login request.
type Credentials struct {
	Email    string `json:"email" xml:"email"`
	Password string `json:"password" xml:"password"`
}

// Session is the outcome of a successful login.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// Authenticator checks credentials and mints login tokens.
type Authenticator struct {
	resolver             *Resolver
	codec                *TokenCodec
	hasher               PasswordHasher
	ttl                  time.Duration
	requireVerifiedEmail bool
}

// AuthenticatorOption configures an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithTokenTTL sets the lifetime of issued tokens. Non-positive values are ignored.
func WithTokenTTL(ttl time.Duration) AuthenticatorOption {
	return func(a *Authenticator) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

// WithRequireVerifiedEmail rejects logins for accounts whose email is not verified.
func WithRequireVerifiedEmail(required bool) AuthenticatorOption {
	return func(a *Authenticator) { a.requireVerifiedEmail = required }
}

// NewAuthenticator wires the login stage.
func NewAuthenticator(resolver *Resolver, codec *TokenCodec, hasher PasswordHasher, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		resolver: resolver,
		codec:    codec,
		hasher:   hasher,
		ttl:      DefaultTokenTTL,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Login verifies creds and returns a signed token for the account.
// Every credential problem yields ErrAuthentication; store failures are returned as is.
func (a *Authenticator) Login(ctx context.Context, creds Credentials) (Session, error) {
	email := NormalizeEmail(creds.Email)
	if email == "" || strings.TrimSpace(creds.Password) == "" {
		return Session{}, fmt.Errorf("%w: email and password are required", ErrAuthentication)
	}

	principal, err := a.resolver.Resolve(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrAuthentication
		}
		return Session{}, err
	}
	if err := a.hasher.Verify(principal.passwordHash, creds.Password); err != nil {
		return Session{}, ErrAuthentication
	}
	if a.requireVerifiedEmail && !principal.Enabled {
		return Session{}, fmt.Errorf("%w: email not verified", ErrAuthentication)
	}

	token, exp, err := a.codec.Encode(principal.Email, a.ttl)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, UserID: principal.UserID, ExpiresAt: exp}, nil
}

// Authenticate turns a bearer token into a principal. The error is one of the
// token sentinels, or matches ErrPrincipalNotFound, or is a store failure.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (Principal, error) {
	claims, err := a.codec.Decode(token)
	if err != nil {
		return Principal{}, err
	}
	return a.resolver.Resolve(ctx, claims.Subject)
}
