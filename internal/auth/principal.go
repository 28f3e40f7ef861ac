package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Principal is the identity attached to an authenticated request.
type Principal struct {
	Email       string
	UserID      string
	Permissions map[string]struct{}
	// Enabled mirrors the account's email verification status.
	Enabled bool

	passwordHash string
}

// NewPrincipal builds a principal from an account and its roles.
// Permissions are the union of role names and their authority names.
func NewPrincipal(account *Account, roles []Role) Principal {
	set := make(map[string]struct{})
	for _, role := range roles {
		set[role.Name] = struct{}{}
		for _, a := range role.Authorities {
			set[a.Name] = struct{}{}
		}
	}
	return Principal{
		Email:        account.Email,
		UserID:       account.UserID,
		Permissions:  set,
		Enabled:      account.EmailVerified,
		passwordHash: account.PasswordHash,
	}
}

// Has reports whether name is among the granted permissions.
func (p Principal) Has(name string) bool {
	_, ok := p.Permissions[name]
	return ok
}

// HasAny reports whether any of names is granted.
func (p Principal) HasAny(names ...string) bool {
	for _, n := range names {
		if p.Has(n) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool { return p.Has(RoleAdmin) }

// Anonymous reports whether p carries no identity.
func (p Principal) Anonymous() bool { return p.Email == "" && p.UserID == "" }

// PermissionList returns the granted permissions sorted.
func (p Principal) PermissionList() []string {
	out := make([]string, 0, len(p.Permissions))
	for k := range p.Permissions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Resolver loads principals from the store on every call.
type Resolver struct {
	store Store
}

// NewResolver returns a resolver backed by store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve loads the account with the given login email and computes its
// permission set. A missing account yields an error matching both
// ErrPrincipalNotFound and ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, email string) (Principal, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return Principal{}, fmt.Errorf("%w: %w", ErrPrincipalNotFound, ErrNotFound)
	}
	account, err := r.store.Accounts(ctx).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, fmt.Errorf("%w: %w", ErrPrincipalNotFound, err)
		}
		return Principal{}, fmt.Errorf("auth: load account: %w", err)
	}
	roles, err := r.store.Roles(ctx).ForAccount(ctx, account.ID)
	if err != nil {
		return Principal{}, fmt.Errorf("auth: load roles: %w", err)
	}
	return NewPrincipal(account, roles), nil
}

// NormalizeEmail trims and lowercases a login email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
