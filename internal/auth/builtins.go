package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ludwingperezt/mobileappws/internal/ids"
)

// Role and authority vocabulary.
const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"

	AuthorityRead   = "READ_AUTHORITY"
	AuthorityWrite  = "WRITE_AUTHORITY"
	AuthorityDelete = "DELETE_AUTHORITY"
)

// BuiltinAuthorities lists every authority created at startup.
var BuiltinAuthorities = []string{AuthorityRead, AuthorityWrite, AuthorityDelete}

// BuiltinRoles maps each startup role to its authorities.
var BuiltinRoles = map[string][]string{
	RoleUser:  {AuthorityRead, AuthorityWrite},
	RoleAdmin: {AuthorityRead, AuthorityWrite, AuthorityDelete},
}

// AdminSeed describes the administrator created on first start.
// An empty Email disables seeding.
type AdminSeed struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// EnsureBuiltins creates missing authorities and roles, then the admin
// account if none exists with the seed email. Safe to run on every start.
func EnsureBuiltins(ctx context.Context, store Store, hasher PasswordHasher, seed AdminSeed, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	for _, name := range BuiltinAuthorities {
		if err := ensureAuthority(ctx, store, name); err != nil {
			return err
		}
	}
	for _, name := range []string{RoleUser, RoleAdmin} {
		created, err := ensureRole(ctx, store, name, BuiltinRoles[name])
		if err != nil {
			return err
		}
		if created {
			logger.InfoContext(ctx, "role created", slog.String("role", name))
		}
	}

	seed.Email = NormalizeEmail(seed.Email)
	if seed.Email == "" {
		return nil
	}
	_, err := store.Accounts(ctx).FindByEmail(ctx, seed.Email)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, ErrNotFound):
		return fmt.Errorf("auth: lookup admin: %w", err)
	}

	hash, err := hasher.Hash(seed.Password)
	if err != nil {
		return fmt.Errorf("auth: hash admin password: %w", err)
	}
	userID, err := ids.UserID()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	admin := &Account{
		ID:            ids.New(),
		UserID:        userID,
		FirstName:     seed.FirstName,
		LastName:      seed.LastName,
		Email:         seed.Email,
		PasswordHash:  hash,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := store.Accounts(ctx).Create(ctx, admin, nil, []string{RoleAdmin}); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil
		}
		return fmt.Errorf("auth: create admin: %w", err)
	}
	logger.InfoContext(ctx, "admin account created", slog.String("user_id", admin.UserID))
	return nil
}

func ensureAuthority(ctx context.Context, store Store, name string) error {
	_, err := store.Authorities(ctx).FindByName(ctx, name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("auth: lookup authority %s: %w", name, err)
	}
	err = store.Authorities(ctx).Create(ctx, &Authority{ID: ids.New(), Name: name})
	if err != nil && !errors.Is(err, ErrAlreadyExists) {
		return fmt.Errorf("auth: create authority %s: %w", name, err)
	}
	return nil
}

func ensureRole(ctx context.Context, store Store, name string, authorities []string) (bool, error) {
	_, err := store.Roles(ctx).FindByName(ctx, name)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, fmt.Errorf("auth: lookup role %s: %w", name, err)
	}
	err = store.Roles(ctx).Create(ctx, &Role{ID: ids.New(), Name: name}, authorities)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return false, nil
		}
		return false, fmt.Errorf("auth: create role %s: %w", name, err)
	}
	return true, nil
}
