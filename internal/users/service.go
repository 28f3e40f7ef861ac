// Package users implements account registration and self-service flows.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/ludwingperezt/mobileappws/internal/audit"
	"github.com/ludwingperezt/mobileappws/internal/auth"
	"github.com/ludwingperezt/mobileappws/internal/ids"
	"github.com/ludwingperezt/mobileappws/internal/notify"
)

const (
	// DefaultPageSize is used when a list request names no limit.
	DefaultPageSize = 25
	// MaxPageSize caps a single page.
	MaxPageSize = 100

	// DefaultPasswordResetTTL is the lifetime of a reset token.
	DefaultPasswordResetTTL = time.Hour

	minPasswordLen = 8
)

// NewUser is a signup request.
type NewUser struct {
	FirstName string       `validate:"required,max=50"`
	LastName  string       `validate:"required,max=50"`
	Email     string       `validate:"required,email,max=120"`
	Password  string       `validate:"min=8"`
	Addresses []NewAddress `validate:"dive"`
}

// NewAddress is an address supplied at signup.
type NewAddress struct {
	City       string `validate:"required,max=15"`
	Country    string `validate:"required,max=15"`
	StreetName string `validate:"required,max=100"`
	PostalCode string `validate:"required,max=7"`
	Type       string `validate:"required,max=10"`
}

// Service holds the account business rules.
type Service struct {
	store    auth.Store
	codec    *auth.TokenCodec
	hasher   auth.PasswordHasher
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time

	verificationTTL time.Duration
	resetTTL        time.Duration
}

// Option configures Service.
type Option func(*Service)

// WithVerificationTTL sets the lifetime of email verification tokens.
func WithVerificationTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.verificationTTL = ttl
		}
	}
}

// WithPasswordResetTTL sets the lifetime of password reset tokens.
func WithPasswordResetTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.resetTTL = ttl
		}
	}
}

// WithClock overrides time.Now for row timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires the account service.
func NewService(store auth.Store, codec *auth.TokenCodec, hasher auth.PasswordHasher, notifier notify.Notifier, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:           store,
		codec:           codec,
		hasher:          hasher,
		notifier:        notifier,
		logger:          logger,
		now:             time.Now,
		verificationTTL: auth.DefaultTokenTTL,
		resetTTL:        DefaultPasswordResetTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup registers a new account with ROLE_USER and sends the verification email.
func (s *Service) Signup(ctx context.Context, in NewUser) (*auth.Account, error) {
	in.Email = auth.NormalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Addresses = trimAddresses(in.Addresses)
	if err := validateNewUser(in); err != nil {
		return nil, err
	}

	if _, err := s.store.Accounts(ctx).FindByEmail(ctx, in.Email); err == nil {
		return nil, fmt.Errorf("%w: record already exists", auth.ErrAlreadyExists)
	} else if !errors.Is(err, auth.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	userID, err := ids.UserID()
	if err != nil {
		return nil, err
	}
	token, _, err := s.codec.Encode(userID, s.verificationTTL)
	if err != nil {
		return nil, err
	}

	addrs := make([]auth.Address, 0, len(in.Addresses))
	for _, a := range in.Addresses {
		addressID, err := ids.AddressID()
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, auth.Address{
			ID:         ids.New(),
			AddressID:  addressID,
			City:       strings.TrimSpace(a.City),
			Country:    strings.TrimSpace(a.Country),
			StreetName: strings.TrimSpace(a.StreetName),
			PostalCode: strings.TrimSpace(a.PostalCode),
			Type:       strings.TrimSpace(a.Type),
		})
	}

	now := s.now().UTC()
	acc := &auth.Account{
		ID:                     ids.New(),
		UserID:                 userID,
		FirstName:              in.FirstName,
		LastName:               in.LastName,
		Email:                  in.Email,
		PasswordHash:           hash,
		EmailVerificationToken: token,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.store.Accounts(ctx).Create(ctx, acc, addrs, []string{auth.RoleUser}); err != nil {
		return nil, err
	}

	_ = audit.LogEvent(ctx, "user.signup", map[string]any{"user_id": acc.UserID})
	if err := s.notifier.SendVerification(ctx, recipient(acc), token); err != nil {
		s.logger.WarnContext(ctx, "verification email failed", slog.String("user_id", acc.UserID), slog.Any("error", err))
	}
	return acc, nil
}

// Get returns the account with the given public id.
func (s *Service) Get(ctx context.Context, userID string) (*auth.Account, error) {
	acc, err := s.store.Accounts(ctx).FindByUserID(ctx, userID)
	if err != nil {
		return nil, wrapNotFound(err, "user")
	}
	return acc, nil
}

// List returns one page of accounts. Pages are 1-based; 0 is treated as 1.
func (s *Service) List(ctx context.Context, page, limit int) ([]auth.Account, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if page-1 > math.MaxInt/limit {
		return []auth.Account{}, nil
	}
	return s.store.Accounts(ctx).List(ctx, (page-1)*limit, limit)
}

// Update changes the account's first and last name.
func (s *Service) Update(ctx context.Context, userID, firstName, lastName string) (*auth.Account, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if err := validateName("firstName", firstName); err != nil {
		return nil, err
	}
	if err := validateName("lastName", lastName); err != nil {
		return nil, err
	}
	acc, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	acc.FirstName = firstName
	acc.LastName = lastName
	acc.UpdatedAt = s.now().UTC()
	if err := s.store.Accounts(ctx).Update(ctx, acc); err != nil {
		return nil, wrapNotFound(err, "user")
	}
	return acc, nil
}

// Delete removes the account and everything it owns.
func (s *Service) Delete(ctx context.Context, userID string) error {
	acc, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.store.Accounts(ctx).Delete(ctx, acc.ID); err != nil {
		return wrapNotFound(err, "user")
	}
	_ = audit.LogEvent(ctx, "user.delete", map[string]any{"target_user_id": userID})
	return nil
}

// VerifyEmail marks the account holding token as verified. An unknown,
// expired or forged token yields false.
func (s *Service) VerifyEmail(ctx context.Context, token string) (bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return false, nil
	}
	acc, err := s.store.Accounts(ctx).FindByVerificationToken(ctx, token)
	if errors.Is(err, auth.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := s.codec.Decode(token); err != nil {
		s.logger.InfoContext(ctx, "verification token rejected", slog.String("reason", auth.TokenFailureReason(err)))
		return false, nil
	}

	acc.EmailVerified = true
	acc.EmailVerificationToken = ""
	acc.UpdatedAt = s.now().UTC()
	if err := s.store.Accounts(ctx).Update(ctx, acc); err != nil {
		return false, err
	}
	_ = audit.LogEvent(ctx, "user.email_verified", map[string]any{"user_id": acc.UserID})
	return true, nil
}

// RequestPasswordReset stores a fresh reset token for email and mails it.
// An unknown email yields false.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (bool, error) {
	acc, err := s.store.Accounts(ctx).FindByEmail(ctx, auth.NormalizeEmail(email))
	if errors.Is(err, auth.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	token, _, err := s.codec.Encode(acc.UserID, s.resetTTL)
	if err != nil {
		return false, err
	}
	row := &auth.PasswordResetToken{
		ID:        ids.New(),
		Token:     token,
		AccountID: acc.ID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.ResetTokens(ctx).Replace(ctx, row); err != nil {
		return false, err
	}

	_ = audit.LogEvent(ctx, "user.password_reset_requested", map[string]any{"user_id": acc.UserID})
	if err := s.notifier.SendPasswordReset(ctx, recipient(acc), token); err != nil {
		s.logger.WarnContext(ctx, "password reset email failed", slog.String("user_id", acc.UserID), slog.Any("error", err))
	}
	return true, nil
}

// ResetPassword consumes token and sets a new password. An unknown or
// expired token yields false.
func (s *Service) ResetPassword(ctx context.Context, token, password string) (bool, error) {
	if err := validatePassword(password); err != nil {
		return false, err
	}
	row, err := s.store.ResetTokens(ctx).FindByToken(ctx, strings.TrimSpace(token))
	if errors.Is(err, auth.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := s.codec.Decode(row.Token); err != nil {
		s.logger.InfoContext(ctx, "reset token rejected", slog.String("reason", auth.TokenFailureReason(err)))
		return false, nil
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, err
	}
	if err := s.store.Accounts(ctx).UpdatePassword(ctx, row.AccountID, hash); err != nil {
		return false, err
	}
	if err := s.store.ResetTokens(ctx).Delete(ctx, row.ID); err != nil && !errors.Is(err, auth.ErrNotFound) {
		return false, err
	}
	_ = audit.LogEvent(ctx, "user.password_reset", map[string]any{"account": row.AccountID})
	return true, nil
}

// Addresses lists the addresses of the account.
func (s *Service) Addresses(ctx context.Context, userID string) ([]auth.Address, error) {
	acc, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.store.Addresses(ctx).ListByAccount(ctx, acc.ID)
}

// Address returns one address, which must belong to the account.
func (s *Service) Address(ctx context.Context, userID, addressID string) (*auth.Address, error) {
	acc, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	addr, err := s.store.Addresses(ctx).FindByAddressID(ctx, addressID)
	if err != nil {
		return nil, wrapNotFound(err, "address")
	}
	if addr.AccountID != acc.ID {
		return nil, fmt.Errorf("%w: address", auth.ErrNotFound)
	}
	return addr, nil
}

func recipient(acc *auth.Account) notify.Recipient {
	return notify.Recipient{Email: acc.Email, FirstName: acc.FirstName}
}

func wrapNotFound(err error, what string) error {
	if errors.Is(err, auth.ErrNotFound) {
		return fmt.Errorf("%w: %s", auth.ErrNotFound, what)
	}
	return err
}
