package auth

import "context"

// Store exposes persistence for accounts and the role graph.
type Store interface {
	Accounts(ctx context.Context) AccountStore
	Roles(ctx context.Context) RoleStore
	Authorities(ctx context.Context) AuthorityStore
	Addresses(ctx context.Context) AddressStore
	ResetTokens(ctx context.Context) ResetTokenStore
}

// AccountStore persists accounts. Lookups return ErrNotFound when absent.
type AccountStore interface {
	// Create inserts the account, its addresses and role links atomically.
	Create(ctx context.Context, account *Account, addresses []Address, roles []string) error
	Find(ctx context.Context, id string) (*Account, error)
	FindByUserID(ctx context.Context, userID string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByVerificationToken(ctx context.Context, token string) (*Account, error)
	List(ctx context.Context, offset, limit int) ([]Account, error)
	// Update writes names and verification fields.
	Update(ctx context.Context, account *Account) error
	UpdatePassword(ctx context.Context, id, hash string) error
	// Delete removes the account with its addresses, role links and reset tokens.
	Delete(ctx context.Context, id string) error
}

// RoleStore persists roles and their links to authorities and accounts.
type RoleStore interface {
	// Create inserts the role and links the named authorities, which must exist.
	Create(ctx context.Context, role *Role, authorities []string) error
	FindByName(ctx context.Context, name string) (*Role, error)
	// ForAccount returns the account's roles with their authorities loaded.
	ForAccount(ctx context.Context, accountID string) ([]Role, error)
}

// AuthorityStore persists authorities.
type AuthorityStore interface {
	Create(ctx context.Context, authority *Authority) error
	FindByName(ctx context.Context, name string) (*Authority, error)
}

// AddressStore reads addresses.
type AddressStore interface {
	ListByAccount(ctx context.Context, accountID string) ([]Address, error)
	FindByAddressID(ctx context.Context, addressID string) (*Address, error)
}

// ResetTokenStore persists password reset requests.
type ResetTokenStore interface {
	// Replace drops any outstanding token for the account and stores tok.
	Replace(ctx context.Context, tok *PasswordResetToken) error
	FindByToken(ctx context.Context, token string) (*PasswordResetToken, error)
	Delete(ctx context.Context, id string) error
}
