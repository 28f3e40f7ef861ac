package auth

import "time"

// Account is a registered user. ID is the internal row key; UserID is the
// public identifier handed to clients.
type Account struct {
	ID                     string
	UserID                 string
	FirstName              string
	LastName               string
	Email                  string
	PasswordHash           string
	EmailVerificationToken string
	EmailVerified          bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Role is a named bundle of authorities, unique by name.
type Role struct {
	ID          string
	Name        string
	Authorities []Authority
}

// Authority is a named fine-grained permission, unique by name.
type Authority struct {
	ID   string
	Name string
}

// Address belongs to exactly one account and is deleted with it.
type Address struct {
	ID         string
	AddressID  string
	AccountID  string
	City       string
	Country    string
	StreetName string
	PostalCode string
	Type       string
}

// PasswordResetToken is an outstanding reset request. Expiry lives inside
// the token itself.
type PasswordResetToken struct {
	ID        string
	Token     string
	AccountID string
	CreatedAt time.Time
}
