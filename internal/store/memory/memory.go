// Package memory keeps accounts and the role graph in process memory.
// It backs tests and the "memory" store driver.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ludwingperezt/mobileappws/internal/auth"
)

var _ auth.Store = (*Store)(nil)

// Store implements auth.Store with in-process concurrency safety.
type Store struct {
	mu sync.RWMutex

	accounts    map[string]*auth.Account // id -> account
	byEmail     map[string]string        // email -> id
	byUserID    map[string]string        // public id -> id
	authorities map[string]*auth.Authority
	roles       map[string]*roleRow // name -> role
	accountRole map[string][]string // account id -> role names
	addresses   map[string]*auth.Address
	resetTokens map[string]*auth.PasswordResetToken
}

type roleRow struct {
	role        auth.Role
	authorities []string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		accounts:    make(map[string]*auth.Account),
		byEmail:     make(map[string]string),
		byUserID:    make(map[string]string),
		authorities: make(map[string]*auth.Authority),
		roles:       make(map[string]*roleRow),
		accountRole: make(map[string][]string),
		addresses:   make(map[string]*auth.Address),
		resetTokens: make(map[string]*auth.PasswordResetToken),
	}
}

func (s *Store) Accounts(context.Context) auth.AccountStore       { return accountView{s} }
func (s *Store) Roles(context.Context) auth.RoleStore             { return roleView{s} }
func (s *Store) Authorities(context.Context) auth.AuthorityStore  { return authorityView{s} }
func (s *Store) Addresses(context.Context) auth.AddressStore      { return addressView{s} }
func (s *Store) ResetTokens(context.Context) auth.ResetTokenStore { return resetView{s} }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Accounts ------------------------------------------------------------------
type accountView struct{ s *Store }

func (v accountView) Create(_ context.Context, acc *auth.Account, addrs []auth.Address, roles []string) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.accounts[acc.ID]; dup {
		return auth.ErrAlreadyExists
	}
	if _, dup := s.byEmail[acc.Email]; dup {
		return auth.ErrAlreadyExists
	}
	if _, dup := s.byUserID[acc.UserID]; dup {
		return auth.ErrAlreadyExists
	}
	for _, name := range roles {
		if _, ok := s.roles[name]; !ok {
			return auth.ErrNotFound
		}
	}
	cp := *acc
	s.accounts[acc.ID] = &cp
	s.byEmail[acc.Email] = acc.ID
	s.byUserID[acc.UserID] = acc.ID
	s.accountRole[acc.ID] = dedupe(roles)
	for _, a := range addrs {
		a := a
		a.AccountID = acc.ID
		s.addresses[a.ID] = &a
	}
	return nil
}

func (v accountView) Find(_ context.Context, id string) (*auth.Account, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.accountLocked(id)
}

func (v accountView) FindByUserID(_ context.Context, userID string) (*auth.Account, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.accountLocked(v.s.byUserID[userID])
}

func (v accountView) FindByEmail(_ context.Context, email string) (*auth.Account, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.accountLocked(v.s.byEmail[email])
}

func (v accountView) FindByVerificationToken(_ context.Context, token string) (*auth.Account, error) {
	if token == "" {
		return nil, auth.ErrNotFound
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	for id, acc := range v.s.accounts {
		if acc.EmailVerificationToken == token {
			return v.s.accountLocked(id)
		}
	}
	return nil, auth.ErrNotFound
}

func (v accountView) List(_ context.Context, offset, limit int) ([]auth.Account, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	all := make([]auth.Account, 0, len(v.s.accounts))
	for _, acc := range v.s.accounts {
		all = append(all, *acc)
	}
	// ids are ULIDs, so id order is creation order
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if offset < 0 || limit <= 0 || offset >= len(all) {
		return []auth.Account{}, nil
	}
	end := offset + limit
	if end > len(all) || end < offset {
		end = len(all)
	}
	return all[offset:end], nil
}

func (v accountView) Update(_ context.Context, acc *auth.Account) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.accounts[acc.ID]
	if !ok {
		return auth.ErrNotFound
	}
	cur.FirstName = acc.FirstName
	cur.LastName = acc.LastName
	cur.EmailVerificationToken = acc.EmailVerificationToken
	cur.EmailVerified = acc.EmailVerified
	cur.UpdatedAt = acc.UpdatedAt
	return nil
}

func (v accountView) UpdatePassword(_ context.Context, id, hash string) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.accounts[id]
	if !ok {
		return auth.ErrNotFound
	}
	cur.PasswordHash = hash
	return nil
}

func (v accountView) Delete(_ context.Context, id string) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return auth.ErrNotFound
	}
	delete(s.accounts, id)
	delete(s.byEmail, acc.Email)
	delete(s.byUserID, acc.UserID)
	delete(s.accountRole, id)
	for k, a := range s.addresses {
		if a.AccountID == id {
			delete(s.addresses, k)
		}
	}
	for k, t := range s.resetTokens {
		if t.AccountID == id {
			delete(s.resetTokens, k)
		}
	}
	return nil
}

func (s *Store) accountLocked(id string) (*auth.Account, error) {
	acc, ok := s.accounts[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	out := *acc
	return &out, nil
}

// Roles ---------------------------------------------------------------------
type roleView struct{ s *Store }

func (v roleView) Create(_ context.Context, role *auth.Role, authorities []string) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.roles[role.Name]; dup {
		return auth.ErrAlreadyExists
	}
	for _, name := range authorities {
		if _, ok := s.authorities[name]; !ok {
			return auth.ErrNotFound
		}
	}
	s.roles[role.Name] = &roleRow{role: auth.Role{ID: role.ID, Name: role.Name}, authorities: dedupe(authorities)}
	return nil
}

func (v roleView) FindByName(_ context.Context, name string) (*auth.Role, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	row, ok := v.s.roles[name]
	if !ok {
		return nil, auth.ErrNotFound
	}
	r := v.s.roleLocked(row)
	return &r, nil
}

func (v roleView) ForAccount(_ context.Context, accountID string) ([]auth.Role, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	names := v.s.accountRole[accountID]
	out := make([]auth.Role, 0, len(names))
	for _, name := range names {
		if row, ok := v.s.roles[name]; ok {
			out = append(out, v.s.roleLocked(row))
		}
	}
	return out, nil
}

// AssignRole links an existing role to an existing account.
func (s *Store) AssignRole(accountID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[accountID]; !ok {
		return auth.ErrNotFound
	}
	if _, ok := s.roles[role]; !ok {
		return auth.ErrNotFound
	}
	s.accountRole[accountID] = dedupe(append(s.accountRole[accountID], role))
	return nil
}

func (s *Store) roleLocked(row *roleRow) auth.Role {
	r := row.role
	r.Authorities = make([]auth.Authority, 0, len(row.authorities))
	for _, name := range row.authorities {
		if a, ok := s.authorities[name]; ok {
			r.Authorities = append(r.Authorities, *a)
		}
	}
	return r
}

// Authorities ---------------------------------------------------------------
type authorityView struct{ s *Store }

func (v authorityView) Create(_ context.Context, a *auth.Authority) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, dup := v.s.authorities[a.Name]; dup {
		return auth.ErrAlreadyExists
	}
	cp := *a
	v.s.authorities[a.Name] = &cp
	return nil
}

func (v authorityView) FindByName(_ context.Context, name string) (*auth.Authority, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	a, ok := v.s.authorities[name]
	if !ok {
		return nil, auth.ErrNotFound
	}
	out := *a
	return &out, nil
}

// Addresses -----------------------------------------------------------------
type addressView struct{ s *Store }

func (v addressView) ListByAccount(_ context.Context, accountID string) ([]auth.Address, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	out := []auth.Address{}
	for _, a := range v.s.addresses {
		if a.AccountID == accountID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v addressView) FindByAddressID(_ context.Context, addressID string) (*auth.Address, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	for _, a := range v.s.addresses {
		if a.AddressID == addressID {
			out := *a
			return &out, nil
		}
	}
	return nil, auth.ErrNotFound
}

// Password reset tokens -----------------------------------------------------
type resetView struct{ s *Store }

func (v resetView) Replace(_ context.Context, tok *auth.PasswordResetToken) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[tok.AccountID]; !ok {
		return auth.ErrNotFound
	}
	for k, t := range s.resetTokens {
		if t.AccountID == tok.AccountID {
			delete(s.resetTokens, k)
		}
	}
	cp := *tok
	s.resetTokens[tok.ID] = &cp
	return nil
}

func (v resetView) FindByToken(_ context.Context, token string) (*auth.PasswordResetToken, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	for _, t := range v.s.resetTokens {
		if t.Token == token {
			out := *t
			return &out, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (v resetView) Delete(_ context.Context, id string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.resetTokens[id]; !ok {
		return auth.ErrNotFound
	}
	delete(v.s.resetTokens, id)
	return nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
