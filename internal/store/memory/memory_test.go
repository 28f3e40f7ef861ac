package memory

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludwingperezt/mobileappws/internal/auth"
)

func seedRoles(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	for _, name := range []string{"READ_AUTHORITY", "DELETE_AUTHORITY"} {
		require.NoError(t, s.Authorities(ctx).Create(ctx, &auth.Authority{ID: name, Name: name}))
	}
	require.NoError(t, s.Roles(ctx).Create(ctx, &auth.Role{ID: "r1", Name: "ROLE_USER"}, []string{"READ_AUTHORITY"}))
	require.NoError(t, s.Roles(ctx).Create(ctx, &auth.Role{ID: "r2", Name: "ROLE_ADMIN"}, []string{"READ_AUTHORITY", "DELETE_AUTHORITY", "READ_AUTHORITY"}))
}

func newAccount(id, email string) *auth.Account {
	return &auth.Account{ID: id, UserID: "pub-" + id, Email: email, FirstName: "A", LastName: "B", CreatedAt: time.Unix(0, 0)}
}

func TestCreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedRoles(t, s)

	addrs := []auth.Address{{ID: "a1", AddressID: "addr-1", City: "Guatemala", Type: "shipping"}}
	require.NoError(t, s.Accounts(ctx).Create(ctx, newAccount("01A", "u1@test.com"), addrs, []string{"ROLE_USER"}))

	got, err := s.Accounts(ctx).FindByEmail(ctx, "u1@test.com")
	require.NoError(t, err)
	assert.Equal(t, "pub-01A", got.UserID)

	got.FirstName = "mutated"
	again, err := s.Accounts(ctx).FindByUserID(ctx, "pub-01A")
	require.NoError(t, err)
	assert.Equal(t, "A", again.FirstName, "callers must get copies")

	list, err := s.Addresses(ctx).ListByAccount(ctx, "01A")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "01A", list[0].AccountID)

	_, err = s.Accounts(ctx).FindByEmail(ctx, "missing@test.com")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestCreateRejectsDuplicatesAndUnknownRoles(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedRoles(t, s)

	require.NoError(t, s.Accounts(ctx).Create(ctx, newAccount("01A", "u1@test.com"), nil, nil))

	dup := newAccount("01B", "u1@test.com")
	assert.ErrorIs(t, s.Accounts(ctx).Create(ctx, dup, nil, nil), auth.ErrAlreadyExists)

	err := s.Accounts(ctx).Create(ctx, newAccount("01C", "u3@test.com"), nil, []string{"ROLE_GHOST"})
	assert.ErrorIs(t, err, auth.ErrNotFound)

	err = s.Authorities(ctx).Create(ctx, &auth.Authority{ID: "x", Name: "READ_AUTHORITY"})
	assert.ErrorIs(t, err, auth.ErrAlreadyExists)
}

func TestRolesForAccount(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedRoles(t, s)
	require.NoError(t, s.Accounts(ctx).Create(ctx, newAccount("01A", "u1@test.com"), nil, []string{"ROLE_USER"}))
	require.NoError(t, s.AssignRole("01A", "ROLE_ADMIN"))
	require.NoError(t, s.AssignRole("01A", "ROLE_ADMIN"))

	roles, err := s.Roles(ctx).ForAccount(ctx, "01A")
	require.NoError(t, err)
	require.Len(t, roles, 2)

	admin, err := s.Roles(ctx).FindByName(ctx, "ROLE_ADMIN")
	require.NoError(t, err)
	assert.Len(t, admin.Authorities, 2, "duplicate authorities are collapsed")

	assert.ErrorIs(t, s.AssignRole("missing", "ROLE_USER"), auth.ErrNotFound)
}

func TestListPagesInCreationOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []string{"01C", "01A", "01B"} {
		require.NoError(t, s.Accounts(ctx).Create(ctx, newAccount(id, id+"@test.com"), nil, nil))
	}

	page, err := s.Accounts(ctx).List(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "01A", page[0].ID)
	assert.Equal(t, "01B", page[1].ID)

	page, err = s.Accounts(ctx).List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)

	page, err = s.Accounts(ctx).List(ctx, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, page)

	page, err = s.Accounts(ctx).List(ctx, -2, 2)
	require.NoError(t, err)
	assert.Empty(t, page)

	page, err = s.Accounts(ctx).List(ctx, 1, math.MaxInt)
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedRoles(t, s)
	addrs := []auth.Address{{ID: "a1", AddressID: "addr-1"}}
	require.NoError(t, s.Accounts(ctx).Create(ctx, newAccount("01A", "u1@test.com"), addrs, []string{"ROLE_USER"}))
	require.NoError(t, s.ResetTokens(ctx).Replace(ctx, &auth.PasswordResetToken{ID: "t1", Token: "tok", AccountID: "01A"}))

	require.NoError(t, s.Accounts(ctx).Delete(ctx, "01A"))

	_, err := s.Accounts(ctx).FindByEmail(ctx, "u1@test.com")
	assert.ErrorIs(t, err, auth.ErrNotFound)
	_, err = s.Addresses(ctx).FindByAddressID(ctx, "addr-1")
	assert.ErrorIs(t, err, auth.ErrNotFound)
	_, err = s.ResetTokens(ctx).FindByToken(ctx, "tok")
	assert.ErrorIs(t, err, auth.ErrNotFound)
	assert.ErrorIs(t, s.Accounts(ctx).Delete(ctx, "01A"), auth.ErrNotFound)
}

func TestResetTokenReplaceSupersedes(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Accounts(ctx).Create(ctx, newAccount("01A", "u1@test.com"), nil, nil))

	require.NoError(t, s.ResetTokens(ctx).Replace(ctx, &auth.PasswordResetToken{ID: "t1", Token: "first", AccountID: "01A"}))
	require.NoError(t, s.ResetTokens(ctx).Replace(ctx, &auth.PasswordResetToken{ID: "t2", Token: "second", AccountID: "01A"}))

	_, err := s.ResetTokens(ctx).FindByToken(ctx, "first")
	assert.ErrorIs(t, err, auth.ErrNotFound)
	tok, err := s.ResetTokens(ctx).FindByToken(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, "t2", tok.ID)

	err = s.ResetTokens(ctx).Replace(ctx, &auth.PasswordResetToken{ID: "t3", Token: "x", AccountID: "ghost"})
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestVerificationTokenLookup(t *testing.T) {
	ctx := context.Background()
	s := New()
	acc := newAccount("01A", "u1@test.com")
	acc.EmailVerificationToken = "verify-me"
	require.NoError(t, s.Accounts(ctx).Create(ctx, acc, nil, nil))

	got, err := s.Accounts(ctx).FindByVerificationToken(ctx, "verify-me")
	require.NoError(t, err)
	assert.Equal(t, "01A", got.ID)

	_, err = s.Accounts(ctx).FindByVerificationToken(ctx, "")
	assert.ErrorIs(t, err, auth.ErrNotFound)

	got.EmailVerificationToken = ""
	got.EmailVerified = true
	require.NoError(t, s.Accounts(ctx).Update(ctx, got))
	_, err = s.Accounts(ctx).FindByVerificationToken(ctx, "verify-me")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}
