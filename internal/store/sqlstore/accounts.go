package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ludwingperezt/mobileappws/internal/auth"
)

const accountColumns = `id, user_id, first_name, last_name, email, encrypted_password,
	email_verification_token, email_verification_status, created_at, updated_at`

type accountStore struct{ s *Store }

func (a *accountStore) Create(ctx context.Context, acc *auth.Account, addrs []auth.Address, roles []string) error {
	s := a.s
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, s.q(`
			insert into users (`+accountColumns+`)
			values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`), acc.ID, acc.UserID, acc.FirstName, acc.LastName, acc.Email, acc.PasswordHash,
			nullIfEmpty(acc.EmailVerificationToken), acc.EmailVerified, acc.CreatedAt.UTC(), acc.UpdatedAt.UTC())
		if err != nil {
			return mapErr(err)
		}
		for _, addr := range addrs {
			_, err := tx.ExecContext(ctx, s.q(`
				insert into addresses (id, address_id, users_id, city, country, street_name, postal_code, type)
				values ($1, $2, $3, $4, $5, $6, $7, $8)
			`), addr.ID, addr.AddressID, acc.ID, addr.City, addr.Country, addr.StreetName, addr.PostalCode, addr.Type)
			if err != nil {
				return mapErr(err)
			}
		}
		for _, role := range roles {
			err := expectOne(tx.ExecContext(ctx, s.q(`
				insert into users_roles (users_id, roles_id)
				select $1, id from roles where name = $2
			`), acc.ID, role))
			if err != nil {
				return fmt.Errorf("assign role %s: %w", role, err)
			}
		}
		return nil
	})
	return err
}

func (a *accountStore) Find(ctx context.Context, id string) (*auth.Account, error) {
	return a.one(ctx, `select `+accountColumns+` from users where id = $1`, id)
}

func (a *accountStore) FindByUserID(ctx context.Context, userID string) (*auth.Account, error) {
	return a.one(ctx, `select `+accountColumns+` from users where user_id = $1`, userID)
}

func (a *accountStore) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	return a.one(ctx, `select `+accountColumns+` from users where email = $1`, email)
}

func (a *accountStore) FindByVerificationToken(ctx context.Context, token string) (*auth.Account, error) {
	if token == "" {
		return nil, auth.ErrNotFound
	}
	return a.one(ctx, `select `+accountColumns+` from users where email_verification_token = $1`, token)
}

func (a *accountStore) List(ctx context.Context, offset, limit int) ([]auth.Account, error) {
	if offset < 0 || limit <= 0 {
		return []auth.Account{}, nil
	}
	rows, err := a.s.db.QueryContext(ctx, a.s.q(`
		select `+accountColumns+`
		from users
		order by id
		limit $1 offset $2
	`), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []auth.Account{}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *acc)
	}
	return out, rows.Err()
}

func (a *accountStore) Update(ctx context.Context, acc *auth.Account) error {
	return expectOne(a.s.db.ExecContext(ctx, a.s.q(`
		update users
		set first_name = $2, last_name = $3, email_verification_token = $4,
			email_verification_status = $5, updated_at = $6
		where id = $1
	`), acc.ID, acc.FirstName, acc.LastName, nullIfEmpty(acc.EmailVerificationToken), acc.EmailVerified, acc.UpdatedAt.UTC()))
}

func (a *accountStore) UpdatePassword(ctx context.Context, id, hash string) error {
	return expectOne(a.s.db.ExecContext(ctx, a.s.q(`update users set encrypted_password = $2 where id = $1`), id, hash))
}

// Delete removes dependents explicitly so it does not rely on the
// driver enforcing foreign keys.
func (a *accountStore) Delete(ctx context.Context, id string) error {
	s := a.s
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`delete from addresses where users_id = $1`,
			`delete from users_roles where users_id = $1`,
			`delete from password_reset_tokens where users_id = $1`,
		} {
			if _, err := tx.ExecContext(ctx, s.q(stmt), id); err != nil {
				return err
			}
		}
		return expectOne(tx.ExecContext(ctx, s.q(`delete from users where id = $1`), id))
	})
}

func (a *accountStore) one(ctx context.Context, query string, arg any) (*auth.Account, error) {
	acc, err := scanAccount(a.s.db.QueryRowContext(ctx, a.s.q(query), arg))
	if err != nil {
		return nil, mapErr(err)
	}
	return acc, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*auth.Account, error) {
	var (
		acc   auth.Account
		token sql.NullString
	)
	err := row.Scan(&acc.ID, &acc.UserID, &acc.FirstName, &acc.LastName, &acc.Email, &acc.PasswordHash,
		&token, &acc.EmailVerified, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	acc.EmailVerificationToken = token.String
	return &acc, nil
}
