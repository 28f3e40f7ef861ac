package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ludwingperezt/mobileappws/internal/auth"
)

type roleStore struct{ s *Store }

func (r *roleStore) Create(ctx context.Context, role *auth.Role, authorities []string) error {
	s := r.s
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q(`insert into roles (id, name) values ($1, $2)`), role.ID, role.Name); err != nil {
			return mapErr(err)
		}
		for _, name := range authorities {
			err := expectOne(tx.ExecContext(ctx, s.q(`
				insert into roles_authorities (roles_id, authorities_id)
				select $1, id from authorities where name = $2
			`), role.ID, name))
			if err != nil {
				return fmt.Errorf("link authority %s: %w", name, err)
			}
		}
		return nil
	})
}

func (r *roleStore) FindByName(ctx context.Context, name string) (*auth.Role, error) {
	var role auth.Role
	err := r.s.db.QueryRowContext(ctx, r.s.q(`select id, name from roles where name = $1`), name).Scan(&role.ID, &role.Name)
	if err != nil {
		return nil, mapErr(err)
	}
	roles, err := r.withAuthorities(ctx, `
		select r.id, r.name, a.id, a.name
		from roles r
		left join roles_authorities ra on ra.roles_id = r.id
		left join authorities a on a.id = ra.authorities_id
		where r.id = $1
		order by r.name, a.name
	`, role.ID)
	if err != nil {
		return nil, err
	}
	if len(roles) == 1 {
		role = roles[0]
	}
	return &role, nil
}

func (r *roleStore) ForAccount(ctx context.Context, accountID string) ([]auth.Role, error) {
	return r.withAuthorities(ctx, `
		select r.id, r.name, a.id, a.name
		from users_roles ur
		join roles r on r.id = ur.roles_id
		left join roles_authorities ra on ra.roles_id = r.id
		left join authorities a on a.id = ra.authorities_id
		where ur.users_id = $1
		order by r.name, a.name
	`, accountID)
}

// withAuthorities folds (role, authority) rows into roles.
func (r *roleStore) withAuthorities(ctx context.Context, query string, arg any) ([]auth.Role, error) {
	rows, err := r.s.db.QueryContext(ctx, r.s.q(query), arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []auth.Role{}
	index := map[string]int{}
	for rows.Next() {
		var (
			roleID, roleName string
			authID, authName sql.NullString
		)
		if err := rows.Scan(&roleID, &roleName, &authID, &authName); err != nil {
			return nil, err
		}
		i, ok := index[roleID]
		if !ok {
			out = append(out, auth.Role{ID: roleID, Name: roleName})
			i = len(out) - 1
			index[roleID] = i
		}
		if authID.Valid {
			out[i].Authorities = append(out[i].Authorities, auth.Authority{ID: authID.String, Name: authName.String})
		}
	}
	return out, rows.Err()
}

type authorityStore struct{ s *Store }

func (a *authorityStore) Create(ctx context.Context, authority *auth.Authority) error {
	_, err := a.s.db.ExecContext(ctx, a.s.q(`insert into authorities (id, name) values ($1, $2)`), authority.ID, authority.Name)
	return mapErr(err)
}

func (a *authorityStore) FindByName(ctx context.Context, name string) (*auth.Authority, error) {
	var out auth.Authority
	err := a.s.db.QueryRowContext(ctx, a.s.q(`select id, name from authorities where name = $1`), name).Scan(&out.ID, &out.Name)
	if err != nil {
		return nil, mapErr(err)
	}
	return &out, nil
}
