package sqlstore

import (
	"context"
	"database/sql"

	"github.com/ludwingperezt/mobileappws/internal/auth"
)

type resetTokenStore struct{ s *Store }

func (r *resetTokenStore) Replace(ctx context.Context, tok *auth.PasswordResetToken) error {
	s := r.s
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q(`delete from password_reset_tokens where users_id = $1`), tok.AccountID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, s.q(`
			insert into password_reset_tokens (id, token, users_id, created_at)
			values ($1, $2, $3, $4)
		`), tok.ID, tok.Token, tok.AccountID, tok.CreatedAt.UTC())
		return mapErr(err)
	})
}

func (r *resetTokenStore) FindByToken(ctx context.Context, token string) (*auth.PasswordResetToken, error) {
	var out auth.PasswordResetToken
	err := r.s.db.QueryRowContext(ctx, r.s.q(`
		select id, token, users_id, created_at from password_reset_tokens where token = $1
	`), token).Scan(&out.ID, &out.Token, &out.AccountID, &out.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &out, nil
}

func (r *resetTokenStore) Delete(ctx context.Context, id string) error {
	return expectOne(r.s.db.ExecContext(ctx, r.s.q(`delete from password_reset_tokens where id = $1`), id))
}
