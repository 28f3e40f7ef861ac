package sqlstore

import (
	"context"

	"github.com/ludwingperezt/mobileappws/internal/auth"
)

const addressColumns = `id, address_id, users_id, city, country, street_name, postal_code, type`

type addressStore struct{ s *Store }

func (a *addressStore) ListByAccount(ctx context.Context, accountID string) ([]auth.Address, error) {
	rows, err := a.s.db.QueryContext(ctx, a.s.q(`
		select `+addressColumns+` from addresses where users_id = $1 order by id
	`), accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []auth.Address{}
	for rows.Next() {
		addr, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *addr)
	}
	return out, rows.Err()
}

func (a *addressStore) FindByAddressID(ctx context.Context, addressID string) (*auth.Address, error) {
	addr, err := scanAddress(a.s.db.QueryRowContext(ctx, a.s.q(`
		select `+addressColumns+` from addresses where address_id = $1
	`), addressID))
	if err != nil {
		return nil, mapErr(err)
	}
	return addr, nil
}

func scanAddress(row scanner) (*auth.Address, error) {
	var addr auth.Address
	if err := row.Scan(&addr.ID, &addr.AddressID, &addr.AccountID, &addr.City, &addr.Country,
		&addr.StreetName, &addr.PostalCode, &addr.Type); err != nil {
		return nil, err
	}
	return &addr, nil
}
