// README: Rate overrides loaded from PostgreSQL at startup.
package pricing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// ActiveRate returns the deployment's fare override, if one is configured.
// The second return is false when the table has no active row, in which case
// the env-provided defaults apply.
func (s *Store) ActiveRate(ctx context.Context) (Rate, bool, error) {
	row := s.db.QueryRow(ctx, `
        SELECT base_fare, rate_per_km, currency, updated_at
        FROM fare_rates
        WHERE is_active = true
        ORDER BY updated_at DESC
        LIMIT 1`)

	var r Rate
	err := row.Scan(&r.BaseFare, &r.RatePerKm, &r.Currency, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rate{}, false, nil
	}
	if err != nil {
		return Rate{}, false, err
	}
	return r, true, nil
}
