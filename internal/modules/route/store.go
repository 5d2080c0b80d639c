// README: Route store interface and PostgreSQL implementation (polylines as JSONB).
package route

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"metrosync/internal/types"
)

var ErrNotFound = errors.New("route not found")

type Store interface {
	Create(ctx context.Context, r *Route, stops []VirtualStop) error
	Get(ctx context.Context, id types.ID) (*Route, error)
	ListByDriver(ctx context.Context, driverID types.ID) ([]Route, error)
	ListPublished(ctx context.Context) ([]Route, error)
	Publish(ctx context.Context, id types.ID) error
	SetActive(ctx context.Context, id types.ID, active bool) error
	AddStop(ctx context.Context, stop *VirtualStop) error
	StopsByRoute(ctx context.Context, routeID types.ID) ([]VirtualStop, error)
	Delete(ctx context.Context, id types.ID) error
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, r *Route, stops []VirtualStop) error {
	path, err := json.Marshal(r.Path)
	if err != nil {
		return fmt.Errorf("marshal path: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
        INSERT INTO routes (
            id, name, description, driver_id, path, distance_km,
            is_active, is_published, max_deviation_m, created_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		string(r.ID), r.Name, r.Description, string(r.DriverID), path,
		r.DistanceKm, r.Active, r.Published, r.MaxDeviationM, r.CreatedAt,
	)
	if err != nil {
		return err
	}
	for i := range stops {
		if err := insertStop(ctx, tx, &stops[i]); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func insertStop(ctx context.Context, tx pgx.Tx, stop *VirtualStop) error {
	_, err := tx.Exec(ctx, `
        INSERT INTO virtual_stops (
            id, route_id, name, description, lat, lng,
            sequence_order, time_offset_min, is_active
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		string(stop.ID), string(stop.RouteID), stop.Name, stop.Description,
		stop.Location.Lat, stop.Location.Lng, stop.SequenceOrder,
		stop.TimeOffsetMin, stop.Active,
	)
	return err
}

const routeSelect = `
        SELECT id, name, description, driver_id, path, distance_km,
               is_active, is_published, max_deviation_m, created_at
        FROM routes`

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Route, error) {
	return scanRoute(s.db.QueryRow(ctx, routeSelect+` WHERE id = $1`, string(id)))
}

func scanRoute(row pgx.Row) (*Route, error) {
	var r Route
	var path []byte
	err := row.Scan(
		&r.ID, &r.Name, &r.Description, &r.DriverID, &path, &r.DistanceKm,
		&r.Active, &r.Published, &r.MaxDeviationM, &r.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(path, &r.Path); err != nil {
		return nil, fmt.Errorf("unmarshal path: %w", err)
	}
	return &r, nil
}

func (s *PGStore) ListByDriver(ctx context.Context, driverID types.ID) ([]Route, error) {
	rows, err := s.db.Query(ctx, routeSelect+` WHERE driver_id = $1 ORDER BY created_at DESC`, string(driverID))
	if err != nil {
		return nil, err
	}
	return collectRoutes(rows)
}

func (s *PGStore) ListPublished(ctx context.Context) ([]Route, error) {
	rows, err := s.db.Query(ctx, routeSelect+` WHERE is_published = true AND is_active = true`)
	if err != nil {
		return nil, err
	}
	return collectRoutes(rows)
}

func collectRoutes(rows pgx.Rows) ([]Route, error) {
	defer rows.Close()
	var out []Route
	for rows.Next() {
		var r Route
		var path []byte
		if err := rows.Scan(
			&r.ID, &r.Name, &r.Description, &r.DriverID, &path, &r.DistanceKm,
			&r.Active, &r.Published, &r.MaxDeviationM, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(path, &r.Path); err != nil {
			return nil, fmt.Errorf("unmarshal path: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Publish marks the route published. Published routes must be active, so the
// flags move together.
func (s *PGStore) Publish(ctx context.Context, id types.ID) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE routes SET is_published = true, is_active = true WHERE id = $1`, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) SetActive(ctx context.Context, id types.ID, active bool) error {
	// Deactivating also unpublishes: a published route is always active.
	tag, err := s.db.Exec(ctx, `
        UPDATE routes
        SET is_active = $1,
            is_published = CASE WHEN $1 THEN is_published ELSE false END
        WHERE id = $2`, active, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) AddStop(ctx context.Context, stop *VirtualStop) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO virtual_stops (
            id, route_id, name, description, lat, lng,
            sequence_order, time_offset_min, is_active
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		string(stop.ID), string(stop.RouteID), stop.Name, stop.Description,
		stop.Location.Lat, stop.Location.Lng, stop.SequenceOrder,
		stop.TimeOffsetMin, stop.Active,
	)
	return err
}

func (s *PGStore) StopsByRoute(ctx context.Context, routeID types.ID) ([]VirtualStop, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, route_id, name, description, lat, lng,
               sequence_order, time_offset_min, is_active
        FROM virtual_stops
        WHERE route_id = $1
        ORDER BY sequence_order`, string(routeID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VirtualStop
	for rows.Next() {
		var st VirtualStop
		if err := rows.Scan(
			&st.ID, &st.RouteID, &st.Name, &st.Description,
			&st.Location.Lat, &st.Location.Lng,
			&st.SequenceOrder, &st.TimeOffsetMin, &st.Active,
		); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Delete removes the route; virtual_stops rows follow via ON DELETE CASCADE.
func (s *PGStore) Delete(ctx context.Context, id types.ID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM routes WHERE id = $1`, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
