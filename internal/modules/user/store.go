// README: User store interface and PostgreSQL implementation.
package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"metrosync/internal/types"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrDuplicate = errors.New("duplicate value for unique field")
)

// Store is the persistence surface the service needs. The PG implementation
// is authoritative; MemoryStore backs tests and the seeder dry-run.
type Store interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id types.ID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	UpdateRating(ctx context.Context, id types.ID, rating float64, total int) error
	UpdateLocation(ctx context.Context, id types.ID, p types.Point) error
	AddVehicle(ctx context.Context, v *Vehicle) error
	VehiclesByOwner(ctx context.Context, ownerID types.ID) ([]Vehicle, error)
	ActiveVehicleCapacity(ctx context.Context, ownerID types.ID) (int, error)
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

const uniqueViolation = "23505"

func translateUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

func (s *PGStore) Create(ctx context.Context, u *User) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO users (
            id, username, full_name, email, phone_number, password_hash,
            roles, rating, total_ratings, is_active, is_verified, created_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		string(u.ID), u.Username, u.FullName, u.Email, u.Phone, u.PasswordHash,
		rolesToString(u.Roles), u.Rating, u.TotalRatings, u.Active, u.Verified, u.CreatedAt,
	)
	return translateUnique(err)
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*User, error) {
	return s.scanUser(s.db.QueryRow(ctx, userSelect+` WHERE id = $1`, string(id)))
}

func (s *PGStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.scanUser(s.db.QueryRow(ctx, userSelect+` WHERE username = $1`, username))
}

const userSelect = `
        SELECT id, username, full_name, email, phone_number, password_hash,
               roles, rating, total_ratings, is_active, is_verified,
               current_lat, current_lng, last_login, created_at
        FROM users`

func (s *PGStore) scanUser(row pgx.Row) (*User, error) {
	var u User
	var roles string
	var lat, lng *float64
	err := row.Scan(
		&u.ID, &u.Username, &u.FullName, &u.Email, &u.Phone, &u.PasswordHash,
		&roles, &u.Rating, &u.TotalRatings, &u.Active, &u.Verified,
		&lat, &lng, &u.LastLogin, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Roles = parseRoles(roles)
	if lat != nil && lng != nil {
		u.CurrentLocation = &types.Point{Lat: *lat, Lng: *lng}
	}
	return &u, nil
}

func (s *PGStore) UpdateRating(ctx context.Context, id types.ID, rating float64, total int) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE users SET rating = $1, total_ratings = $2 WHERE id = $3`,
		rating, total, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) UpdateLocation(ctx context.Context, id types.ID, p types.Point) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE users SET current_lat = $1, current_lng = $2 WHERE id = $3`,
		p.Lat, p.Lng, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) AddVehicle(ctx context.Context, v *Vehicle) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO vehicles (
            id, owner_id, make, model, year, color, license_plate,
            capacity, vehicle_type, is_active, is_verified, created_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		string(v.ID), string(v.OwnerID), v.Make, v.Model, v.Year, v.Color,
		v.LicensePlate, v.Capacity, string(v.Type), v.Active, v.Verified, v.CreatedAt,
	)
	return translateUnique(err)
}

func (s *PGStore) VehiclesByOwner(ctx context.Context, ownerID types.ID) ([]Vehicle, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, owner_id, make, model, year, color, license_plate,
               capacity, vehicle_type, is_active, is_verified, created_at
        FROM vehicles
        WHERE owner_id = $1
        ORDER BY created_at`, string(ownerID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Vehicle
	for rows.Next() {
		var v Vehicle
		var vt string
		if err := rows.Scan(
			&v.ID, &v.OwnerID, &v.Make, &v.Model, &v.Year, &v.Color,
			&v.LicensePlate, &v.Capacity, &vt, &v.Active, &v.Verified, &v.CreatedAt,
		); err != nil {
			return nil, err
		}
		v.Type = VehicleType(vt)
		out = append(out, v)
	}
	return out, rows.Err()
}

// ActiveVehicleCapacity returns the largest active vehicle the owner has.
// Zero means the driver currently has nothing to carry passengers in.
func (s *PGStore) ActiveVehicleCapacity(ctx context.Context, ownerID types.ID) (int, error) {
	row := s.db.QueryRow(ctx, `
        SELECT COALESCE(MAX(capacity), 0)
        FROM vehicles
        WHERE owner_id = $1 AND is_active = true`, string(ownerID))
	var capacity int
	if err := row.Scan(&capacity); err != nil {
		return 0, err
	}
	return capacity, nil
}
