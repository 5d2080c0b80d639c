// README: Location store backed by Redis GEO and Postgres snapshots.
package location

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"metrosync/internal/types"
)

const driversGeoKey = "geo:drivers"

type Store struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func NewStore(db *pgxpool.Pool, redis *redis.Client) *Store {
	return &Store{db: db, redis: redis}
}

func (s *Store) SetGeo(ctx context.Context, id types.ID, pos types.Point) error {
	return s.redis.GeoAdd(ctx, driversGeoKey, &redis.GeoLocation{
		Name:      string(id),
		Longitude: pos.Lng,
		Latitude:  pos.Lat,
	}).Err()
}

func (s *Store) RemoveGeo(ctx context.Context, id types.ID) error {
	return s.redis.ZRem(ctx, driversGeoKey, string(id)).Err()
}

// NearbyDrivers queries the GEO index for drivers within radiusM of the
// point, closest first.
func (s *Store) NearbyDrivers(ctx context.Context, p types.Point, radiusM float64, limit int) ([]DriverPosition, error) {
	locs, err := s.redis.GeoSearchLocation(ctx, driversGeoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  p.Lng,
			Latitude:   p.Lat,
			Radius:     radiusM,
			RadiusUnit: "m",
			Sort:       "ASC",
			Count:      limit,
		},
		WithCoord: true,
		WithDist:  true,
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]DriverPosition, 0, len(locs))
	for _, l := range locs {
		out = append(out, DriverPosition{
			DriverID:  types.ID(l.Name),
			Position:  types.Point{Lat: l.Latitude, Lng: l.Longitude},
			DistanceM: l.Dist,
		})
	}
	return out, nil
}

func (s *Store) AppendSnapshot(ctx context.Context, snap Snapshot) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO location_snapshots (user_id, role, lat, lng, recorded_at)
		VALUES ($1, $2, $3, $4, $5)`,
		snap.UserID, snap.Role, snap.Position.Lat, snap.Position.Lng, snap.RecordedAt)
	return err
}

func (s *Store) SnapshotsByUser(ctx context.Context, userID types.ID, limit int) ([]Snapshot, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, role, lat, lng, recorded_at
		FROM location_snapshots
		WHERE user_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Snapshot
	for rows.Next() {
		var sn Snapshot
		if err := rows.Scan(&sn.ID, &sn.UserID, &sn.Role, &sn.Position.Lat, &sn.Position.Lng, &sn.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}
