// README: Location service handles high-frequency updates with optional snapshot flushing.
package location

import (
	"context"
	"errors"
	"time"

	"metrosync/internal/modules/user"
	"metrosync/internal/types"
)

var ErrBadPosition = errors.New("position out of range")

// Users lets the service mirror the latest position onto the user row.
type Users interface {
	UpdateLocation(ctx context.Context, id types.ID, p types.Point) error
}

type Service struct {
	store *Store
	users Users
}

func NewService(store *Store, users Users) *Service {
	return &Service{store: store, users: users}
}

type Update struct {
	UserID   types.ID
	Role     user.Role
	Position types.Point
}

// Update records the user's current position. Drivers additionally land in
// the GEO index so riders can see who is nearby.
func (s *Service) Update(ctx context.Context, u Update) error {
	if !u.Position.Valid() {
		return ErrBadPosition
	}
	if u.Role == user.RoleDriver {
		if err := s.store.SetGeo(ctx, u.UserID, u.Position); err != nil {
			return err
		}
	}
	return s.users.UpdateLocation(ctx, u.UserID, u.Position)
}

// Deactivate drops a driver from the live index, e.g. when going off shift.
func (s *Service) Deactivate(ctx context.Context, driverID types.ID) error {
	return s.store.RemoveGeo(ctx, driverID)
}

func (s *Service) NearbyDrivers(ctx context.Context, p types.Point, radiusM float64, limit int) ([]DriverPosition, error) {
	if !p.Valid() {
		return nil, ErrBadPosition
	}
	if radiusM <= 0 {
		radiusM = 5000
	}
	if limit <= 0 {
		limit = 20
	}
	return s.store.NearbyDrivers(ctx, p, radiusM, limit)
}

// FlushSnapshot appends the position to the history table. Callers decide
// the cadence; the hot path stays in Redis.
func (s *Service) FlushSnapshot(ctx context.Context, u Update) error {
	snap := Snapshot{
		UserID:     u.UserID,
		Role:       string(u.Role),
		Position:   u.Position,
		RecordedAt: time.Now().UTC(),
	}
	return s.store.AppendSnapshot(ctx, snap)
}

func (s *Service) History(ctx context.Context, userID types.ID, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.SnapshotsByUser(ctx, userID, limit)
}
