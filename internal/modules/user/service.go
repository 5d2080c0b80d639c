// README: User service; registration, vehicles, and rating updates.
package user

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"metrosync/internal/types"
)

var ErrBadRequest = errors.New("bad request")

type Service struct {
	store Store
	log   *slog.Logger
}

func NewService(store Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, log: log}
}

type RegisterCommand struct {
	// ID is the external identity (Firebase UID). Generated when empty,
	// which only the seeder relies on.
	ID           types.ID
	Username     string
	FullName     string
	Email        string
	Phone        string
	PasswordHash string
	Roles        []Role
}

func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (types.ID, error) {
	if cmd.Username == "" || cmd.FullName == "" || cmd.Email == "" || cmd.Phone == "" {
		return "", ErrBadRequest
	}
	roles := cmd.Roles
	if len(roles) == 0 {
		roles = []Role{RoleRider}
	}
	id := cmd.ID
	if id == "" {
		id = newID()
	}
	u := &User{
		ID:           id,
		Username:     cmd.Username,
		FullName:     cmd.FullName,
		Email:        cmd.Email,
		Phone:        cmd.Phone,
		PasswordHash: cmd.PasswordHash,
		Roles:        roles,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.Create(ctx, u); err != nil {
		return "", err
	}
	s.log.Info("user registered", "user_id", u.ID, "roles", rolesToString(roles))
	return u.ID, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*User, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.store.GetByUsername(ctx, username)
}

type AddVehicleCommand struct {
	OwnerID      types.ID
	Make         string
	Model        string
	Year         int
	Color        string
	LicensePlate string
	Capacity     int
	Type         VehicleType
}

func (s *Service) AddVehicle(ctx context.Context, cmd AddVehicleCommand) (types.ID, error) {
	if cmd.OwnerID == "" || cmd.Make == "" || cmd.Model == "" || cmd.LicensePlate == "" {
		return "", ErrBadRequest
	}
	if cmd.Capacity < 1 || cmd.Capacity > 18 {
		return "", ErrBadRequest
	}
	owner, err := s.store.Get(ctx, cmd.OwnerID)
	if err != nil {
		return "", err
	}
	if !owner.IsDriver() {
		return "", ErrBadRequest
	}
	vt := cmd.Type
	if vt == "" {
		vt = VehicleSedan
	}
	v := &Vehicle{
		ID:           newID(),
		OwnerID:      cmd.OwnerID,
		Make:         cmd.Make,
		Model:        cmd.Model,
		Year:         cmd.Year,
		Color:        cmd.Color,
		LicensePlate: cmd.LicensePlate,
		Capacity:     cmd.Capacity,
		Type:         vt,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.AddVehicle(ctx, v); err != nil {
		return "", err
	}
	return v.ID, nil
}

func (s *Service) Vehicles(ctx context.Context, ownerID types.ID) ([]Vehicle, error) {
	return s.store.VehiclesByOwner(ctx, ownerID)
}

// ActiveVehicleCapacity is the seat limit used by the booking capacity check:
// the largest active vehicle of the route's driver.
func (s *Service) ActiveVehicleCapacity(ctx context.Context, driverID types.ID) (int, error) {
	return s.store.ActiveVehicleCapacity(ctx, driverID)
}

// RecordRating folds a new rating into the target user's running average.
func (s *Service) RecordRating(ctx context.Context, id types.ID, rating int) error {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	avg, count, err := ApplyRating(u.Rating, u.TotalRatings, rating)
	if err != nil {
		return err
	}
	if err := s.store.UpdateRating(ctx, id, avg, count); err != nil {
		return err
	}
	s.log.Info("rating recorded", "user_id", id, "rating", rating, "average", avg, "count", count)
	return nil
}

func newID() types.ID {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return types.ID(hex.EncodeToString(b))
}
