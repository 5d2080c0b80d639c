// README: Route lifecycle service: creation, publishing, virtual stops.
package route

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"metrosync/internal/geo"
	"metrosync/internal/maps"
	"metrosync/internal/modules/user"
	"metrosync/internal/types"
)

var (
	ErrBadRequest   = errors.New("route: bad request")
	ErrNotOwner     = errors.New("route: caller does not own this route")
	ErrPublished    = errors.New("route: already published")
	ErrNotPublished = errors.New("route: not published")
)

// Users is the slice of the user store the route service needs.
type Users interface {
	Get(ctx context.Context, id types.ID) (*user.User, error)
}

type Service struct {
	store     Store
	users     Users
	estimator maps.TravelEstimator
	log       *slog.Logger
}

func NewService(store Store, users Users, estimator maps.TravelEstimator, log *slog.Logger) *Service {
	if estimator == nil {
		estimator = maps.SpeedEstimator{}
	}
	return &Service{store: store, users: users, estimator: estimator, log: log}
}

type CreateCommand struct {
	DriverID      types.ID
	Name          string
	Description   string
	Path          []types.Point
	MaxDeviationM float64
}

type StopCommand struct {
	Name          string
	Description   string
	Location      types.Point
	SequenceOrder int
}

// Create validates the path, computes its length, and stores the route with
// optional virtual stops. Stop time offsets are estimated from the route start.
func (s *Service) Create(ctx context.Context, cmd CreateCommand, stops []StopCommand) (*Route, error) {
	u, err := s.users.Get(ctx, cmd.DriverID)
	if err != nil {
		return nil, err
	}
	if !u.IsDriver() {
		return nil, fmt.Errorf("%w: user %s is not a driver", ErrBadRequest, cmd.DriverID)
	}
	if cmd.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrBadRequest)
	}
	if len(cmd.Path) < 2 {
		return nil, fmt.Errorf("%w: path needs at least two points", ErrBadRequest)
	}
	for i, p := range cmd.Path {
		if !p.Valid() {
			return nil, fmt.Errorf("%w: path point %d out of range", ErrBadRequest, i)
		}
	}
	distKm, err := geo.LineLengthKm(cmd.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	maxDev := cmd.MaxDeviationM
	if maxDev <= 0 {
		maxDev = DefaultMaxDeviationM
	}

	r := &Route{
		ID:            newID(),
		Name:          cmd.Name,
		Description:   cmd.Description,
		DriverID:      cmd.DriverID,
		Path:          append([]types.Point(nil), cmd.Path...),
		DistanceKm:    distKm,
		Active:        true,
		Published:     false,
		MaxDeviationM: maxDev,
		CreatedAt:     time.Now().UTC(),
	}

	vstops := make([]VirtualStop, 0, len(stops))
	for i, sc := range stops {
		if !sc.Location.Valid() {
			return nil, fmt.Errorf("%w: stop %d location out of range", ErrBadRequest, i)
		}
		seq := sc.SequenceOrder
		if seq == 0 {
			seq = i + 1
		}
		vs := VirtualStop{
			ID:            newID(),
			RouteID:       r.ID,
			Name:          sc.Name,
			Description:   sc.Description,
			Location:      sc.Location,
			SequenceOrder: seq,
			Active:        true,
		}
		if min, eerr := s.estimator.EstimateMinutes(ctx, r.StartPoint(), sc.Location); eerr == nil {
			vs.TimeOffsetMin = &min
		} else if s.log != nil {
			s.log.Warn("stop offset estimate failed", "route", r.ID, "stop", sc.Name, "err", eerr)
		}
		vstops = append(vstops, vs)
	}

	if err := s.store.Create(ctx, r, vstops); err != nil {
		return nil, err
	}
	if s.log != nil {
		s.log.Info("route created", "route", r.ID, "driver", r.DriverID, "distanceKm", r.DistanceKm, "stops", len(vstops))
	}
	return r, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Route, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListByDriver(ctx context.Context, driverID types.ID) ([]Route, error) {
	return s.store.ListByDriver(ctx, driverID)
}

func (s *Service) Stops(ctx context.Context, routeID types.ID) ([]VirtualStop, error) {
	if _, err := s.store.Get(ctx, routeID); err != nil {
		return nil, err
	}
	return s.store.StopsByRoute(ctx, routeID)
}

// Publish makes a route bookable. Only the owning driver may publish, and the
// path is frozen from this point on.
func (s *Service) Publish(ctx context.Context, routeID, callerID types.ID) (*Route, error) {
	r, err := s.ownedRoute(ctx, routeID, callerID)
	if err != nil {
		return nil, err
	}
	if r.Published {
		return nil, ErrPublished
	}
	if err := s.store.Publish(ctx, routeID); err != nil {
		return nil, err
	}
	r.Published = true
	r.Active = true
	if s.log != nil {
		s.log.Info("route published", "route", routeID, "driver", callerID)
	}
	return r, nil
}

// Deactivate takes a route off the market. It also unpublishes it, so
// reactivation requires publishing again.
func (s *Service) Deactivate(ctx context.Context, routeID, callerID types.ID) error {
	if _, err := s.ownedRoute(ctx, routeID, callerID); err != nil {
		return err
	}
	if err := s.store.SetActive(ctx, routeID, false); err != nil {
		return err
	}
	if s.log != nil {
		s.log.Info("route deactivated", "route", routeID, "driver", callerID)
	}
	return nil
}

// Delete removes a draft route and its stops. Published routes cannot be
// deleted because bookings may reference them; deactivate instead.
func (s *Service) Delete(ctx context.Context, routeID, callerID types.ID) error {
	r, err := s.ownedRoute(ctx, routeID, callerID)
	if err != nil {
		return err
	}
	if r.Published {
		return fmt.Errorf("%w: published routes can only be deactivated", ErrPublished)
	}
	if err := s.store.Delete(ctx, routeID); err != nil {
		return err
	}
	if s.log != nil {
		s.log.Info("route deleted", "route", routeID, "driver", callerID)
	}
	return nil
}

// AddStop appends a virtual stop to an unpublished route.
func (s *Service) AddStop(ctx context.Context, routeID, callerID types.ID, cmd StopCommand) (*VirtualStop, error) {
	r, err := s.ownedRoute(ctx, routeID, callerID)
	if err != nil {
		return nil, err
	}
	if r.Published {
		return nil, fmt.Errorf("%w: stops cannot change after publishing", ErrPublished)
	}
	if !cmd.Location.Valid() {
		return nil, fmt.Errorf("%w: stop location out of range", ErrBadRequest)
	}
	seq := cmd.SequenceOrder
	if seq == 0 {
		existing, err := s.store.StopsByRoute(ctx, routeID)
		if err != nil {
			return nil, err
		}
		seq = len(existing) + 1
	}
	vs := &VirtualStop{
		ID:            newID(),
		RouteID:       routeID,
		Name:          cmd.Name,
		Description:   cmd.Description,
		Location:      cmd.Location,
		SequenceOrder: seq,
		Active:        true,
	}
	if min, eerr := s.estimator.EstimateMinutes(ctx, r.StartPoint(), cmd.Location); eerr == nil {
		vs.TimeOffsetMin = &min
	}
	if err := s.store.AddStop(ctx, vs); err != nil {
		return nil, err
	}
	return vs, nil
}

func (s *Service) ownedRoute(ctx context.Context, routeID, callerID types.ID) (*Route, error) {
	r, err := s.store.Get(ctx, routeID)
	if err != nil {
		return nil, err
	}
	if r.DriverID != callerID {
		return nil, ErrNotOwner
	}
	return r, nil
}

func newID() types.ID {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return types.ID(hex.EncodeToString(b))
}
