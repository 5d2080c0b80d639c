// README: Booking service: seat-safe creation, lifecycle transitions, ratings.
package booking

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"metrosync/internal/geo"
	"metrosync/internal/modules/route"
	"metrosync/internal/modules/user"
	"metrosync/internal/observability"
	"metrosync/internal/types"
)

var (
	ErrInvalidState = errors.New("invalid booking state transition")
	ErrConflict     = errors.New("booking state conflict")
	ErrBadRequest   = errors.New("bad request")
	ErrNotAllowed   = errors.New("caller is not a party to this booking")
	ErrAlreadyRated = errors.New("booking already rated by this party")
	ErrOffRoute     = errors.New("point outside the route corridor")
)

const (
	maxPassengers = 10
	refAttempts   = 5
	// Arrival estimate assumes two minutes of stop-and-go traffic per km.
	minutesPerKm = 2
)

// Routes is the slice of the route store the booking service needs.
type Routes interface {
	Get(ctx context.Context, id types.ID) (*route.Route, error)
	StopsByRoute(ctx context.Context, routeID types.ID) ([]route.VirtualStop, error)
}

// Users resolves accounts and vehicle capacity.
type Users interface {
	Get(ctx context.Context, id types.ID) (*user.User, error)
	ActiveVehicleCapacity(ctx context.Context, ownerID types.ID) (int, error)
}

// Quoter prices a trip.
type Quoter interface {
	Quote(distanceKm float64, passengers int) types.Money
}

// Ratings folds a booking rating into a user's running average.
type Ratings interface {
	RecordRating(ctx context.Context, id types.ID, rating int) error
}

type Service struct {
	store   Store
	routes  Routes
	users   Users
	pricing Quoter
	ratings Ratings
	log     *slog.Logger
	now     func() time.Time
}

func NewService(store Store, routes Routes, users Users, pricing Quoter, ratings Ratings, log *slog.Logger) *Service {
	return &Service{
		store:   store,
		routes:  routes,
		users:   users,
		pricing: pricing,
		ratings: ratings,
		log:     log,
		now:     time.Now,
	}
}

type CreateCommand struct {
	RiderID      types.ID
	RouteID      types.ID
	Pickup       types.Point
	Dropoff      types.Point
	Passengers   int
	ScheduledAt  time.Time
	Instructions string
}

// Create books seats on a published route. The pickup and dropoff must both
// lie within the route's deviation corridor, and the seat count is checked
// against the driver's active vehicle inside the store transaction.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Booking, error) {
	rider, err := s.users.Get(ctx, cmd.RiderID)
	if err != nil {
		return nil, err
	}
	if !rider.IsRider() {
		return nil, fmt.Errorf("%w: user %s cannot book rides", ErrBadRequest, cmd.RiderID)
	}
	r, err := s.routes.Get(ctx, cmd.RouteID)
	if err != nil {
		return nil, err
	}
	if !r.Bookable() {
		return nil, fmt.Errorf("%w: route is not open for booking", ErrBadRequest)
	}
	if cmd.Passengers < 1 || cmd.Passengers > maxPassengers {
		return nil, fmt.Errorf("%w: passengers must be between 1 and %d", ErrBadRequest, maxPassengers)
	}
	now := s.now()
	if !cmd.ScheduledAt.After(now) {
		return nil, fmt.Errorf("%w: scheduled time must be in the future", ErrBadRequest)
	}
	if !cmd.Pickup.Valid() || !cmd.Dropoff.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range", ErrBadRequest)
	}
	for name, p := range map[string]types.Point{"pickup": cmd.Pickup, "dropoff": cmd.Dropoff} {
		d, err := geo.DistanceToLineMeters(r.Path, p)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		if d > r.MaxDeviationM {
			return nil, fmt.Errorf("%w: %s is %.0f m from the route", ErrOffRoute, name, d)
		}
	}

	capacity, err := s.users.ActiveVehicleCapacity(ctx, r.DriverID)
	if err != nil {
		return nil, err
	}
	if capacity == 0 {
		return nil, fmt.Errorf("%w: driver has no active vehicle", ErrBadRequest)
	}

	distKm := types.Round2(geo.DistanceMeters(cmd.Pickup, cmd.Dropoff) / 1000)
	fare := s.pricing.Quote(distKm, cmd.Passengers)
	eta := cmd.ScheduledAt.Add(time.Duration(distKm * minutesPerKm * float64(time.Minute)))

	b := &Booking{
		ID:              newID(),
		RiderID:         cmd.RiderID,
		DriverID:        r.DriverID,
		RouteID:         r.ID,
		StopID:          s.nearestStop(ctx, r.ID, cmd.Pickup),
		Pickup:          cmd.Pickup,
		Dropoff:         cmd.Dropoff,
		Passengers:      cmd.Passengers,
		Instructions:    cmd.Instructions,
		DistanceKm:      distKm,
		Fare:            fare,
		Status:          StatusPending,
		ScheduledAt:     cmd.ScheduledAt,
		EstimatedArrive: eta,
		CreatedAt:       now,
	}

	for attempt := 0; ; attempt++ {
		b.Reference = newReference()
		err = s.store.Create(ctx, b, capacity)
		if err == nil {
			break
		}
		if errors.Is(err, errDuplicateRef) && attempt < refAttempts-1 {
			continue
		}
		return nil, err
	}

	observability.BookingsCreated.Inc()
	if s.log != nil {
		s.log.Info("booking created",
			"booking", b.ID, "reference", b.Reference,
			"rider", b.RiderID, "route", b.RouteID,
			"passengers", b.Passengers, "fare", b.Fare.String())
	}
	// TODO: notify the driver over FCM once device tokens are stored on users.
	return b, nil
}

// Confirm moves a pending booking to confirmed. Only the route's driver may
// confirm.
func (s *Service) Confirm(ctx context.Context, bookingID, callerID types.ID) error {
	return s.driverTransition(ctx, bookingID, callerID, ActionConfirm)
}

// Start marks a confirmed booking as underway.
func (s *Service) Start(ctx context.Context, bookingID, callerID types.ID) error {
	return s.driverTransition(ctx, bookingID, callerID, ActionStart)
}

// Complete closes out an in-progress booking.
func (s *Service) Complete(ctx context.Context, bookingID, callerID types.ID) error {
	return s.driverTransition(ctx, bookingID, callerID, ActionComplete)
}

func (s *Service) driverTransition(ctx context.Context, bookingID, callerID types.ID, action Action) error {
	b, err := s.store.Get(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.DriverID != callerID {
		return ErrNotAllowed
	}
	to, err := Decide(b.Status, action)
	if err != nil {
		return err
	}
	ok, err := s.store.UpdateStatus(ctx, b.ID, b.Status, to, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	observability.BookingTransitions.WithLabelValues(string(to)).Inc()
	if s.log != nil {
		s.log.Info("booking transition", "booking", b.ID, "from", b.Status, "to", to)
	}
	return nil
}

// Cancel withdraws a pending or confirmed booking. Either party may cancel;
// the actor and reason are recorded.
func (s *Service) Cancel(ctx context.Context, bookingID, callerID types.ID, reason string) error {
	b, err := s.store.Get(ctx, bookingID)
	if err != nil {
		return err
	}
	if callerID != b.RiderID && callerID != b.DriverID {
		return ErrNotAllowed
	}
	if _, err := Decide(b.Status, ActionCancel); err != nil {
		return err
	}
	ok, err := s.store.Cancel(ctx, b.ID, b.Status, callerID, reason, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	observability.BookingTransitions.WithLabelValues(string(StatusCancelled)).Inc()
	if s.log != nil {
		s.log.Info("booking cancelled", "booking", b.ID, "by", callerID, "reason", reason)
	}
	return nil
}

// Rate records a 1-5 rating with optional feedback text on a completed
// booking. The rider rates the driver and vice versa; each side rates at most
// once, and the counterparty's running average updates immediately.
func (s *Service) Rate(ctx context.Context, bookingID, callerID types.ID, rating int, feedback string) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrBadRequest)
	}
	b, err := s.store.Get(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.Status != StatusCompleted {
		return ErrInvalidState
	}

	var set bool
	var ratee types.ID
	switch callerID {
	case b.RiderID:
		ratee = b.DriverID
		set, err = s.store.SetDriverRating(ctx, b.ID, rating, feedback)
	case b.DriverID:
		ratee = b.RiderID
		set, err = s.store.SetRiderRating(ctx, b.ID, rating, feedback)
	default:
		return ErrNotAllowed
	}
	if err != nil {
		return err
	}
	if !set {
		return ErrAlreadyRated
	}
	// The aggregate update runs outside the rating write's transaction. The
	// booking row is the source of truth; if this fails the average lags
	// until rebuilt from bookings, so surface the error loudly.
	if err := s.ratings.RecordRating(ctx, ratee, rating); err != nil {
		if s.log != nil {
			s.log.Warn("rating recorded but aggregate update failed",
				"booking", b.ID, "ratee", ratee, "error", err)
		}
		return fmt.Errorf("update rating average for %s: %w", ratee, err)
	}
	if s.log != nil {
		s.log.Info("booking rated", "booking", b.ID, "by", callerID, "rating", rating)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Booking, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) GetByReference(ctx context.Context, ref string) (*Booking, error) {
	return s.store.GetByReference(ctx, ref)
}

func (s *Service) ListByRider(ctx context.Context, riderID types.ID) ([]Booking, error) {
	return s.store.ListByRider(ctx, riderID)
}

func (s *Service) ListUpcomingByRider(ctx context.Context, riderID types.ID) ([]Booking, error) {
	return s.store.ListUpcomingByRider(ctx, riderID, s.now())
}

func (s *Service) PendingForDriver(ctx context.Context, driverID types.ID) ([]Booking, error) {
	return s.store.PendingForDriver(ctx, driverID)
}

func (s *Service) ActiveByRoute(ctx context.Context, routeID types.ID, day time.Time) ([]Booking, error) {
	return s.store.ActiveByRoute(ctx, routeID, day)
}

func (s *Service) CompletedByDriverInRange(ctx context.Context, driverID types.ID, from, to time.Time) ([]Booking, error) {
	return s.store.CompletedByDriverInRange(ctx, driverID, from, to)
}

// NextStop describes the driver's next scheduled pickup.
type NextStop struct {
	StopName   string
	ETAMinutes int
}

// DriverStats is the dashboard snapshot for a driver's day.
type DriverStats struct {
	ActivePassengers int
	PendingRequests  int
	NextStop         *NextStop
	TodayEarnings    types.Money
	TodayTrips       int
	TodayPassengers  int
	// AcceptanceRate is accepted-over-received for bookings created today,
	// zero when no requests arrived yet.
	AcceptanceRate float64
}

func (s *Service) DriverStats(ctx context.Context, driverID types.ID) (*DriverStats, error) {
	now := s.now()
	y, mo, d := now.UTC().Date()
	dayStart := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	stats := &DriverStats{}

	var err error
	if stats.ActivePassengers, err = s.store.BoardedPassengers(ctx, driverID); err != nil {
		return nil, fmt.Errorf("boarded passengers: %w", err)
	}
	if stats.PendingRequests, err = s.store.CountPendingAfter(ctx, driverID, now); err != nil {
		return nil, fmt.Errorf("pending requests: %w", err)
	}

	next, err := s.store.NextUpcomingForDriver(ctx, driverID, now)
	if err != nil {
		return nil, fmt.Errorf("next booking: %w", err)
	}
	if next != nil {
		eta := int(next.ScheduledAt.Sub(now).Minutes())
		if eta < 0 {
			eta = 0
		}
		stats.NextStop = &NextStop{
			StopName:   s.stopName(ctx, next),
			ETAMinutes: eta,
		}
	}

	done, err := s.store.CompletedByDriverInRange(ctx, driverID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("completed today: %w", err)
	}
	earned, currency := 0.0, ""
	for i := range done {
		earned += done[i].Fare.Amount
		currency = done[i].Fare.Currency
		stats.TodayPassengers += done[i].Passengers
	}
	stats.TodayTrips = len(done)
	stats.TodayEarnings = types.NewMoney(earned, currency)

	total, accepted, err := s.store.RequestCountsSince(ctx, driverID, dayStart)
	if err != nil {
		return nil, fmt.Errorf("request counts: %w", err)
	}
	if total > 0 {
		stats.AcceptanceRate = float64(accepted) / float64(total)
	}
	return stats, nil
}

// stopName resolves the booking's virtual stop label, falling back to a
// generic pickup label for door-to-door bookings.
func (s *Service) stopName(ctx context.Context, b *Booking) string {
	const fallback = "Pickup Location"
	if b.StopID == nil {
		return fallback
	}
	stops, err := s.routes.StopsByRoute(ctx, b.RouteID)
	if err != nil {
		return fallback
	}
	for i := range stops {
		if stops[i].ID == *b.StopID {
			return stops[i].Name
		}
	}
	return fallback
}

// nearestStop returns the active virtual stop closest to the pickup, if the
// route has any.
func (s *Service) nearestStop(ctx context.Context, routeID types.ID, pickup types.Point) *types.ID {
	stops, err := s.routes.StopsByRoute(ctx, routeID)
	if err != nil || len(stops) == 0 {
		return nil
	}
	var best *types.ID
	bestDist := 0.0
	for i := range stops {
		if !stops[i].Active {
			continue
		}
		d := geo.DistanceMeters(pickup, stops[i].Location)
		if best == nil || d < bestDist {
			best = &stops[i].ID
			bestDist = d
		}
	}
	return best
}

func newID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(fmt.Sprintf("%x", b[:]))
}

// newReference produces the rider-facing code, e.g. BK-3FA9C21B.
func newReference() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("BK-%X", b[:])
}
