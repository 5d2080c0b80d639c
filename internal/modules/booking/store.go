// README: Booking persistence: pgx store with seat-safe creation and CAS updates.
package booking

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"metrosync/internal/types"
)

var (
	ErrNotFound = errors.New("booking not found")
	ErrCapacity = errors.New("vehicle capacity exceeded")

	// errDuplicateRef signals a reference number collision; the service
	// retries with a fresh reference.
	errDuplicateRef = errors.New("duplicate booking reference")
)

type Store interface {
	// Create inserts the booking after verifying, under a route-level lock,
	// that its passengers fit the remaining capacity for the scheduled day.
	Create(ctx context.Context, b *Booking, capacity int) error
	Get(ctx context.Context, id types.ID) (*Booking, error)
	GetByReference(ctx context.Context, ref string) (*Booking, error)
	// UpdateStatus performs a compare-and-set from one status to another,
	// stamping the matching timestamp column. Returns false when the booking
	// was no longer in the expected status.
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, at time.Time) (bool, error)
	Cancel(ctx context.Context, id types.ID, from Status, by types.ID, reason string, at time.Time) (bool, error)
	// SetDriverRating records the rider's rating of the driver; false when
	// already rated. SetRiderRating is the mirror image.
	SetDriverRating(ctx context.Context, id types.ID, rating int, feedback string) (bool, error)
	SetRiderRating(ctx context.Context, id types.ID, rating int, feedback string) (bool, error)
	ListByRider(ctx context.Context, riderID types.ID) ([]Booking, error)
	ListUpcomingByRider(ctx context.Context, riderID types.ID, after time.Time) ([]Booking, error)
	PendingForDriver(ctx context.Context, driverID types.ID) ([]Booking, error)
	ActiveByRoute(ctx context.Context, routeID types.ID, day time.Time) ([]Booking, error)
	CompletedByDriverInRange(ctx context.Context, driverID types.ID, from, to time.Time) ([]Booking, error)
	// BoardedPassengers sums the seats currently riding with the driver.
	BoardedPassengers(ctx context.Context, driverID types.ID) (int, error)
	CountPendingAfter(ctx context.Context, driverID types.ID, after time.Time) (int, error)
	// NextUpcomingForDriver returns the soonest confirmed or in-progress
	// booking scheduled after the given time, or nil when there is none.
	NextUpcomingForDriver(ctx context.Context, driverID types.ID, after time.Time) (*Booking, error)
	// RequestCountsSince reports how many bookings were created since the
	// given time and how many of them the driver accepted (confirmed,
	// in progress or completed).
	RequestCountsSince(ctx context.Context, driverID types.ID, since time.Time) (total, accepted int, err error)
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

const bookingSelect = `
SELECT id, reference_number, rider_id, driver_id, route_id, stop_id,
       pickup_lat, pickup_lng, dropoff_lat, dropoff_lng,
       passengers, special_instructions, distance_km, fare_amount, fare_currency, status,
       scheduled_at, estimated_arrival_at, created_at,
       confirmed_at, started_at, completed_at,
       cancelled_at, cancelled_by, cancel_reason,
       driver_rating, rider_rating, driver_feedback, rider_feedback
FROM bookings`

func (s *PGStore) Create(ctx context.Context, b *Booking, capacity int) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Lock the route row so concurrent bookings for the same route serialize
	// on the capacity check.
	var routeID types.ID
	err = tx.QueryRow(ctx, `SELECT id FROM routes WHERE id = $1 FOR UPDATE`, b.RouteID).Scan(&routeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	var taken int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(passengers), 0)
		FROM bookings
		WHERE route_id = $1
		  AND status IN ('pending', 'confirmed', 'in_progress')
		  AND scheduled_at::date = $2::date`,
		b.RouteID, b.ScheduledAt).Scan(&taken)
	if err != nil {
		return err
	}
	if taken+b.Passengers > capacity {
		return ErrCapacity
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO bookings (
			id, reference_number, rider_id, driver_id, route_id, stop_id,
			pickup_lat, pickup_lng, dropoff_lat, dropoff_lng,
			passengers, special_instructions, distance_km, fare_amount, fare_currency, status,
			scheduled_at, estimated_arrival_at, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		b.ID, b.Reference, b.RiderID, b.DriverID, b.RouteID, b.StopID,
		b.Pickup.Lat, b.Pickup.Lng, b.Dropoff.Lat, b.Dropoff.Lng,
		b.Passengers, b.Instructions, b.DistanceKm, b.Fare.Amount, b.Fare.Currency, string(b.Status),
		b.ScheduledAt, b.EstimatedArrive, b.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return errDuplicateRef
		}
		return err
	}
	return tx.Commit(ctx)
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Booking, error) {
	return s.one(ctx, bookingSelect+` WHERE id = $1`, id)
}

func (s *PGStore) GetByReference(ctx context.Context, ref string) (*Booking, error) {
	return s.one(ctx, bookingSelect+` WHERE reference_number = $1`, ref)
}

func (s *PGStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings SET
			status = $3,
			confirmed_at = CASE WHEN $3 = 'confirmed' THEN $4 ELSE confirmed_at END,
			started_at   = CASE WHEN $3 = 'in_progress' THEN $4 ELSE started_at END,
			completed_at = CASE WHEN $3 = 'completed' THEN $4 ELSE completed_at END
		WHERE id = $1 AND status = $2`,
		id, string(from), string(to), at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) Cancel(ctx context.Context, id types.ID, from Status, by types.ID, reason string, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings SET
			status = 'cancelled',
			cancelled_at = $3,
			cancelled_by = $4,
			cancel_reason = NULLIF($5, '')
		WHERE id = $1 AND status = $2`,
		id, string(from), at, by, reason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) SetDriverRating(ctx context.Context, id types.ID, rating int, feedback string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings SET driver_rating = $2, driver_feedback = NULLIF($3, '')
		WHERE id = $1 AND status = 'completed' AND driver_rating IS NULL`,
		id, rating, feedback)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) SetRiderRating(ctx context.Context, id types.ID, rating int, feedback string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings SET rider_rating = $2, rider_feedback = NULLIF($3, '')
		WHERE id = $1 AND status = 'completed' AND rider_rating IS NULL`,
		id, rating, feedback)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) ListByRider(ctx context.Context, riderID types.ID) ([]Booking, error) {
	rows, err := s.db.Query(ctx, bookingSelect+` WHERE rider_id = $1 ORDER BY scheduled_at DESC`, riderID)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (s *PGStore) ListUpcomingByRider(ctx context.Context, riderID types.ID, after time.Time) ([]Booking, error) {
	rows, err := s.db.Query(ctx, bookingSelect+`
		WHERE rider_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND scheduled_at > $2
		ORDER BY scheduled_at ASC`, riderID, after)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (s *PGStore) PendingForDriver(ctx context.Context, driverID types.ID) ([]Booking, error) {
	rows, err := s.db.Query(ctx, bookingSelect+`
		WHERE driver_id = $1 AND status = 'pending'
		ORDER BY scheduled_at ASC`, driverID)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (s *PGStore) ActiveByRoute(ctx context.Context, routeID types.ID, day time.Time) ([]Booking, error) {
	rows, err := s.db.Query(ctx, bookingSelect+`
		WHERE route_id = $1
		  AND status IN ('pending', 'confirmed', 'in_progress')
		  AND scheduled_at::date = $2::date
		ORDER BY scheduled_at ASC`, routeID, day)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (s *PGStore) CompletedByDriverInRange(ctx context.Context, driverID types.ID, from, to time.Time) ([]Booking, error) {
	rows, err := s.db.Query(ctx, bookingSelect+`
		WHERE driver_id = $1
		  AND status = 'completed'
		  AND completed_at >= $2 AND completed_at < $3
		ORDER BY completed_at ASC`, driverID, from, to)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (s *PGStore) BoardedPassengers(ctx context.Context, driverID types.ID) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(passengers), 0) FROM bookings
		WHERE driver_id = $1 AND status = 'in_progress'`, driverID).Scan(&n)
	return n, err
}

func (s *PGStore) CountPendingAfter(ctx context.Context, driverID types.ID, after time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE driver_id = $1 AND status = 'pending' AND scheduled_at > $2`,
		driverID, after).Scan(&n)
	return n, err
}

func (s *PGStore) NextUpcomingForDriver(ctx context.Context, driverID types.ID, after time.Time) (*Booking, error) {
	b, err := scanBooking(s.db.QueryRow(ctx, bookingSelect+`
		WHERE driver_id = $1
		  AND status IN ('confirmed', 'in_progress')
		  AND scheduled_at > $2
		ORDER BY scheduled_at ASC
		LIMIT 1`, driverID, after))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *PGStore) RequestCountsSince(ctx context.Context, driverID types.ID, since time.Time) (int, int, error) {
	var total, accepted int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status IN ('confirmed', 'in_progress', 'completed'))
		FROM bookings
		WHERE driver_id = $1 AND created_at >= $2`,
		driverID, since).Scan(&total, &accepted)
	return total, accepted, err
}

func (s *PGStore) one(ctx context.Context, query string, arg any) (*Booking, error) {
	b, err := scanBooking(s.db.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*Booking, error) {
	var b Booking
	var status string
	err := row.Scan(
		&b.ID, &b.Reference, &b.RiderID, &b.DriverID, &b.RouteID, &b.StopID,
		&b.Pickup.Lat, &b.Pickup.Lng, &b.Dropoff.Lat, &b.Dropoff.Lng,
		&b.Passengers, &b.Instructions, &b.DistanceKm, &b.Fare.Amount, &b.Fare.Currency, &status,
		&b.ScheduledAt, &b.EstimatedArrive, &b.CreatedAt,
		&b.ConfirmedAt, &b.StartedAt, &b.CompletedAt,
		&b.CancelledAt, &b.CancelledBy, &b.CancelReason,
		&b.DriverRating, &b.RiderRating, &b.DriverFeedback, &b.RiderFeedback,
	)
	if err != nil {
		return nil, err
	}
	b.Status = Status(status)
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]Booking, error) {
	defer rows.Close()
	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}
