// README: In-memory booking Store with the same serialization guarantees as PG.
package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"metrosync/internal/types"
)

// MemoryStore serializes every mutation behind one mutex, which gives the
// same exactly-one-winner behavior the SQL store gets from row locks and
// compare-and-set updates.
type MemoryStore struct {
	mu       sync.Mutex
	bookings map[types.ID]*Booking
	byRef    map[string]types.ID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bookings: make(map[types.ID]*Booking),
		byRef:    make(map[string]types.ID),
	}
}

func (m *MemoryStore) Create(_ context.Context, b *Booking, capacity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.byRef[b.Reference]; dup {
		return errDuplicateRef
	}
	taken := 0
	for _, have := range m.bookings {
		if have.RouteID == b.RouteID && have.Status.Open() && sameDay(have.ScheduledAt, b.ScheduledAt) {
			taken += have.Passengers
		}
	}
	if taken+b.Passengers > capacity {
		return ErrCapacity
	}
	cp := *b
	m.bookings[b.ID] = &cp
	m.byRef[b.Reference] = b.ID
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id types.ID) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *MemoryStore) GetByReference(_ context.Context, ref string) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byRef[ref]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.bookings[id]
	return &cp, nil
}

func (m *MemoryStore) UpdateStatus(_ context.Context, id types.ID, from, to Status, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	ts := at
	switch to {
	case StatusConfirmed:
		b.ConfirmedAt = &ts
	case StatusInProgress:
		b.StartedAt = &ts
	case StatusCompleted:
		b.CompletedAt = &ts
	}
	return true, nil
}

func (m *MemoryStore) Cancel(_ context.Context, id types.ID, from Status, by types.ID, reason string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = StatusCancelled
	ts := at
	b.CancelledAt = &ts
	actor := by
	b.CancelledBy = &actor
	if reason != "" {
		r := reason
		b.CancelReason = &r
	}
	return true, nil
}

func (m *MemoryStore) SetDriverRating(_ context.Context, id types.ID, rating int, feedback string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != StatusCompleted || b.DriverRating != nil {
		return false, nil
	}
	r := rating
	b.DriverRating = &r
	if feedback != "" {
		f := feedback
		b.DriverFeedback = &f
	}
	return true, nil
}

func (m *MemoryStore) SetRiderRating(_ context.Context, id types.ID, rating int, feedback string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != StatusCompleted || b.RiderRating != nil {
		return false, nil
	}
	r := rating
	b.RiderRating = &r
	if feedback != "" {
		f := feedback
		b.RiderFeedback = &f
	}
	return true, nil
}

func (m *MemoryStore) ListByRider(_ context.Context, riderID types.ID) ([]Booking, error) {
	return m.list(func(b *Booking) bool { return b.RiderID == riderID }, newestFirst)
}

func (m *MemoryStore) ListUpcomingByRider(_ context.Context, riderID types.ID, after time.Time) ([]Booking, error) {
	return m.list(func(b *Booking) bool {
		return b.RiderID == riderID &&
			(b.Status == StatusPending || b.Status == StatusConfirmed) &&
			b.ScheduledAt.After(after)
	}, oldestFirst)
}

func (m *MemoryStore) PendingForDriver(_ context.Context, driverID types.ID) ([]Booking, error) {
	return m.list(func(b *Booking) bool {
		return b.DriverID == driverID && b.Status == StatusPending
	}, oldestFirst)
}

func (m *MemoryStore) ActiveByRoute(_ context.Context, routeID types.ID, day time.Time) ([]Booking, error) {
	return m.list(func(b *Booking) bool {
		return b.RouteID == routeID && b.Status.Open() && sameDay(b.ScheduledAt, day)
	}, oldestFirst)
}

func (m *MemoryStore) CompletedByDriverInRange(_ context.Context, driverID types.ID, from, to time.Time) ([]Booking, error) {
	return m.list(func(b *Booking) bool {
		return b.DriverID == driverID && b.Status == StatusCompleted &&
			b.CompletedAt != nil && !b.CompletedAt.Before(from) && b.CompletedAt.Before(to)
	}, oldestFirst)
}

func (m *MemoryStore) BoardedPassengers(_ context.Context, driverID types.ID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.bookings {
		if b.DriverID == driverID && b.Status == StatusInProgress {
			n += b.Passengers
		}
	}
	return n, nil
}

func (m *MemoryStore) CountPendingAfter(_ context.Context, driverID types.ID, after time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.bookings {
		if b.DriverID == driverID && b.Status == StatusPending && b.ScheduledAt.After(after) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) NextUpcomingForDriver(_ context.Context, driverID types.ID, after time.Time) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var next *Booking
	for _, b := range m.bookings {
		if b.DriverID != driverID || !b.ScheduledAt.After(after) {
			continue
		}
		if b.Status != StatusConfirmed && b.Status != StatusInProgress {
			continue
		}
		if next == nil || b.ScheduledAt.Before(next.ScheduledAt) {
			next = b
		}
	}
	if next == nil {
		return nil, nil
	}
	cp := *next
	return &cp, nil
}

func (m *MemoryStore) RequestCountsSince(_ context.Context, driverID types.ID, since time.Time) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total, accepted := 0, 0
	for _, b := range m.bookings {
		if b.DriverID != driverID || b.CreatedAt.Before(since) {
			continue
		}
		total++
		switch b.Status {
		case StatusConfirmed, StatusInProgress, StatusCompleted:
			accepted++
		}
	}
	return total, accepted, nil
}

type order int

const (
	newestFirst order = iota
	oldestFirst
)

func (m *MemoryStore) list(keep func(*Booking) bool, ord order) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Booking
	for _, b := range m.bookings {
		if keep(b) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if ord == newestFirst {
			return out[i].ScheduledAt.After(out[j].ScheduledAt)
		}
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	return out, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
