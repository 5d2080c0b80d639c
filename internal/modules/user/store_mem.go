// README: In-memory Store used by tests and the seeder dry-run.
package user

import (
	"context"
	"fmt"
	"sync"

	"metrosync/internal/types"
)

type MemoryStore struct {
	mu       sync.RWMutex
	users    map[types.ID]*User
	vehicles map[types.ID]*Vehicle
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[types.ID]*User),
		vehicles: make(map[types.ID]*Vehicle),
	}
}

func (m *MemoryStore) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, have := range m.users {
		if have.Username == u.Username || have.Email == u.Email {
			return fmt.Errorf("%w: users", ErrDuplicate)
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id types.ID) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) GetByUsername(_ context.Context, username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) UpdateRating(_ context.Context, id types.ID, rating float64, total int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Rating = rating
	u.TotalRatings = total
	return nil
}

func (m *MemoryStore) UpdateLocation(_ context.Context, id types.ID, p types.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	loc := p
	u.CurrentLocation = &loc
	return nil
}

func (m *MemoryStore) AddVehicle(_ context.Context, v *Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, have := range m.vehicles {
		if have.LicensePlate == v.LicensePlate {
			return fmt.Errorf("%w: vehicles_license_plate", ErrDuplicate)
		}
	}
	cp := *v
	m.vehicles[v.ID] = &cp
	return nil
}

func (m *MemoryStore) VehiclesByOwner(_ context.Context, ownerID types.ID) ([]Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Vehicle
	for _, v := range m.vehicles {
		if v.OwnerID == ownerID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (m *MemoryStore) ActiveVehicleCapacity(_ context.Context, ownerID types.ID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	capacity := 0
	for _, v := range m.vehicles {
		if v.OwnerID == ownerID && v.Active && v.Capacity > capacity {
			capacity = v.Capacity
		}
	}
	return capacity, nil
}
