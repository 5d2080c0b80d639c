// README: In-memory route Store for tests and the seeder dry-run.
package route

import (
	"context"
	"sort"
	"sync"

	"metrosync/internal/types"
)

type MemoryStore struct {
	mu     sync.RWMutex
	routes map[types.ID]*Route
	stops  map[types.ID][]VirtualStop
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		routes: make(map[types.ID]*Route),
		stops:  make(map[types.ID][]VirtualStop),
	}
}

func (m *MemoryStore) Create(_ context.Context, r *Route, stops []VirtualStop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	cp.Path = append([]types.Point(nil), r.Path...)
	m.routes[r.ID] = &cp
	m.stops[r.ID] = append([]VirtualStop(nil), stops...)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id types.ID) (*Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.routes[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	cp.Path = append([]types.Point(nil), r.Path...)
	return &cp, nil
}

func (m *MemoryStore) ListByDriver(_ context.Context, driverID types.ID) ([]Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Route
	for _, r := range m.routes {
		if r.DriverID == driverID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) ListPublished(_ context.Context) ([]Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Route
	for _, r := range m.routes {
		if r.Published && r.Active {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *MemoryStore) Publish(_ context.Context, id types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[id]
	if !ok {
		return ErrNotFound
	}
	r.Published = true
	r.Active = true
	return nil
}

func (m *MemoryStore) SetActive(_ context.Context, id types.ID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[id]
	if !ok {
		return ErrNotFound
	}
	r.Active = active
	if !active {
		r.Published = false
	}
	return nil
}

func (m *MemoryStore) AddStop(_ context.Context, stop *VirtualStop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.routes[stop.RouteID]; !ok {
		return ErrNotFound
	}
	m.stops[stop.RouteID] = append(m.stops[stop.RouteID], *stop)
	return nil
}

func (m *MemoryStore) StopsByRoute(_ context.Context, routeID types.ID) ([]VirtualStop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]VirtualStop(nil), m.stops[routeID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceOrder < out[j].SequenceOrder })
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, id types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.routes[id]; !ok {
		return ErrNotFound
	}
	delete(m.routes, id)
	delete(m.stops, id)
	return nil
}
