// README: Route service tests against the in-memory store.
package route

import (
	"context"
	"errors"
	"testing"

	"metrosync/internal/maps"
	"metrosync/internal/modules/user"
	"metrosync/internal/types"
)

func newTestService(t *testing.T) (*Service, *MemoryStore, types.ID) {
	t.Helper()
	users := user.NewMemoryStore()
	driver := &user.User{
		ID:       types.ID("driver-1"),
		Username: "kemi",
		Email:    "kemi@example.com",
		Roles:    []user.Role{user.RoleDriver},
		Active:   true,
	}
	if err := users.Create(context.Background(), driver); err != nil {
		t.Fatalf("seed driver: %v", err)
	}
	rider := &user.User{
		ID:       types.ID("rider-1"),
		Username: "tunde",
		Email:    "tunde@example.com",
		Roles:    []user.Role{user.RoleRider},
		Active:   true,
	}
	if err := users.Create(context.Background(), rider); err != nil {
		t.Fatalf("seed rider: %v", err)
	}
	store := NewMemoryStore()
	svc := NewService(store, users, maps.SpeedEstimator{SpeedKmh: 30}, nil)
	return svc, store, driver.ID
}

// A straight corridor in Abuja, roughly south to north along one meridian.
func abujaPath() []types.Point {
	return []types.Point{
		{Lat: 9.0000, Lng: 7.4500},
		{Lat: 9.0500, Lng: 7.4500},
		{Lat: 9.1000, Lng: 7.4500},
	}
}

func TestCreateComputesDistanceAndDefaults(t *testing.T) {
	svc, _, driverID := newTestService(t)

	r, err := svc.Create(context.Background(), CreateCommand{
		DriverID: driverID,
		Name:     "Kubwa Express",
		Path:     abujaPath(),
	}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// 0.1 degrees of latitude is just over 11 km.
	if r.DistanceKm < 11.0 || r.DistanceKm > 11.3 {
		t.Errorf("distance = %.2f km, want about 11.1", r.DistanceKm)
	}
	if r.MaxDeviationM != DefaultMaxDeviationM {
		t.Errorf("max deviation = %.0f, want default %d", r.MaxDeviationM, DefaultMaxDeviationM)
	}
	if r.Published {
		t.Error("new route must start unpublished")
	}
	if !r.Active {
		t.Error("new route must start active")
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	svc, _, driverID := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		cmd  CreateCommand
	}{
		{"missing name", CreateCommand{DriverID: driverID, Path: abujaPath()}},
		{"single point", CreateCommand{DriverID: driverID, Name: "x", Path: abujaPath()[:1]}},
		{"invalid coordinate", CreateCommand{DriverID: driverID, Name: "x", Path: []types.Point{{Lat: 91, Lng: 0}, {Lat: 9, Lng: 7}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tc.cmd, nil); !errors.Is(err, ErrBadRequest) {
				t.Errorf("got %v, want ErrBadRequest", err)
			}
		})
	}
}

func TestCreateRejectsNonDriver(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), CreateCommand{
		DriverID: types.ID("rider-1"),
		Name:     "Nope",
		Path:     abujaPath(),
	}, nil)
	if !errors.Is(err, ErrBadRequest) {
		t.Errorf("got %v, want ErrBadRequest", err)
	}
}

func TestCreateEstimatesStopOffsets(t *testing.T) {
	svc, _, driverID := newTestService(t)

	r, err := svc.Create(context.Background(), CreateCommand{
		DriverID: driverID,
		Name:     "Kubwa Express",
		Path:     abujaPath(),
	}, []StopCommand{
		{Name: "Midway", Location: types.Point{Lat: 9.0500, Lng: 7.4500}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	stops, err := svc.Stops(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("stops: %v", err)
	}
	if len(stops) != 1 {
		t.Fatalf("got %d stops, want 1", len(stops))
	}
	if stops[0].TimeOffsetMin == nil {
		t.Fatal("stop offset not estimated")
	}
	// ~5.56 km at 30 km/h is about 11 minutes.
	if *stops[0].TimeOffsetMin < 10 || *stops[0].TimeOffsetMin > 13 {
		t.Errorf("offset = %d min, want about 11", *stops[0].TimeOffsetMin)
	}
	if stops[0].SequenceOrder != 1 {
		t.Errorf("sequence = %d, want 1", stops[0].SequenceOrder)
	}
}

func TestPublishOwnershipAndIdempotence(t *testing.T) {
	svc, _, driverID := newTestService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, CreateCommand{DriverID: driverID, Name: "Kubwa Express", Path: abujaPath()}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Publish(ctx, r.ID, types.ID("rider-1")); !errors.Is(err, ErrNotOwner) {
		t.Errorf("foreign publish: got %v, want ErrNotOwner", err)
	}

	pub, err := svc.Publish(ctx, r.ID, driverID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !pub.Published || !pub.Active {
		t.Error("published route must be active and published")
	}

	if _, err := svc.Publish(ctx, r.ID, driverID); !errors.Is(err, ErrPublished) {
		t.Errorf("second publish: got %v, want ErrPublished", err)
	}
}

func TestAddStopOnlyBeforePublish(t *testing.T) {
	svc, _, driverID := newTestService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, CreateCommand{DriverID: driverID, Name: "Kubwa Express", Path: abujaPath()}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.AddStop(ctx, r.ID, driverID, StopCommand{Name: "Gate", Location: types.Point{Lat: 9.02, Lng: 7.45}}); err != nil {
		t.Fatalf("add stop: %v", err)
	}

	if _, err := svc.Publish(ctx, r.ID, driverID); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := svc.AddStop(ctx, r.ID, driverID, StopCommand{Name: "Late", Location: types.Point{Lat: 9.03, Lng: 7.45}}); !errors.Is(err, ErrPublished) {
		t.Errorf("stop after publish: got %v, want ErrPublished", err)
	}
}

func TestDeleteDraftOnly(t *testing.T) {
	svc, store, driverID := newTestService(t)
	ctx := context.Background()

	draft, err := svc.Create(ctx, CreateCommand{DriverID: driverID, Name: "Draft", Path: abujaPath()}, nil)
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if err := svc.Delete(ctx, draft.ID, types.ID("rider-1")); !errors.Is(err, ErrNotOwner) {
		t.Errorf("foreign delete: got %v, want ErrNotOwner", err)
	}
	if err := svc.Delete(ctx, draft.ID, driverID); err != nil {
		t.Fatalf("delete draft: %v", err)
	}
	if _, err := store.Get(ctx, draft.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get deleted: got %v, want ErrNotFound", err)
	}

	live, err := svc.Create(ctx, CreateCommand{DriverID: driverID, Name: "Live", Path: abujaPath()}, nil)
	if err != nil {
		t.Fatalf("create live: %v", err)
	}
	if _, err := svc.Publish(ctx, live.ID, driverID); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := svc.Delete(ctx, live.ID, driverID); !errors.Is(err, ErrPublished) {
		t.Errorf("delete published: got %v, want ErrPublished", err)
	}
}

func TestDeactivateUnpublishes(t *testing.T) {
	svc, store, driverID := newTestService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, CreateCommand{DriverID: driverID, Name: "Kubwa Express", Path: abujaPath()}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Publish(ctx, r.ID, driverID); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := svc.Deactivate(ctx, r.ID, driverID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	got, err := store.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Active || got.Published {
		t.Errorf("deactivated route is active=%v published=%v, want both false", got.Active, got.Published)
	}
	if got.Bookable() {
		t.Error("deactivated route must not be bookable")
	}
}
