package user

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestApplyRating(t *testing.T) {
	tests := []struct {
		name      string
		avg       float64
		count     int
		rating    int
		wantAvg   float64
		wantCount int
		wantErr   error
	}{
		{"first rating", 0, 0, 5, 5.00, 1, nil},
		{"second rating averages", 5.00, 1, 4, 4.50, 2, nil},
		{"rounds half-up to two decimals", 4.50, 2, 4, 4.33, 3, nil}, // 13/3 = 4.333…
		{"half value rounds up", 4.00, 1, 5, 4.50, 2, nil},
		{"long history shifts slowly", 4.80, 99, 1, 4.76, 100, nil}, // 476.2/100… -> 4.76
		{"minimum accepted", 3.00, 4, 1, 2.60, 5, nil},
		{"maximum accepted", 3.00, 4, 5, 3.40, 5, nil},
		{"zero rejected", 4.00, 10, 0, 0, 0, ErrRatingOutOfRange},
		{"six rejected", 4.00, 10, 6, 0, 0, ErrRatingOutOfRange},
		{"negative rejected", 4.00, 10, -1, 0, 0, ErrRatingOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			avg, count, err := ApplyRating(tt.avg, tt.count, tt.rating)
			if err != tt.wantErr {
				t.Fatalf("ApplyRating() err = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if avg != tt.wantAvg || count != tt.wantCount {
				t.Errorf("ApplyRating() = (%.2f, %d), want (%.2f, %d)", avg, count, tt.wantAvg, tt.wantCount)
			}
		})
	}
}

func TestRecordRating_PersistsRunningAverage(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, slog.Default())
	ctx := context.Background()

	driver := &User{
		ID: "d1", Username: "driver1", FullName: "Driver One",
		Email: "d1@example.com", Phone: "+2348000000001",
		Roles: []Role{RoleDriver}, Active: true, CreatedAt: time.Now(),
	}
	if err := store.Create(ctx, driver); err != nil {
		t.Fatalf("create driver: %v", err)
	}

	if err := svc.RecordRating(ctx, "d1", 5); err != nil {
		t.Fatalf("record first rating: %v", err)
	}
	if err := svc.RecordRating(ctx, "d1", 4); err != nil {
		t.Fatalf("record second rating: %v", err)
	}

	got, err := svc.Get(ctx, "d1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Rating != 4.50 || got.TotalRatings != 2 {
		t.Errorf("after two ratings: avg=%.2f count=%d, want 4.50/2", got.Rating, got.TotalRatings)
	}

	if err := svc.RecordRating(ctx, "d1", 9); err != ErrRatingOutOfRange {
		t.Errorf("out-of-range rating err = %v, want ErrRatingOutOfRange", err)
	}
}

func TestAddVehicle_RequiresDriverRole(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, slog.Default())
	ctx := context.Background()

	rider := &User{
		ID: "r1", Username: "rider1", FullName: "Rider One",
		Email: "r1@example.com", Phone: "+2348000000002",
		Roles: []Role{RoleRider}, Active: true, CreatedAt: time.Now(),
	}
	if err := store.Create(ctx, rider); err != nil {
		t.Fatalf("create rider: %v", err)
	}

	_, err := svc.AddVehicle(ctx, AddVehicleCommand{
		OwnerID: "r1", Make: "Toyota", Model: "Corolla",
		Year: 2019, LicensePlate: "ABJ-123-XY", Capacity: 4,
	})
	if err != ErrBadRequest {
		t.Errorf("AddVehicle for non-driver err = %v, want ErrBadRequest", err)
	}
}

func TestActiveVehicleCapacity_TakesLargestActive(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	vehicles := []*Vehicle{
		{ID: "v1", OwnerID: "d1", LicensePlate: "A1", Capacity: 4, Active: true},
		{ID: "v2", OwnerID: "d1", LicensePlate: "A2", Capacity: 14, Active: false},
		{ID: "v3", OwnerID: "d1", LicensePlate: "A3", Capacity: 6, Active: true},
	}
	for _, v := range vehicles {
		if err := store.AddVehicle(ctx, v); err != nil {
			t.Fatalf("add vehicle: %v", err)
		}
	}

	got, err := store.ActiveVehicleCapacity(ctx, "d1")
	if err != nil {
		t.Fatalf("capacity: %v", err)
	}
	if got != 6 {
		t.Errorf("ActiveVehicleCapacity = %d, want 6 (inactive 14-seater ignored)", got)
	}
}
