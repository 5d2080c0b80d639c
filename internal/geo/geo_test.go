package geo

import (
	"math"
	"testing"

	"metrosync/internal/types"
)

func TestDistanceMeters_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		a, b      types.Point
		wantM     float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         types.Point{Lat: 9.0578, Lng: 7.4951},
			b:         types.Point{Lat: 9.0578, Lng: 7.4951},
			wantM:     0,
			tolerance: 0.01,
		},
		{
			name:      "one degree of latitude (~111.2km)",
			a:         types.Point{Lat: 7.0, Lng: 9.0},
			b:         types.Point{Lat: 8.0, Lng: 9.0},
			wantM:     111195,
			tolerance: 50,
		},
		{
			// The road distance is closer to 223km; great circle is shorter.
			name:      "Abuja to Jos (~184km direct)",
			a:         types.Point{Lat: 9.0765, Lng: 7.3986},
			b:         types.Point{Lat: 9.8965, Lng: 8.8583},
			wantM:     184200,
			tolerance: 1000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceMeters(tt.a, tt.b)
			if math.Abs(got-tt.wantM) > tt.tolerance {
				t.Errorf("DistanceMeters() = %f, want %f (±%f)", got, tt.wantM, tt.tolerance)
			}
		})
	}
}

func TestDistanceMeters_Symmetry(t *testing.T) {
	a := types.Point{Lat: 9.05, Lng: 7.49}
	b := types.Point{Lat: 9.10, Lng: 7.52}
	d1 := DistanceMeters(a, b)
	d2 := DistanceMeters(b, a)
	if math.Abs(d1-d2) > 0.001 {
		t.Errorf("distance is not symmetric: %f vs %f", d1, d2)
	}
}

func TestBearingDegrees(t *testing.T) {
	tests := []struct {
		name      string
		from, to  types.Point
		want      float64
		tolerance float64
	}{
		{"due north", types.Point{Lat: 0, Lng: 0}, types.Point{Lat: 1, Lng: 0}, 0, 0.01},
		{"due east", types.Point{Lat: 0, Lng: 0}, types.Point{Lat: 0, Lng: 1}, 90, 0.01},
		{"due south", types.Point{Lat: 1, Lng: 0}, types.Point{Lat: 0, Lng: 0}, 180, 0.01},
		{"due west", types.Point{Lat: 0, Lng: 1}, types.Point{Lat: 0, Lng: 0}, 270, 0.01},
		{"north-east quadrant", types.Point{Lat: 9.00, Lng: 7.40}, types.Point{Lat: 9.10, Lng: 7.50}, 45, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BearingDegrees(tt.from, tt.to)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("BearingDegrees() = %f, want %f (±%f)", got, tt.want, tt.tolerance)
			}
			if got < 0 || got >= 360 {
				t.Errorf("BearingDegrees() = %f, outside [0,360)", got)
			}
		})
	}
}

func TestAngularDiffDegrees(t *testing.T) {
	tests := []struct {
		a, b, want float64
	}{
		{0, 0, 0},
		{0, 180, 180},
		{350, 10, 20}, // wraps through north
		{10, 350, 20},
		{90, 270, 180},
		{45, 50, 5},
	}
	for _, tt := range tests {
		if got := AngularDiffDegrees(tt.a, tt.b); math.Abs(got-tt.want) > 0.001 {
			t.Errorf("AngularDiffDegrees(%f, %f) = %f, want %f", tt.a, tt.b, got, tt.want)
		}
	}
}

// northSouthLine is a ~22km segment along the 9.06 meridian used by the
// perpendicular-distance tests below. At this latitude one degree of
// longitude is ~110.25km, so 0.0055 degrees is ~606m and 0.0009 is ~99m.
var northSouthLine = []types.Point{
	{Lat: 7.40, Lng: 9.06},
	{Lat: 7.60, Lng: 9.06},
}

func TestPointNearLine_Tolerance(t *testing.T) {
	far := types.Point{Lat: 7.49, Lng: 9.06 + 0.0055}  // ~606m off the line
	near := types.Point{Lat: 7.49, Lng: 9.06 + 0.0009} // ~99m off the line

	ok, err := PointNearLine(northSouthLine, far, 500)
	if err != nil {
		t.Fatalf("PointNearLine: %v", err)
	}
	if ok {
		t.Error("point ~600m from line accepted with 500m tolerance")
	}

	ok, err = PointNearLine(northSouthLine, near, 500)
	if err != nil {
		t.Fatalf("PointNearLine: %v", err)
	}
	if !ok {
		t.Error("point ~100m from line rejected with 500m tolerance")
	}
}

func TestDistanceToLineMeters_BeyondEndpoints(t *testing.T) {
	// A point past the northern end should measure against the endpoint,
	// not the infinite great circle.
	p := types.Point{Lat: 7.70, Lng: 9.06}
	d, err := DistanceToLineMeters(northSouthLine, p)
	if err != nil {
		t.Fatalf("DistanceToLineMeters: %v", err)
	}
	want := DistanceMeters(northSouthLine[1], p)
	if math.Abs(d-want) > 1 {
		t.Errorf("distance past endpoint = %f, want endpoint distance %f", d, want)
	}
}

func TestDistanceToLineMeters_PicksNearestSegment(t *testing.T) {
	line := []types.Point{
		{Lat: 7.40, Lng: 9.06},
		{Lat: 7.50, Lng: 9.06},
		{Lat: 7.50, Lng: 9.16},
	}
	// Just south of the second (east-west) segment.
	p := types.Point{Lat: 7.499, Lng: 9.11}
	d, err := DistanceToLineMeters(line, p)
	if err != nil {
		t.Fatalf("DistanceToLineMeters: %v", err)
	}
	if d > 200 {
		t.Errorf("distance to nearest segment = %f, want < 200m", d)
	}
}

func TestLineLengthKm(t *testing.T) {
	got, err := LineLengthKm(northSouthLine)
	if err != nil {
		t.Fatalf("LineLengthKm: %v", err)
	}
	// 0.2 degrees of latitude.
	want := 22.24
	if math.Abs(got-want) > 0.05 {
		t.Errorf("LineLengthKm() = %f, want ~%f", got, want)
	}
}

func TestShortLineErrors(t *testing.T) {
	single := []types.Point{{Lat: 7.4, Lng: 9.06}}
	if _, err := LineLengthKm(single); err != ErrShortLine {
		t.Errorf("LineLengthKm(short) err = %v, want ErrShortLine", err)
	}
	if _, err := PointNearLine(single, types.Point{}, 500); err != ErrShortLine {
		t.Errorf("PointNearLine(short) err = %v, want ErrShortLine", err)
	}
	if _, err := DistanceToLineMeters(nil, types.Point{}); err != ErrShortLine {
		t.Errorf("DistanceToLineMeters(nil) err = %v, want ErrShortLine", err)
	}
}
