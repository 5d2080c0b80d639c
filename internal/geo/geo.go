// README: Pure great-circle geometry helpers backing the route matcher.
package geo

import (
	"errors"
	"math"

	"metrosync/internal/types"
)

const earthRadiusM = 6371000.0

// ErrShortLine is returned for polylines with fewer than two vertices.
var ErrShortLine = errors.New("line must have at least 2 points")

// DistanceMeters returns the great-circle distance in metres between two
// points specified in decimal degrees (haversine).
func DistanceMeters(a, b types.Point) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	rLat1 := radians(a.Lat)
	rLat2 := radians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusM * c
}

// BearingDegrees returns the initial compass bearing from `from` to `to`,
// normalised to [0, 360).
func BearingDegrees(from, to types.Point) float64 {
	rLat1 := radians(from.Lat)
	rLat2 := radians(to.Lat)
	dLng := radians(to.Lng - from.Lng)

	y := math.Sin(dLng) * math.Cos(rLat2)
	x := math.Cos(rLat1)*math.Sin(rLat2) - math.Sin(rLat1)*math.Cos(rLat2)*math.Cos(dLng)

	deg := degrees(math.Atan2(y, x))
	return math.Mod(deg+360, 360)
}

// AngularDiffDegrees returns the circular difference between two bearings,
// always in [0, 180].
func AngularDiffDegrees(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// DistanceToLineMeters returns the minimum great-circle distance in metres
// from p to any segment of line.
func DistanceToLineMeters(line []types.Point, p types.Point) (float64, error) {
	if len(line) < 2 {
		return 0, ErrShortLine
	}
	min := math.Inf(1)
	for i := 0; i < len(line)-1; i++ {
		if d := distanceToSegmentMeters(line[i], line[i+1], p); d < min {
			min = d
		}
	}
	return min, nil
}

// PointNearLine reports whether the minimum distance from p to line is within
// toleranceMeters.
func PointNearLine(line []types.Point, p types.Point, toleranceMeters float64) (bool, error) {
	d, err := DistanceToLineMeters(line, p)
	if err != nil {
		return false, err
	}
	return d <= toleranceMeters, nil
}

// LineLengthKm returns the summed segment lengths of line in kilometres,
// rounded half-up to two decimals.
func LineLengthKm(line []types.Point) (float64, error) {
	if len(line) < 2 {
		return 0, ErrShortLine
	}
	var meters float64
	for i := 0; i < len(line)-1; i++ {
		meters += DistanceMeters(line[i], line[i+1])
	}
	return types.Round2(meters / 1000), nil
}

// distanceToSegmentMeters computes the great-circle distance from p to the
// segment a-b using the cross-track formula, falling back to the endpoint
// distance when the perpendicular foot falls outside the segment.
func distanceToSegmentMeters(a, b, p types.Point) float64 {
	distAP := DistanceMeters(a, p)
	segLen := DistanceMeters(a, b)
	if segLen == 0 {
		return distAP
	}

	bearAP := radians(BearingDegrees(a, p))
	bearAB := radians(BearingDegrees(a, b))

	// Projection falls before a.
	if math.Cos(bearAP-bearAB) < 0 {
		return distAP
	}

	d13 := distAP / earthRadiusM
	crossTrack := math.Asin(math.Sin(d13) * math.Sin(bearAP-bearAB))
	alongTrack := math.Acos(clamp(math.Cos(d13)/math.Cos(crossTrack), -1, 1))

	// Projection falls past b.
	if alongTrack*earthRadiusM > segLen {
		return DistanceMeters(b, p)
	}
	return math.Abs(crossTrack) * earthRadiusM
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
