// README: Common value objects (IDs and geographic points) shared across modules.
package types

// ID is an opaque entity identifier. The stores generate UUID strings but
// nothing outside the store layer depends on that.
type ID string

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point is a plausible WGS84 coordinate.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}
