// README: Route aggregate: a driver-published polyline with virtual stops.
package route

import (
	"time"

	"metrosync/internal/types"
)

// DefaultMaxDeviationM is the pickup/dropoff tolerance applied when a route
// does not configure its own.
const DefaultMaxDeviationM = 500

type Route struct {
	ID          types.ID
	Name        string
	Description string
	DriverID    types.ID
	// Path is the ordered polyline, at least two vertices. It is immutable
	// once the route is published.
	Path          []types.Point
	DistanceKm    float64
	Active        bool
	Published     bool
	MaxDeviationM float64
	CreatedAt     time.Time
}

func (r *Route) StartPoint() types.Point { return r.Path[0] }

func (r *Route) EndPoint() types.Point { return r.Path[len(r.Path)-1] }

// Bookable reports whether riders may book against this route.
func (r *Route) Bookable() bool { return r.Active && r.Published }

type VirtualStop struct {
	ID            types.ID
	RouteID       types.ID
	Name          string
	Description   string
	Location      types.Point
	SequenceOrder int
	// TimeOffsetMin is the estimated minutes from route start, when known.
	TimeOffsetMin *int
	Active        bool
}

// Match pairs a route with its distance from the query point, for ordered
// matcher results.
type Match struct {
	Route     Route
	DistanceM float64
}
