// README: Travel-time estimators used to seed virtual-stop time offsets.
package maps

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"metrosync/internal/geo"
	"metrosync/internal/types"
)

// TravelEstimator estimates driving time between two points. Route creation
// uses it to pre-fill stop time offsets; it is never consulted on the booking
// path, which works from the stored polyline only.
type TravelEstimator interface {
	EstimateMinutes(ctx context.Context, origin, dest types.Point) (int, error)
}

// DirectionsEstimator asks the Google Maps Directions API.
type DirectionsEstimator struct {
	client *maps.Client
}

func NewDirectionsEstimator(apiKey string) (*DirectionsEstimator, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("maps client: %w", err)
	}
	return &DirectionsEstimator{client: client}, nil
}

func (e *DirectionsEstimator) EstimateMinutes(ctx context.Context, origin, dest types.Point) (int, error) {
	r := &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", origin.Lat, origin.Lng),
		Destination: fmt.Sprintf("%f,%f", dest.Lat, dest.Lng),
		Mode:        maps.TravelModeDriving,
	}
	routes, _, err := e.client.Directions(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("maps directions: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return 0, fmt.Errorf("no route found")
	}
	var total time.Duration
	for _, leg := range routes[0].Legs {
		total += leg.Duration
	}
	return int(total.Round(time.Minute) / time.Minute), nil
}

// SpeedEstimator is the offline fallback: straight-line distance at a fixed
// average speed. 30 km/h matches the dropoff estimate used by bookings
// (2 minutes per km).
type SpeedEstimator struct {
	SpeedKmh float64
}

func (e SpeedEstimator) EstimateMinutes(_ context.Context, origin, dest types.Point) (int, error) {
	speed := e.SpeedKmh
	if speed <= 0 {
		speed = 30
	}
	km := geo.DistanceMeters(origin, dest) / 1000
	return int(km / speed * 60), nil
}
