// README: Route matching: nearby search, heading filter, pickup validation.
package route

import (
	"context"

	"metrosync/internal/config"
	"metrosync/internal/geo"
	"metrosync/internal/observability"
	"metrosync/internal/types"
)

// Matcher answers "which published routes serve this point" queries. All
// filtering happens in memory over the published set, which stays small
// enough that a spatial index is not worth the operational cost.
type Matcher struct {
	store Store
	cfg   config.MatchingConfig
}

func NewMatcher(store Store, cfg config.MatchingConfig) *Matcher {
	if cfg.DefaultRadiusM <= 0 {
		cfg.DefaultRadiusM = DefaultMaxDeviationM
	}
	if cfg.BearingToleranceDeg <= 0 {
		cfg.BearingToleranceDeg = 45
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 20
	}
	return &Matcher{store: store, cfg: cfg}
}

// FindNearby returns published routes whose corridor passes within radiusM of
// the point, closest first. A non-positive radius falls back to the default.
func (m *Matcher) FindNearby(ctx context.Context, p types.Point, radiusM float64) ([]Match, error) {
	if radiusM <= 0 {
		radiusM = m.cfg.DefaultRadiusM
	}
	routes, err := m.store.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	var out []Match
	for _, r := range routes {
		d, err := geo.DistanceToLineMeters(r.Path, p)
		if err != nil {
			continue
		}
		if d <= radiusM {
			out = append(out, Match{Route: r, DistanceM: d})
		}
	}
	sortByDistance(out, func(m Match) float64 { return m.DistanceM })
	if len(out) > m.cfg.MaxResults {
		out = out[:m.cfg.MaxResults]
	}
	observability.RouteMatches.Add(float64(len(out)))
	return out, nil
}

// FindHeadingTowards narrows FindNearby(origin) to routes whose overall
// direction of travel roughly agrees with the origin-to-destination bearing.
// The comparison wraps around north, so 350 and 10 degrees are 20 apart.
func (m *Matcher) FindHeadingTowards(ctx context.Context, origin, destination types.Point, radiusM float64) ([]Match, error) {
	near, err := m.FindNearby(ctx, origin, radiusM)
	if err != nil {
		return nil, err
	}
	target := geo.BearingDegrees(origin, destination)
	var out []Match
	for _, match := range near {
		heading := geo.BearingDegrees(match.Route.StartPoint(), match.Route.EndPoint())
		if geo.AngularDiffDegrees(heading, target) < m.cfg.BearingToleranceDeg {
			out = append(out, match)
		}
	}
	return out, nil
}

// ValidatePickup reports whether the point lies within the route's own
// deviation corridor. Used before bookings are accepted.
func (m *Matcher) ValidatePickup(ctx context.Context, routeID types.ID, p types.Point) (bool, float64, error) {
	r, err := m.store.Get(ctx, routeID)
	if err != nil {
		return false, 0, err
	}
	d, err := geo.DistanceToLineMeters(r.Path, p)
	if err != nil {
		return false, 0, err
	}
	return d <= r.MaxDeviationM, d, nil
}

// sortByDistance performs an insertion sort (fine for small N) on any slice
// where each element exposes a distance via the accessor function.
func sortByDistance[T any](items []T, dist func(T) float64) {
	for i := 1; i < len(items); i++ {
		key := items[i]
		j := i - 1
		for j >= 0 && dist(items[j]) > dist(key) {
			items[j+1] = items[j]
			j--
		}
		items[j+1] = key
	}
}
