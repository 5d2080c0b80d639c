// README: Fare rate definition; deployments may override config via the fare_rates table.
package pricing

import "time"

type Rate struct {
	BaseFare  float64
	RatePerKm float64
	Currency  string
	UpdatedAt time.Time
}
