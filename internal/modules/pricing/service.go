// README: Fare calculator; deterministic pricing from distance and passenger count.
package pricing

import (
	"metrosync/internal/config"
	"metrosync/internal/types"
)

// Service computes fares from an explicit policy. No package-level state:
// the policy is injected at construction so reproducing a historical fare in
// a test only needs the same inputs.
type Service struct {
	cfg config.FareConfig
}

func NewService(cfg config.FareConfig) *Service {
	return &Service{cfg: cfg}
}

// Quote returns (BaseFare + distanceKm * RatePerKm) * passengers, rounded
// half-up to two decimals. A passenger count of zero or less is treated as a
// single passenger.
func (s *Service) Quote(distanceKm float64, passengers int) types.Money {
	if passengers <= 0 {
		passengers = 1
	}
	amount := (s.cfg.BaseFare + distanceKm*s.cfg.RatePerKm) * float64(passengers)
	return types.NewMoney(amount, s.cfg.Currency)
}

// Policy exposes the active fare policy (read-only) for diagnostics.
func (s *Service) Policy() config.FareConfig {
	return s.cfg
}
