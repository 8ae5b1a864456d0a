// Package fare computes trip prices from distance and duration.
package fare

import (
	"math"

	"ridebot/internal/config"
)

// Calculator applies the linear fare formula with a minimum-fare floor.
// It is deterministic and side-effect free; all coefficients come from
// configuration. There is no special case for short trips: the floor is
// what makes any trip under ~5 miles cost the minimum under the default
// coefficients.
type Calculator struct {
	base      float64
	perMile   float64
	perMinute float64
	fixedFee  float64
	minimum   float64
}

// NewCalculator creates a Calculator from fare configuration.
func NewCalculator(cfg config.FareConfig) *Calculator {
	return &Calculator{
		base:      cfg.Base,
		perMile:   cfg.PerMile,
		perMinute: cfg.PerMinute,
		fixedFee:  cfg.FixedFee,
		minimum:   cfg.MinimumFare,
	}
}

// Calculate returns the fare in dollars, rounded to cents.
func (c *Calculator) Calculate(distanceMiles, durationMinutes float64) float64 {
	fare := c.base + distanceMiles*c.perMile + durationMinutes*c.perMinute + c.fixedFee
	fare = math.Max(fare, c.minimum)
	return math.Round(fare*100) / 100
}

// Minimum returns the configured minimum fare.
func (c *Calculator) Minimum() float64 {
	return c.minimum
}
