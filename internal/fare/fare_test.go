package fare

import (
	"testing"

	"ridebot/internal/config"
)

func defaultConfig() config.FareConfig {
	return config.FareConfig{
		Base:        3.00,
		PerMile:     2.50,
		PerMinute:   0.40,
		FixedFee:    1.00,
		MinimumFare: 10.00,
	}
}

func TestCalculate_ShortTripHitsMinimum(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(defaultConfig())

	// 123 Main St -> 200 Main St: 0.8 mi, 4 min.
	got := calc.Calculate(0.8, 4)
	if got != 10.00 {
		t.Errorf("expected minimum fare 10.00, got %.2f", got)
	}
}

func TestCalculate_FloorCoversShortTrips(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(defaultConfig())

	// Short in-town hops: the linear formula stays under the floor, so
	// they all price at the minimum with no distance special-casing.
	for _, tc := range []struct {
		miles   float64
		minutes float64
	}{
		{0.1, 1},
		{0.8, 4},
		{1.0, 5},
		{2.0, 2},
	} {
		if got := calc.Calculate(tc.miles, tc.minutes); got != 10.00 {
			t.Errorf("fare(%.1f, %.0f) = %.2f, want 10.00", tc.miles, tc.minutes, got)
		}
	}
}

func TestCalculate_LinearFormulaAboveFloor(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(defaultConfig())

	// 10 miles, 20 minutes: 3 + 25 + 8 + 1 = 37.00.
	got := calc.Calculate(10, 20)
	if got != 37.00 {
		t.Errorf("expected 37.00, got %.2f", got)
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(defaultConfig())

	first := calc.Calculate(7.3, 18.6)
	second := calc.Calculate(7.3, 18.6)
	if first != second {
		t.Errorf("fare not deterministic: %.2f vs %.2f", first, second)
	}
}

func TestCalculate_NeverBelowMinimum(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(defaultConfig())

	for _, tc := range []struct {
		miles   float64
		minutes float64
	}{
		{0, 0},
		{0.5, 3},
		{5, 12},
		{42, 55},
	} {
		if got := calc.Calculate(tc.miles, tc.minutes); got < calc.Minimum() {
			t.Errorf("fare(%.1f, %.1f) = %.2f is below minimum %.2f",
				tc.miles, tc.minutes, got, calc.Minimum())
		}
	}
}

func TestCalculate_RoundsToCents(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(config.FareConfig{
		Base:        3.00,
		PerMile:     2.50,
		PerMinute:   0.40,
		FixedFee:    1.00,
		MinimumFare: 8.00,
	})

	// 3 + 8.3325 + 4.1332 + 1 = 16.4657 -> 16.47
	got := calc.Calculate(3.333, 10.333)
	if got != 16.47 {
		t.Errorf("expected 16.47, got %.4f", got)
	}
}
