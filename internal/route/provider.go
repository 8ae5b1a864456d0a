// Package route resolves free-text addresses into geographic legs.
package route

import (
	"context"
	"errors"
)

var (
	// ErrAddressNotFound is returned when an address cannot be geocoded.
	ErrAddressNotFound = errors.New("address not found")

	// ErrRouteFailed is returned when a route between two geocoded
	// points cannot be calculated.
	ErrRouteFailed = errors.New("route calculation failed")
)

// Leg is a resolved route between two addresses.
type Leg struct {
	PickupLabel  string
	PickupLat    float64
	PickupLng    float64
	DropoffLabel string
	DropoffLat   float64
	DropoffLng   float64

	DistanceMiles   float64
	DurationMinutes float64
}

// Provider geocodes a (pickup, dropoff) pair and computes the driving
// route between them. Implementations are expected to be safe for
// concurrent use.
type Provider interface {
	Route(ctx context.Context, pickupText, dropoffText string) (*Leg, error)
}
