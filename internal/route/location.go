package route

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/locationservice"

	"ridebot/internal/config"
)

const metersPerMile = 1609.34

// LocationProvider implements Provider on Amazon Location Service.
type LocationProvider struct {
	client          *locationservice.LocationService
	placeIndexName  string
	routeCalculator string
	countryHint     string
}

// NewLocationProvider creates a provider backed by Amazon Location.
func NewLocationProvider(cfg config.LocationConfig) (*LocationProvider, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(cfg.Region)})
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}

	return &LocationProvider{
		client:          locationservice.New(sess),
		placeIndexName:  cfg.PlaceIndexName,
		routeCalculator: cfg.RouteCalculator,
		countryHint:     cfg.CountryHint,
	}, nil
}

// Route geocodes both addresses and calculates the driving route.
func (p *LocationProvider) Route(ctx context.Context, pickupText, dropoffText string) (*Leg, error) {
	pickup, err := p.geocode(ctx, pickupText)
	if err != nil {
		return nil, fmt.Errorf("pickup %q: %w", pickupText, err)
	}

	dropoff, err := p.geocode(ctx, dropoffText)
	if err != nil {
		return nil, fmt.Errorf("dropoff %q: %w", dropoffText, err)
	}

	out, err := p.client.CalculateRouteWithContext(ctx, &locationservice.CalculateRouteInput{
		CalculatorName:      aws.String(p.routeCalculator),
		DeparturePosition:   []*float64{aws.Float64(pickup.lng), aws.Float64(pickup.lat)},
		DestinationPosition: []*float64{aws.Float64(dropoff.lng), aws.Float64(dropoff.lat)},
		TravelMode:          aws.String(locationservice.TravelModeCar),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRouteFailed, err)
	}
	if out.Summary == nil || out.Summary.Distance == nil || out.Summary.DurationSeconds == nil {
		return nil, ErrRouteFailed
	}

	// Summary.Distance is in kilometers for Car mode.
	meters := aws.Float64Value(out.Summary.Distance) * 1000.0
	seconds := aws.Float64Value(out.Summary.DurationSeconds)

	return &Leg{
		PickupLabel:     pickup.label,
		PickupLat:       pickup.lat,
		PickupLng:       pickup.lng,
		DropoffLabel:    dropoff.label,
		DropoffLat:      dropoff.lat,
		DropoffLng:      dropoff.lng,
		DistanceMiles:   meters / metersPerMile,
		DurationMinutes: seconds / 60.0,
	}, nil
}

type place struct {
	label string
	lat   float64
	lng   float64
}

// geocode resolves one address, retrying once with the configured
// region hint appended when the bare text yields no results.
func (p *LocationProvider) geocode(ctx context.Context, text string) (*place, error) {
	result, err := p.search(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAddressNotFound, err)
	}

	if result == nil && p.countryHint != "" {
		result, err = p.search(ctx, text+", "+p.countryHint)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAddressNotFound, err)
		}
	}

	if result == nil {
		return nil, ErrAddressNotFound
	}
	return result, nil
}

func (p *LocationProvider) search(ctx context.Context, text string) (*place, error) {
	out, err := p.client.SearchPlaceIndexForTextWithContext(ctx, &locationservice.SearchPlaceIndexForTextInput{
		IndexName:       aws.String(p.placeIndexName),
		Text:            aws.String(text),
		MaxResults:      aws.Int64(1),
		FilterCountries: []*string{aws.String("USA")},
		Language:        aws.String("en"),
	})
	if err != nil {
		return nil, err
	}

	if len(out.Results) == 0 {
		return nil, nil
	}

	pl := out.Results[0].Place
	if pl == nil || pl.Geometry == nil || len(pl.Geometry.Point) < 2 {
		return nil, nil
	}

	label := text
	if pl.Label != nil {
		label = aws.StringValue(pl.Label)
	}

	// Geometry.Point is [longitude, latitude].
	return &place{
		label: label,
		lng:   aws.Float64Value(pl.Geometry.Point[0]),
		lat:   aws.Float64Value(pl.Geometry.Point[1]),
	}, nil
}
