package googlemaps

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

var ErrNoRoute = errors.New("no route found")

// RouteService answers distance lookups with the Directions API in driving mode.
type RouteService struct {
	client *maps.Client
}

func NewRouteService(apiKey string, opts ...maps.ClientOption) (*RouteService, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

func (s *RouteService) DistanceAndDuration(ctx context.Context, from, to models.Location) (models.RouteEstimate, error) {
	const op = "RouteService.DistanceAndDuration"

	r := &maps.DirectionsRequest{
		Origin:      latLng(from),
		Destination: latLng(to),
		Mode:        maps.TravelModeDriving,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
		return models.RouteEstimate{}, wrap.Error(ctx, fmt.Errorf("%s: maps api error: %w", op, err))
	}

	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return models.RouteEstimate{}, fmt.Errorf("%s: %w", op, ErrNoRoute)
	}

	leg := routes[0].Legs[0]
	return models.RouteEstimate{
		DistanceKm:  float64(leg.Distance.Meters) / 1000,
		DurationMin: leg.Duration.Minutes(),
	}, nil
}

func latLng(l models.Location) string {
	return fmt.Sprintf("%f,%f", l.Latitude, l.Longitude)
}
