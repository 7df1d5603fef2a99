package maps

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"droptaxi/internal/modules/location"
)

// RouteService answers distance lookups through the Google Distance Matrix API.
type RouteService struct {
	client  *maps.Client
	timeout time.Duration
}

// NewRouteService creates a new RouteService with the given API Key.
func NewRouteService(apiKey string, timeout time.Duration) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client, timeout: timeout}, nil
}

// Lookup returns the driving distance and duration of the first route between
// the two places. It assumes driving mode and metric units.
func (s *RouteService) Lookup(ctx context.Context, origin, destination location.Place) (location.Leg, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	r := &maps.DistanceMatrixRequest{
		Origins:      []string{origin.Ref()},
		Destinations: []string{destination.Ref()},
		Mode:         maps.TravelModeDriving,
		Units:        maps.UnitsMetric,
	}

	resp, err := s.client.DistanceMatrix(ctx, r)
	if err != nil {
		return location.Leg{}, fmt.Errorf("%w: maps api error: %v", location.ErrProviderError, err)
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return location.Leg{}, location.ErrRouteNotFound
	}

	el := resp.Rows[0].Elements[0]
	switch el.Status {
	case "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		return location.Leg{}, fmt.Errorf("%w: %s", location.ErrRouteNotFound, el.Status)
	default:
		return location.Leg{}, fmt.Errorf("%w: element status %s", location.ErrProviderError, el.Status)
	}

	return location.Leg{
		Meters:  el.Distance.Meters,
		Seconds: int(el.Duration / time.Second),
	}, nil
}
