// README: Distance resolver converts a pickup/drop place pair into road distance and duration.
package location

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidLocation     = errors.New("location is missing valid coordinates")
	ErrDistanceUnavailable = errors.New("distance unavailable")
	ErrRouteNotFound       = errors.New("no driving route between the selected places")
	ErrProviderError       = errors.New("routing provider failed")
)

// DistanceLookup is the external routing capability (driving, metric units).
// Implementations return ErrRouteNotFound or ErrProviderError.
type DistanceLookup interface {
	Lookup(ctx context.Context, origin, destination Place) (Leg, error)
}

// RouteCache memoises resolved routes. A nil cache disables caching.
type RouteCache interface {
	Get(ctx context.Context, origin, destination string) (Route, bool, error)
	Put(ctx context.Context, origin, destination string, r Route) error
}

type Service struct {
	lookup DistanceLookup
	cache  RouteCache
	log    logrus.FieldLogger
}

func NewService(lookup DistanceLookup, cache RouteCache, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{lookup: lookup, cache: cache, log: log}
}

// Resolve returns the one-way road distance (km, 2 decimals) and duration
// (minutes, nearest integer). It never retries.
func (s *Service) Resolve(ctx context.Context, source, destination Place) (Route, error) {
	if !source.Usable() {
		return Route{}, fmt.Errorf("pickup: %w", ErrInvalidLocation)
	}
	if !destination.Usable() {
		return Route{}, fmt.Errorf("drop: %w", ErrInvalidLocation)
	}

	from, to := source.Ref(), destination.Ref()
	if s.cache != nil {
		r, ok, err := s.cache.Get(ctx, from, to)
		if err != nil {
			s.log.WithError(err).Warn("route cache read failed")
		} else if ok {
			return r, nil
		}
	}

	leg, err := s.lookup.Lookup(ctx, source, destination)
	if err != nil {
		return Route{}, classify(err)
	}
	if leg.Meters < 0 || leg.Seconds < 0 {
		return Route{}, fmt.Errorf("%w: %w: negative leg", ErrDistanceUnavailable, ErrProviderError)
	}

	r := Route{
		DistanceKm:      math.Round(float64(leg.Meters)/10) / 100,
		DurationMinutes: int(math.Round(float64(leg.Seconds) / 60)),
	}
	if s.cache != nil {
		if err := s.cache.Put(ctx, from, to, r); err != nil {
			s.log.WithError(err).Warn("route cache write failed")
		}
	}
	return r, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrRouteNotFound):
		return fmt.Errorf("%w: %w", ErrDistanceUnavailable, err)
	case errors.Is(err, ErrProviderError):
		return fmt.Errorf("%w: %w", ErrDistanceUnavailable, err)
	default:
		// timeouts and transport failures
		return fmt.Errorf("%w: %w: %v", ErrDistanceUnavailable, ErrProviderError, err)
	}
}

// Message is the user-facing text for a resolver error.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrInvalidLocation):
		return "Please pick the pickup and drop locations from the suggestions."
	case errors.Is(err, ErrRouteNotFound):
		return "Distance calculation failed. No driving route was found."
	case errors.Is(err, ErrDistanceUnavailable):
		return "Distance calculation failed. Please try again."
	}
	return "Something went wrong."
}
