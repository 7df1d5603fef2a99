package location

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/sirupsen/logrus"

	"droptaxi/internal/types"
)

type stubLookup struct {
	leg   Leg
	err   error
	calls int
}

func (s *stubLookup) Lookup(_ context.Context, _, _ Place) (Leg, error) {
	s.calls++
	return s.leg, s.err
}

type memCache struct {
	routes map[string]Route
	err    error
}

func (m *memCache) Get(_ context.Context, o, d string) (Route, bool, error) {
	if m.err != nil {
		return Route{}, false, m.err
	}
	r, ok := m.routes[o+"|"+d]
	return r, ok, nil
}

func (m *memCache) Put(_ context.Context, o, d string, r Route) error {
	if m.err != nil {
		return m.err
	}
	m.routes[o+"|"+d] = r
	return nil
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func chennai() Place {
	return Place{DisplayName: "Chennai", PlaceID: "chn", Location: &types.Point{Lat: 13.0827, Lng: 80.2707}}
}

func madurai() Place {
	return Place{DisplayName: "Madurai", PlaceID: "mdu", Location: &types.Point{Lat: 9.9252, Lng: 78.1198}}
}

func TestResolve_ConvertsAndRounds(t *testing.T) {
	cases := []struct {
		name     string
		leg      Leg
		wantKm   float64
		wantMins int
	}{
		{"exact", Leg{Meters: 300000, Seconds: 18000}, 300, 300},
		{"km to two decimals", Leg{Meters: 462345, Seconds: 27029}, 462.35, 450},
		{"minutes round down", Leg{Meters: 1004, Seconds: 89}, 1, 1},
		{"minutes round half up", Leg{Meters: 1005, Seconds: 90}, 1.01, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(&stubLookup{leg: tc.leg}, nil, quietLogger())
			got, err := svc.Resolve(context.Background(), chennai(), madurai())
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if math.Abs(got.DistanceKm-tc.wantKm) > 1e-9 {
				t.Errorf("DistanceKm = %v, want %v", got.DistanceKm, tc.wantKm)
			}
			if got.DurationMinutes != tc.wantMins {
				t.Errorf("DurationMinutes = %v, want %v", got.DurationMinutes, tc.wantMins)
			}
		})
	}
}

func TestResolve_InvalidLocation(t *testing.T) {
	lookup := &stubLookup{leg: Leg{Meters: 1000, Seconds: 60}}
	svc := NewService(lookup, nil, quietLogger())
	ctx := context.Background()

	noCoords := Place{DisplayName: "Somewhere", PlaceID: "x"}
	bad := Place{DisplayName: "Bad", Location: &types.Point{Lat: 123, Lng: 80}}

	if _, err := svc.Resolve(ctx, noCoords, madurai()); !errors.Is(err, ErrInvalidLocation) {
		t.Errorf("missing source coords: got %v", err)
	}
	if _, err := svc.Resolve(ctx, chennai(), bad); !errors.Is(err, ErrInvalidLocation) {
		t.Errorf("out of range destination: got %v", err)
	}
	if lookup.calls != 0 {
		t.Errorf("lookup called %d times for invalid input", lookup.calls)
	}
}

func TestResolve_ProviderFailures(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantKind error
	}{
		{"no route", ErrRouteNotFound, ErrRouteNotFound},
		{"provider status", ErrProviderError, ErrProviderError},
		{"timeout", context.DeadlineExceeded, ErrProviderError},
		{"transport", errors.New("connection refused"), ErrProviderError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(&stubLookup{err: tc.err}, nil, quietLogger())
			_, err := svc.Resolve(context.Background(), chennai(), madurai())
			if !errors.Is(err, ErrDistanceUnavailable) {
				t.Fatalf("expected ErrDistanceUnavailable, got %v", err)
			}
			if !errors.Is(err, tc.wantKind) {
				t.Fatalf("expected %v, got %v", tc.wantKind, err)
			}
			if Message(err) == "" {
				t.Fatal("empty user message")
			}
		})
	}
}

func TestResolve_UsesCache(t *testing.T) {
	lookup := &stubLookup{leg: Leg{Meters: 100000, Seconds: 6000}}
	cache := &memCache{routes: map[string]Route{}}
	svc := NewService(lookup, cache, quietLogger())
	ctx := context.Background()

	first, err := svc.Resolve(ctx, chennai(), madurai())
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Resolve(ctx, chennai(), madurai())
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("cached route %+v != %+v", second, first)
	}
	if lookup.calls != 1 {
		t.Fatalf("lookup calls = %d, want 1", lookup.calls)
	}
}

func TestResolve_CacheFailureIsIgnored(t *testing.T) {
	lookup := &stubLookup{leg: Leg{Meters: 100000, Seconds: 6000}}
	svc := NewService(lookup, &memCache{err: errors.New("redis down")}, quietLogger())

	got, err := svc.Resolve(context.Background(), chennai(), madurai())
	if err != nil {
		t.Fatalf("cache failure leaked: %v", err)
	}
	if got.DistanceKm != 100 || got.DurationMinutes != 100 {
		t.Fatalf("got %+v", got)
	}
}

func TestPlaceRef(t *testing.T) {
	p := Place{Location: &types.Point{Lat: 13.08, Lng: 80.27}}
	if got := p.Ref(); got != "13.080000,80.270000" {
		t.Errorf("coordinate ref = %q", got)
	}
	p.PlaceID = "abc"
	if got := p.Ref(); got != "place_id:abc" {
		t.Errorf("place ref = %q", got)
	}
	if got := (Place{FormattedAddress: " Anna Nagar, Chennai "}).Name(); got != "Anna Nagar, Chennai" {
		t.Errorf("Name() fallback = %q", got)
	}
}
