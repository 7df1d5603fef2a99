// README: Pricing service computes fare estimates from the rate table.
package pricing

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnknownVehicleClass = errors.New("unknown vehicle class")
	ErrUnknownTripType     = errors.New("unknown trip type")
	ErrInvalidDistance     = errors.New("distance must be a non-negative number")
)

type Service struct {
	rates RateTable
}

func NewService(rates RateTable) *Service {
	return &Service{rates: rates}
}

func (s *Service) Rates() RateTable {
	return s.rates
}

// Estimate prices a trip from its one-way distance and duration. It performs no I/O.
// Round trips double distance and duration and use the round-trip rate.
func (s *Service) Estimate(distanceKm float64, durationMinutes int, class VehicleClass, trip TripType) (FareEstimate, error) {
	if math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) || distanceKm < 0 {
		return FareEstimate{}, ErrInvalidDistance
	}
	if durationMinutes < 0 {
		durationMinutes = 0
	}
	rate, err := s.rates.Rate(class, trip)
	if err != nil {
		return FareEstimate{}, err
	}
	oneWayRate, _ := s.rates.Rate(class, TripOneWay)
	roundRate, _ := s.rates.Rate(class, TripRoundTrip)

	km, mins := distanceKm, durationMinutes
	if trip == TripRoundTrip {
		km, mins = distanceKm*2, durationMinutes*2
	}
	km = round2(km)

	minKm := s.rates.MinBillableKm(trip)
	return FareEstimate{
		VehicleClass:      class,
		TripType:          trip,
		DistanceKm:        km,
		DurationMinutes:   mins,
		RatePerKm:         rate,
		EstimatedCost:     roundHalfUp(km * rate),
		OneWayCost:        roundHalfUp(round2(distanceKm) * oneWayRate),
		RoundTripCost:     roundHalfUp(round2(distanceKm*2) * roundRate),
		MinBillableKm:     minKm,
		MinDistanceNotice: fmt.Sprintf("Min %s km applies", formatKm(minKm)),
	}, nil
}

// roundHalfUp rounds to whole rupees; costs are never negative.
func roundHalfUp(v float64) int64 {
	if v <= 0 {
		return 0
	}
	return int64(math.Floor(v + 0.5))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatKm(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
