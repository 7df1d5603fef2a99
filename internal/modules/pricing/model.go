// README: Rate table and fare estimate definitions for each vehicle class.
package pricing

import (
	"fmt"
	"sort"
	"strings"
)

type VehicleClass string

const (
	VehicleSedan  VehicleClass = "sedan"
	VehicleMUV    VehicleClass = "muv"
	VehicleInnova VehicleClass = "innova"
)

// TripType values are the literals persisted on booking documents.
type TripType string

const (
	TripOneWay    TripType = "single"
	TripRoundTrip TripType = "round"
)

func ParseVehicleClass(v string) (VehicleClass, error) {
	c := VehicleClass(strings.ToLower(strings.TrimSpace(v)))
	switch c {
	case VehicleSedan, VehicleMUV, VehicleInnova:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVehicleClass, v)
}

func ParseTripType(v string) (TripType, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "single", "oneway", "one-way", "one_way":
		return TripOneWay, nil
	case "round", "roundtrip", "round-trip", "round_trip":
		return TripRoundTrip, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTripType, v)
}

func (t TripType) Label() string {
	if t == TripRoundTrip {
		return "Round Trip"
	}
	return "One Way"
}

// Rate is a per-km price pair in rupees.
type Rate struct {
	OneWay    float64 `json:"oneWay"`
	RoundTrip float64 `json:"roundTrip"`
}

func (r Rate) For(t TripType) float64 {
	if t == TripRoundTrip {
		return r.RoundTrip
	}
	return r.OneWay
}

type VehicleRate struct {
	Class VehicleClass `json:"vehicleType"`
	Label string       `json:"label"`
	Seats int          `json:"seats"`
	PerKm Rate         `json:"perKm"`
}

// MinDistance holds the advisory minimum billable kilometres per trip type.
type MinDistance struct {
	OneWay    float64 `json:"oneWay"`
	RoundTrip float64 `json:"roundTrip"`
}

func (m MinDistance) For(t TripType) float64 {
	if t == TripRoundTrip {
		return m.RoundTrip
	}
	return m.OneWay
}

// RateTable is immutable once built; accessors return copies.
type RateTable struct {
	vehicles map[VehicleClass]VehicleRate
	minKm    MinDistance
}

func DefaultRateTable() RateTable {
	t, _ := NewRateTable([]VehicleRate{
		{Class: VehicleSedan, Label: "Sedan (4+1)", Seats: 4, PerKm: Rate{OneWay: 14, RoundTrip: 13}},
		{Class: VehicleMUV, Label: "MUV (7+1)", Seats: 7, PerKm: Rate{OneWay: 18, RoundTrip: 17}},
		{Class: VehicleInnova, Label: "Innova (7+1)", Seats: 7, PerKm: Rate{OneWay: 19, RoundTrip: 18}},
	}, MinDistance{OneWay: 250, RoundTrip: 150})
	return t
}

func NewRateTable(rates []VehicleRate, minKm MinDistance) (RateTable, error) {
	m := make(map[VehicleClass]VehicleRate, len(rates))
	for _, r := range rates {
		if _, err := ParseVehicleClass(string(r.Class)); err != nil {
			return RateTable{}, err
		}
		if r.PerKm.OneWay <= 0 || r.PerKm.RoundTrip <= 0 {
			return RateTable{}, fmt.Errorf("rate for %s must be positive", r.Class)
		}
		m[r.Class] = r
	}
	return RateTable{vehicles: m, minKm: minKm}, nil
}

func (t RateTable) Rate(c VehicleClass, trip TripType) (float64, error) {
	v, ok := t.vehicles[c]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownVehicleClass, c)
	}
	if trip != TripOneWay && trip != TripRoundTrip {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTripType, trip)
	}
	return v.PerKm.For(trip), nil
}

func (t RateTable) Vehicle(c VehicleClass) (VehicleRate, bool) {
	v, ok := t.vehicles[c]
	return v, ok
}

func (t RateTable) MinBillableKm(trip TripType) float64 {
	return t.minKm.For(trip)
}

func (t RateTable) MinDistance() MinDistance {
	return t.minKm
}

// Vehicles lists the classes ordered by one-way rate, cheapest first.
func (t RateTable) Vehicles() []VehicleRate {
	out := make([]VehicleRate, 0, len(t.vehicles))
	for _, v := range t.vehicles {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PerKm.OneWay == out[j].PerKm.OneWay {
			return out[i].Class < out[j].Class
		}
		return out[i].PerKm.OneWay < out[j].PerKm.OneWay
	})
	return out
}

// FareEstimate is derived from a resolved route and never persisted on its own.
type FareEstimate struct {
	VehicleClass    VehicleClass `json:"vehicleType"`
	TripType        TripType     `json:"tripType"`
	DistanceKm      float64      `json:"distanceKm"`
	DurationMinutes int          `json:"durationMinutes"`
	RatePerKm       float64      `json:"ratePerKm"`
	EstimatedCost   int64        `json:"estimatedCost"`

	// Both variants for the same one-way distance, for fare comparison.
	OneWayCost    int64 `json:"oneWayCost"`
	RoundTripCost int64 `json:"roundTripCost"`

	MinBillableKm     float64 `json:"minBillableKm"`
	MinDistanceNotice string  `json:"minDistanceNotice"`
}
