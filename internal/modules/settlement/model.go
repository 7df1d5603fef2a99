// README: Settlement rules: driver allowance, trip days and surcharge coercion.
package settlement

import (
	"math"

	"droptaxi/internal/modules/booking"
	"droptaxi/internal/types"
)

// DriverAllowancePerDay is the daily driver bata in rupees.
const DriverAllowancePerDay int64 = 400

// TripDays counts calendar days from date to returnDate (or date when there
// is no return), both inclusive. Unreadable or reversed dates count as one day.
func TripDays(date, returnDate string) int {
	start, ok := booking.ParseDate(date)
	if !ok {
		return 1
	}
	end, ok := booking.ParseDate(returnDate)
	if !ok {
		return 1
	}
	diff := end.Sub(start).Hours() / 24
	if diff <= 0 {
		return 1
	}
	return int(math.Ceil(diff)) + 1
}

func DriverAllowance(days int) int64 {
	if days < 1 {
		days = 1
	}
	return DriverAllowancePerDay * int64(days)
}

// Coerce reads an operator-entered charge. Missing, non-numeric and negative
// values are 0; fractions round to the nearest rupee, so totals only move in
// whole rupees.
func Coerce(v any) int64 {
	f := types.Number(v)
	if f <= 0 {
		return 0
	}
	return int64(math.Floor(f + 0.5))
}

// Charges are the raw operator inputs of a recompute. A nil field was not
// sent and keeps the value of an earlier settlement.
type Charges struct {
	BaseCost any `json:"baseCost"`
	Toll     any `json:"tollCharges"`
	Parking  any `json:"parkingCharges"`
	Hill     any `json:"hillCharges"`
	Permit   any `json:"permitCharges"`
}

// Compute derives the settlement of a booking from operator charges. Charges
// left unset carry over from b.Settlement; a base cost that is unset on an
// unsettled booking, or zero, falls back to the booking's estimate.
func Compute(b *booking.Booking, c Charges) booking.Settlement {
	var prev booking.Settlement
	if b.Settlement != nil {
		prev = *b.Settlement
	}
	base := carry(c.BaseCost, prev.BaseCost)
	if base == 0 {
		base = b.EstimatedCost
	}
	end := b.Trip.ReturnDate
	if end == "" {
		end = b.Trip.Date
	}
	days := TripDays(b.Trip.Date, end)
	s := booking.Settlement{
		BaseCost:        base,
		TripDays:        days,
		DriverAllowance: DriverAllowance(days),
		TollCharges:     carry(c.Toll, prev.TollCharges),
		ParkingCharges:  carry(c.Parking, prev.ParkingCharges),
		HillCharges:     carry(c.Hill, prev.HillCharges),
		PermitCharges:   carry(c.Permit, prev.PermitCharges),
	}
	s.TotalCost = s.BaseCost + s.DriverAllowance + s.TollCharges + s.ParkingCharges + s.HillCharges + s.PermitCharges
	return s
}

func carry(v any, prev int64) int64 {
	if v == nil {
		return prev
	}
	return Coerce(v)
}
