// README: Booking aggregate, trip draft state transitions and status definitions.
package booking

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"droptaxi/internal/modules/location"
	"droptaxi/internal/modules/pricing"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// legacyPending is what early booking documents carried before statuses were normalised.
const legacyPending = "Yet to Confirm"

// ParseStatus accepts the persisted literals, including the legacy pending label.
func ParseStatus(v string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "pending", strings.ToLower(legacyPending):
		return StatusPending, true
	case "confirmed":
		return StatusConfirmed, true
	case "completed":
		return StatusCompleted, true
	case "cancelled", "canceled":
		return StatusCancelled, true
	}
	return "", false
}

// AllowedTransitions represents the booking state flow as code.
var AllowedTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

const DateLayout = "2006-01-02"

// ParseDate reads a trip date; a time-of-day suffix is tolerated and dropped.
func ParseDate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	for _, layout := range []string{DateLayout, "2006-01-02T15:04", time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// TripRequest is what the customer fills in on the booking form.
type TripRequest struct {
	TripType       pricing.TripType     `json:"tripType"`
	Source         *location.Place      `json:"source"`
	Destination    *location.Place      `json:"destination"`
	VehicleClass   pricing.VehicleClass `json:"vehicleType"`
	Date           string               `json:"date"`
	ReturnDate     string               `json:"returnDate,omitempty"`
	PassengerName  string               `json:"name"`
	PassengerPhone string               `json:"phone"`
}

// Draft is an immutable form state: a trip request plus the fare computed for
// it. Every transition returns a new Draft; changes that affect the route or
// the rate drop the stale fare.
type Draft struct {
	Trip TripRequest
	Fare *pricing.FareEstimate
}

func NewDraft(trip TripRequest) Draft {
	if trip.TripType != pricing.TripRoundTrip {
		trip.ReturnDate = ""
	}
	return Draft{Trip: trip}
}

func (d Draft) WithTripType(t pricing.TripType) Draft {
	d.Trip.TripType = t
	if t != pricing.TripRoundTrip {
		d.Trip.ReturnDate = ""
	}
	d.Fare = nil
	return d
}

func (d Draft) WithSource(p location.Place) Draft {
	d.Trip.Source = &p
	d.Fare = nil
	return d
}

func (d Draft) WithDestination(p location.Place) Draft {
	d.Trip.Destination = &p
	d.Fare = nil
	return d
}

func (d Draft) WithVehicle(c pricing.VehicleClass) Draft {
	d.Trip.VehicleClass = c
	d.Fare = nil
	return d
}

func (d Draft) WithDates(date, returnDate string) Draft {
	d.Trip.Date = date
	if d.Trip.TripType == pricing.TripRoundTrip {
		d.Trip.ReturnDate = returnDate
	} else {
		d.Trip.ReturnDate = ""
	}
	return d
}

func (d Draft) WithPassenger(name, phone string) Draft {
	d.Trip.PassengerName = name
	d.Trip.PassengerPhone = phone
	return d
}

func (d Draft) WithFare(f pricing.FareEstimate) Draft {
	d.Fare = &f
	return d
}

// Settlement holds the final charges of a trip. It is absent on a booking
// until an operator settles it.
type Settlement struct {
	BaseCost        int64     `json:"baseCost"`
	TripDays        int       `json:"tripDays"`
	DriverAllowance int64     `json:"driverAllowance"`
	TollCharges     int64     `json:"tollCharges"`
	ParkingCharges  int64     `json:"parkingCharges"`
	HillCharges     int64     `json:"hillCharges"`
	PermitCharges   int64     `json:"permitCharges"`
	TotalCost       int64     `json:"totalCost"`
	SettledAt       time.Time `json:"settledAt"`
}

// Booking is the persisted aggregate.
type Booking struct {
	ID              string      `json:"bookingId"`
	Trip            TripRequest `json:"trip"`
	DistanceKm      float64     `json:"distance"`
	DurationMinutes int         `json:"duration"`
	EstimatedCost   int64       `json:"cost"`
	Status          Status      `json:"status"`
	CreatedAt       time.Time   `json:"createdAt"`
	UserID          string      `json:"userId,omitempty"`
	UserEmail       string      `json:"userEmail,omitempty"`
	Settlement      *Settlement `json:"settlement,omitempty"`
}

// Final reports whether the charges shown are authoritative rather than estimated.
func (b *Booking) Final() bool {
	return b.Status == StatusCompleted && b.Settlement != nil
}

// Event is one status transition in the booking's audit trail.
type Event struct {
	ID         int64
	BookingID  string
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    string
	CreatedAt  time.Time
}

// Fingerprint is the dedup key of a trip: phone, date, pickup and drop names.
func Fingerprint(t TripRequest) string {
	date := strings.TrimSpace(t.Date)
	if d, ok := ParseDate(date); ok {
		date = d.Format(DateLayout)
	}
	var src, dst string
	if t.Source != nil {
		src = t.Source.Name()
	}
	if t.Destination != nil {
		dst = t.Destination.Name()
	}
	parts := []string{
		strings.TrimSpace(t.PassengerPhone),
		date,
		strings.ToLower(src),
		strings.ToLower(dst),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}
