// README: Booking draft validator; collects every field error in one pass.
package booking

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	"droptaxi/internal/modules/pricing"
)

var ErrValidationFailed = errors.New("validation failed")

var (
	namePattern  = regexp.MustCompile(`^[A-Za-z ]+$`)
	phonePattern = regexp.MustCompile(`^[6-9]\d{9}$`)
)

// Field keys reported in ValidationError.Fields.
const (
	FieldSource      = "source"
	FieldDestination = "destination"
	FieldVehicle     = "vehicleType"
	FieldTripType    = "tripType"
	FieldName        = "name"
	FieldPhone       = "phone"
	FieldDate        = "date"
	FieldReturnDate  = "returnDate"
	FieldDistance    = "distance"
	FieldDuration    = "duration"
	FieldCost        = "cost"
)

// ValidationError maps form fields to the message shown next to them.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// Validate checks a draft before submission. It returns nil or a
// *ValidationError carrying every violation found.
func Validate(d Draft) error {
	// Locations are judged on their own; a bad pickup does not hide other errors.
	fields := locationErrors(d.Trip)

	class, err := pricing.ParseVehicleClass(string(d.Trip.VehicleClass))
	if err != nil {
		fields[FieldVehicle] = "Please select a vehicle"
	}
	trip, err := pricing.ParseTripType(string(d.Trip.TripType))
	if err != nil {
		fields[FieldTripType] = "Please select a trip type"
	}

	name := strings.TrimSpace(d.Trip.PassengerName)
	switch {
	case name == "":
		fields[FieldName] = "Name is required"
	case !namePattern.MatchString(name):
		fields[FieldName] = "Name can contain only letters and spaces"
	}

	phone := strings.TrimSpace(d.Trip.PassengerPhone)
	switch {
	case phone == "":
		fields[FieldPhone] = "Phone number is required"
	case !phonePattern.MatchString(phone):
		fields[FieldPhone] = "Enter a valid 10-digit mobile number"
	}

	date, dateOK := ParseDate(d.Trip.Date)
	if !dateOK {
		fields[FieldDate] = "Travel date is required"
	}
	if trip == pricing.TripRoundTrip {
		ret, ok := ParseDate(d.Trip.ReturnDate)
		switch {
		case !ok:
			fields[FieldReturnDate] = "Return date is required for round trips"
		case dateOK && ret.Before(date):
			fields[FieldReturnDate] = "Return date cannot be before travel date"
		}
	}

	if d.Fare == nil || !(d.Fare.DistanceKm > 0) {
		fields[FieldDistance] = "Distance is not available yet"
	}
	if d.Fare == nil || d.Fare.DurationMinutes <= 0 {
		fields[FieldDuration] = "Duration is not available yet"
	}
	if d.Fare == nil || d.Fare.EstimatedCost <= 0 {
		fields[FieldCost] = "Fare is not available yet"
	}
	// A fare priced for another vehicle or trip type is stale.
	if d.Fare != nil {
		switch {
		case class != "" && d.Fare.VehicleClass != class:
			fields[FieldCost] = "Fare does not match the selected vehicle"
		case trip != "" && d.Fare.TripType != trip:
			fields[FieldCost] = "Fare does not match the selected trip type"
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func locationErrors(t TripRequest) map[string]string {
	fields := map[string]string{}
	if !t.Source.Usable() {
		fields[FieldSource] = "Pickup location is invalid"
	}
	if !t.Destination.Usable() {
		fields[FieldDestination] = "Drop location is invalid"
	}
	return fields
}
