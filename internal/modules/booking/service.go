// README: Booking service prepares drafts, submits bookings and drives status transitions.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"droptaxi/internal/modules/location"
	"droptaxi/internal/modules/pricing"
	"droptaxi/internal/types"
)

var (
	ErrDuplicateBooking = errors.New("a booking for this trip already exists")
	ErrPersistence      = errors.New("booking could not be saved")
	ErrNotFound         = errors.New("booking not found")
	ErrInvalidState     = errors.New("invalid state transition")
	ErrConflict         = errors.New("booking state conflict")
	// ErrIDTaken is returned by a Repository when the booking id is in use.
	ErrIDTaken = errors.New("booking id taken")
)

const maxIDAttempts = 3

// Repository persists bookings. Create must write the booking and claim its
// fingerprint atomically, failing with ErrDuplicateBooking when the
// fingerprint is already claimed and ErrIDTaken when the id is.
type Repository interface {
	Create(ctx context.Context, b *Booking, fingerprint string) error
	Get(ctx context.Context, id string) (*Booking, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*Booking, error)
	ListByPhone(ctx context.Context, phone string, limit int) ([]*Booking, error)
	ListByStatus(ctx context.Context, status Status, limit int) ([]*Booking, error)
	UpdateStatus(ctx context.Context, id string, from, to Status) error
	// Delete removes the booking and releases its fingerprint.
	Delete(ctx context.Context, id, fingerprint string) error
}

// Sequencer hands out how many times a booking label has been issued.
type Sequencer interface {
	Next(ctx context.Context, label string) (int64, error)
}

type EventLog interface {
	AppendEvent(ctx context.Context, e *Event) error
	ListEvents(ctx context.Context, bookingID string) ([]Event, error)
}

// Notifier is told about booking lifecycle changes. Implementations must not
// block the caller.
type Notifier interface {
	BookingCreated(ctx context.Context, b *Booking)
	StatusChanged(ctx context.Context, b *Booking, from Status)
	BookingSettled(ctx context.Context, b *Booking)
}

type Resolver interface {
	Resolve(ctx context.Context, source, destination location.Place) (location.Route, error)
}

type Estimator interface {
	Estimate(distanceKm float64, durationMinutes int, class pricing.VehicleClass, trip pricing.TripType) (pricing.FareEstimate, error)
}

type Deps struct {
	Store    Repository
	Sequence Sequencer
	Events   EventLog
	Notifier Notifier
	Resolver Resolver
	Pricing  Estimator
	Location *time.Location
	Now      func() time.Time
	Log      logrus.FieldLogger
}

type Service struct {
	store    Repository
	seq      Sequencer
	events   EventLog
	notifier Notifier
	resolver Resolver
	pricing  Estimator
	loc      *time.Location
	now      func() time.Time
	log      logrus.FieldLogger
}

func NewService(d Deps) *Service {
	s := &Service{
		store:    d.Store,
		seq:      d.Sequence,
		events:   d.Events,
		notifier: d.Notifier,
		resolver: d.Resolver,
		pricing:  d.Pricing,
		loc:      d.Location,
		now:      d.Now,
		log:      d.Log,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	return s
}

// Prepare resolves the route of a trip and prices it. The returned draft
// carries the fare only when both steps succeeded.
func (s *Service) Prepare(ctx context.Context, trip TripRequest) (Draft, error) {
	d := NewDraft(trip)
	if fields := locationErrors(d.Trip); len(fields) > 0 {
		return d, &ValidationError{Fields: fields}
	}
	class, err := pricing.ParseVehicleClass(string(d.Trip.VehicleClass))
	if err != nil {
		return d, err
	}
	tripType, err := pricing.ParseTripType(string(d.Trip.TripType))
	if err != nil {
		return d, err
	}
	d = d.WithVehicle(class).WithTripType(tripType).WithDates(trip.Date, trip.ReturnDate)

	route, err := s.resolver.Resolve(ctx, *d.Trip.Source, *d.Trip.Destination)
	if err != nil {
		return d, err
	}
	fare, err := s.pricing.Estimate(route.DistanceKm, route.DurationMinutes, class, tripType)
	if err != nil {
		return d, err
	}
	return d.WithFare(fare), nil
}

type SubmitCommand struct {
	Draft     Draft
	UserID    string
	UserEmail string
}

// Submit persists a validated draft as a pending booking and returns its id.
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (string, error) {
	if err := Validate(cmd.Draft); err != nil {
		return "", err
	}
	trip := cmd.Draft.Trip
	// Validate accepted both, so the parse cannot fail here.
	trip.VehicleClass, _ = pricing.ParseVehicleClass(string(trip.VehicleClass))
	trip.TripType, _ = pricing.ParseTripType(string(trip.TripType))
	if trip.TripType != pricing.TripRoundTrip {
		trip.ReturnDate = ""
	}
	trip.PassengerName = strings.TrimSpace(trip.PassengerName)
	trip.PassengerPhone = strings.TrimSpace(trip.PassengerPhone)

	now := s.now()
	b := &Booking{
		Trip:            trip,
		DistanceKm:      cmd.Draft.Fare.DistanceKm,
		DurationMinutes: cmd.Draft.Fare.DurationMinutes,
		EstimatedCost:   cmd.Draft.Fare.EstimatedCost,
		Status:          StatusPending,
		CreatedAt:       now,
		UserID:          cmd.UserID,
		UserEmail:       cmd.UserEmail,
	}
	fingerprint := Fingerprint(trip)

	label := BookingLabel(trip.PassengerPhone, trip.PassengerName, now.In(s.loc))
	id := s.uniqueID(ctx, label)
	for attempt := 1; ; attempt++ {
		b.ID = id
		err := s.store.Create(ctx, b, fingerprint)
		if err == nil {
			break
		}
		switch {
		case errors.Is(err, ErrDuplicateBooking):
			return "", ErrDuplicateBooking
		case errors.Is(err, ErrIDTaken) && attempt < maxIDAttempts:
			id = label + "-" + shortSuffix()
			continue
		}
		return "", fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"trip_type":  b.Trip.TripType,
		"vehicle":    b.Trip.VehicleClass,
		"cost":       types.Rupees(b.EstimatedCost).String(),
	}).Info("booking created")
	s.appendEvent(ctx, &Event{
		BookingID:  b.ID,
		FromStatus: "",
		ToStatus:   StatusPending,
		ActorType:  actorType(cmd.UserID, "customer"),
		ActorID:    cmd.UserID,
		CreatedAt:  now,
	})
	if s.notifier != nil {
		s.notifier.BookingCreated(ctx, b)
	}
	return b.ID, nil
}

func (s *Service) uniqueID(ctx context.Context, label string) string {
	if s.seq == nil {
		return label
	}
	n, err := s.seq.Next(ctx, label)
	if err != nil {
		s.log.WithError(err).WithField("label", label).Warn("booking sequence unavailable")
		return label
	}
	if n > 1 {
		return fmt.Sprintf("%s-%d", label, n)
	}
	return label
}

func (s *Service) Get(ctx context.Context, id string) (*Booking, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]*Booking, error) {
	return s.store.ListByUser(ctx, userID, limit)
}

func (s *Service) ListByPhone(ctx context.Context, phone string, limit int) ([]*Booking, error) {
	return s.store.ListByPhone(ctx, strings.TrimSpace(phone), limit)
}

// ListByStatus lists bookings for the admin view; an empty status lists all.
func (s *Service) ListByStatus(ctx context.Context, status Status, limit int) ([]*Booking, error) {
	return s.store.ListByStatus(ctx, status, limit)
}

// History returns the status trail of a booking.
func (s *Service) History(ctx context.Context, id string) ([]Event, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	if s.events == nil {
		return nil, nil
	}
	return s.events.ListEvents(ctx, id)
}

type StatusCommand struct {
	BookingID string
	To        Status
	ActorID   string
}

// UpdateStatus confirms or cancels a booking. Completion goes through settlement.
func (s *Service) UpdateStatus(ctx context.Context, cmd StatusCommand) (*Booking, error) {
	if cmd.To != StatusConfirmed && cmd.To != StatusCancelled {
		return nil, ErrInvalidState
	}
	b, err := s.store.Get(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	from := b.Status
	if !CanTransition(from, cmd.To) {
		return nil, ErrInvalidState
	}
	if err := s.store.UpdateStatus(ctx, b.ID, from, cmd.To); err != nil {
		return nil, err
	}
	b.Status = cmd.To
	s.appendEvent(ctx, &Event{
		BookingID:  b.ID,
		FromStatus: from,
		ToStatus:   cmd.To,
		ActorType:  "operator",
		ActorID:    cmd.ActorID,
		CreatedAt:  s.now(),
	})
	if s.notifier != nil {
		s.notifier.StatusChanged(ctx, b, from)
	}
	return b, nil
}

// Delete removes a booking for good. The trip can be booked again afterwards.
func (s *Service) Delete(ctx context.Context, id, actorID string) error {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, b.ID, Fingerprint(b.Trip)); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"status":     b.Status,
		"actor_id":   actorID,
	}).Info("booking deleted")
	return nil
}

func (s *Service) appendEvent(ctx context.Context, e *Event) {
	if s.events == nil {
		return
	}
	if err := s.events.AppendEvent(ctx, e); err != nil {
		s.log.WithError(err).WithField("booking_id", e.BookingID).Warn("append booking event")
	}
}

// BookingLabel builds the human readable id PV<last4>-<firstName>-<HHMM>.
func BookingLabel(phone, name string, at time.Time) string {
	phone = strings.TrimSpace(phone)
	last4 := phone
	if len(phone) > 4 {
		last4 = phone[len(phone)-4:]
	}
	first := ""
	if f := strings.Fields(name); len(f) > 0 {
		first = f[0]
	}
	return fmt.Sprintf("PV%s-%s-%s", last4, first, at.Format("1504"))
}

func shortSuffix() string {
	return strings.ToUpper(uuid.NewString()[:4])
}

func actorType(userID, def string) string {
	if userID == "" {
		return "guest"
	}
	return def
}
