// README: Settlement service recomputes final charges and optionally completes the booking.
package settlement

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"droptaxi/internal/modules/booking"
	"droptaxi/internal/types"
)

type Repository interface {
	Get(ctx context.Context, id string) (*booking.Booking, error)
	Settle(ctx context.Context, id string, u booking.SettleUpdate) error
}

type Service struct {
	store    Repository
	events   booking.EventLog
	notifier booking.Notifier
	now      func() time.Time
	log      logrus.FieldLogger
}

func NewService(store Repository, events booking.EventLog, notifier booking.Notifier, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{store: store, events: events, notifier: notifier, now: time.Now, log: log}
}

type RecomputeCommand struct {
	BookingID       string
	DistanceKm      *float64
	DurationMinutes *int
	Charges         Charges
	// Complete moves a confirmed booking to completed in the same write.
	Complete bool
	ActorID  string
}

// Recompute saves the final charges of a booking and returns the updated
// booking. Completed and cancelled bookings are rejected with
// booking.ErrInvalidState.
func (s *Service) Recompute(ctx context.Context, cmd RecomputeCommand) (*booking.Booking, error) {
	b, err := s.store.Get(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if b.Status.Terminal() {
		return nil, booking.ErrInvalidState
	}
	to := b.Status
	if cmd.Complete {
		if !booking.CanTransition(b.Status, booking.StatusCompleted) {
			return nil, booking.ErrInvalidState
		}
		to = booking.StatusCompleted
	}

	distance := cleanDistance(cmd.DistanceKm)
	duration := cleanDuration(cmd.DurationMinutes)

	st := Compute(b, cmd.Charges)
	st.SettledAt = s.now()
	err = s.store.Settle(ctx, b.ID, booking.SettleUpdate{
		From:            b.Status,
		To:              to,
		Settlement:      st,
		DistanceKm:      distance,
		DurationMinutes: duration,
	})
	if err != nil {
		return nil, err
	}

	from := b.Status
	b.Status = to
	b.Settlement = &st
	if distance != nil {
		b.DistanceKm = *distance
	}
	if duration != nil {
		b.DurationMinutes = *duration
	}
	s.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"total":      types.Rupees(st.TotalCost).String(),
		"completed":  to == booking.StatusCompleted,
	}).Info("booking settled")

	if to != from {
		if s.events != nil {
			if err := s.events.AppendEvent(ctx, &booking.Event{
				BookingID:  b.ID,
				FromStatus: from,
				ToStatus:   to,
				ActorType:  "operator",
				ActorID:    cmd.ActorID,
				CreatedAt:  st.SettledAt,
			}); err != nil {
				s.log.WithError(err).WithField("booking_id", b.ID).Warn("append booking event")
			}
		}
		if s.notifier != nil {
			s.notifier.StatusChanged(ctx, b, from)
		}
	}
	if s.notifier != nil {
		s.notifier.BookingSettled(ctx, b)
	}
	return b, nil
}

func cleanDistance(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v <= 0 {
		return nil
	}
	d := math.Round(*v*100) / 100
	return &d
}

func cleanDuration(v *int) *int {
	if v == nil || *v <= 0 {
		return nil
	}
	d := *v
	return &d
}
