// README: Notification dispatcher fans booking events out to delivery channels without blocking callers.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"droptaxi/internal/modules/booking"
)

type Kind string

const (
	KindCreated       Kind = "booking.created"
	KindStatusChanged Kind = "booking.status_changed"
	KindSettled       Kind = "booking.settled"
)

// Event is a snapshot of a booking at the moment something happened to it.
type Event struct {
	Kind       Kind
	Booking    booking.Booking
	FromStatus booking.Status
	At         time.Time
}

// Channel delivers events to one audience. Channels ignore kinds they do not handle.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, e Event) error
}

type Dispatcher struct {
	channels []Channel
	timeout  time.Duration
	log      logrus.FieldLogger
	wg       sync.WaitGroup
}

func NewDispatcher(log logrus.FieldLogger, timeout time.Duration, channels ...Channel) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{channels: channels, timeout: timeout, log: log}
}

func (d *Dispatcher) BookingCreated(ctx context.Context, b *booking.Booking) {
	d.dispatch(ctx, Event{Kind: KindCreated, Booking: *b, At: time.Now()})
}

func (d *Dispatcher) StatusChanged(ctx context.Context, b *booking.Booking, from booking.Status) {
	d.dispatch(ctx, Event{Kind: KindStatusChanged, Booking: *b, FromStatus: from, At: time.Now()})
}

func (d *Dispatcher) BookingSettled(ctx context.Context, b *booking.Booking) {
	d.dispatch(ctx, Event{Kind: KindSettled, Booking: *b, At: time.Now()})
}

// dispatch outlives the request that triggered it; failures are only logged.
func (d *Dispatcher) dispatch(ctx context.Context, e Event) {
	base := context.WithoutCancel(ctx)
	for _, ch := range d.channels {
		d.wg.Add(1)
		go func(ch Channel) {
			defer d.wg.Done()
			cctx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()
			if err := ch.Deliver(cctx, e); err != nil {
				d.log.WithError(err).WithFields(logrus.Fields{
					"channel":    ch.Name(),
					"kind":       e.Kind,
					"booking_id": e.Booking.ID,
				}).Warn("notification failed")
			}
		}(ch)
	}
}

// Wait blocks until in-flight deliveries finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
