// README: Booking event feed for invoicing over RabbitMQ.
package notify

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"droptaxi/internal/modules/booking"
)

type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Feed publishes every booking event to a topic exchange keyed by event kind.
type Feed struct {
	ch       amqpPublisher
	exchange string
}

func NewFeed(ch amqpPublisher, exchange string) *Feed {
	return &Feed{ch: ch, exchange: exchange}
}

func (f *Feed) Name() string { return "amqp" }

type feedMessage struct {
	Kind       Kind                `json:"kind"`
	BookingID  string              `json:"bookingId"`
	Status     booking.Status      `json:"status"`
	FromStatus booking.Status      `json:"fromStatus,omitempty"`
	TripType   string              `json:"tripType"`
	Vehicle    string              `json:"vehicleType"`
	Phone      string              `json:"phone"`
	Cost       int64               `json:"cost"`
	Settlement *booking.Settlement `json:"settlement,omitempty"`
	At         time.Time           `json:"at"`
}

func (f *Feed) Deliver(ctx context.Context, e Event) error {
	b := e.Booking
	body, err := json.Marshal(feedMessage{
		Kind:       e.Kind,
		BookingID:  b.ID,
		Status:     b.Status,
		FromStatus: e.FromStatus,
		TripType:   string(b.Trip.TripType),
		Vehicle:    string(b.Trip.VehicleClass),
		Phone:      b.Trip.PassengerPhone,
		Cost:       b.EstimatedCost,
		Settlement: b.Settlement,
		At:         e.At,
	})
	if err != nil {
		return err
	}
	return f.ch.PublishWithContext(ctx, f.exchange, string(e.Kind), false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    b.ID + ":" + string(e.Kind) + ":" + e.At.Format(time.RFC3339Nano),
		Timestamp:    e.At,
		Body:         body,
	})
}
