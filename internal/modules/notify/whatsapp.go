// README: Customer status updates over WhatsApp via Twilio.
package notify

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	api "github.com/twilio/twilio-go/rest/api/v2010"

	"droptaxi/internal/modules/booking"
)

type messageCreator interface {
	CreateMessage(params *api.CreateMessageParams) (*api.ApiV2010Message, error)
}

// WhatsApp messages the passenger when an operator changes a booking's status.
type WhatsApp struct {
	api  messageCreator
	from string
}

func NewWhatsApp(client messageCreator, from string) *WhatsApp {
	return &WhatsApp{api: client, from: from}
}

func (w *WhatsApp) Name() string { return "whatsapp" }

func (w *WhatsApp) Deliver(_ context.Context, e Event) error {
	if e.Kind != KindStatusChanged {
		return nil
	}
	b := e.Booking
	phone := digits(b.Trip.PassengerPhone)
	if phone == "" || strings.TrimSpace(b.Trip.PassengerName) == "" {
		return nil
	}
	params := &api.CreateMessageParams{}
	params.SetTo("whatsapp:+91" + phone)
	params.SetFrom("whatsapp:" + w.from)
	params.SetBody(StatusMessage(&b))
	if _, err := w.api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio create message: %w", err)
	}
	return nil
}

// StatusMessage is the text sent to a passenger about their booking.
func StatusMessage(b *booking.Booking) string {
	return fmt.Sprintf("Hi %s,\nYour Booking Id: %s is %s.\nThank you!",
		strings.TrimSpace(b.Trip.PassengerName), b.ID, statusLabel(b.Status))
}

func statusLabel(s booking.Status) string {
	r := []rune(string(s))
	if len(r) == 0 {
		return ""
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
