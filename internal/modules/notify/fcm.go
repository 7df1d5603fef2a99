// README: Operator push notifications over Firebase Cloud Messaging.
package notify

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/iterator"

	"droptaxi/internal/modules/location"
)

const adminTokensCollection = "admin_tokens"

type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// TokenSource lists the device tokens of operators.
type TokenSource interface {
	OperatorTokens(ctx context.Context) ([]string, error)
}

// FirestoreTokens reads operator tokens from the admin_tokens collection.
type FirestoreTokens struct {
	client *firestore.Client
}

func NewFirestoreTokens(client *firestore.Client) *FirestoreTokens {
	return &FirestoreTokens{client: client}
}

func (f *FirestoreTokens) OperatorTokens(ctx context.Context) ([]string, error) {
	iter := f.client.Collection(adminTokensCollection).Documents(ctx)
	defer iter.Stop()
	var tokens []string
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		if v, ok := snap.Data()["token"].(string); ok && v != "" {
			tokens = append(tokens, v)
		}
	}
	return tokens, nil
}

// OperatorPush tells operators about new bookings.
type OperatorPush struct {
	sender multicastSender
	tokens TokenSource
}

func NewOperatorPush(sender multicastSender, tokens TokenSource) *OperatorPush {
	return &OperatorPush{sender: sender, tokens: tokens}
}

func (p *OperatorPush) Name() string { return "fcm" }

func (p *OperatorPush) Deliver(ctx context.Context, e Event) error {
	if e.Kind != KindCreated {
		return nil
	}
	tokens, err := p.tokens.OperatorTokens(ctx)
	if err != nil {
		return fmt.Errorf("load operator tokens: %w", err)
	}
	if len(tokens) == 0 {
		return nil
	}
	b := e.Booking
	resp, err := p.sender.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: "New Booking Received!",
			Body:  fmt.Sprintf("%s - %s ➝ %s", b.Trip.PassengerName, placeName(b.Trip.Source), placeName(b.Trip.Destination)),
		},
		Data: map[string]string{
			"bookingId": b.ID,
			"status":    string(b.Status),
		},
	})
	if err != nil {
		return err
	}
	if resp.FailureCount > 0 && resp.SuccessCount == 0 {
		return fmt.Errorf("push rejected for all %d operator devices", resp.FailureCount)
	}
	return nil
}

func placeName(p *location.Place) string {
	if p == nil {
		return ""
	}
	return p.Name()
}
