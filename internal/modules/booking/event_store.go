// README: Booking status events backed by PostgreSQL.
package booking

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type EventStore struct {
	db *pgxpool.Pool
}

func NewEventStore(db *pgxpool.Pool) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO booking_events (
			booking_id, from_status, to_status, actor_type, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		e.BookingID,
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		nullIfEmpty(e.ActorID),
		e.CreatedAt,
	)
	return err
}

// ListEvents returns the audit trail of a booking, oldest first.
func (s *EventStore) ListEvents(ctx context.Context, bookingID string) ([]Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, booking_id, from_status, to_status, actor_type, COALESCE(actor_id, ''), created_at
		FROM booking_events
		WHERE booking_id = $1
		ORDER BY created_at, id`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var from, to string
		if err := rows.Scan(&e.ID, &e.BookingID, &from, &to, &e.ActorType, &e.ActorID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.FromStatus = Status(from)
		e.ToStatus = Status(to)
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullIfEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
