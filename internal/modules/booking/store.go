// README: Booking store backed by Firestore; creation claims the trip fingerprint in the same transaction.
package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"droptaxi/internal/modules/location"
	"droptaxi/internal/modules/pricing"
	"droptaxi/internal/types"
)

const (
	bookingsCollection     = "bookings"
	fingerprintsCollection = "booking_fingerprints"
	defaultListLimit       = 100
)

type Store struct {
	client *firestore.Client
}

func NewStore(client *firestore.Client) *Store {
	return &Store{client: client}
}

// bookingDoc mirrors the persisted booking document. Numeric fields are read
// loosely because older documents stored some of them as strings.
type bookingDoc struct {
	BookingID        string          `firestore:"bookingId"`
	Name             string          `firestore:"name"`
	Phone            string          `firestore:"phone"`
	TripType         string          `firestore:"tripType"`
	VehicleType      string          `firestore:"vehicleType"`
	Source           string          `firestore:"source"`
	Destination      string          `firestore:"destination"`
	SourcePlace      *location.Place `firestore:"sourcePlace,omitempty"`
	DestinationPlace *location.Place `firestore:"destinationPlace,omitempty"`
	Date             string          `firestore:"date"`
	ReturnDate       string          `firestore:"returnDate,omitempty"`
	Cost             any             `firestore:"cost"`
	Distance         any             `firestore:"distance"`
	Duration         any             `firestore:"duration"`
	Status           string          `firestore:"status"`
	CreatedAt        time.Time       `firestore:"createdAt,serverTimestamp"`
	UserID           string          `firestore:"userId,omitempty"`
	UserEmail        string          `firestore:"userEmail,omitempty"`
	TollCharges      any             `firestore:"tollCharges,omitempty"`
	ParkingCharges   any             `firestore:"parkingCharges,omitempty"`
	HillCharges      any             `firestore:"hillCharges,omitempty"`
	PermitCharges    any             `firestore:"permitCharges,omitempty"`
	TotalCost        any             `firestore:"totalCost,omitempty"`
	BaseCost         any             `firestore:"baseCost,omitempty"`
	DriverAllowance  any             `firestore:"driverAllowance,omitempty"`
	TripDays         any             `firestore:"tripDays,omitempty"`
	SettledAt        *time.Time      `firestore:"settledAt,omitempty"`
	Fingerprint      string          `firestore:"fingerprint,omitempty"`
}

type fingerprintDoc struct {
	BookingID string    `firestore:"bookingId"`
	CreatedAt time.Time `firestore:"createdAt,serverTimestamp"`
}

func toDoc(b *Booking) *bookingDoc {
	d := &bookingDoc{
		BookingID:        b.ID,
		Name:             b.Trip.PassengerName,
		Phone:            b.Trip.PassengerPhone,
		TripType:         string(b.Trip.TripType),
		VehicleType:      string(b.Trip.VehicleClass),
		SourcePlace:      b.Trip.Source,
		DestinationPlace: b.Trip.Destination,
		Date:             b.Trip.Date,
		ReturnDate:       b.Trip.ReturnDate,
		Cost:             float64(b.EstimatedCost),
		Distance:         b.DistanceKm,
		Duration:         float64(b.DurationMinutes),
		Status:           string(b.Status),
		UserID:           b.UserID,
		UserEmail:        b.UserEmail,
	}
	if b.Trip.Source != nil {
		d.Source = b.Trip.Source.Name()
	}
	if b.Trip.Destination != nil {
		d.Destination = b.Trip.Destination.Name()
	}
	return d
}

func fromDoc(id string, d *bookingDoc) *Booking {
	st, ok := ParseStatus(d.Status)
	if !ok {
		st = Status(d.Status)
	}
	b := &Booking{
		ID: d.BookingID,
		Trip: TripRequest{
			TripType:       pricing.TripType(d.TripType),
			VehicleClass:   pricing.VehicleClass(d.VehicleType),
			Source:         placeOrName(d.SourcePlace, d.Source),
			Destination:    placeOrName(d.DestinationPlace, d.Destination),
			Date:           d.Date,
			ReturnDate:     d.ReturnDate,
			PassengerName:  d.Name,
			PassengerPhone: d.Phone,
		},
		DistanceKm:      types.Number(d.Distance),
		DurationMinutes: int(math.Round(types.Number(d.Duration))),
		EstimatedCost:   int64(math.Round(types.Number(d.Cost))),
		Status:          st,
		CreatedAt:       d.CreatedAt,
		UserID:          d.UserID,
		UserEmail:       d.UserEmail,
	}
	if b.ID == "" {
		b.ID = id
	}
	if d.TotalCost != nil {
		s := &Settlement{
			BaseCost:        wholeRupees(d.BaseCost),
			TripDays:        int(wholeRupees(d.TripDays)),
			DriverAllowance: wholeRupees(d.DriverAllowance),
			TollCharges:     wholeRupees(d.TollCharges),
			ParkingCharges:  wholeRupees(d.ParkingCharges),
			HillCharges:     wholeRupees(d.HillCharges),
			PermitCharges:   wholeRupees(d.PermitCharges),
			TotalCost:       wholeRupees(d.TotalCost),
		}
		if d.BaseCost == nil {
			s.BaseCost = b.EstimatedCost
		}
		if d.SettledAt != nil {
			s.SettledAt = *d.SettledAt
		}
		b.Settlement = s
	}
	return b
}

func placeOrName(p *location.Place, name string) *location.Place {
	if p != nil {
		return p
	}
	if name == "" {
		return nil
	}
	return &location.Place{DisplayName: name}
}

func wholeRupees(v any) int64 {
	return int64(math.Round(types.Number(v)))
}

func (s *Store) Create(ctx context.Context, b *Booking, fingerprint string) error {
	bookingRef := s.client.Collection(bookingsCollection).Doc(b.ID)
	fpRef := s.client.Collection(fingerprintsCollection).Doc(fingerprint)
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(fpRef); err == nil {
			return ErrDuplicateBooking
		} else if status.Code(err) != codes.NotFound {
			return fmt.Errorf("read fingerprint: %w", err)
		}
		if _, err := tx.Get(bookingRef); err == nil {
			return ErrIDTaken
		} else if status.Code(err) != codes.NotFound {
			return fmt.Errorf("read booking: %w", err)
		}
		if err := tx.Create(fpRef, fingerprintDoc{BookingID: b.ID}); err != nil {
			return err
		}
		doc := toDoc(b)
		doc.Fingerprint = fingerprint
		return tx.Create(bookingRef, doc)
	})
}

// Delete removes a booking and releases the fingerprint it claimed. The
// fingerprint recorded on the document wins over the one passed in, which
// only serves documents written before it was recorded.
func (s *Store) Delete(ctx context.Context, id, fingerprint string) error {
	bookingRef := s.client.Collection(bookingsCollection).Doc(id)
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(bookingRef)
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if raw, err := snap.DataAt("fingerprint"); err == nil {
			if fp, ok := raw.(string); ok && fp != "" {
				fingerprint = fp
			}
		}
		var fpRef *firestore.DocumentRef
		if fingerprint != "" {
			ref := s.client.Collection(fingerprintsCollection).Doc(fingerprint)
			fpSnap, err := tx.Get(ref)
			switch {
			case err == nil:
				var fp fingerprintDoc
				if err := fpSnap.DataTo(&fp); err == nil && fp.BookingID == id {
					fpRef = ref
				}
			case status.Code(err) != codes.NotFound:
				return fmt.Errorf("read fingerprint: %w", err)
			}
		}
		if fpRef != nil {
			if err := tx.Delete(fpRef); err != nil {
				return err
			}
		}
		return tx.Delete(bookingRef)
	})
}

func (s *Store) Get(ctx context.Context, id string) (*Booking, error) {
	snap, err := s.client.Collection(bookingsCollection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(snap)
}

func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]*Booking, error) {
	q := s.client.Collection(bookingsCollection).Where("userId", "==", userID)
	return s.list(ctx, q, limit)
}

func (s *Store) ListByPhone(ctx context.Context, phone string, limit int) ([]*Booking, error) {
	q := s.client.Collection(bookingsCollection).Where("phone", "==", phone)
	return s.list(ctx, q, limit)
}

// ListByStatus filters by status; pending also matches the legacy labels.
func (s *Store) ListByStatus(ctx context.Context, st Status, limit int) ([]*Booking, error) {
	q := s.client.Collection(bookingsCollection).Query
	switch st {
	case "":
	case StatusPending:
		q = q.Where("status", "in", []string{string(StatusPending), legacyPending, ""})
	default:
		q = q.Where("status", "==", string(st))
	}
	return s.list(ctx, q, limit)
}

func (s *Store) list(ctx context.Context, q firestore.Query, limit int) ([]*Booking, error) {
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	iter := q.OrderBy("createdAt", firestore.Desc).Limit(limit).Documents(ctx)
	defer iter.Stop()
	out := make([]*Booking, 0)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		b, err := decode(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// UpdateStatus moves a booking from one status to another, failing with
// ErrConflict when the stored status is no longer from.
func (s *Store) UpdateStatus(ctx context.Context, id string, from, to Status) error {
	return s.update(ctx, id, from, []firestore.Update{
		{Path: "status", Value: string(to)},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
}

// SettleUpdate carries the final charges of a booking. To equals From when
// the charges are saved without completing the trip.
type SettleUpdate struct {
	From            Status
	To              Status
	Settlement      Settlement
	DistanceKm      *float64
	DurationMinutes *int
}

func (s *Store) Settle(ctx context.Context, id string, u SettleUpdate) error {
	st := u.Settlement
	updates := []firestore.Update{
		{Path: "status", Value: string(u.To)},
		{Path: "baseCost", Value: float64(st.BaseCost)},
		{Path: "tripDays", Value: float64(st.TripDays)},
		{Path: "driverAllowance", Value: float64(st.DriverAllowance)},
		{Path: "tollCharges", Value: float64(st.TollCharges)},
		{Path: "parkingCharges", Value: float64(st.ParkingCharges)},
		{Path: "hillCharges", Value: float64(st.HillCharges)},
		{Path: "permitCharges", Value: float64(st.PermitCharges)},
		{Path: "totalCost", Value: float64(st.TotalCost)},
		{Path: "settledAt", Value: st.SettledAt},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	}
	if u.DistanceKm != nil {
		updates = append(updates, firestore.Update{Path: "distance", Value: *u.DistanceKm})
	}
	if u.DurationMinutes != nil {
		updates = append(updates, firestore.Update{Path: "duration", Value: float64(*u.DurationMinutes)})
	}
	return s.update(ctx, id, u.From, updates)
}

func (s *Store) update(ctx context.Context, id string, from Status, updates []firestore.Update) error {
	ref := s.client.Collection(bookingsCollection).Doc(id)
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		raw, _ := snap.DataAt("status")
		label, _ := raw.(string)
		current, ok := ParseStatus(label)
		if !ok || current != from {
			return ErrConflict
		}
		return tx.Update(ref, updates)
	})
}

func decode(snap *firestore.DocumentSnapshot) (*Booking, error) {
	var d bookingDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decode booking %s: %w", snap.Ref.ID, err)
	}
	return fromDoc(snap.Ref.ID, &d), nil
}
