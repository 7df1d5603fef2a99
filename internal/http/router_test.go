// README: End-to-end handler tests over the gin router with in-memory collaborators.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"droptaxi/internal/infra"
	"droptaxi/internal/maps"
	"droptaxi/internal/modules/booking"
	"droptaxi/internal/modules/location"
	"droptaxi/internal/modules/pricing"
	"droptaxi/internal/modules/settlement"
)

type memRepo struct {
	mu       sync.Mutex
	bookings map[string]*booking.Booking
	claimed  map[string]string
}

func (m *memRepo) Create(_ context.Context, b *booking.Booking, fp string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.claimed[fp]; ok {
		return booking.ErrDuplicateBooking
	}
	if _, ok := m.bookings[b.ID]; ok {
		return booking.ErrIDTaken
	}
	cp := *b
	m.bookings[b.ID] = &cp
	m.claimed[fp] = b.ID
	return nil
}

func (m *memRepo) Get(_ context.Context, id string) (*booking.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memRepo) all(keep func(*booking.Booking) bool) ([]*booking.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*booking.Booking
	for _, b := range m.bookings {
		if keep(b) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRepo) ListByUser(_ context.Context, uid string, _ int) ([]*booking.Booking, error) {
	return m.all(func(b *booking.Booking) bool { return b.UserID == uid })
}

func (m *memRepo) ListByPhone(_ context.Context, phone string, _ int) ([]*booking.Booking, error) {
	return m.all(func(b *booking.Booking) bool { return b.Trip.PassengerPhone == phone })
}

func (m *memRepo) ListByStatus(_ context.Context, st booking.Status, _ int) ([]*booking.Booking, error) {
	return m.all(func(b *booking.Booking) bool { return st == "" || b.Status == st })
}

func (m *memRepo) UpdateStatus(_ context.Context, id string, from, to booking.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return booking.ErrNotFound
	}
	if b.Status != from {
		return booking.ErrConflict
	}
	b.Status = to
	return nil
}

func (m *memRepo) Delete(_ context.Context, id, fp string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[id]; !ok {
		return booking.ErrNotFound
	}
	delete(m.bookings, id)
	if m.claimed[fp] == id {
		delete(m.claimed, fp)
	}
	return nil
}

func (m *memRepo) Settle(_ context.Context, id string, u booking.SettleUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return booking.ErrNotFound
	}
	if b.Status != u.From {
		return booking.ErrConflict
	}
	st := u.Settlement
	b.Status = u.To
	b.Settlement = &st
	return nil
}

type fixedResolver struct {
	route location.Route
	err   error
}

func (f fixedResolver) Resolve(context.Context, location.Place, location.Place) (location.Route, error) {
	return f.route, f.err
}

type stubVerifier struct{}

// VerifyIDToken treats the raw token as "<uid>" or "admin:<uid>".
func (stubVerifier) VerifyIDToken(_ context.Context, raw string) (*infra.FirebaseToken, error) {
	if raw == "bad" {
		return nil, errors.New("invalid")
	}
	claims := map[string]interface{}{"email": raw + "@example.com"}
	if len(raw) > 6 && raw[:6] == "admin:" {
		claims["role"] = "admin"
		raw = raw[6:]
	}
	return &infra.FirebaseToken{UID: raw, Claims: claims}, nil
}

type stubPlaces struct{}

func (stubPlaces) Autocomplete(_ context.Context, input, _ string) ([]maps.Suggestion, error) {
	return []maps.Suggestion{{PlaceID: "chn", Description: input + ", Tamil Nadu", MainText: input}}, nil
}

func (stubPlaces) Details(_ context.Context, id string) (location.Place, error) {
	return location.Place{PlaceID: id, DisplayName: "Chennai"}, nil
}

type testServer struct {
	engine *gin.Engine
	repo   *memRepo
}

func newTestServer(t *testing.T, resolver booking.Resolver) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)

	repo := &memRepo{bookings: map[string]*booking.Booking{}, claimed: map[string]string{}}
	pricingSvc := pricing.NewService(pricing.DefaultRateTable())
	bookingSvc := booking.NewService(booking.Deps{
		Store:    repo,
		Resolver: resolver,
		Pricing:  pricingSvc,
		Now:      func() time.Time { return time.Date(2025, 6, 20, 9, 2, 0, 0, time.UTC) },
		Log:      log,
	})
	settlementSvc := settlement.NewService(repo, nil, nil, log)

	srv := NewServer(ServerDeps{
		Booking:    bookingSvc,
		Settlement: settlementSvc,
		Pricing:    pricingSvc,
		Places:     stubPlaces{},
		Verifier:   stubVerifier{},
		Log:        log,
	})
	return &testServer{engine: srv.Routes(), repo: repo}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func place(name string, lat, lng float64) map[string]any {
	return map[string]any{"displayName": name, "location": map[string]any{"lat": lat, "lng": lng}}
}

func bookingBody() map[string]any {
	return map[string]any{
		"tripType":    "single",
		"source":      place("Chennai", 13.0827, 80.2707),
		"destination": place("Madurai", 9.9252, 78.1198),
		"vehicleType": "sedan",
		"date":        "2025-07-01",
		"name":        "Ravi Kumar",
		"phone":       "9884609789",
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, fixedResolver{})
	if w := s.do(t, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Errorf("health = %d %q", w.Code, w.Body.String())
	}
}

func TestFareRatesAndEstimate(t *testing.T) {
	s := newTestServer(t, fixedResolver{route: location.Route{DistanceKm: 100, DurationMinutes: 120}})

	w := s.do(t, http.MethodGet, "/api/fares/rates", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("rates: %d", w.Code)
	}
	if vs := decodeBody(t, w)["vehicles"].([]any); len(vs) != 3 {
		t.Errorf("vehicles = %v", vs)
	}

	w = s.do(t, http.MethodPost, "/api/fares/estimate", "", map[string]any{
		"source":      place("Chennai", 13.0827, 80.2707),
		"destination": place("Vellore", 12.9165, 79.1325),
		"vehicleType": "innova",
		"tripType":    "round",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("estimate: %d %s", w.Code, w.Body.String())
	}
	fare := decodeBody(t, w)
	if fare["estimatedCost"].(float64) != 3600 || fare["minDistanceNotice"] != "Min 150 km applies" {
		t.Errorf("fare = %v", fare)
	}

	w = s.do(t, http.MethodPost, "/api/fares/estimate", "", map[string]any{
		"source":      map[string]any{"displayName": "Chennai"},
		"destination": place("Vellore", 12.9165, 79.1325),
		"vehicleType": "sedan",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing coords: %d", w.Code)
	}
}

func TestEstimate_DistanceUnavailable(t *testing.T) {
	s := newTestServer(t, fixedResolver{err: location.ErrDistanceUnavailable})
	w := s.do(t, http.MethodPost, "/api/fares/estimate", "", map[string]any{
		"source":      place("Chennai", 13.0827, 80.2707),
		"destination": place("Madurai", 9.9252, 78.1198),
		"vehicleType": "sedan",
	})
	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
}

func TestCreateBooking(t *testing.T) {
	s := newTestServer(t, fixedResolver{route: location.Route{DistanceKm: 300, DurationMinutes: 300}})

	w := s.do(t, http.MethodPost, "/api/bookings", "u1", bookingBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	id, _ := body["bookingId"].(string)
	if id != "PV9789-Ravi-0902" {
		t.Errorf("bookingId = %q", id)
	}
	stored, err := s.repo.Get(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if stored.UserID != "u1" || stored.UserEmail != "u1@example.com" || stored.EstimatedCost != 4200 {
		t.Errorf("stored = %+v", stored)
	}

	if w := s.do(t, http.MethodPost, "/api/bookings", "", bookingBody()); w.Code != http.StatusConflict {
		t.Errorf("duplicate: expected 409, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/api/bookings/mine", "u1", nil)
	if list := decodeBody(t, w)["bookings"].([]any); len(list) != 1 {
		t.Errorf("mine = %v", list)
	}
	if w := s.do(t, http.MethodGet, "/api/bookings/mine", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous history: %d", w.Code)
	}
}

func TestCreateBooking_ValidationFields(t *testing.T) {
	s := newTestServer(t, fixedResolver{route: location.Route{DistanceKm: 300, DurationMinutes: 300}})
	body := bookingBody()
	body["phone"] = "12345"
	body["name"] = ""
	w := s.do(t, http.MethodPost, "/api/bookings", "", body)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	fields := decodeBody(t, w)["fields"].(map[string]any)
	if fields["phone"] == nil || fields["name"] == nil {
		t.Errorf("fields = %v", fields)
	}
	if len(s.repo.bookings) != 0 {
		t.Error("invalid booking stored")
	}
}

func TestAdminFlow(t *testing.T) {
	s := newTestServer(t, fixedResolver{route: location.Route{DistanceKm: 300, DurationMinutes: 300}})
	body := bookingBody()
	body["tripType"] = "round"
	body["returnDate"] = "2025-07-03"
	w := s.do(t, http.MethodPost, "/api/bookings", "", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	id := decodeBody(t, w)["bookingId"].(string)
	path := "/api/admin/bookings/" + id

	if w := s.do(t, http.MethodGet, "/api/admin/bookings", "u1", nil); w.Code != http.StatusForbidden {
		t.Errorf("non-admin list: %d", w.Code)
	}
	w = s.do(t, http.MethodGet, "/api/admin/bookings?status=Yet%20to%20Confirm", "admin:ops", nil)
	if list := decodeBody(t, w)["bookings"].([]any); len(list) != 1 {
		t.Errorf("pending list = %v", list)
	}

	if w := s.do(t, http.MethodPost, path+"/status", "admin:ops", map[string]any{"status": "completed"}); w.Code != http.StatusConflict {
		t.Errorf("complete pending: expected 409, got %d", w.Code)
	}
	if w := s.do(t, http.MethodPost, path+"/status", "admin:ops", map[string]any{"status": "confirmed"}); w.Code != http.StatusOK {
		t.Fatalf("confirm: %d %s", w.Code, w.Body.String())
	}

	// 600km round trip at 13/km = 7800, plus 3 days bata
	w = s.do(t, http.MethodPut, path+"/charges", "admin:ops", map[string]any{"tollCharges": "250", "parkingCharges": "abc"})
	if w.Code != http.StatusOK {
		t.Fatalf("charges: %d %s", w.Code, w.Body.String())
	}
	view := decodeBody(t, w)
	st := view["settlement"].(map[string]any)
	if st["totalCost"].(float64) != 7800+1200+250 || view["final"] != false {
		t.Errorf("after charges = %v", view)
	}

	w = s.do(t, http.MethodPost, path+"/status", "admin:ops", map[string]any{"status": "completed", "tollCharges": 300})
	if w.Code != http.StatusOK {
		t.Fatalf("complete: %d %s", w.Code, w.Body.String())
	}
	view = decodeBody(t, w)
	if view["status"] != "completed" || view["final"] != true {
		t.Errorf("completed view = %v", view)
	}
	if w := s.do(t, http.MethodPut, path+"/charges", "admin:ops", map[string]any{"tollCharges": 1}); w.Code != http.StatusConflict {
		t.Errorf("recompute completed: expected 409, got %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/admin/bookings/nope", "admin:ops", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing booking: %d", w.Code)
	}
}

func TestPlaces(t *testing.T) {
	s := newTestServer(t, fixedResolver{})
	w := s.do(t, http.MethodGet, "/api/places/autocomplete?input=Chen", "", nil)
	if list := decodeBody(t, w)["suggestions"].([]any); len(list) != 1 {
		t.Errorf("suggestions = %v", list)
	}
	w = s.do(t, http.MethodGet, "/api/places/autocomplete?input=C", "", nil)
	if list := decodeBody(t, w)["suggestions"].([]any); len(list) != 0 {
		t.Errorf("short input suggestions = %v", list)
	}
	w = s.do(t, http.MethodGet, "/api/places/chn", "", nil)
	if decodeBody(t, w)["placeId"] != "chn" {
		t.Errorf("details = %s", w.Body.String())
	}
}

func TestAdminCompletionKeepsSavedCharges(t *testing.T) {
	s := newTestServer(t, fixedResolver{route: location.Route{DistanceKm: 300, DurationMinutes: 300}})
	w := s.do(t, http.MethodPost, "/api/bookings", "", bookingBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	path := "/api/admin/bookings/" + decodeBody(t, w)["bookingId"].(string)

	if w := s.do(t, http.MethodPost, path+"/status", "admin:ops", map[string]any{"status": "confirmed"}); w.Code != http.StatusOK {
		t.Fatalf("confirm: %d", w.Code)
	}
	w = s.do(t, http.MethodPut, path+"/charges", "admin:ops", map[string]any{"baseCost": 5000, "tollCharges": 650, "parkingCharges": 100})
	if st := decodeBody(t, w)["settlement"].(map[string]any); st["totalCost"].(float64) != 6150 {
		t.Fatalf("saved settlement = %v", st)
	}

	w = s.do(t, http.MethodPost, path+"/status", "admin:ops", map[string]any{"status": "completed"})
	if w.Code != http.StatusOK {
		t.Fatalf("complete: %d %s", w.Code, w.Body.String())
	}
	st := decodeBody(t, w)["settlement"].(map[string]any)
	if st["totalCost"].(float64) != 6150 || st["baseCost"].(float64) != 5000 || st["tollCharges"].(float64) != 650 {
		t.Errorf("completed settlement = %v", st)
	}
}

func TestBookingsByPhoneAreScopedToCaller(t *testing.T) {
	s := newTestServer(t, fixedResolver{route: location.Route{DistanceKm: 300, DurationMinutes: 300}})
	if w := s.do(t, http.MethodPost, "/api/bookings", "owner", bookingBody()); w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}

	count := func(token string) int {
		w := s.do(t, http.MethodGet, "/api/bookings?phone=9884609789", token, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status %d", token, w.Code)
		}
		return len(decodeBody(t, w)["bookings"].([]any))
	}
	if n := count("stranger"); n != 0 {
		t.Errorf("stranger sees %d bookings", n)
	}
	if n := count("owner"); n != 1 {
		t.Errorf("owner sees %d bookings", n)
	}
	if n := count("admin:ops"); n != 1 {
		t.Errorf("admin sees %d bookings", n)
	}
}

func TestAdminDeleteFreesTrip(t *testing.T) {
	s := newTestServer(t, fixedResolver{route: location.Route{DistanceKm: 300, DurationMinutes: 300}})
	w := s.do(t, http.MethodPost, "/api/bookings", "", bookingBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	path := "/api/admin/bookings/" + decodeBody(t, w)["bookingId"].(string)

	if w := s.do(t, http.MethodDelete, path, "u1", nil); w.Code != http.StatusForbidden {
		t.Errorf("non-admin delete: %d", w.Code)
	}
	if w := s.do(t, http.MethodDelete, path, "admin:ops", nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d %s", w.Code, w.Body.String())
	}
	if w := s.do(t, http.MethodGet, path, "admin:ops", nil); w.Code != http.StatusNotFound {
		t.Errorf("get deleted: %d", w.Code)
	}
	if w := s.do(t, http.MethodDelete, path, "admin:ops", nil); w.Code != http.StatusNotFound {
		t.Errorf("delete twice: %d", w.Code)
	}
	if w := s.do(t, http.MethodPost, "/api/bookings", "", bookingBody()); w.Code != http.StatusCreated {
		t.Errorf("rebook after delete: %d %s", w.Code, w.Body.String())
	}
}
