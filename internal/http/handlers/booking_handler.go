// README: Booking handlers for customers: submit and history.
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"droptaxi/internal/http/middleware"
	"droptaxi/internal/modules/booking"
	"droptaxi/internal/modules/location"
	"droptaxi/internal/modules/pricing"
)

type BookingHandler struct {
	booking *booking.Service
}

func NewBookingHandler(svc *booking.Service) *BookingHandler {
	return &BookingHandler{booking: svc}
}

type createBookingReq struct {
	TripType    string          `json:"tripType"`
	Source      *location.Place `json:"source"`
	Destination *location.Place `json:"destination"`
	VehicleType string          `json:"vehicleType"`
	Date        string          `json:"date"`
	ReturnDate  string          `json:"returnDate"`
	Name        string          `json:"name"`
	Phone       string          `json:"phone"`
}

// bookingView is the client shape of a booking; field names follow the stored document.
type bookingView struct {
	BookingID   string              `json:"bookingId"`
	Name        string              `json:"name"`
	Phone       string              `json:"phone"`
	TripType    string              `json:"tripType"`
	VehicleType string              `json:"vehicleType"`
	Source      string              `json:"source"`
	Destination string              `json:"destination"`
	Date        string              `json:"date"`
	ReturnDate  string              `json:"returnDate,omitempty"`
	Cost        int64               `json:"cost"`
	Distance    float64             `json:"distance"`
	Duration    int                 `json:"duration"`
	Status      booking.Status      `json:"status"`
	CreatedAt   time.Time           `json:"createdAt"`
	UserID      string              `json:"userId,omitempty"`
	UserEmail   string              `json:"userEmail,omitempty"`
	Settlement  *booking.Settlement `json:"settlement,omitempty"`
	Final       bool                `json:"final"`
}

func toView(b *booking.Booking) bookingView {
	v := bookingView{
		BookingID:   b.ID,
		Name:        b.Trip.PassengerName,
		Phone:       b.Trip.PassengerPhone,
		TripType:    string(b.Trip.TripType),
		VehicleType: string(b.Trip.VehicleClass),
		Date:        b.Trip.Date,
		ReturnDate:  b.Trip.ReturnDate,
		Cost:        b.EstimatedCost,
		Distance:    b.DistanceKm,
		Duration:    b.DurationMinutes,
		Status:      b.Status,
		CreatedAt:   b.CreatedAt,
		UserID:      b.UserID,
		UserEmail:   b.UserEmail,
		Settlement:  b.Settlement,
		Final:       b.Final(),
	}
	if b.Trip.Source != nil {
		v.Source = b.Trip.Source.Name()
	}
	if b.Trip.Destination != nil {
		v.Destination = b.Trip.Destination.Name()
	}
	return v
}

func toViews(list []*booking.Booking) []bookingView {
	out := make([]bookingView, 0, len(list))
	for _, b := range list {
		out = append(out, toView(b))
	}
	return out
}

func (h *BookingHandler) Create(c *gin.Context) {
	var req createBookingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	ctx := c.Request.Context()
	draft, err := h.booking.Prepare(ctx, booking.TripRequest{
		TripType:       pricing.TripType(req.TripType),
		Source:         req.Source,
		Destination:    req.Destination,
		VehicleClass:   pricing.VehicleClass(req.VehicleType),
		Date:           req.Date,
		ReturnDate:     req.ReturnDate,
		PassengerName:  req.Name,
		PassengerPhone: req.Phone,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	id, err := h.booking.Submit(ctx, booking.SubmitCommand{
		Draft:     draft,
		UserID:    middleware.CallerUID(c),
		UserEmail: middleware.CallerEmail(c),
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{
		"bookingId": id,
		"status":    booking.StatusPending,
		"fare":      draft.Fare,
	})
}

func (h *BookingHandler) Mine(c *gin.Context) {
	list, err := h.booking.ListByUser(c.Request.Context(), middleware.CallerUID(c), queryLimit(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"bookings": toViews(list)})
}

func (h *BookingHandler) ByPhone(c *gin.Context) {
	phone := strings.TrimSpace(c.Query("phone"))
	if phone == "" {
		writeError(c, http.StatusBadRequest, "missing phone")
		return
	}
	list, err := h.booking.ListByPhone(c.Request.Context(), phone, queryLimit(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	// Customers only see their own bookings under a number.
	if middleware.CallerRole(c) != middleware.RoleAdmin {
		uid := middleware.CallerUID(c)
		own := list[:0]
		for _, b := range list {
			if b.UserID == uid {
				own = append(own, b)
			}
		}
		list = own
	}
	writeJSON(c, http.StatusOK, gin.H{"bookings": toViews(list)})
}
