// README: Operator handlers: booking lists, status changes and settlement.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"droptaxi/internal/http/middleware"
	"droptaxi/internal/modules/booking"
	"droptaxi/internal/modules/settlement"
)

type AdminHandler struct {
	booking    *booking.Service
	settlement *settlement.Service
}

func NewAdminHandler(bookingSvc *booking.Service, settlementSvc *settlement.Service) *AdminHandler {
	return &AdminHandler{booking: bookingSvc, settlement: settlementSvc}
}

func (h *AdminHandler) List(c *gin.Context) {
	var st booking.Status
	if raw := c.Query("status"); raw != "" && raw != "all" {
		parsed, ok := booking.ParseStatus(raw)
		if !ok {
			writeError(c, http.StatusBadRequest, "unknown status")
			return
		}
		st = parsed
	}
	list, err := h.booking.ListByStatus(c.Request.Context(), st, queryLimit(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"bookings": toViews(list)})
}

func (h *AdminHandler) Get(c *gin.Context) {
	b, err := h.booking.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toView(b))
}

func (h *AdminHandler) Events(c *gin.Context) {
	events, err := h.booking.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	out := make([]gin.H, 0, len(events))
	for _, e := range events {
		out = append(out, gin.H{
			"from":      e.FromStatus,
			"to":        e.ToStatus,
			"actorType": e.ActorType,
			"actorId":   e.ActorID,
			"at":        e.CreatedAt,
		})
	}
	writeJSON(c, http.StatusOK, gin.H{"events": out})
}

type statusReq struct {
	Status string `json:"status"`
	chargesReq
}

// UpdateStatus confirms or cancels a booking. Completing goes through
// settlement so the final charges are written in the same step.
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	to, ok := booking.ParseStatus(req.Status)
	if !ok || req.Status == "" {
		writeError(c, http.StatusBadRequest, "unknown status")
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")
	var (
		b   *booking.Booking
		err error
	)
	if to == booking.StatusCompleted {
		b, err = h.settlement.Recompute(ctx, req.command(id, true, middleware.CallerUID(c)))
	} else {
		b, err = h.booking.UpdateStatus(ctx, booking.StatusCommand{BookingID: id, To: to, ActorID: middleware.CallerUID(c)})
	}
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toView(b))
}

type chargesReq struct {
	Distance       *float64 `json:"distance"`
	Duration       *int     `json:"duration"`
	BaseCost       any      `json:"baseCost"`
	TollCharges    any      `json:"tollCharges"`
	ParkingCharges any      `json:"parkingCharges"`
	HillCharges    any      `json:"hillCharges"`
	PermitCharges  any      `json:"permitCharges"`
}

func (r chargesReq) command(id string, complete bool, actor string) settlement.RecomputeCommand {
	return settlement.RecomputeCommand{
		BookingID:       id,
		DistanceKm:      r.Distance,
		DurationMinutes: r.Duration,
		Charges: settlement.Charges{
			BaseCost: r.BaseCost,
			Toll:     r.TollCharges,
			Parking:  r.ParkingCharges,
			Hill:     r.HillCharges,
			Permit:   r.PermitCharges,
		},
		Complete: complete,
		ActorID:  actor,
	}
}

// UpdateCharges recomputes the total from operator-entered charges.
func (h *AdminHandler) UpdateCharges(c *gin.Context) {
	var req struct {
		chargesReq
		Complete bool `json:"complete"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	b, err := h.settlement.Recompute(c.Request.Context(), req.command(c.Param("id"), req.Complete, middleware.CallerUID(c)))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toView(b))
}

// Delete removes a booking and frees its trip for a new booking.
func (h *AdminHandler) Delete(c *gin.Context) {
	if err := h.booking.Delete(c.Request.Context(), c.Param("id"), middleware.CallerUID(c)); err != nil {
		writeBookingError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
