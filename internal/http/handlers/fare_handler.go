// README: Rate table and fare estimate handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"droptaxi/internal/modules/booking"
	"droptaxi/internal/modules/location"
	"droptaxi/internal/modules/pricing"
)

type FareHandler struct {
	booking *booking.Service
	pricing *pricing.Service
}

func NewFareHandler(bookingSvc *booking.Service, pricingSvc *pricing.Service) *FareHandler {
	return &FareHandler{booking: bookingSvc, pricing: pricingSvc}
}

func (h *FareHandler) Rates(c *gin.Context) {
	t := h.pricing.Rates()
	writeJSON(c, http.StatusOK, gin.H{
		"vehicles":    t.Vehicles(),
		"minDistance": t.MinDistance(),
	})
}

type estimateReq struct {
	Source      *location.Place `json:"source"`
	Destination *location.Place `json:"destination"`
	VehicleType string          `json:"vehicleType"`
	TripType    string          `json:"tripType"`
}

// Estimate resolves the route between two places and prices it.
func (h *FareHandler) Estimate(c *gin.Context) {
	var req estimateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.TripType == "" {
		req.TripType = string(pricing.TripOneWay)
	}
	d, err := h.booking.Prepare(c.Request.Context(), booking.TripRequest{
		TripType:     pricing.TripType(req.TripType),
		Source:       req.Source,
		Destination:  req.Destination,
		VehicleClass: pricing.VehicleClass(req.VehicleType),
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d.Fare)
}
