// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"droptaxi/internal/modules/booking"
	"droptaxi/internal/modules/location"
	"droptaxi/internal/modules/pricing"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeBookingError maps service errors to HTTP answers. Unknown errors are
// logged by the access log as 500 and never echoed to the client.
func writeBookingError(c *gin.Context, err error) {
	var ve *booking.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(c, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: ve.Fields})
	case errors.Is(err, location.ErrInvalidLocation):
		writeError(c, http.StatusBadRequest, location.Message(err))
	case errors.Is(err, pricing.ErrUnknownVehicleClass), errors.Is(err, pricing.ErrUnknownTripType):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrDuplicateBooking):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrInvalidState), errors.Is(err, booking.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, location.ErrDistanceUnavailable):
		writeError(c, http.StatusBadGateway, location.Message(err))
	case errors.Is(err, booking.ErrPersistence):
		_ = c.Error(err)
		writeError(c, http.StatusServiceUnavailable, "Error submitting booking. Please try again.")
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func queryLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return 50
	}
	return n
}
