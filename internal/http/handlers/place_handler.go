// README: Place autocomplete and details handlers.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"droptaxi/internal/maps"
	"droptaxi/internal/modules/location"
)

type Places interface {
	Autocomplete(ctx context.Context, input, sessionToken string) ([]maps.Suggestion, error)
	Details(ctx context.Context, placeID string) (location.Place, error)
}

type PlaceHandler struct {
	places Places
}

func NewPlaceHandler(places Places) *PlaceHandler {
	return &PlaceHandler{places: places}
}

func (h *PlaceHandler) Autocomplete(c *gin.Context) {
	input := strings.TrimSpace(c.Query("input"))
	if len([]rune(input)) < 2 {
		writeJSON(c, http.StatusOK, gin.H{"suggestions": []maps.Suggestion{}})
		return
	}
	out, err := h.places.Autocomplete(c.Request.Context(), input, c.Query("session"))
	if err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusBadGateway, "place search failed")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"suggestions": out})
}

func (h *PlaceHandler) Details(c *gin.Context) {
	id := c.Param("placeId")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing place id")
		return
	}
	p, err := h.places.Details(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusBadGateway, "place lookup failed")
		return
	}
	writeJSON(c, http.StatusOK, p)
}
