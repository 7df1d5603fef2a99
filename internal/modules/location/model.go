// README: Place and route value objects used by the distance resolver.
package location

import (
	"strconv"
	"strings"

	"droptaxi/internal/types"
)

// Place is a resolved geographic point picked from an autocomplete suggestion.
// Location is nil when the suggestion carried no coordinates.
type Place struct {
	DisplayName      string       `json:"displayName" firestore:"displayName"`
	FormattedAddress string       `json:"formattedAddress" firestore:"formattedAddress"`
	PlaceID          string       `json:"placeId" firestore:"placeId"`
	Location         *types.Point `json:"location" firestore:"location"`
}

// Usable reports whether the place can be handed to the distance lookup.
func (p *Place) Usable() bool {
	return p != nil && p.Location != nil && p.Location.Valid()
}

// Ref is the stable reference used for caching and lookups: the place id when
// known, otherwise the coordinates.
func (p Place) Ref() string {
	if p.PlaceID != "" {
		return "place_id:" + p.PlaceID
	}
	if p.Location == nil {
		return ""
	}
	return strconv.FormatFloat(p.Location.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(p.Location.Lng, 'f', 6, 64)
}

// Name is the human label persisted on bookings.
func (p Place) Name() string {
	if n := strings.TrimSpace(p.DisplayName); n != "" {
		return n
	}
	return strings.TrimSpace(p.FormattedAddress)
}

// Leg is the raw answer of the routing provider.
type Leg struct {
	Meters  int
	Seconds int
}

// Route is a leg converted to billing units.
type Route struct {
	DistanceKm      float64 `json:"distanceKm"`
	DurationMinutes int     `json:"durationMinutes"`
}
