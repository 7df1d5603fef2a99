package maps

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"googlemaps.github.io/maps"

	"droptaxi/internal/modules/location"
	"droptaxi/internal/types"
)

// Suggestion is one autocomplete prediction shown under the pickup/drop inputs.
type Suggestion struct {
	PlaceID     string `json:"placeId"`
	Description string `json:"description"`
	MainText    string `json:"mainText"`
}

// PlacesService handles interactions with Google Places API.
type PlacesService struct {
	client  *maps.Client
	country string
}

// NewPlacesService creates a new PlacesService with the given API Key.
// Suggestions are restricted to the given country code.
func NewPlacesService(apiKey, country string) (*PlacesService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &PlacesService{client: client, country: country}, nil
}

// Autocomplete returns place predictions for partial input.
func (s *PlacesService) Autocomplete(ctx context.Context, input, sessionToken string) ([]Suggestion, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}
	r := &maps.PlaceAutocompleteRequest{
		Input: input,
	}
	if s.country != "" {
		r.Components = map[maps.Component][]string{maps.ComponentCountry: {s.country}}
	}
	if sessionToken != "" {
		if tok, err := parseSessionToken(sessionToken); err == nil {
			r.SessionToken = tok
		}
	}

	resp, err := s.client.PlaceAutocomplete(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("places api error: %w", err)
	}

	out := make([]Suggestion, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		out = append(out, Suggestion{
			PlaceID:     p.PlaceID,
			Description: p.Description,
			MainText:    p.StructuredFormatting.MainText,
		})
	}
	return out, nil
}

// Details resolves a place id into a Place with coordinates.
func (s *PlacesService) Details(ctx context.Context, placeID string) (location.Place, error) {
	r := &maps.PlaceDetailsRequest{
		PlaceID: placeID,
		Fields: []maps.PlaceDetailsFieldMask{
			maps.PlaceDetailsFieldMaskPlaceID,
			maps.PlaceDetailsFieldMaskName,
			maps.PlaceDetailsFieldMaskFormattedAddress,
			maps.PlaceDetailsFieldMaskGeometry,
		},
	}
	resp, err := s.client.PlaceDetails(ctx, r)
	if err != nil {
		return location.Place{}, fmt.Errorf("place details request failed: %w", err)
	}
	return placeFromDetails(resp), nil
}

// placeFromDetails leaves Location nil when the result carries no geometry.
func placeFromDetails(r maps.PlaceDetailsResult) location.Place {
	p := location.Place{
		DisplayName:      r.Name,
		FormattedAddress: r.FormattedAddress,
		PlaceID:          r.PlaceID,
	}
	if ll := r.Geometry.Location; ll != (maps.LatLng{}) {
		p.Location = &types.Point{Lat: ll.Lat, Lng: ll.Lng}
	}
	return p
}

func parseSessionToken(v string) (maps.PlaceAutocompleteSessionToken, error) {
	u, err := uuid.Parse(v)
	if err != nil {
		return maps.PlaceAutocompleteSessionToken{}, err
	}
	return maps.PlaceAutocompleteSessionToken(u), nil
}
