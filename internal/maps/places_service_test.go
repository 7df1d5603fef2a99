package maps

import (
	"testing"

	"googlemaps.github.io/maps"
)

func TestPlaceFromDetails(t *testing.T) {
	withGeometry := maps.PlaceDetailsResult{
		PlaceID:          "chn",
		Name:             "Chennai",
		FormattedAddress: "Chennai, Tamil Nadu, India",
		Geometry:         maps.AddressGeometry{Location: maps.LatLng{Lat: 13.0827, Lng: 80.2707}},
	}
	p := placeFromDetails(withGeometry)
	if !p.Usable() || p.Location.Lat != 13.0827 || p.PlaceID != "chn" {
		t.Errorf("place = %+v", p)
	}

	noGeometry := maps.PlaceDetailsResult{PlaceID: "x", Name: "Nowhere"}
	p = placeFromDetails(noGeometry)
	if p.Location != nil || p.Usable() {
		t.Errorf("place without geometry is usable: %+v", p)
	}
	if p.Name() != "Nowhere" {
		t.Errorf("name = %q", p.Name())
	}
}

func TestParseSessionToken(t *testing.T) {
	if _, err := parseSessionToken("not-a-uuid"); err == nil {
		t.Error("expected error for malformed token")
	}
	if _, err := parseSessionToken("3b241101-e2bb-4255-8caf-4136c566a962"); err != nil {
		t.Errorf("valid token rejected: %v", err)
	}
}
