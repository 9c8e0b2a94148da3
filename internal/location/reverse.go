package location

import (
	"context"
	"errors"
	"fmt"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/spaceweather/internal/weather"
)

var errNoAddress = errors.New("no address for position")

// GoogleReverseGeocoder names positions with the Google Geocoding API.
type GoogleReverseGeocoder struct {
	lookup func(geocoder.Location) ([]geocoder.Address, error)
}

// NewGoogleReverseGeocoder sets the package-level geocoder key; only one key per process is supported.
func NewGoogleReverseGeocoder(apiKey string) *GoogleReverseGeocoder {
	geocoder.ApiKey = apiKey
	return &GoogleReverseGeocoder{lookup: geocoder.GeocodingReverse}
}

// Reverse returns the first address for c. The geocoder library is not
// context-aware, so a cancelled ctx abandons the lookup rather than aborting it.
func (g *GoogleReverseGeocoder) Reverse(ctx context.Context, c weather.Coordinates) (weather.PlaceName, error) {
	type result struct {
		addrs []geocoder.Address
		err   error
	}
	done := make(chan result, 1)
	go func() {
		addrs, err := g.lookup(geocoder.Location{Latitude: c.Lat, Longitude: c.Lon})
		done <- result{addrs, err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return weather.PlaceName{}, ctx.Err()
	case r = <-done:
	}
	if r.err != nil {
		return weather.PlaceName{}, fmt.Errorf("reverse geocode: %w", r.err)
	}
	if len(r.addrs) == 0 {
		return weather.PlaceName{}, errNoAddress
	}

	a := r.addrs[0]
	city := a.City
	if city == "" {
		city = a.County
	}
	if city == "" {
		city = a.District
	}
	return weather.PlaceName{City: city, Region: a.State, Country: a.Country}, nil
}
