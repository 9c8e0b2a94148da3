package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/spaceweather/internal/weather"
)

// IPInfoProvider geolocates the host's public IP with ipinfo.io.
type IPInfoProvider struct {
	name    string
	token   string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewIPInfoProvider creates the provider. token is optional; anonymous requests are rate limited upstream.
func NewIPInfoProvider(client *http.Client, token string, timeout time.Duration) *IPInfoProvider {
	return &IPInfoProvider{
		name:    "ipinfo",
		token:   token,
		baseURL: "https://ipinfo.io/json",
		httpCfg: HTTPClientConfig{
			Client:  client,
			Timeout: timeout,
		},
		circuit: newBreaker("ipinfo"),
	}
}

func (p *IPInfoProvider) Name() string {
	return p.name
}

// Locate returns the coordinates from the combined "lat,lon" field plus city, region and country.
func (p *IPInfoProvider) Locate(ctx context.Context) (weather.Location, error) {
	values := url.Values{}
	if p.token != "" {
		values.Set("token", p.token)
	}

	var payload struct {
		Loc     string `json:"loc"`
		City    string `json:"city"`
		Region  string `json:"region"`
		Country string `json:"country"`
	}

	if err := getJSON(ctx, p.httpCfg, p.circuit, p.baseURL, values, &payload); err != nil {
		return weather.Location{}, fmt.Errorf("ipinfo: %w", err)
	}

	coords, err := ParseLatLon(payload.Loc)
	if err != nil {
		return weather.Location{}, fmt.Errorf("ipinfo: %w", err)
	}

	return weather.Location{
		Coordinates: coords,
		Place: weather.PlaceName{
			City:    payload.City,
			Region:  payload.Region,
			Country: payload.Country,
		},
		Source: weather.SourceIP,
	}, nil
}

// ParseLatLon parses a combined "lat,lon" string.
func ParseLatLon(s string) (weather.Coordinates, error) {
	latStr, lonStr, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return weather.Coordinates{}, fmt.Errorf("%w: loc %q is not lat,lon", errMalformed, s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return weather.Coordinates{}, fmt.Errorf("%w: latitude %q: %v", errMalformed, latStr, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return weather.Coordinates{}, fmt.Errorf("%w: longitude %q: %v", errMalformed, lonStr, err)
	}

	c := weather.Coordinates{Lat: lat, Lon: lon}
	if !c.Valid() {
		return weather.Coordinates{}, fmt.Errorf("%w: coordinates %q out of range", errMalformed, s)
	}
	return c, nil
}
