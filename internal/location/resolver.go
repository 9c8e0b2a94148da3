// Package location resolves the coordinates a refresh cycle should use.
//
// Resolution order is fixed: an explicit city search, then device location
// services for a bounded window, then IP geolocation. A search never falls
// through to auto-detection.
package location

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/i474232898/spaceweather/internal/weather"
)

const (
	// DefaultDeviceTimeout is how long the resolver waits for a device fix.
	DefaultDeviceTimeout = 6 * time.Second
	// DefaultReverseTimeout bounds reverse geocoding of a device fix.
	DefaultReverseTimeout = 6 * time.Second
)

// Geocoder resolves free text to the first matching place.
type Geocoder interface {
	Geocode(ctx context.Context, city string) (weather.Location, error)
}

// IPLocator geolocates the host's public IP address.
type IPLocator interface {
	Locate(ctx context.Context) (weather.Location, error)
}

// DeviceLocator is an on-device location service. Start registers onFix, which may be
// called any number of times from another goroutine until Stop returns.
type DeviceLocator interface {
	Start(onFix func(weather.Coordinates)) error
	Stop() error
}

// ReverseGeocoder names the place at a position.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, c weather.Coordinates) (weather.PlaceName, error)
}

// Resolver implements weather.Locator.
type Resolver struct {
	geocoder       Geocoder
	ip             IPLocator
	device         DeviceLocator
	reverse        ReverseGeocoder
	deviceTimeout  time.Duration
	reverseTimeout time.Duration
	logger         zerolog.Logger
}

// Option configures optional resolution stages.
type Option func(*Resolver)

// WithDevice enables the device stage. A non-positive timeout uses DefaultDeviceTimeout.
func WithDevice(d DeviceLocator, timeout time.Duration) Option {
	return func(r *Resolver) {
		r.device = d
		if timeout > 0 {
			r.deviceTimeout = timeout
		}
	}
}

// WithReverseGeocoder names device fixes, which otherwise carry no place.
func WithReverseGeocoder(rg ReverseGeocoder) Option {
	return func(r *Resolver) { r.reverse = rg }
}

// NewResolver creates a Resolver. geocoder and ip may be nil to disable those stages.
func NewResolver(geocoder Geocoder, ip IPLocator, logger zerolog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		geocoder:       geocoder,
		ip:             ip,
		deviceTimeout:  DefaultDeviceTimeout,
		reverseTimeout: DefaultReverseTimeout,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns weather.ErrCityNotFound when an explicit search fails and
// weather.ErrUnresolved when every auto-detection stage failed.
func (r *Resolver) Resolve(ctx context.Context, city string) (weather.Location, error) {
	if city = strings.TrimSpace(city); city != "" {
		return r.search(ctx, city)
	}

	if loc, ok := r.fromDevice(ctx); ok {
		return loc, nil
	}

	if loc, ok := r.fromIP(ctx); ok {
		return loc, nil
	}

	return weather.Location{}, weather.ErrUnresolved
}

func (r *Resolver) search(ctx context.Context, city string) (weather.Location, error) {
	if r.geocoder == nil {
		return weather.Location{}, fmt.Errorf("%w: %q: geocoding not configured", weather.ErrCityNotFound, city)
	}
	loc, err := r.geocoder.Geocode(ctx, city)
	if err != nil {
		return weather.Location{}, fmt.Errorf("%w: %q: %v", weather.ErrCityNotFound, city, err)
	}
	if !loc.Valid() {
		return weather.Location{}, fmt.Errorf("%w: %q: invalid coordinates", weather.ErrCityNotFound, city)
	}
	loc.Source = weather.SourceSearch
	return loc, nil
}

func (r *Resolver) fromDevice(ctx context.Context) (weather.Location, bool) {
	if r.device == nil {
		return weather.Location{}, false
	}

	fixes := make(chan weather.Coordinates, 1)
	err := r.device.Start(func(c weather.Coordinates) {
		if !confirmedFix(c) {
			return
		}
		select {
		case fixes <- c:
		default:
		}
	})
	if err != nil {
		r.logger.Warn().Err(err).Msg("device location unavailable")
		return weather.Location{}, false
	}
	defer func() {
		if err := r.device.Stop(); err != nil {
			r.logger.Warn().Err(err).Msg("failed to stop device location")
		}
	}()

	timer := time.NewTimer(r.deviceTimeout)
	defer timer.Stop()

	select {
	case c := <-fixes:
		loc := weather.Location{Coordinates: c, Source: weather.SourceDevice}
		loc.Place = r.name(ctx, c)
		return loc, true
	case <-timer.C:
		r.logger.Info().Dur("timeout", r.deviceTimeout).Msg("no device fix; falling back to ip geolocation")
		return weather.Location{}, false
	case <-ctx.Done():
		return weather.Location{}, false
	}
}

func (r *Resolver) name(ctx context.Context, c weather.Coordinates) weather.PlaceName {
	if r.reverse == nil {
		return weather.PlaceName{}
	}
	ctx, cancel := context.WithTimeout(ctx, r.reverseTimeout)
	defer cancel()

	place, err := r.reverse.Reverse(ctx, c)
	if err != nil {
		r.logger.Warn().Err(err).Msg("reverse geocoding failed")
		return weather.PlaceName{}
	}
	return place
}

func (r *Resolver) fromIP(ctx context.Context) (weather.Location, bool) {
	if r.ip == nil {
		return weather.Location{}, false
	}
	loc, err := r.ip.Locate(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("ip geolocation failed")
		return weather.Location{}, false
	}
	if !loc.Valid() {
		r.logger.Warn().Float64("lat", loc.Lat).Float64("lon", loc.Lon).Msg("ip geolocation returned invalid coordinates")
		return weather.Location{}, false
	}
	loc.Source = weather.SourceIP
	return loc, true
}

// confirmedFix rejects out-of-range positions and the 0,0 placeholder some receivers
// report before they have a fix.
func confirmedFix(c weather.Coordinates) bool {
	return c.Valid() && !(c.Lat == 0 && c.Lon == 0)
}
