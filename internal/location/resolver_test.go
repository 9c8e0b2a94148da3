package location

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/spaceweather/internal/weather"
)

type mockGeocoder struct {
	mock.Mock
}

func (m *mockGeocoder) Geocode(ctx context.Context, city string) (weather.Location, error) {
	args := m.Called(city)
	return args.Get(0).(weather.Location), args.Error(1)
}

type mockIPLocator struct {
	mock.Mock
}

func (m *mockIPLocator) Locate(ctx context.Context) (weather.Location, error) {
	args := m.Called()
	return args.Get(0).(weather.Location), args.Error(1)
}

type fakeDevice struct {
	fix      *weather.Coordinates
	startErr error
	started  int
	stopped  int
}

func (d *fakeDevice) Start(onFix func(weather.Coordinates)) error {
	d.started++
	if d.startErr != nil {
		return d.startErr
	}
	if d.fix != nil {
		go onFix(*d.fix)
	}
	return nil
}

func (d *fakeDevice) Stop() error {
	d.stopped++
	return nil
}

type fakeReverse struct {
	place weather.PlaceName
	err   error
}

func (f fakeReverse) Reverse(ctx context.Context, c weather.Coordinates) (weather.PlaceName, error) {
	return f.place, f.err
}

var ipLocation = weather.Location{
	Coordinates: weather.Coordinates{Lat: 48.8566, Lon: 2.3522},
	Place:       weather.PlaceName{City: "Paris", Region: "Ile-de-France", Country: "FR"},
}

func TestResolve_SearchUsesGeocoderOnly(t *testing.T) {
	geo := new(mockGeocoder)
	ip := new(mockIPLocator)
	dev := &fakeDevice{fix: &weather.Coordinates{Lat: 1, Lon: 1}}

	tokyo := weather.Location{Coordinates: weather.Coordinates{Lat: 35.68, Lon: 139.69}, Place: weather.PlaceName{City: "Tokyo", Country: "JP"}}
	geo.On("Geocode", "Tokyo").Return(tokyo, nil)

	r := NewResolver(geo, ip, zerolog.Nop(), WithDevice(dev, time.Second))
	loc, err := r.Resolve(context.Background(), "  Tokyo ")

	require.NoError(t, err)
	assert.Equal(t, weather.SourceSearch, loc.Source)
	assert.Equal(t, "Tokyo", loc.Place.City)
	assert.Equal(t, 0, dev.started)
	ip.AssertNotCalled(t, "Locate")
}

func TestResolve_SearchFailureDoesNotFallThrough(t *testing.T) {
	geo := new(mockGeocoder)
	ip := new(mockIPLocator)
	geo.On("Geocode", "Xyzzyville").Return(weather.Location{}, errors.New("no match"))

	r := NewResolver(geo, ip, zerolog.Nop())
	_, err := r.Resolve(context.Background(), "Xyzzyville")

	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrCityNotFound)
	ip.AssertNotCalled(t, "Locate")
}

func TestResolve_SearchWithoutGeocoder(t *testing.T) {
	r := NewResolver(nil, nil, zerolog.Nop())
	_, err := r.Resolve(context.Background(), "Oslo")
	assert.ErrorIs(t, err, weather.ErrCityNotFound)
}

func TestResolve_DeviceFixWins(t *testing.T) {
	ip := new(mockIPLocator)
	dev := &fakeDevice{fix: &weather.Coordinates{Lat: 53.36, Lon: -6.5}}
	rev := fakeReverse{place: weather.PlaceName{City: "Maynooth", Country: "Ireland"}}

	r := NewResolver(nil, ip, zerolog.Nop(), WithDevice(dev, time.Second), WithReverseGeocoder(rev))
	loc, err := r.Resolve(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, weather.SourceDevice, loc.Source)
	assert.Equal(t, 53.36, loc.Lat)
	assert.Equal(t, "Maynooth", loc.Place.City)
	assert.Equal(t, 1, dev.stopped)
	ip.AssertNotCalled(t, "Locate")
}

func TestResolve_DeviceFixWithoutPlaceWhenReverseFails(t *testing.T) {
	dev := &fakeDevice{fix: &weather.Coordinates{Lat: 10, Lon: 20}}
	rev := fakeReverse{err: errors.New("quota")}

	r := NewResolver(nil, nil, zerolog.Nop(), WithDevice(dev, time.Second), WithReverseGeocoder(rev))
	loc, err := r.Resolve(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, weather.PlaceName{}, loc.Place)
}

func TestResolve_DeviceTimeoutFallsBackToIP(t *testing.T) {
	ip := new(mockIPLocator)
	ip.On("Locate").Return(ipLocation, nil)
	dev := &fakeDevice{}

	r := NewResolver(nil, ip, zerolog.Nop(), WithDevice(dev, 20*time.Millisecond))
	loc, err := r.Resolve(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, weather.SourceIP, loc.Source)
	assert.Equal(t, "Paris", loc.Place.City)
	assert.Equal(t, 1, dev.stopped)
}

func TestResolve_PlaceholderFixIgnored(t *testing.T) {
	ip := new(mockIPLocator)
	ip.On("Locate").Return(ipLocation, nil)
	dev := &fakeDevice{fix: &weather.Coordinates{Lat: 0, Lon: 0}}

	r := NewResolver(nil, ip, zerolog.Nop(), WithDevice(dev, 20*time.Millisecond))
	loc, err := r.Resolve(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, weather.SourceIP, loc.Source)
}

func TestResolve_DeviceStartErrorFallsBackToIP(t *testing.T) {
	ip := new(mockIPLocator)
	ip.On("Locate").Return(ipLocation, nil)
	dev := &fakeDevice{startErr: errors.New("no such port")}

	r := NewResolver(nil, ip, zerolog.Nop(), WithDevice(dev, time.Second))
	loc, err := r.Resolve(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, weather.SourceIP, loc.Source)
	assert.Equal(t, 0, dev.stopped)
}

func TestResolve_Unresolved(t *testing.T) {
	ip := new(mockIPLocator)
	ip.On("Locate").Return(weather.Location{}, errors.New("offline"))

	r := NewResolver(nil, ip, zerolog.Nop(), WithDevice(&fakeDevice{}, 10*time.Millisecond))
	_, err := r.Resolve(context.Background(), "")

	assert.ErrorIs(t, err, weather.ErrUnresolved)
	ip.AssertExpectations(t)
}

func TestResolve_InvalidIPCoordinates(t *testing.T) {
	ip := new(mockIPLocator)
	ip.On("Locate").Return(weather.Location{Coordinates: weather.Coordinates{Lat: 91, Lon: 0}}, nil)

	r := NewResolver(nil, ip, zerolog.Nop())
	_, err := r.Resolve(context.Background(), "")

	assert.ErrorIs(t, err, weather.ErrUnresolved)
}
