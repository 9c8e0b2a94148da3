package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, 8*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 6*time.Second, cfg.IPLookupTimeout)
	assert.Equal(t, 6*time.Second, cfg.DeviceLocationTimeout)
	assert.Equal(t, DeviceNone, cfg.DeviceLocator)
	assert.Equal(t, ConditionsOpenWeather, cfg.ConditionsProvider)
	assert.Equal(t, 9600, cfg.GPSBaudRate)
	assert.False(t, cfg.ReverseGeocoding)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("APP_ENV", "PROD")
	t.Setenv("PORT", "9090")
	t.Setenv("OPENWEATHER_API_KEY", "owm")
	t.Setenv("IQAIR_API_KEY", "iq")
	t.Setenv("REFRESH_INTERVAL", "90s")
	t.Setenv("REFRESH_CRON", "*/10 * * * *")
	t.Setenv("DEVICE_LOCATOR", "gps")
	t.Setenv("GPS_DEVICE_PORT", "/dev/ttyUSB0")
	t.Setenv("GPS_BAUD_RATE", "4800")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "owm", cfg.OpenWeatherAPIKey)
	assert.Equal(t, "iq", cfg.IQAirAPIKey)
	assert.Equal(t, 90*time.Second, cfg.RefreshInterval)
	assert.Equal(t, "*/10 * * * *", cfg.RefreshCron)
	assert.Equal(t, DeviceGPS, cfg.DeviceLocator)
	assert.Equal(t, 4800, cfg.GPSBaudRate)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spaceweather.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"7070\"\nhttp_timeout: 3s\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_TIMEOUT", "4s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, 4*time.Second, cfg.HTTPTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad duration", map[string]string{"REFRESH_INTERVAL": "soon"}, "invalid REFRESH_INTERVAL"},
		{"zero duration", map[string]string{"HTTP_TIMEOUT": "0s"}, "invalid HTTP_TIMEOUT"},
		{"bad env", map[string]string{"APP_ENV": "staging"}, "invalid APP_ENV"},
		{"bad conditions provider", map[string]string{"CONDITIONS_PROVIDER": "weatherapi"}, "invalid CONDITIONS_PROVIDER"},
		{"bad locator", map[string]string{"DEVICE_LOCATOR": "sonar"}, "invalid DEVICE_LOCATOR"},
		{"gps without port", map[string]string{"DEVICE_LOCATOR": "gps"}, "GPS_DEVICE_PORT"},
		{"bad baud", map[string]string{"DEVICE_LOCATOR": "gps", "GPS_DEVICE_PORT": "/dev/ttyS0", "GPS_BAUD_RATE": "fast"}, "GPS_BAUD_RATE"},
		{"google without key", map[string]string{"DEVICE_LOCATOR": "google"}, "GOOGLE_API_KEY"},
		{"reverse without key", map[string]string{"REVERSE_GEOCODING": "true"}, "REVERSE_GEOCODING"},
		{"missing config file", map[string]string{"CONFIG_FILE": "/nonexistent/spaceweather.yaml"}, "read config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
