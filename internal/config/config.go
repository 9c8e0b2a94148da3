package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Device locator kinds accepted by DEVICE_LOCATOR.
const (
	DeviceNone   = "none"
	DeviceGPS    = "gps"
	DeviceGoogle = "google"
)

// Conditions providers accepted by CONDITIONS_PROVIDER.
const (
	ConditionsOpenWeather = "openweathermap"
	ConditionsOpenMeteo   = "openmeteo"
)

type AppConfig struct {
	Env      string // dev or prod
	LogLevel string
	Port     string

	OpenWeatherAPIKey string
	IQAirAPIKey       string
	IPInfoToken       string
	GoogleAPIKey      string

	ConditionsProvider string

	// RefreshInterval is ignored when RefreshCron is set.
	RefreshInterval time.Duration
	RefreshCron     string
	CycleTimeout    time.Duration

	HTTPTimeout     time.Duration
	IPLookupTimeout time.Duration

	DeviceLocator         string
	DeviceLocationTimeout time.Duration
	GPSDevicePort         string
	GPSBaudRate           int
	ReverseGeocoding      bool

	// EnvFileLoaded reports whether a .env file was found.
	EnvFileLoaded bool
}

var defaults = map[string]any{
	"app_env":                 "dev",
	"log_level":               "info",
	"port":                    "8080",
	"conditions_provider":     ConditionsOpenWeather,
	"refresh_interval":        "5m",
	"refresh_cron":            "",
	"cycle_timeout":           "45s",
	"http_timeout":            "8s",
	"ip_lookup_timeout":       "6s",
	"device_locator":          DeviceNone,
	"device_location_timeout": "6s",
	"gps_device_port":         "",
	"gps_baud_rate":           9600,
	"reverse_geocoding":       false,
	"openweather_api_key":     "",
	"iqair_api_key":           "",
	"ipinfo_token":            "",
	"google_api_key":          "",
}

// Load reads .env (if present), an optional CONFIG_FILE, and the process environment.
// Environment variables win over the config file.
func Load() (*AppConfig, error) {
	envErr := godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}
	cfg.EnvFileLoaded = envErr == nil
	return cfg, nil
}

func fromViper(v *viper.Viper) (*AppConfig, error) {
	cfg := &AppConfig{
		Env:                strings.ToLower(strings.TrimSpace(v.GetString("app_env"))),
		LogLevel:           strings.TrimSpace(v.GetString("log_level")),
		Port:               strings.TrimSpace(v.GetString("port")),
		OpenWeatherAPIKey:  v.GetString("openweather_api_key"),
		IQAirAPIKey:        v.GetString("iqair_api_key"),
		IPInfoToken:        v.GetString("ipinfo_token"),
		GoogleAPIKey:       v.GetString("google_api_key"),
		ConditionsProvider: strings.ToLower(strings.TrimSpace(v.GetString("conditions_provider"))),
		RefreshCron:        strings.TrimSpace(v.GetString("refresh_cron")),
		DeviceLocator:      strings.ToLower(strings.TrimSpace(v.GetString("device_locator"))),
		GPSDevicePort:      strings.TrimSpace(v.GetString("gps_device_port")),
		GPSBaudRate:        v.GetInt("gps_baud_rate"),
		ReverseGeocoding:   v.GetBool("reverse_geocoding"),
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"refresh_interval", &cfg.RefreshInterval},
		{"cycle_timeout", &cfg.CycleTimeout},
		{"http_timeout", &cfg.HTTPTimeout},
		{"ip_lookup_timeout", &cfg.IPLookupTimeout},
		{"device_location_timeout", &cfg.DeviceLocationTimeout},
	}
	for _, d := range durations {
		parsed, err := parsePositiveDuration(v.GetString(d.key))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", strings.ToUpper(d.key), err)
		}
		*d.dst = parsed
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.Env {
	case "dev", "prod":
	default:
		return fmt.Errorf("invalid APP_ENV %q: want dev or prod", c.Env)
	}

	if c.Port == "" {
		return fmt.Errorf("invalid PORT: empty")
	}

	switch c.ConditionsProvider {
	case ConditionsOpenWeather, ConditionsOpenMeteo:
	default:
		return fmt.Errorf("invalid CONDITIONS_PROVIDER %q: want openweathermap or openmeteo", c.ConditionsProvider)
	}

	switch c.DeviceLocator {
	case DeviceNone:
	case DeviceGPS:
		if c.GPSDevicePort == "" {
			return fmt.Errorf("invalid DEVICE_LOCATOR: gps requires GPS_DEVICE_PORT")
		}
		if c.GPSBaudRate <= 0 {
			return fmt.Errorf("invalid GPS_BAUD_RATE %d", c.GPSBaudRate)
		}
	case DeviceGoogle:
		if c.GoogleAPIKey == "" {
			return fmt.Errorf("invalid DEVICE_LOCATOR: google requires GOOGLE_API_KEY")
		}
	default:
		return fmt.Errorf("invalid DEVICE_LOCATOR %q: want none, gps or google", c.DeviceLocator)
	}

	if c.ReverseGeocoding && c.GoogleAPIKey == "" {
		return fmt.Errorf("invalid REVERSE_GEOCODING: requires GOOGLE_API_KEY")
	}
	return nil
}

func parsePositiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}
