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
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/i474232898/spaceweather/internal/weather"
)

// OpenWeatherProvider talks to OpenWeatherMap: current weather, air pollution components,
// and direct (forward) geocoding. Each endpoint has its own circuit breaker.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig

	weatherCircuit   *gobreaker.CircuitBreaker
	pollutionCircuit *gobreaker.CircuitBreaker
	geocodeCircuit   *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey string, timeout time.Duration) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org",
		httpCfg: HTTPClientConfig{
			Client:  client,
			Timeout: timeout,
		},
		weatherCircuit:   newBreaker("openweather-weather"),
		pollutionCircuit: newBreaker("openweather-pollution"),
		geocodeCircuit:   newBreaker("openweather-geocode"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// CurrentWeather fetches /data/2.5/weather in metric units.
func (p *OpenWeatherProvider) CurrentWeather(ctx context.Context, c weather.Coordinates) (weather.WeatherReading, error) {
	if p.apiKey == "" {
		return weather.WeatherReading{}, fmt.Errorf("openweather: %w", errAPIKeyMissing)
	}

	values := coordValues(c)
	values.Set("appid", p.apiKey)
	values.Set("units", "metric")

	var payload struct {
		Main *struct {
			Temp     *float64 `json:"temp"`
			Humidity *float64 `json:"humidity"`
			Pressure *float64 `json:"pressure"`
		} `json:"main"`
		Wind struct {
			Speed *float64 `json:"speed"`
		} `json:"wind"`
		Weather []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
	}

	if err := getJSON(ctx, p.httpCfg, p.weatherCircuit, p.baseURL+"/data/2.5/weather", values, &payload); err != nil {
		return weather.WeatherReading{}, fmt.Errorf("openweather weather: %w", err)
	}
	if payload.Main == nil {
		return weather.WeatherReading{}, fmt.Errorf("openweather weather: %w: missing main block", errMalformed)
	}

	reading := weather.WeatherReading{
		TemperatureC:  payload.Main.Temp,
		HumidityPct:   payload.Main.Humidity,
		PressureHpa:   payload.Main.Pressure,
		WindSpeedMS:   payload.Wind.Speed,
		ConditionKind: weather.ConditionUnknown,
	}
	if len(payload.Weather) > 0 {
		if desc := strings.TrimSpace(payload.Weather[0].Description); desc != "" {
			title := cases.Title(language.English).String(desc)
			reading.Condition = &title
		}
		reading.ConditionKind = mapOpenWeatherCondition(payload.Weather[0].Main)
	}
	return reading, nil
}

// Pollutants fetches /data/2.5/air_pollution and keeps PM2.5 and PM10.
func (p *OpenWeatherProvider) Pollutants(ctx context.Context, c weather.Coordinates) (weather.AirQualityReading, error) {
	if p.apiKey == "" {
		return weather.AirQualityReading{}, fmt.Errorf("openweather: %w", errAPIKeyMissing)
	}

	values := coordValues(c)
	values.Set("appid", p.apiKey)

	var payload struct {
		List []struct {
			Components struct {
				PM25 *float64 `json:"pm2_5"`
				PM10 *float64 `json:"pm10"`
			} `json:"components"`
		} `json:"list"`
	}

	if err := getJSON(ctx, p.httpCfg, p.pollutionCircuit, p.baseURL+"/data/2.5/air_pollution", values, &payload); err != nil {
		return weather.AirQualityReading{}, fmt.Errorf("openweather air pollution: %w", err)
	}
	if len(payload.List) == 0 {
		return weather.AirQualityReading{}, fmt.Errorf("openweather air pollution: %w: empty list", errMalformed)
	}

	comps := payload.List[0].Components
	return weather.AirQualityReading{
		PM25: comps.PM25,
		PM10: comps.PM10,
	}, nil
}

// Geocode resolves a free-text city with /geo/1.0/direct and returns the first match.
func (p *OpenWeatherProvider) Geocode(ctx context.Context, city string) (weather.Location, error) {
	if p.apiKey == "" {
		return weather.Location{}, fmt.Errorf("openweather: %w", errAPIKeyMissing)
	}

	values := url.Values{}
	values.Set("q", city)
	values.Set("limit", "1")
	values.Set("appid", p.apiKey)

	var matches []struct {
		Name    string   `json:"name"`
		Lat     *float64 `json:"lat"`
		Lon     *float64 `json:"lon"`
		State   string   `json:"state"`
		Country string   `json:"country"`
	}

	if err := getJSON(ctx, p.httpCfg, p.geocodeCircuit, p.baseURL+"/geo/1.0/direct", values, &matches); err != nil {
		return weather.Location{}, fmt.Errorf("openweather geocode: %w", err)
	}
	if len(matches) == 0 {
		return weather.Location{}, fmt.Errorf("openweather geocode %q: %w", city, weather.ErrCityNotFound)
	}

	m := matches[0]
	if m.Lat == nil || m.Lon == nil {
		return weather.Location{}, fmt.Errorf("openweather geocode: %w: match without coordinates", errMalformed)
	}

	return weather.Location{
		Coordinates: weather.Coordinates{Lat: *m.Lat, Lon: *m.Lon},
		Place: weather.PlaceName{
			City:    m.Name,
			Region:  m.State,
			Country: m.Country,
		},
		Source: weather.SourceSearch,
	}, nil
}

func coordValues(c weather.Coordinates) url.Values {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(c.Lon, 'f', -1, 64))
	return values
}

func mapOpenWeatherCondition(main string) weather.Condition {
	switch main {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionCloudy
	case "Rain", "Drizzle":
		return weather.ConditionRain
	case "Snow":
		return weather.ConditionSnow
	case "Thunderstorm", "Squall", "Tornado":
		return weather.ConditionStorm
	case "Mist", "Fog", "Haze", "Smoke", "Dust", "Sand", "Ash":
		return weather.ConditionMist
	default:
		return weather.ConditionUnknown
	}
}
