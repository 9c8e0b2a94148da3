package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/spaceweather/internal/weather"
)

// OpenMeteoProvider implements weather.ConditionsSource for Open-Meteo, which needs no API key.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client, timeout time.Duration) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		httpCfg: HTTPClientConfig{
			Client:  client,
			Timeout: timeout,
		},
		circuit: newBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) CurrentWeather(ctx context.Context, c weather.Coordinates) (weather.WeatherReading, error) {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(c.Lon, 'f', -1, 64))
	values.Set("current", "temperature_2m,relative_humidity_2m,surface_pressure,wind_speed_10m,weather_code")
	values.Set("wind_speed_unit", "ms")

	var payload struct {
		Current *struct {
			Temperature *float64 `json:"temperature_2m"`
			Humidity    *float64 `json:"relative_humidity_2m"`
			Pressure    *float64 `json:"surface_pressure"`
			WindSpeed   *float64 `json:"wind_speed_10m"`
			WeatherCode *int     `json:"weather_code"`
		} `json:"current"`
	}

	if err := getJSON(ctx, p.httpCfg, p.circuit, p.baseURL, values, &payload); err != nil {
		return weather.WeatherReading{}, fmt.Errorf("openmeteo: %w", err)
	}
	if payload.Current == nil {
		return weather.WeatherReading{}, fmt.Errorf("openmeteo: %w: missing current block", errMalformed)
	}

	cur := payload.Current
	reading := weather.WeatherReading{
		TemperatureC:  cur.Temperature,
		HumidityPct:   cur.Humidity,
		PressureHpa:   cur.Pressure,
		WindSpeedMS:   cur.WindSpeed,
		ConditionKind: weather.ConditionUnknown,
	}
	if cur.WeatherCode != nil {
		reading.ConditionKind = mapOpenMeteoCondition(*cur.WeatherCode)
		if desc := describeWMOCode(*cur.WeatherCode); desc != "" {
			reading.Condition = &desc
		}
	}
	return reading, nil
}

// mapOpenMeteoCondition maps WMO weather interpretation codes.
func mapOpenMeteoCondition(code int) weather.Condition {
	switch {
	case code == 0:
		return weather.ConditionClear
	case code >= 1 && code <= 3:
		return weather.ConditionCloudy
	case code == 45 || code == 48:
		return weather.ConditionMist
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return weather.ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return weather.ConditionSnow
	case code >= 95 && code <= 99:
		return weather.ConditionStorm
	default:
		return weather.ConditionUnknown
	}
}

func describeWMOCode(code int) string {
	switch {
	case code == 0:
		return "Clear Sky"
	case code == 1:
		return "Mainly Clear"
	case code == 2:
		return "Partly Cloudy"
	case code == 3:
		return "Overcast"
	case code == 45 || code == 48:
		return "Fog"
	case code >= 51 && code <= 57:
		return "Drizzle"
	case code >= 61 && code <= 67:
		return "Rain"
	case code >= 71 && code <= 77:
		return "Snow"
	case code >= 80 && code <= 82:
		return "Rain Showers"
	case code == 85 || code == 86:
		return "Snow Showers"
	case code >= 95 && code <= 99:
		return "Thunderstorm"
	default:
		return ""
	}
}
