package providers

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/spaceweather/internal/weather"
)

// IQAirProvider implements weather.IndexSource using the AirVisual nearest_city endpoint.
type IQAirProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewIQAirProvider(client *http.Client, apiKey string, timeout time.Duration) *IQAirProvider {
	return &IQAirProvider{
		name:    "iqair",
		apiKey:  apiKey,
		baseURL: "https://api.airvisual.com/v2/nearest_city",
		httpCfg: HTTPClientConfig{
			Client:  client,
			Timeout: timeout,
		},
		circuit: newBreaker("iqair"),
	}
}

func (p *IQAirProvider) Name() string {
	return p.name
}

// AirQualityIndex returns the US AQI and the dominant pollutant code. The US code
// (mainus) is preferred; the China-scale code (maincn) is used only when it is empty.
func (p *IQAirProvider) AirQualityIndex(ctx context.Context, c weather.Coordinates) (weather.AirQualityReading, error) {
	if p.apiKey == "" {
		return weather.AirQualityReading{}, fmt.Errorf("iqair: %w", errAPIKeyMissing)
	}

	values := coordValues(c)
	values.Set("key", p.apiKey)

	var payload struct {
		Status string `json:"status"`
		Data   struct {
			Current struct {
				Pollution struct {
					AQIUS  *float64 `json:"aqius"`
					MainUS string   `json:"mainus"`
					MainCN string   `json:"maincn"`
				} `json:"pollution"`
			} `json:"current"`
		} `json:"data"`
	}

	if err := getJSON(ctx, p.httpCfg, p.circuit, p.baseURL, values, &payload); err != nil {
		return weather.AirQualityReading{}, fmt.Errorf("iqair: %w", err)
	}
	if payload.Status != "success" {
		return weather.AirQualityReading{}, fmt.Errorf("iqair: %w: status %q", errUnexpectedStatus, payload.Status)
	}

	pollution := payload.Data.Current.Pollution
	var reading weather.AirQualityReading
	if v := pollution.AQIUS; v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0) {
		aqi := int(math.Round(*v))
		reading.AQI = &aqi
	}

	main := strings.TrimSpace(pollution.MainUS)
	if main == "" {
		main = strings.TrimSpace(pollution.MainCN)
	}
	if main != "" {
		reading.DominantPollutant = &main
	}
	return reading, nil
}
