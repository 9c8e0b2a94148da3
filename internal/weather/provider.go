package weather

import (
	"context"
)

// ConditionsSource returns current weather for a position (e.g. OpenWeatherMap /weather).
type ConditionsSource interface {
	Name() string
	CurrentWeather(ctx context.Context, c Coordinates) (WeatherReading, error)
}

// PollutantSource returns particulate concentrations for a position (e.g. OpenWeatherMap /air_pollution).
type PollutantSource interface {
	Name() string
	Pollutants(ctx context.Context, c Coordinates) (AirQualityReading, error)
}

// IndexSource returns the AQI and dominant pollutant for a position (e.g. IQAir nearest_city).
type IndexSource interface {
	Name() string
	AirQualityIndex(ctx context.Context, c Coordinates) (AirQualityReading, error)
}

// Locator resolves the position a refresh cycle should use. An empty city means auto-detect.
type Locator interface {
	Resolve(ctx context.Context, city string) (Location, error)
}

// Store is the contract the single-slot snapshot store must satisfy.
type Store interface {
	// Save publishes v unless a newer generation is already held. It reports whether v was kept.
	Save(v View) bool
	Latest() (View, error)
	LastSnapshot() (Snapshot, error)
}
