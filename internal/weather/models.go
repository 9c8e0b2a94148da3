package weather

import (
	"math"
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Coordinates are WGS84 degrees.
type Coordinates struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// Valid reports whether c is a usable position.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// PlaceName is attached to coordinates for display only. Any field may be empty.
type PlaceName struct {
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
}

// LocationSource tells which resolution stage produced a Location.
type LocationSource string

const (
	SourceSearch LocationSource = "search"
	SourceDevice LocationSource = "device"
	SourceIP     LocationSource = "ip"
)

// Location is a resolved place for a single refresh cycle.
type Location struct {
	Coordinates
	Place  PlaceName      `json:"place"`
	Source LocationSource `json:"source"`
}

// WeatherReading holds current conditions. A nil field means the upstream value is unknown.
type WeatherReading struct {
	TemperatureC  *float64  `json:"temperatureC"`
	Condition     *string   `json:"condition"`
	ConditionKind Condition `json:"conditionKind"`
	HumidityPct   *float64  `json:"humidityPercent"`
	WindSpeedMS   *float64  `json:"windSpeedMs"`
	PressureHpa   *float64  `json:"pressureHpa"`
}

// AirQualityReading holds the US EPA index and particulate concentrations (µg/m³).
type AirQualityReading struct {
	AQI               *int     `json:"aqi"`
	DominantPollutant *string  `json:"dominantPollutant"`
	PM25              *float64 `json:"pm25"`
	PM10              *float64 `json:"pm10"`
}

// SourceStatus describes the outcome of one upstream call used in aggregation.
type SourceStatus struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Snapshot is one point-in-time aggregation for a single location.
// It is never modified after the cycle that produced it returns.
type Snapshot struct {
	Location   Location          `json:"location"`
	Weather    WeatherReading    `json:"weather"`
	AirQuality AirQualityReading `json:"airQuality"`
	Sources    []SourceStatus    `json:"sources"`
	FetchedAt  time.Time         `json:"fetchedAt"` // always UTC
}

// Succeeded returns the number of upstream calls that returned data.
func (s Snapshot) Succeeded() int {
	n := 0
	for _, src := range s.Sources {
		if src.OK {
			n++
		}
	}
	return n
}

// Trigger is what started a refresh cycle.
type Trigger string

const (
	TriggerStartup  Trigger = "startup"
	TriggerPeriodic Trigger = "periodic"
	TriggerManual   Trigger = "manual"
	TriggerSearch   Trigger = "search"
)

// Priority orders triggers for coalescing; higher wins.
func (t Trigger) Priority() int {
	switch t {
	case TriggerSearch:
		return 3
	case TriggerManual:
		return 2
	case TriggerPeriodic:
		return 1
	default:
		return 0
	}
}

// CycleStatus is the state of a refresh cycle.
type CycleStatus string

const (
	StatusIdle     CycleStatus = "idle"
	StatusFetching CycleStatus = "fetching"
	StatusDone     CycleStatus = "done"
	StatusPartial  CycleStatus = "partial"
	StatusFailed   CycleStatus = "failed"
	StatusNotFound CycleStatus = "not_found"
	StatusError    CycleStatus = "error"
)

// Request asks for one refresh cycle. Query is only honoured for TriggerSearch.
type Request struct {
	ID         string  `json:"id"`
	Generation uint64  `json:"generation"`
	Trigger    Trigger `json:"trigger"`
	Query      string  `json:"query,omitempty"`
	// Coalesced is set when the submitted trigger was folded into this
	// already-pending request.
	Coalesced  bool    `json:"coalesced,omitempty"`
}

// View is what a refresh cycle hands to the presentation layer.
// Snapshot is nil unless the cycle produced data.
type View struct {
	Generation uint64      `json:"generation"`
	RequestID  string      `json:"requestId"`
	Trigger    Trigger     `json:"trigger"`
	Query      string      `json:"query,omitempty"`
	Status     CycleStatus `json:"status"`
	Message    string      `json:"message,omitempty"`
	Snapshot   *Snapshot   `json:"snapshot"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}
