package weather

import (
	"fmt"
	"strconv"
	"strings"
)

// Display is the formatted, presentation-ready form of a View.
type Display struct {
	Temperature   string    `json:"temperature"`
	Condition     string    `json:"condition"`
	ConditionKind Condition `json:"conditionKind"`
	Location      string    `json:"location"`
	Updated       string    `json:"updated"`
	AQI           string    `json:"aqi"`
	Category      string    `json:"category"`
	Message       string    `json:"message"`
	Color         Color     `json:"color"`
	PM25          string    `json:"pm25"`
	PM10          string    `json:"pm10"`
	MainPollutant string    `json:"mainPollutant"`
	Humidity      string    `json:"humidity"`
	Wind          string    `json:"wind"`
	Pressure      string    `json:"pressure"`
	BadAir        bool      `json:"badAir"`
}

const unknownMark = "--"

// Format renders v for display. Views without a snapshot render every value as unknown
// and carry the status message as the condition line.
func Format(v View) Display {
	d := Display{
		Temperature:   unknownMark + "°C",
		Condition:     v.Message,
		ConditionKind: ConditionUnknown,
		AQI:           unknownMark,
		Category:      CategoryUnknown.Name,
		Message:       CategoryUnknown.Message,
		Color:         CategoryUnknown.Color,
		PM25:          unknownMark + " µg/m³",
		PM10:          unknownMark + " µg/m³",
		MainPollutant: unknownMark,
		Humidity:      unknownMark + "%",
		Wind:          unknownMark + " m/s",
		Pressure:      unknownMark + " hPa",
	}
	if !v.UpdatedAt.IsZero() {
		d.Updated = "Updated " + v.UpdatedAt.Format("15:04:05")
	}

	if v.Snapshot == nil {
		return d
	}
	snap := v.Snapshot
	w, aq := snap.Weather, snap.AirQuality

	d.Location = strings.TrimSpace(snap.Location.Place.City + " " + placeRegion(snap.Location.Place))

	if w.TemperatureC != nil {
		d.Temperature = fmt.Sprintf("%.0f°C", *w.TemperatureC)
	}
	switch {
	case w.Condition != nil && *w.Condition != "":
		d.Condition = *w.Condition
	case v.Message == "":
		d.Condition = "Weather error"
	}
	if w.ConditionKind != "" {
		d.ConditionKind = w.ConditionKind
	}
	if w.HumidityPct != nil {
		d.Humidity = fmt.Sprintf("%d%%", clamp(int(*w.HumidityPct), 0, 100))
	}
	if w.WindSpeedMS != nil {
		d.Wind = fmt.Sprintf("%.1f m/s", *w.WindSpeedMS)
	}
	if w.PressureHpa != nil {
		d.Pressure = fmt.Sprintf("%d hPa", int(*w.PressureHpa))
	}

	if aq.AQI != nil {
		d.AQI = strconv.Itoa(*aq.AQI)
	}
	cat := Categorize(aq.AQI)
	d.Category, d.Message, d.Color = cat.Name, cat.Message, cat.Color
	d.BadAir = BadAir(aq.AQI)

	if aq.PM25 != nil {
		d.PM25 = fmt.Sprintf("%.1f µg/m³", *aq.PM25)
	}
	if aq.PM10 != nil {
		d.PM10 = fmt.Sprintf("%.1f µg/m³", *aq.PM10)
	}
	if aq.DominantPollutant != nil && *aq.DominantPollutant != "" {
		d.MainPollutant = *aq.DominantPollutant
	}
	return d
}

// placeRegion prefers the region and falls back to the country.
func placeRegion(p PlaceName) string {
	if p.Region != "" {
		return p.Region
	}
	return p.Country
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
