package weather

import (
	"strconv"
	"strings"
)

// Color is an RGBA tuple with components in [0, 1].
type Color [4]float64

// Category is a US EPA AQI band with its fixed display color and advisory.
type Category struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Color   Color  `json:"color"`
	// Upper is the inclusive upper bound of the band; 0 for Unknown, -1 for the open-ended top band.
	Upper int `json:"upper"`
}

var (
	CategoryUnknown = Category{Name: "Unknown", Message: "No data", Color: Color{1, 1, 1, 1}}

	CategoryGood = Category{
		Name: "Good", Message: "Air quality is satisfactory.",
		Color: Color{0.2, 0.8, 0.2, 1}, Upper: 50,
	}
	CategoryModerate = Category{
		Name: "Moderate", Message: "Acceptable; sensitive groups should be cautious.",
		Color: Color{0.95, 0.8, 0.2, 1}, Upper: 100,
	}
	CategorySensitive = Category{
		Name: "Unhealthy for Sensitive Groups", Message: "Sensitive groups may experience health effects.",
		Color: Color{0.9, 0.55, 0.12, 1}, Upper: 150,
	}
	CategoryUnhealthy = Category{
		Name: "Unhealthy", Message: "Everyone may begin to experience health effects.",
		Color: Color{0.9, 0.2, 0.2, 1}, Upper: 200,
	}
	CategoryVeryUnhealthy = Category{
		Name: "Very Unhealthy", Message: "Health alert: emergency conditions possible.",
		Color: Color{0.6, 0.15, 0.45, 1}, Upper: 300,
	}
	CategoryHazardous = Category{
		Name: "Hazardous", Message: "Health warnings of emergency conditions.",
		Color: Color{0.5, 0.02, 0.02, 1}, Upper: -1,
	}
)

// categories is ordered by ascending upper bound; the last band is open-ended.
var categories = []Category{
	CategoryGood,
	CategoryModerate,
	CategorySensitive,
	CategoryUnhealthy,
	CategoryVeryUnhealthy,
	CategoryHazardous,
}

// BadAirThreshold is the AQI above which the display raises the bad-air overlay.
const BadAirThreshold = 150

// Categorize maps an AQI value to its band. A nil value is Unknown.
func Categorize(aqi *int) Category {
	if aqi == nil {
		return CategoryUnknown
	}
	return CategoryOf(*aqi)
}

// CategoryOf maps an AQI integer to its band using inclusive upper bounds.
// Negative values are below the scale and fall into the first band.
func CategoryOf(aqi int) Category {
	for _, c := range categories {
		if c.Upper < 0 || aqi <= c.Upper {
			return c
		}
	}
	return CategoryHazardous
}

// ParseCategory categorizes a raw textual AQI. Anything that is not an integer is Unknown.
func ParseCategory(raw string) Category {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return CategoryUnknown
	}
	return CategoryOf(n)
}

// BadAir reports whether the overlay flag should be raised for aqi.
func BadAir(aqi *int) bool {
	return aqi != nil && *aqi > BadAirThreshold
}
