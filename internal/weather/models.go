package weather

import "fmt"

// ErrorMarker is reported in place of a temperature when a point could not be fetched.
const ErrorMarker = "Error fetching data"

// GeoPoint is a named location we track weather for.
type GeoPoint struct {
	Name      string  `json:"name" validate:"required"`
	Country   string  `json:"country" validate:"required"`
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// Label returns the display label, which doubles as the point identity.
func (p GeoPoint) Label() string {
	return fmt.Sprintf("%s, %s", p.Name, p.Country)
}

// WeatherReading is the outcome of fetching one point: exactly one of
// Temperature or Error is set.
type WeatherReading struct {
	Label       string   `json:"label"`
	Temperature *float64 `json:"temperature,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// NewTemperatureReading builds a successful reading.
func NewTemperatureReading(label string, temperatureC float64) WeatherReading {
	t := temperatureC
	return WeatherReading{Label: label, Temperature: &t}
}

// NewErrorReading builds a reading carrying the error marker.
func NewErrorReading(label string) WeatherReading {
	return WeatherReading{Label: label, Error: ErrorMarker}
}

// OK reports whether the reading holds a temperature.
func (r WeatherReading) OK() bool {
	return r.Temperature != nil && r.Error == ""
}

// WeatherSnapshot is the complete set of readings from one refresh.
type WeatherSnapshot []WeatherReading

// Clone returns a copy that shares no backing array with s.
func (s WeatherSnapshot) Clone() WeatherSnapshot {
	if s == nil {
		return WeatherSnapshot{}
	}
	out := make(WeatherSnapshot, len(s))
	copy(out, s)
	return out
}

// Failed counts readings that carry the error marker.
func (s WeatherSnapshot) Failed() int {
	n := 0
	for _, r := range s {
		if !r.OK() {
			n++
		}
	}
	return n
}
