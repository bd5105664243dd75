// Package sensor describes the scalar inputs collected for a prediction.
//
// Catalog order is the feature order: the sensor at position i feeds
// feature i of the vector. Names and descriptions are for presentation only.
package sensor

import (
	"errors"
	"fmt"
)

// Reference input surface: every reading is normalized to [0, 1].
const (
	MinValue     = 0.0
	MaxValue     = 1.0
	DefaultValue = 0.5
	DefaultStep  = 0.01
)

// ErrCatalogTooSmall is returned when more sensors are requested than exist.
var ErrCatalogTooSmall = errors.New("sensor catalog too small")

// Range is the closed interval a reading may take plus its widget hints.
type Range struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
	Step    float64 `json:"step"`
}

// Contains reports whether v lies inside [Min, Max]. NaN is never contained.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Sensor is one named input.
type Sensor struct {
	Index       int    `json:"index"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Range       Range  `json:"range"`
}

var normalized = Range{Min: MinValue, Max: MaxValue, Default: DefaultValue, Step: DefaultStep}

var catalog = []Sensor{
	{Key: "soil_moisture", Name: "Soil Moisture", Description: "Measures water content in the soil"},
	{Key: "air_humidity", Name: "Air Humidity", Description: "Relative humidity of the environment"},
	{Key: "soil_temperature", Name: "Soil Temperature", Description: "Soil warmth level"},
	{Key: "air_temperature", Name: "Air Temperature", Description: "Ambient air temperature"},
	{Key: "nitrogen", Name: "Nitrogen Level", Description: "Presence of nitrogen in soil"},
	{Key: "phosphorus", Name: "Phosphorus Level", Description: "Phosphorus content for plant growth"},
	{Key: "potassium", Name: "Potassium Level", Description: "Potassium presence for root health"},
	{Key: "soil_ph", Name: "Soil pH", Description: "Acidity or alkalinity of the soil"},
	{Key: "light_intensity", Name: "Light Intensity", Description: "Amount of sunlight received"},
	{Key: "co2", Name: "CO2 Level", Description: "Carbon dioxide concentration"},
	{Key: "rainfall", Name: "Rainfall Sensor", Description: "Detects rainfall or water presence"},
	{Key: "wind_speed", Name: "Wind Speed", Description: "Airflow speed around the field"},
	{Key: "leaf_wetness", Name: "Leaf Wetness", Description: "Moisture on plant leaves"},
	{Key: "crop_growth_index", Name: "Crop Growth Index", Description: "Estimated growth value"},
	{Key: "soil_conductivity", Name: "Soil Conductivity", Description: "Soil's electrical conductivity"},
	{Key: "oxygen", Name: "Oxygen Level", Description: "Dissolved oxygen in soil"},
	{Key: "soil_texture_index", Name: "Soil Texture Index", Description: "Estimated granularity of soil"},
	{Key: "fertilizer_residue", Name: "Fertilizer Residue", Description: "Remaining nutrients in soil"},
	{Key: "water_flow_rate", Name: "Water Flow Rate", Description: "Flow rate through irrigation pipes"},
	{Key: "sunlight_duration", Name: "Sunlight Duration", Description: "Total sunlight exposure today"},
}

// Count is the number of sensors in the reference deployment.
var Count = len(catalog)

// Catalog returns a copy of every known sensor in feature order.
func Catalog() []Sensor {
	out := make([]Sensor, len(catalog))
	for i, s := range catalog {
		s.Index = i
		s.Range = normalized
		out[i] = s
	}
	return out
}

// Take returns the first n sensors.
func Take(n int) ([]Sensor, error) {
	if n < 1 || n > len(catalog) {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrCatalogTooSmall, n, len(catalog))
	}
	return Catalog()[:n], nil
}

// Defaults returns the default reading of each of the given sensors.
func Defaults(sensors []Sensor) []float64 {
	values := make([]float64, len(sensors))
	for i, s := range sensors {
		values[i] = s.Range.Default
	}
	return values
}
