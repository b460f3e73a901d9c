package weather

import (
	"time"
)

// ConditionID is an OpenWeatherMap condition code (2xx thunderstorm .. 8xx clouds).
// All providers normalize to this classification.
type ConditionID int

const (
	ConditionUnknown      ConditionID = 0
	ConditionThunderstorm ConditionID = 211
	ConditionDrizzle      ConditionID = 301
	ConditionLightRain    ConditionID = 500
	ConditionRain         ConditionID = 501
	ConditionHeavyRain    ConditionID = 502
	ConditionFreezingRain ConditionID = 511
	ConditionShowers      ConditionID = 521
	ConditionSnow         ConditionID = 601
	ConditionSleet        ConditionID = 611
	ConditionSnowShowers  ConditionID = 621
	ConditionMist         ConditionID = 701
	ConditionFog          ConditionID = 741
	ConditionClear        ConditionID = 800
	ConditionFewClouds    ConditionID = 801
	ConditionClouds       ConditionID = 802
	ConditionOvercast     ConditionID = 804
)

// Units is the user's temperature unit preference.
type Units string

const (
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
)

// Location represents a logical place for which we track weather.
// City/Country must be provided; Lat/Lon are optional.
type Location struct {
	City    string   `json:"city"`
	Country string   `json:"country"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

// Key returns a canonical string key for indexing this location in stores.
func (l Location) Key() string {
	return l.City + ":" + l.Country
}

// DayOf normalizes t to the calendar day it falls on in its own time zone,
// expressed as midnight UTC. Stores index days by this value.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayForecast is the aggregated weather for one location and one calendar day.
// Temperatures are Celsius.
type DayForecast struct {
	Location    Location    `json:"location"`
	Date        time.Time   `json:"date"`
	MaxTempC    float64     `json:"maxTempC"`
	MinTempC    float64     `json:"minTempC"`
	ConditionID ConditionID `json:"conditionId"`
	UpdatedAt   time.Time   `json:"updatedAt"`

	// Providers contributing to this forecast.
	Providers []ProviderContribution `json:"providers,omitempty"`
}

// Row projects the forecast onto the three columns the wearable sync reads.
func (d DayForecast) Row() TodayRow {
	return TodayRow{MaxTemp: d.MaxTempC, MinTemp: d.MinTempC, ConditionID: int(d.ConditionID)}
}

// ProviderContribution describes data coming from a single provider used in aggregation.
type ProviderContribution struct {
	ProviderName string    `json:"provider"`
	Timestamp    time.Time `json:"timestamp"`
}

// TodayRow is one row of the "today" query: max temperature, min temperature, condition id.
type TodayRow struct {
	MaxTemp     float64
	MinTemp     float64
	ConditionID int
}

// SummaryRecord is the compact weather snapshot pushed to the wearable.
// Temperatures are already formatted for display. Values are immutable once built.
type SummaryRecord struct {
	HighTemp      string `json:"highTemp"`
	LowTemp       string `json:"lowTemp"`
	ConditionCode int    `json:"weatherImage"`
	RetrievedAt   int64  `json:"timeRetrieved"` // epoch millis
}

// RetrievedTime returns RetrievedAt as a time.Time.
func (r SummaryRecord) RetrievedTime() time.Time {
	return time.UnixMilli(r.RetrievedAt)
}
