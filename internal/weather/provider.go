package weather

import (
	"context"
	"time"
)

// DayReading represents a single provider's normalized daily reading
// that can be aggregated into a DayForecast.
type DayReading struct {
	ProviderName string
	Timestamp    time.Time

	MaxTempC    float64
	MinTempC    float64
	ConditionID ConditionID
}

// Provider abstracts a weather data source (e.g. OpenWeatherMap, WeatherAPI, Open-Meteo).
type Provider interface {
	Name() string
	FetchToday(ctx context.Context, loc Location) (DayReading, error)
}

// RowCursor iterates the rows of a store query. Callers must Close it on every path.
type RowCursor interface {
	Next() bool
	Scan(row *TodayRow) error
	Close() error
}

// TodayQuerier is the read side consumed by the wearable sync.
type TodayQuerier interface {
	QueryToday(ctx context.Context, loc Location, now time.Time) (RowCursor, error)
}

// Store is the contract the in-memory store and the sqlite store satisfy.
// Only the most recent forecast per (location, day) is kept.
type Store interface {
	TodayQuerier
	SaveDay(loc Location, day DayForecast) error
	Day(loc Location, date time.Time) (DayForecast, error)
	Latest(loc Location) (DayForecast, error)
}
