package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/sunshine-wear/internal/weather"
)

var paris = weather.Location{City: "Paris", Country: "FR"}

func day(date time.Time, max, min float64, cond weather.ConditionID) weather.DayForecast {
	return weather.DayForecast{
		Location:    paris,
		Date:        date,
		MaxTempC:    max,
		MinTempC:    min,
		ConditionID: cond,
		UpdatedAt:   date.Add(6 * time.Hour).UTC().Truncate(time.Second),
		Providers:   []weather.ProviderContribution{{ProviderName: "openweathermap", Timestamp: date.UTC()}},
	}
}

func queryAll(t *testing.T, s weather.TodayQuerier, now time.Time) []weather.TodayRow {
	t.Helper()
	cur, err := s.QueryToday(context.Background(), paris, now)
	require.NoError(t, err)
	defer func() { require.NoError(t, cur.Close()) }()

	var rows []weather.TodayRow
	for cur.Next() {
		var r weather.TodayRow
		require.NoError(t, cur.Scan(&r))
		rows = append(rows, r)
	}
	return rows
}

func runStoreContract(t *testing.T, s weather.Store) {
	d1 := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

	_, err := s.Latest(paris)
	require.ErrorIs(t, err, ErrNotFound)
	require.Empty(t, queryAll(t, s, d2.Add(9*time.Hour)))

	require.NoError(t, s.SaveDay(paris, day(d2, 24.1, 14.2, weather.ConditionClear)))
	require.NoError(t, s.SaveDay(paris, day(d1, 20, 10, weather.ConditionRain)))

	latest, err := s.Latest(paris)
	require.NoError(t, err)
	require.Equal(t, d2, latest.Date)
	require.Equal(t, weather.ConditionClear, latest.ConditionID)
	require.Len(t, latest.Providers, 1)

	// A second save for the same day replaces the row.
	require.NoError(t, s.SaveDay(paris, day(d2, 25.4, 15.0, weather.ConditionFewClouds)))

	got := queryAll(t, s, d2.Add(13*time.Hour))
	require.Equal(t, []weather.TodayRow{{MaxTemp: 25.4, MinTemp: 15.0, ConditionID: 801}}, got)

	prev, err := s.Day(paris, d1.Add(time.Hour))
	require.NoError(t, err)
	require.InDelta(t, 20, prev.MaxTempC, 1e-9)

	_, err = s.Day(weather.Location{City: "Oslo", Country: "NO"}, d1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemoryStore(10))
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "weather.db"), 10)
	require.NoError(t, err)
	defer s.Close()

	runStoreContract(t, s)
}

func TestRetentionDropsOldestDays(t *testing.T) {
	sq, err := NewSQLite(filepath.Join(t.TempDir(), "weather.db"), 2)
	require.NoError(t, err)
	defer sq.Close()

	for _, s := range []weather.Store{NewMemoryStore(2), sq} {
		base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 4; i++ {
			require.NoError(t, s.SaveDay(paris, day(base.AddDate(0, 0, i), float64(i), 0, weather.ConditionClear)))
		}
		_, err := s.Day(paris, base)
		require.ErrorIs(t, err, ErrNotFound)
		_, err = s.Day(paris, base.AddDate(0, 0, 2))
		require.NoError(t, err)
	}
}

func TestMemoryCursorScanWithoutNext(t *testing.T) {
	c := &sliceCursor{rows: []weather.TodayRow{{MaxTemp: 1}}}
	var r weather.TodayRow
	require.Error(t, c.Scan(&r))
	require.True(t, c.Next())
	require.NoError(t, c.Scan(&r))
	require.False(t, c.Next())
	require.NoError(t, c.Close())
	require.Error(t, c.Scan(&r))
}
