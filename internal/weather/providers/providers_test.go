package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/sunshine-wear/internal/weather"
)

func fastBackoff(client *http.Client) HTTPClientConfig {
	return HTTPClientConfig{
		Client: client,
		Backoff: BackoffConfig{
			MaxRetries:      2,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
		},
	}
}

func TestOpenWeatherDailyForecast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Mountain View,US", r.URL.Query().Get("q"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"list":[{"dt":1760788800,"temp":{"min":14.2,"max":24.1},"weather":[{"id":800}]}]}`))
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), "key")
	p.baseURL = srv.URL

	r, err := p.FetchToday(context.Background(), weather.Location{City: "Mountain View", Country: "US"})
	require.NoError(t, err)
	require.Equal(t, "openweathermap", r.ProviderName)
	require.Equal(t, weather.ConditionClear, r.ConditionID)
	require.InDelta(t, 24.1, r.MaxTempC, 1e-9)
	require.InDelta(t, 14.2, r.MinTempC, 1e-9)
	require.Equal(t, time.Unix(1760788800, 0).UTC(), r.Timestamp)
}

func TestOpenWeatherRequiresKey(t *testing.T) {
	p := NewOpenWeatherProvider(http.DefaultClient, "")
	_, err := p.FetchToday(context.Background(), weather.Location{City: "x"})
	require.Error(t, err)
}

func TestWeatherAPIMapsConditionCodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("days"))
		_, _ = w.Write([]byte(`{"forecast":{"forecastday":[{"date_epoch":1760745600,"day":{"maxtemp_c":11,"mintemp_c":3,"condition":{"text":"Moderate rain","code":1189}}}]}}`))
	}))
	defer srv.Close()

	p := NewWeatherAPIProvider(srv.Client(), "key")
	p.baseURL = srv.URL

	r, err := p.FetchToday(context.Background(), weather.Location{City: "London", Country: "GB"})
	require.NoError(t, err)
	require.Equal(t, weather.ConditionRain, r.ConditionID)
	require.InDelta(t, 11, r.MaxTempC, 1e-9)
}

func TestWeatherAPITextFallback(t *testing.T) {
	require.Equal(t, weather.ConditionThunderstorm, mapWeatherAPICondition(9999, "Scattered Thunderstorms"))
	require.Equal(t, weather.ConditionUnknown, mapWeatherAPICondition(9999, ""))
	require.Equal(t, weather.ConditionOvercast, mapWeatherAPICondition(1009, "Overcast"))
}

type fixedGeocoder struct{ calls int }

func (g *fixedGeocoder) Resolve(context.Context, weather.Location) (float64, float64, error) {
	g.calls++
	return 48.85, 2.35, nil
}

func TestOpenMeteoResolvesCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "48.850000", r.URL.Query().Get("latitude"))
		assert.Equal(t, "2.350000", r.URL.Query().Get("longitude"))
		_, _ = w.Write([]byte(`{"daily":{"time":["2026-10-18"],"weathercode":[63],"temperature_2m_max":[16.5],"temperature_2m_min":[9.5]}}`))
	}))
	defer srv.Close()

	geo := &fixedGeocoder{}
	p := NewOpenMeteoProvider(srv.Client(), geo)
	p.baseURL = srv.URL

	r, err := p.FetchToday(context.Background(), weather.Location{City: "Paris", Country: "FR"})
	require.NoError(t, err)
	require.Equal(t, 1, geo.calls)
	require.Equal(t, weather.ConditionRain, r.ConditionID)
	require.Equal(t, time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), r.Timestamp)
}

func TestOpenMeteoWithoutCoordinatesOrGeocoder(t *testing.T) {
	p := NewOpenMeteoProvider(http.DefaultClient, nil)
	_, err := p.FetchToday(context.Background(), weather.Location{City: "Paris"})
	require.Error(t, err)
}

func TestResilienceRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"list":[{"dt":1,"temp":{"min":1,"max":2},"weather":[{"id":500}]}]}`))
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), "key")
	p.baseURL = srv.URL
	p.httpCfg = fastBackoff(srv.Client())

	r, err := p.FetchToday(context.Background(), weather.Location{City: "x"})
	require.NoError(t, err)
	require.Equal(t, weather.ConditionLightRain, r.ConditionID)
	require.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestResilienceDoesNotRetryClientErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewWeatherAPIProvider(srv.Client(), "bad")
	p.baseURL = srv.URL
	p.httpCfg = fastBackoff(srv.Client())

	_, err := p.FetchToday(context.Background(), weather.Location{City: "x"})
	require.ErrorIs(t, err, errUnexpected)
	require.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
