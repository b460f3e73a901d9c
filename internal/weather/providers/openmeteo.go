package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"

	"github.com/i474232898/sunshine-wear/internal/weather"
)

// Geocoder resolves a city/country location to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, loc weather.Location) (lat, lon float64, err error)
}

// GoogleGeocoder resolves locations with the Google Geocoding API.
// Results are cached per location key for the life of the process.
type GoogleGeocoder struct {
	mu    sync.Mutex
	cache map[string][2]float64
}

// NewGoogleGeocoder sets the package-wide geocoder API key.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	geocoder.ApiKey = apiKey
	return &GoogleGeocoder{cache: make(map[string][2]float64)}
}

func (g *GoogleGeocoder) Resolve(ctx context.Context, loc weather.Location) (float64, float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if c, ok := g.cache[loc.Key()]; ok {
		return c[0], c[1], nil
	}
	found, err := geocoder.Geocoding(geocoder.Address{City: loc.City, Country: loc.Country})
	if err != nil {
		return 0, 0, fmt.Errorf("geocode %s: %w", loc.Key(), err)
	}
	g.cache[loc.Key()] = [2]float64{found.Latitude, found.Longitude}
	return found.Latitude, found.Longitude, nil
}

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
type OpenMeteoProvider struct {
	name     string
	baseURL  string
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
	geocoder Geocoder
}

// NewOpenMeteoProvider needs a geocoder only for locations without coordinates; it may be nil.
func NewOpenMeteoProvider(client *http.Client, geo Geocoder) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:     "openmeteo",
		baseURL:  "https://api.open-meteo.com/v1/forecast",
		httpCfg:  defaultHTTPConfig(client),
		circuit:  newCircuit("openmeteo"),
		geocoder: geo,
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) FetchToday(ctx context.Context, loc weather.Location) (weather.DayReading, error) {
	lat, lon, err := p.coordinates(ctx, loc)
	if err != nil {
		return weather.DayReading{}, err
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", lat))
		values.Set("longitude", fmt.Sprintf("%f", lon))
		values.Set("daily", "weathercode,temperature_2m_max,temperature_2m_min")
		values.Set("timezone", "auto")
		values.Set("forecast_days", "1")

		return http.NewRequest(http.MethodGet, p.baseURL+"?"+values.Encode(), nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.DayReading{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Daily struct {
			Time        []string  `json:"time"`
			WeatherCode []int     `json:"weathercode"`
			MaxTemp     []float64 `json:"temperature_2m_max"`
			MinTemp     []float64 `json:"temperature_2m_min"`
		} `json:"daily"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.DayReading{}, err
	}

	d := payload.Daily
	if len(d.Time) == 0 || len(d.WeatherCode) == 0 || len(d.MaxTemp) == 0 || len(d.MinTemp) == 0 {
		return weather.DayReading{}, errEmptyForecast
	}

	ts, err := time.Parse("2006-01-02", d.Time[0])
	if err != nil {
		ts = time.Now().UTC()
	}

	return weather.DayReading{
		ProviderName: p.name,
		Timestamp:    ts,
		MaxTempC:     d.MaxTemp[0],
		MinTempC:     d.MinTemp[0],
		ConditionID:  mapWMOCondition(d.WeatherCode[0]),
	}, nil
}

func (p *OpenMeteoProvider) coordinates(ctx context.Context, loc weather.Location) (float64, float64, error) {
	if loc.Lat != nil && loc.Lon != nil {
		return *loc.Lat, *loc.Lon, nil
	}
	if p.geocoder == nil {
		return 0, 0, errors.New("openmeteo requires latitude and longitude")
	}
	return p.geocoder.Resolve(ctx, loc)
}
