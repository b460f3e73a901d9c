package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/sunshine-wear/internal/weather"
)

// OpenWeatherProvider implements the weather.Provider interface for the OpenWeatherMap
// daily forecast. Its condition ids are already in the normalized classification.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5/forecast/daily",
		httpCfg: defaultHTTPConfig(client),
		circuit: newCircuit("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) FetchToday(ctx context.Context, loc weather.Location) (weather.DayReading, error) {
	if p.apiKey == "" {
		return weather.DayReading{}, fmt.Errorf("openweather api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")
		values.Set("mode", "json")
		values.Set("cnt", "1")

		if loc.Lat != nil && loc.Lon != nil {
			values.Set("lat", fmt.Sprintf("%f", *loc.Lat))
			values.Set("lon", fmt.Sprintf("%f", *loc.Lon))
		} else {
			q := loc.City
			if loc.Country != "" {
				q = fmt.Sprintf("%s,%s", loc.City, loc.Country)
			}
			values.Set("q", q)
		}

		return http.NewRequest(http.MethodGet, p.baseURL+"?"+values.Encode(), nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.DayReading{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Temp struct {
				Min float64 `json:"min"`
				Max float64 `json:"max"`
			} `json:"temp"`
			Weather []struct {
				ID int `json:"id"`
			} `json:"weather"`
		} `json:"list"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.DayReading{}, err
	}
	if len(payload.List) == 0 {
		return weather.DayReading{}, errEmptyForecast
	}

	day := payload.List[0]
	ts := time.Unix(day.Dt, 0).UTC()
	if day.Dt == 0 {
		ts = time.Now().UTC()
	}

	cond := weather.ConditionUnknown
	if len(day.Weather) > 0 {
		cond = weather.ConditionID(day.Weather[0].ID)
	}

	return weather.DayReading{
		ProviderName: p.name,
		Timestamp:    ts,
		MaxTempC:     day.Temp.Max,
		MinTempC:     day.Temp.Min,
		ConditionID:  cond,
	}, nil
}
