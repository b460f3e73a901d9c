package weather

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
)

var (
	// ErrNoProviders is returned when the service has nothing to fetch from.
	ErrNoProviders = errors.New("no weather providers configured")
	// ErrNoReadings is returned when every provider failed; the stored day is left untouched.
	ErrNoReadings = errors.New("no successful provider readings")
)

// Service orchestrates fetching from multiple providers and persisting day forecasts.
type Service struct {
	store     Store
	providers []Provider
	now       func() time.Time
}

// NewService creates a new Service.
func NewService(store Store, providers []Provider) *Service {
	return &Service{
		store:     store,
		providers: providers,
		now:       time.Now,
	}
}

// FetchAndStore fetches today's reading from all providers concurrently for the given
// location, aggregates successful readings, and stores the day forecast.
func (s *Service) FetchAndStore(ctx context.Context, loc Location) (DayForecast, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		readings []DayReading
	)

	glog.V(2).Infof("weather: FetchAndStore called for %s with %d providers", loc.Key(), len(s.providers))
	if len(s.providers) == 0 {
		return DayForecast{}, ErrNoProviders
	}

	for _, p := range s.providers {
		wg.Add(1)
		go func(p Provider) {
			defer wg.Done()

			r, err := p.FetchToday(ctx, loc)
			if err != nil {
				// Log and continue; we want partial success when possible.
				glog.Warningf("weather: provider %s fetch failed for %s: %v", p.Name(), loc.Key(), err)
				return
			}

			mu.Lock()
			readings = append(readings, r)
			mu.Unlock()
		}(p)
	}

	wg.Wait()

	if len(readings) == 0 {
		// Do not overwrite the last good day.
		return DayForecast{}, fmt.Errorf("%s: %w", loc.Key(), ErrNoReadings)
	}

	day := AggregateReadings(loc, s.now(), readings)
	if err := s.store.SaveDay(loc, day); err != nil {
		return DayForecast{}, fmt.Errorf("save day for %s: %w", loc.Key(), err)
	}
	glog.Infof("weather: stored %s for %s (max %.1f, min %.1f, condition %d, %d providers)",
		day.Date.Format("2006-01-02"), loc.Key(), day.MaxTempC, day.MinTempC, day.ConditionID, len(readings))
	return day, nil
}

// Today returns the stored forecast for the current day.
func (s *Service) Today(loc Location) (DayForecast, error) {
	return s.store.Day(loc, DayOf(s.now()))
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest(loc Location) (DayForecast, error) {
	return s.store.Latest(loc)
}
