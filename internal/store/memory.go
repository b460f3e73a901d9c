package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/sunshine-wear/internal/weather"
)

var (
	// ErrNotFound is returned when no data is available for a given location.
	ErrNotFound = errors.New("no weather data for location")
)

// DayHistory holds the date-ordered day forecasts of a location, one per date.
type DayHistory struct {
	Days []weather.DayForecast
}

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: location key, value: history
	data map[string]*DayHistory

	maxDays int // max number of days kept per location (0 = unlimited)
}

// NewMemoryStore creates a new MemoryStore.
// If maxDays is <= 0, it is treated as unlimited.
func NewMemoryStore(maxDays int) *MemoryStore {
	return &MemoryStore{
		data:    make(map[string]*DayHistory),
		maxDays: maxDays,
	}
}

// SaveDay replaces the forecast for the day's date, or inserts it in date order.
func (s *MemoryStore) SaveDay(loc weather.Location, day weather.DayForecast) error {
	key := loc.Key()
	day.Date = weather.DayOf(day.Date)

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &DayHistory{}
		s.data[key] = history
	}

	i := sort.Search(len(history.Days), func(i int) bool {
		return !history.Days[i].Date.Before(day.Date)
	})
	if i < len(history.Days) && history.Days[i].Date.Equal(day.Date) {
		history.Days[i] = day
	} else {
		history.Days = append(history.Days, weather.DayForecast{})
		copy(history.Days[i+1:], history.Days[i:])
		history.Days[i] = day
	}

	// Enforce retention by count, dropping the oldest dates.
	if s.maxDays > 0 && len(history.Days) > s.maxDays {
		over := len(history.Days) - s.maxDays
		history.Days = history.Days[over:]
	}
	return nil
}

// Day returns the forecast stored for a location and calendar day.
func (s *MemoryStore) Day(loc weather.Location, date time.Time) (weather.DayForecast, error) {
	date = weather.DayOf(date)

	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[loc.Key()]
	if !ok {
		return weather.DayForecast{}, ErrNotFound
	}
	for _, d := range history.Days {
		if d.Date.Equal(date) {
			return d, nil
		}
	}
	return weather.DayForecast{}, ErrNotFound
}

// Latest returns the forecast with the most recent date for a location.
func (s *MemoryStore) Latest(loc weather.Location) (weather.DayForecast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[loc.Key()]
	if !ok || len(history.Days) == 0 {
		return weather.DayForecast{}, ErrNotFound
	}
	return history.Days[len(history.Days)-1], nil
}

// QueryToday returns a cursor over zero or one row for the day containing now.
func (s *MemoryStore) QueryToday(ctx context.Context, loc weather.Location, now time.Time) (weather.RowCursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	day, err := s.Day(loc, now)
	if errors.Is(err, ErrNotFound) {
		return &sliceCursor{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &sliceCursor{rows: []weather.TodayRow{day.Row()}}, nil
}

type sliceCursor struct {
	rows   []weather.TodayRow
	pos    int
	closed bool
}

func (c *sliceCursor) Next() bool {
	if c.closed || c.pos >= len(c.rows) {
		return false
	}
	c.pos++
	return true
}

func (c *sliceCursor) Scan(row *weather.TodayRow) error {
	if c.closed {
		return errCursorClosed
	}
	if c.pos == 0 || c.pos > len(c.rows) {
		return errNoRow
	}
	*row = c.rows[c.pos-1]
	return nil
}

func (c *sliceCursor) Close() error {
	c.closed = true
	return nil
}

var (
	errCursorClosed = errors.New("store: cursor closed")
	errNoRow        = errors.New("store: Scan called without a current row")
)
