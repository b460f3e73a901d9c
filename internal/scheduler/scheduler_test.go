package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/sunshine-wear/internal/transport"
	"github.com/i474232898/sunshine-wear/internal/weather"
)

type countingFetcher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *countingFetcher) FetchAndStore(_ context.Context, loc weather.Location) (weather.DayForecast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return weather.DayForecast{Location: loc}, f.err
}

func (f *countingFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type countingPusher struct {
	calls int
	err   error
}

func (p *countingPusher) PushToday(context.Context) (weather.SummaryRecord, error) {
	p.calls++
	return weather.SummaryRecord{HighTemp: "20°", LowTemp: "10°"}, p.err
}

var paris = weather.Location{City: "Paris", Country: "FR"}

func TestRunOncePushesAfterStoring(t *testing.T) {
	f := &countingFetcher{}
	p := &countingPusher{}
	s := New(paris, time.Hour, f, p)

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 1, f.count())
	assert.Equal(t, 1, p.calls)
}

func TestRunOnceSkipsPushWhenFetchFails(t *testing.T) {
	f := &countingFetcher{err: weather.ErrNoReadings}
	p := &countingPusher{}
	s := New(paris, time.Hour, f, p)

	require.ErrorIs(t, s.RunOnce(context.Background()), weather.ErrNoReadings)
	assert.Zero(t, p.calls)
}

func TestRunOnceAbsorbsPushErrors(t *testing.T) {
	for _, err := range []error{transport.ErrNotConnected, errors.New("boom")} {
		p := &countingPusher{err: err}
		s := New(paris, time.Hour, &countingFetcher{}, p)
		require.NoError(t, s.RunOnce(context.Background()))
		assert.Equal(t, 1, p.calls)
	}

	require.NoError(t, New(paris, time.Hour, &countingFetcher{}, nil).RunOnce(context.Background()))
}

func TestStartRunsImmediately(t *testing.T) {
	f := &countingFetcher{}
	s := New(paris, time.Hour, f, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	require.Eventually(t, func() bool { return f.count() == 1 }, 2*time.Second, 10*time.Millisecond)
}
