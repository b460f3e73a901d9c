package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/golang/glog"

	"github.com/i474232898/sunshine-wear/internal/companion"
	"github.com/i474232898/sunshine-wear/internal/transport"
	"github.com/i474232898/sunshine-wear/internal/weather"
)

const defaultJobTimeout = 30 * time.Second

// Fetcher refreshes today's forecast in the store.
type Fetcher interface {
	FetchAndStore(ctx context.Context, loc weather.Location) (weather.DayForecast, error)
}

// Pusher sends today's summary to the wearable.
type Pusher interface {
	PushToday(ctx context.Context) (weather.SummaryRecord, error)
}

// Scheduler periodically syncs the preferred location and pushes the result to the watch.
type Scheduler struct {
	scheduler *gocron.Scheduler
	fetcher   Fetcher
	pusher    Pusher
	location  weather.Location
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler. pusher may be nil.
func New(location weather.Location, interval time.Duration, fetcher Fetcher, pusher Pusher) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		fetcher:   fetcher,
		pusher:    pusher,
		location:  location,
		interval:  interval,
		timeout:   defaultJobTimeout,
	}
}

// Start schedules the sync job, running it once right away.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = 3 * time.Hour
	}

	_, err := s.scheduler.Every(interval).SingletonMode().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.RunOnce(ctx); err != nil {
			glog.Warningf("scheduler: sync for %s failed: %v", s.location.Key(), err)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	glog.Infof("scheduler: syncing %s every %s", s.location.Key(), interval)
	return nil
}

// RunOnce fetches and stores today's forecast, then pushes it. A failed push is
// logged only; the store write already happened.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	glog.V(2).Infof("scheduler: running weather sync job")
	if _, err := s.fetcher.FetchAndStore(ctx, s.location); err != nil {
		return err
	}
	if s.pusher == nil {
		return nil
	}

	rec, err := s.pusher.PushToday(ctx)
	switch {
	case errors.Is(err, transport.ErrNotConnected):
		glog.V(2).Infof("scheduler: wearable transport not connected, push skipped")
	case errors.Is(err, companion.ErrNoData):
		glog.Warningf("scheduler: stored forecast not visible for today, push skipped")
	case err != nil:
		glog.Warningf("scheduler: push failed: %v", err)
	default:
		glog.Infof("scheduler: pushed %s/%s to wearable", rec.HighTemp, rec.LowTemp)
	}
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
