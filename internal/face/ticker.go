package face

import (
	"context"
	"time"
)

// InteractiveUpdateRate is how often the face redraws while interactive.
const InteractiveUpdateRate = time.Second

// Ticker fires on multiples of its interval, like a seconds hand.
type Ticker struct {
	interval time.Duration
	now      func() time.Time
}

func NewTicker(interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = InteractiveUpdateRate
	}
	return &Ticker{interval: interval, now: time.Now}
}

// Run calls draw on every tick until ctx is done.
func (t *Ticker) Run(ctx context.Context, draw func(now time.Time)) {
	timer := time.NewTimer(nextTick(t.now(), t.interval))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			now := t.now()
			draw(now)
			timer.Reset(nextTick(now, t.interval))
		}
	}
}

// nextTick returns the delay until the next multiple of interval after now.
func nextTick(now time.Time, interval time.Duration) time.Duration {
	ms := interval.Milliseconds()
	if ms <= 0 {
		return interval
	}
	return time.Duration(ms-now.UnixMilli()%ms) * time.Millisecond
}
