package face

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/sunshine-wear/internal/weather"
)

func TestIconFor(t *testing.T) {
	tests := []struct {
		code int
		want Icon
		ok   bool
	}{
		{200, IconStorm, true},
		{232, IconStorm, true},
		{233, IconNone, false},
		{310, IconLightRain, true},
		{502, IconRain, true},
		{511, IconSnow, true},
		{521, IconRain, true},
		{601, IconSnow, true},
		{741, IconFog, true},
		{761, IconFog, true},
		{781, IconStorm, true},
		{800, IconClear, true},
		{801, IconLightClouds, true},
		{804, IconClouds, true},
		{900, IconNone, false},
		{0, IconNone, false},
		{-1, IconNone, false},
	}
	for _, tt := range tests {
		got, ok := IconFor(tt.code)
		assert.Equal(t, tt.want, got, "code %d", tt.code)
		assert.Equal(t, tt.ok, ok, "code %d", tt.code)
	}
}

type staticSource struct {
	rec weather.SummaryRecord
	ok  bool
}

func (s staticSource) Latest() (weather.SummaryRecord, bool) { return s.rec, s.ok }

func TestOverlayFrom(t *testing.T) {
	clock := time.Date(2024, 6, 1, 9, 30, 5, 0, time.Local)

	empty := OverlayFrom(staticSource{})
	assert.False(t, empty.Visible)
	assert.Equal(t, "09:30:05", empty.Line(clock))

	o := OverlayFrom(staticSource{ok: true, rec: weather.SummaryRecord{
		HighTemp: "75°", LowTemp: "58°", ConditionCode: 800, RetrievedAt: 1000,
	}})
	require.True(t, o.Visible)
	assert.Equal(t, IconClear, o.Icon)
	assert.Equal(t, time.UnixMilli(1000), o.RetrievedAt)
	assert.Equal(t, "09:30:05  75° 58°  [clear]", o.Line(clock))

	unknown := OverlayFrom(staticSource{ok: true, rec: weather.SummaryRecord{HighTemp: "1°", LowTemp: "0°", ConditionCode: 42}})
	assert.Equal(t, "09:30:05  1° 0°", unknown.Line(clock))
}

func TestNextTickAlignsToInterval(t *testing.T) {
	base := time.UnixMilli(1_700_000_000_000)
	assert.Equal(t, time.Second, nextTick(base, time.Second))
	assert.Equal(t, 750*time.Millisecond, nextTick(base.Add(250*time.Millisecond), time.Second))
	assert.Equal(t, 2*time.Second, nextTick(base.Add(3*time.Second), 5*time.Second))
}

func TestTickerRunsUntilCancelled(t *testing.T) {
	ticker := NewTicker(10 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	ticks := make(chan time.Time, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker.Run(ctx, func(now time.Time) {
			select {
			case ticks <- now:
			default:
			}
		})
	}()

	for i := 0; i < 3; i++ {
		select {
		case <-ticks:
		case <-time.After(time.Second):
			t.Fatal("ticker did not fire")
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ticker did not stop")
	}
}
