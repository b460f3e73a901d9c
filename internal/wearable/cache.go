// Package wearable keeps the watch's copy of today's weather in sync with the phone.
package wearable

import (
	"go.uber.org/atomic"

	"github.com/i474232898/sunshine-wear/internal/weather"
)

// Cache holds the most recently received record. One goroutine writes (the
// transport event loop); any goroutine may read.
type Cache struct {
	slot    atomic.Pointer[weather.SummaryRecord]
	updates chan weather.SummaryRecord
}

func NewCache() *Cache {
	return &Cache{updates: make(chan weather.SummaryRecord, 1)}
}

// Latest returns the current record, or false before the first one arrived.
func (c *Cache) Latest() (weather.SummaryRecord, bool) {
	rec := c.slot.Load()
	if rec == nil {
		return weather.SummaryRecord{}, false
	}
	return *rec, true
}

// Store replaces the current record unconditionally.
func (c *Cache) Store(rec weather.SummaryRecord) {
	c.slot.Store(&rec)

	// Readers only care about the newest value, so a pending one is replaced.
	select {
	case <-c.updates:
	default:
	}
	select {
	case c.updates <- rec:
	default:
	}
}

// Updates signals stored records. It never blocks Store; slow readers see only the latest.
func (c *Cache) Updates() <-chan weather.SummaryRecord {
	return c.updates
}
