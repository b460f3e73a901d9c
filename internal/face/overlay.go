package face

import (
	"fmt"
	"time"

	"github.com/i474232898/sunshine-wear/internal/weather"
)

// RecordSource is the read side of the wearable's weather cache.
type RecordSource interface {
	Latest() (weather.SummaryRecord, bool)
}

// Overlay is what the face draws on top of the clock. Visible is false until the
// first record arrives; the face then shows the time only.
type Overlay struct {
	HighTemp    string
	LowTemp     string
	Icon        Icon
	Visible     bool
	RetrievedAt time.Time
}

func OverlayFrom(src RecordSource) Overlay {
	rec, ok := src.Latest()
	if !ok {
		return Overlay{}
	}
	icon, _ := IconFor(rec.ConditionCode)
	return Overlay{
		HighTemp:    rec.HighTemp,
		LowTemp:     rec.LowTemp,
		Icon:        icon,
		Visible:     true,
		RetrievedAt: rec.RetrievedTime(),
	}
}

// Line renders the overlay as one line of text next to the given clock time.
func (o Overlay) Line(now time.Time) string {
	clock := now.Format("15:04:05")
	if !o.Visible {
		return clock
	}
	if o.Icon == IconNone {
		return fmt.Sprintf("%s  %s %s", clock, o.HighTemp, o.LowTemp)
	}
	return fmt.Sprintf("%s  %s %s  [%s]", clock, o.HighTemp, o.LowTemp, o.Icon)
}
