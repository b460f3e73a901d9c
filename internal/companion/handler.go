// Package companion answers the wearable's weather requests from the phone's store.
package companion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/i474232898/sunshine-wear/internal/transport"
	"github.com/i474232898/sunshine-wear/internal/weather"
)

// ErrNoData is returned by PushToday when the store has no row for today.
var ErrNoData = errors.New("companion: no weather for today")

// Preferences are the user's settings consulted on every push.
type Preferences struct {
	Location weather.Location
	Units    weather.Units
}

// Handler reads today's row and pushes it to the data layer. It is the
// MessageListener registered for /weather-data-request.
type Handler struct {
	putter    transport.DataPutter
	store     weather.TodayQuerier
	formatter weather.TemperatureFormatter
	prefs     Preferences
	now       func() time.Time
}

func NewHandler(
	putter transport.DataPutter,
	store weather.TodayQuerier,
	formatter weather.TemperatureFormatter,
	prefs Preferences,
) *Handler {
	return &Handler{
		putter:    putter,
		store:     store,
		formatter: formatter,
		prefs:     prefs,
		now:       time.Now,
	}
}

func (h *Handler) OnMessageReceived(ev transport.MessageEvent) {
	h.HandleRequest(context.Background(), ev.Path)
}

// HandleRequest pushes today's summary if path is the request path. Failures are
// logged and dropped; the wearable keeps whatever it had.
func (h *Handler) HandleRequest(ctx context.Context, path string) {
	if path != weather.RequestPath {
		glog.V(2).Infof("companion: ignoring message on %q", path)
		return
	}

	rec, err := h.PushToday(ctx)
	switch {
	case errors.Is(err, ErrNoData):
		glog.Infof("companion: no weather for %s today, nothing sent", h.prefs.Location.Key())
	case err != nil:
		glog.Warningf("companion: push failed: %v", err)
	default:
		glog.V(2).Infof("companion: pushed %s/%s condition %d", rec.HighTemp, rec.LowTemp, rec.ConditionCode)
	}
}

// PushToday builds the summary for today and writes it once as an urgent data item.
func (h *Handler) PushToday(ctx context.Context) (weather.SummaryRecord, error) {
	now := h.now()
	row, err := h.today(ctx, h.prefs.Location, now)
	if err != nil {
		return weather.SummaryRecord{}, err
	}

	rec := weather.SummaryRecord{
		HighTemp:      h.formatter.Format(row.MaxTemp, h.prefs.Units),
		LowTemp:       h.formatter.Format(row.MinTemp, h.prefs.Units),
		ConditionCode: row.ConditionID,
		RetrievedAt:   now.UnixMilli(),
	}
	data, err := weather.EncodeRecord(rec)
	if err != nil {
		return weather.SummaryRecord{}, fmt.Errorf("companion: encode: %w", err)
	}

	req := transport.PutDataRequest{Path: weather.DataPath, Data: data, Urgent: true}
	if err := h.putter.PutDataItem(ctx, req); err != nil {
		return rec, fmt.Errorf("companion: put %s: %w", weather.DataPath, err)
	}
	return rec, nil
}

// today reads the first row of the today query. The cursor is closed on every path.
func (h *Handler) today(ctx context.Context, loc weather.Location, now time.Time) (weather.TodayRow, error) {
	var row weather.TodayRow

	cur, err := h.store.QueryToday(ctx, loc, now)
	if err != nil {
		return row, fmt.Errorf("companion: query today: %w", err)
	}
	defer func() {
		if err := cur.Close(); err != nil {
			glog.Warningf("companion: close cursor: %v", err)
		}
	}()

	if !cur.Next() {
		return row, ErrNoData
	}
	if err := cur.Scan(&row); err != nil {
		return row, fmt.Errorf("companion: scan today: %w", err)
	}
	return row, nil
}
