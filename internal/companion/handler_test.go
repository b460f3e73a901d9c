package companion

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

var fixedNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

type recordingPutter struct {
	mu   sync.Mutex
	reqs []transport.PutDataRequest
	err  error
}

func (p *recordingPutter) PutDataItem(_ context.Context, req transport.PutDataRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reqs = append(p.reqs, req)
	return p.err
}

type fakeCursor struct {
	rows    []weather.TodayRow
	pos     int
	scanErr error
	closed  int
}

func (c *fakeCursor) Next() bool {
	if c.pos >= len(c.rows) {
		return false
	}
	c.pos++
	return true
}

func (c *fakeCursor) Scan(row *weather.TodayRow) error {
	if c.scanErr != nil {
		return c.scanErr
	}
	*row = c.rows[c.pos-1]
	return nil
}

func (c *fakeCursor) Close() error {
	c.closed++
	return nil
}

type fakeQuerier struct {
	cursor  *fakeCursor
	err     error
	queries int
	lastLoc weather.Location
	lastNow time.Time
}

func (q *fakeQuerier) QueryToday(_ context.Context, loc weather.Location, now time.Time) (weather.RowCursor, error) {
	q.queries++
	q.lastLoc = loc
	q.lastNow = now
	if q.err != nil {
		return nil, q.err
	}
	return q.cursor, nil
}

var london = weather.Location{City: "London", Country: "UK"}

func newTestHandler(q *fakeQuerier, p *recordingPutter, units weather.Units) *Handler {
	h := NewHandler(p, q, weather.Formatter{}, Preferences{Location: london, Units: units})
	h.now = func() time.Time { return fixedNow }
	return h
}

func TestRequestPushesExactlyOneFormattedRecord(t *testing.T) {
	q := &fakeQuerier{cursor: &fakeCursor{rows: []weather.TodayRow{{MaxTemp: 75.4, MinTemp: 58.1, ConditionID: 800}}}}
	p := &recordingPutter{}
	h := newTestHandler(q, p, weather.UnitsMetric)

	h.HandleRequest(context.Background(), weather.RequestPath)

	require.Len(t, p.reqs, 1)
	req := p.reqs[0]
	assert.Equal(t, weather.DataPath, req.Path)
	assert.True(t, req.Urgent)

	rec, err := weather.DecodeRecord(req.Data)
	require.NoError(t, err)
	assert.Equal(t, weather.SummaryRecord{
		HighTemp:      "75°",
		LowTemp:       "58°",
		ConditionCode: 800,
		RetrievedAt:   fixedNow.UnixMilli(),
	}, rec)

	assert.Equal(t, 1, q.queries)
	assert.Equal(t, london, q.lastLoc)
	assert.Equal(t, fixedNow, q.lastNow)
	assert.Equal(t, 1, q.cursor.closed)
}

func TestImperialPreferenceConvertsTemperatures(t *testing.T) {
	q := &fakeQuerier{cursor: &fakeCursor{rows: []weather.TodayRow{{MaxTemp: 24, MinTemp: -40, ConditionID: 501}}}}
	p := &recordingPutter{}
	h := newTestHandler(q, p, weather.UnitsImperial)

	rec, err := h.PushToday(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "75°", rec.HighTemp)
	assert.Equal(t, "-40°", rec.LowTemp)
}

func TestEmptyStoreSendsNothing(t *testing.T) {
	q := &fakeQuerier{cursor: &fakeCursor{}}
	p := &recordingPutter{}
	h := newTestHandler(q, p, weather.UnitsMetric)

	h.HandleRequest(context.Background(), weather.RequestPath)
	assert.Empty(t, p.reqs)
	assert.Equal(t, 1, q.cursor.closed)

	_, err := h.PushToday(context.Background())
	require.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, 2, q.cursor.closed)
}

func TestOtherPathsAreIgnored(t *testing.T) {
	q := &fakeQuerier{cursor: &fakeCursor{rows: []weather.TodayRow{{MaxTemp: 1, MinTemp: 0, ConditionID: 800}}}}
	p := &recordingPutter{}
	h := newTestHandler(q, p, weather.UnitsMetric)

	for _, path := range []string{weather.DataPath, weather.RequestPath + "/", "/WEATHER-DATA-REQUEST", ""} {
		h.OnMessageReceived(transport.MessageEvent{Source: "watch", Path: path})
	}
	assert.Zero(t, q.queries)
	assert.Empty(t, p.reqs)
}

func TestQueryAndScanFailuresSendNothing(t *testing.T) {
	failing := &fakeQuerier{err: errors.New("disk gone")}
	p := &recordingPutter{}
	newTestHandler(failing, p, weather.UnitsMetric).HandleRequest(context.Background(), weather.RequestPath)
	assert.Empty(t, p.reqs)

	badRow := &fakeQuerier{cursor: &fakeCursor{rows: []weather.TodayRow{{}}, scanErr: errors.New("bad column")}}
	_, err := newTestHandler(badRow, p, weather.UnitsMetric).PushToday(context.Background())
	require.Error(t, err)
	assert.Empty(t, p.reqs)
	assert.Equal(t, 1, badRow.cursor.closed)
}

func TestPutFailureIsAbsorbed(t *testing.T) {
	q := &fakeQuerier{cursor: &fakeCursor{rows: []weather.TodayRow{{MaxTemp: 20, MinTemp: 10, ConditionID: 800}}}}
	p := &recordingPutter{err: transport.ErrNotConnected}
	h := newTestHandler(q, p, weather.UnitsMetric)

	require.NotPanics(t, func() { h.HandleRequest(context.Background(), weather.RequestPath) })
	require.Len(t, p.reqs, 1)

	q.cursor.pos = 0
	_, err := h.PushToday(context.Background())
	require.ErrorIs(t, err, transport.ErrNotConnected)
	require.Len(t, p.reqs, 2)
}
