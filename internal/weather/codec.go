package weather

import (
	"errors"
	"fmt"

	"github.com/i474232898/sunshine-wear/internal/datamap"
)

// Logical paths shared by both endpoints. They must match bit-for-bit.
const (
	RequestPath = "/weather-data-request"
	DataPath    = "/weather-data"
)

// Payload keys of a /weather-data item.
const (
	HighTempKey      = "highTemp"
	LowTempKey       = "lowTemp"
	WeatherImageKey  = "weatherImage"
	TimeRetrievedKey = "timeRetrieved"
)

// ErrMalformedPayload is returned when a pushed payload does not decode into a record.
var ErrMalformedPayload = errors.New("malformed weather payload")

// EncodeRecord serializes a record into a /weather-data payload.
func EncodeRecord(rec SummaryRecord) ([]byte, error) {
	m := datamap.New().
		PutString(HighTempKey, rec.HighTemp).
		PutString(LowTempKey, rec.LowTemp).
		PutInt(WeatherImageKey, rec.ConditionCode).
		PutLong(TimeRetrievedKey, rec.RetrievedAt)
	return m.Marshal()
}

// DecodeRecord parses a /weather-data payload. All four keys must be present and
// correctly typed; anything else is ErrMalformedPayload.
func DecodeRecord(data []byte) (SummaryRecord, error) {
	m, err := datamap.Unmarshal(data)
	if err != nil {
		return SummaryRecord{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var rec SummaryRecord
	if rec.HighTemp, err = m.GetString(HighTempKey); err != nil {
		return SummaryRecord{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if rec.LowTemp, err = m.GetString(LowTempKey); err != nil {
		return SummaryRecord{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if rec.ConditionCode, err = m.GetInt(WeatherImageKey); err != nil {
		return SummaryRecord{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if rec.RetrievedAt, err = m.GetLong(TimeRetrievedKey); err != nil {
		return SummaryRecord{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return rec, nil
}
