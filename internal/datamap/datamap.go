package datamap

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	// ErrMissingKey is returned by getters when the key is absent.
	ErrMissingKey = errors.New("datamap: missing key")
	// ErrWrongType is returned by getters when the stored value has a different type.
	ErrWrongType = errors.New("datamap: wrong value type")
	// ErrOutOfRange is returned by Marshal for integers a float64 cannot hold exactly.
	ErrOutOfRange = errors.New("datamap: integer out of range")
)

// maxExactInt is the largest magnitude a protobuf number carries without rounding.
const maxExactInt = 1 << 53

// DataMap is a flat string-keyed bag of scalar values, the payload unit of a data item.
// Only strings and integers are stored; integers travel as protobuf numbers on the wire.
type DataMap struct {
	values map[string]any
}

// New returns an empty DataMap.
func New() *DataMap {
	return &DataMap{values: make(map[string]any)}
}

func (m *DataMap) PutString(key, value string) *DataMap {
	m.values[key] = value
	return m
}

func (m *DataMap) PutInt(key string, value int) *DataMap {
	m.values[key] = int64(value)
	return m
}

func (m *DataMap) PutLong(key string, value int64) *DataMap {
	m.values[key] = value
	return m
}

// Keys returns the keys in sorted order.
func (m *DataMap) Keys() []string {
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *DataMap) Len() int { return len(m.values) }

func (m *DataMap) GetString(key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMissingKey, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q is %T, want string", ErrWrongType, key, v)
	}
	return s, nil
}

func (m *DataMap) GetLong(key string) (int64, error) {
	v, ok := m.values[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMissingKey, key)
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case float64:
		// Decoded numbers arrive as float64; only exact integers are accepted.
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) || math.Abs(n) > maxExactInt {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrWrongType, key)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("%w: %q is %T, want integer", ErrWrongType, key, v)
	}
}

func (m *DataMap) GetInt(key string) (int, error) {
	n, err := m.GetLong(key)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return 0, fmt.Errorf("%w: %q overflows int", ErrWrongType, key)
	}
	return int(n), nil
}

// Marshal encodes the map as a google.protobuf.Struct. The encoding is deterministic,
// so equal maps produce byte-identical payloads.
func (m *DataMap) Marshal() ([]byte, error) {
	fields := make(map[string]*structpb.Value, len(m.values))
	for k, v := range m.values {
		switch t := v.(type) {
		case string:
			fields[k] = structpb.NewStringValue(t)
		case int64:
			if t > maxExactInt || t < -maxExactInt {
				return nil, fmt.Errorf("%w: %q = %d", ErrOutOfRange, k, t)
			}
			fields[k] = structpb.NewNumberValue(float64(t))
		case float64:
			fields[k] = structpb.NewNumberValue(t)
		default:
			return nil, fmt.Errorf("datamap: unsupported value %T for key %q", v, k)
		}
	}
	return proto.MarshalOptions{Deterministic: true}.Marshal(&structpb.Struct{Fields: fields})
}

// Unmarshal decodes a payload produced by Marshal.
func Unmarshal(data []byte) (*DataMap, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("datamap: decode: %w", err)
	}
	m := New()
	for k, v := range s.GetFields() {
		switch kind := v.GetKind().(type) {
		case *structpb.Value_StringValue:
			m.values[k] = kind.StringValue
		case *structpb.Value_NumberValue:
			m.values[k] = kind.NumberValue
		default:
			return nil, fmt.Errorf("%w: %q has unsupported kind %T", ErrWrongType, k, kind)
		}
	}
	return m, nil
}
