package datamap

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestDecodedValuesKeepTheirTypes(t *testing.T) {
	m := New().
		PutString("highTemp", "75°").
		PutInt("weatherImage", 800).
		PutLong("timeRetrieved", 1700000000123)

	b, err := m.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(b)
	require.NoError(t, err)
	require.Equal(t, []string{"highTemp", "timeRetrieved", "weatherImage"}, got.Keys())

	s, err := got.GetString("highTemp")
	require.NoError(t, err)
	require.Equal(t, "75°", s)

	id, err := got.GetInt("weatherImage")
	require.NoError(t, err)
	require.Equal(t, 800, id)

	ts, err := got.GetLong("timeRetrieved")
	require.NoError(t, err)
	require.Equal(t, int64(1700000000123), ts)
}

func TestMarshalIsDeterministic(t *testing.T) {
	a := New().PutString("a", "1").PutString("b", "2").PutInt("c", 3)
	b := New().PutInt("c", 3).PutString("b", "2").PutString("a", "1")

	ab, err := a.Marshal()
	require.NoError(t, err)
	bb, err := b.Marshal()
	require.NoError(t, err)
	require.Equal(t, ab, bb)
}

func TestMarshalRejectsIntegersBeyondFloatPrecision(t *testing.T) {
	_, err := New().PutLong("k", 1<<53+1).Marshal()
	require.ErrorIs(t, err, ErrOutOfRange)

	_, err = New().PutLong("k", -(1<<53 + 1)).Marshal()
	require.ErrorIs(t, err, ErrOutOfRange)

	data, err := New().PutLong("k", 1<<53).Marshal()
	require.NoError(t, err)
	m, err := Unmarshal(data)
	require.NoError(t, err)
	n, err := m.GetLong("k")
	require.NoError(t, err)
	require.Equal(t, int64(1<<53), n)
}

func TestGettersRejectWrongTypes(t *testing.T) {
	m := New().PutString("s", "x").PutInt("n", 1)

	_, err := m.GetInt("s")
	require.ErrorIs(t, err, ErrWrongType)

	_, err = m.GetString("n")
	require.ErrorIs(t, err, ErrWrongType)

	_, err = m.GetString("absent")
	require.ErrorIs(t, err, ErrMissingKey)
}

func TestFractionalNumberIsNotAnInteger(t *testing.T) {
	raw, err := proto.Marshal(&structpb.Struct{Fields: map[string]*structpb.Value{
		"weatherImage": structpb.NewNumberValue(800.5),
	}})
	require.NoError(t, err)

	m, err := Unmarshal(raw)
	require.NoError(t, err)

	_, err = m.GetInt("weatherImage")
	require.ErrorIs(t, err, ErrWrongType)
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	_, err := Unmarshal([]byte{0xff, 0xff, 0xff})
	require.Error(t, err)
}

func TestUnmarshalRejectsNestedValues(t *testing.T) {
	raw, err := proto.Marshal(&structpb.Struct{Fields: map[string]*structpb.Value{
		"flag": structpb.NewBoolValue(true),
	}})
	require.NoError(t, err)

	_, err = Unmarshal(raw)
	require.ErrorIs(t, err, ErrWrongType)
}
