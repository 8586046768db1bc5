package codec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetragramaton/smh-meter/internal/register"
)

var orders = []Order{
	{Byte: BigEndian, Word: BigEndian},
	{Byte: BigEndian, Word: LittleEndian},
	{Byte: LittleEndian, Word: BigEndian},
	{Byte: LittleEndian, Word: LittleEndian},
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name   string
		dt     register.DataType
		vt     register.ValueType
		values []float64
	}{
		{"float32", register.Float32, register.FloatValue, []float64{0, -1.5, 230.5, math.MaxFloat32, -math.MaxFloat32, 0.25}},
		{"int32", register.Int32, register.IntValue, []float64{0, -1, math.MaxInt32, math.MinInt32, 2305}},
		{"uint32", register.Uint32, register.IntValue, []float64{0, 1, math.MaxUint32, 65536}},
		{"int16", register.Int16, register.IntValue, []float64{0, -1, math.MaxInt16, math.MinInt16, 500}},
	}
	for _, tc := range cases {
		for _, order := range orders {
			for _, v := range tc.values {
				words, err := Encode(v, tc.dt, order)
				require.NoError(t, err, "%s %v %s", tc.name, v, order)
				require.Len(t, words, tc.dt.Words())

				got, err := Decode(words, len(words), tc.dt, tc.vt, order)
				require.NoError(t, err)
				if tc.vt == register.IntValue {
					require.Equal(t, int64(v), got, "%s %v %s", tc.name, v, order)
				} else {
					require.Equal(t, v, got, "%s %v %s", tc.name, v, order)
				}

				again, err := Encode(toFloat(got), tc.dt, order)
				require.NoError(t, err)
				require.Equal(t, words, again)
			}
		}
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return math.NaN()
}

func TestDecodeByteAndWordOrder(t *testing.T) {
	words := []uint16{0x1234, 0x5678}

	v, err := Decode(words, 2, register.Uint32, register.IntValue, Order{})
	require.NoError(t, err)
	require.Equal(t, int64(0x12345678), v)

	v, err = Decode(words, 2, register.Uint32, register.IntValue, Order{Word: LittleEndian})
	require.NoError(t, err)
	require.Equal(t, int64(0x56781234), v)

	v, err = Decode(words, 2, register.Uint32, register.IntValue, Order{Byte: LittleEndian})
	require.NoError(t, err)
	require.Equal(t, int64(0x34127856), v)

	v, err = Decode(words, 2, register.Uint32, register.IntValue, Order{Byte: LittleEndian, Word: LittleEndian})
	require.NoError(t, err)
	require.Equal(t, int64(0x78563412), v)
}

func TestWordReversalIsSelfConsistent(t *testing.T) {
	words := []uint16{0x4366, 0x8000}
	plain, err := Decode(words, 2, register.Float32, register.FloatValue, Order{})
	require.NoError(t, err)
	require.Equal(t, 230.5, plain)

	twice, err := Decode(reversed(reversed(words)), 2, register.Float32, register.FloatValue, Order{})
	require.NoError(t, err)
	require.Equal(t, plain, twice)

	swapped, err := Decode(reversed(words), 2, register.Float32, register.FloatValue, Order{Word: LittleEndian})
	require.NoError(t, err)
	require.Equal(t, plain, swapped)
}

func TestDecodeSignedAndNarrowTypes(t *testing.T) {
	v, err := Decode([]uint16{0xFFFE}, 1, register.Int16, register.IntValue, Order{})
	require.NoError(t, err)
	require.Equal(t, int64(-2), v)

	v, err = Decode([]uint16{0x01FF}, 1, register.Int8, register.IntValue, Order{})
	require.NoError(t, err)
	require.Equal(t, int64(-1), v)

	v, err = Decode([]uint16{0x01FF}, 1, register.Uint8, register.IntValue, Order{})
	require.NoError(t, err)
	require.Equal(t, int64(255), v)

	v, err = Decode([]uint16{0xFFFF, 0xFFFF, 0xFFFF, 0xFFFE}, 4, register.Int64, register.IntValue, Order{})
	require.NoError(t, err)
	require.Equal(t, int64(-2), v)

	v, err = Decode([]uint16{0x3C00}, 1, register.Float16, register.FloatValue, Order{})
	require.NoError(t, err)
	require.Equal(t, 1.0, v)

	v, err = Decode([]uint16{0xC100}, 1, register.Float16, register.FloatValue, Order{})
	require.NoError(t, err)
	require.Equal(t, -2.5, v)

	v, err = Decode([]uint16{0x0001}, 1, register.Float16, register.FloatValue, Order{})
	require.NoError(t, err)
	require.Equal(t, math.Ldexp(1, -24), v)
}

func TestDecodeCastsIntoValueType(t *testing.T) {
	v, err := Decode([]uint16{0x4366, 0x8000}, 2, register.Float32, register.IntValue, Order{})
	require.NoError(t, err)
	require.Equal(t, int64(230), v)

	v, err = Decode([]uint16{0x0064}, 1, register.Int16, register.FloatValue, Order{})
	require.NoError(t, err)
	require.Equal(t, 100.0, v)

	v, err = Decode([]uint16{0x4142, 0x4300}, 2, register.String, register.StringValue, Order{})
	require.NoError(t, err)
	require.Equal(t, "ABC", v)

	v, err = Decode([]uint16{0x0102, 0x0304}, 2, register.Bytes, register.BytesValue, Order{Word: LittleEndian})
	require.NoError(t, err)
	require.Equal(t, []byte{0x03, 0x04, 0x01, 0x02}, v)
}

func TestDecodeFailures(t *testing.T) {
	_, err := Decode(nil, 2, register.Int32, register.IntValue, Order{})
	require.ErrorIs(t, err, ErrDecode)

	_, err = Decode([]uint16{1}, 2, register.Int32, register.IntValue, Order{})
	require.ErrorIs(t, err, ErrDecode)

	_, err = Decode([]uint16{1, 2, 3}, 3, register.Int32, register.IntValue, Order{})
	require.ErrorIs(t, err, ErrDecode)

	_, err = Decode([]uint16{1}, 1, register.DataType(99), register.IntValue, Order{})
	require.ErrorIs(t, err, ErrDecode)
	require.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Decode([]uint16{0x7FC0, 0x0000}, 2, register.Float32, register.IntValue, Order{})
	require.ErrorIs(t, err, ErrDecode)

	// values outside int64 must not wrap
	_, err = Decode([]uint16{0xFFFF, 0xFFFF, 0xFFFF, 0xFFFF}, 4, register.Uint64, register.IntValue, Order{})
	require.ErrorIs(t, err, ErrDecode)
	_, err = Decode([]uint16{0x7F7F, 0xFFFF}, 2, register.Float32, register.IntValue, Order{})
	require.ErrorIs(t, err, ErrDecode)
	_, err = Decode([]uint16{0xFF7F, 0xFFFF}, 2, register.Float32, register.IntValue, Order{})
	require.ErrorIs(t, err, ErrDecode)

	v, err := Decode([]uint16{0x7FFF, 0xFFFF, 0xFFFF, 0xFFFF}, 4, register.Uint64, register.IntValue, Order{})
	require.NoError(t, err)
	require.Equal(t, int64(math.MaxInt64), v)
	v, err = Decode([]uint16{0xFFFF, 0xFFFF, 0xFFFF, 0xFFFF}, 4, register.Uint64, register.FloatValue, Order{})
	require.NoError(t, err)
	require.Equal(t, float64(math.MaxUint64), v)
}

func TestEncodeFailures(t *testing.T) {
	for _, dt := range []register.DataType{register.Uint16, register.Int64, register.String, register.Float16} {
		_, err := Encode(1, dt, Order{})
		require.ErrorIs(t, err, ErrUnsupportedType, dt.String())
	}

	_, err := Encode(40000, register.Int16, Order{})
	require.ErrorIs(t, err, ErrEncode)
	_, err = Encode(-1, register.Uint32, Order{})
	require.ErrorIs(t, err, ErrEncode)
	_, err = Encode(math.NaN(), register.Int32, Order{})
	require.ErrorIs(t, err, ErrEncode)
}

func TestEncodeRoundsIntegers(t *testing.T) {
	words, err := Encode(2304.9999999999995, register.Int32, Order{})
	require.NoError(t, err)
	require.Equal(t, []uint16{0x0000, 0x0901}, words)
}

func TestWordsFromBytes(t *testing.T) {
	words, err := WordsFromBytes([]byte{0x12, 0x34, 0xAB, 0xCD})
	require.NoError(t, err)
	require.Equal(t, []uint16{0x1234, 0xABCD}, words)
	require.Equal(t, []byte{0x12, 0x34, 0xAB, 0xCD}, BytesFromWords(words))

	_, err = WordsFromBytes([]byte{0x01})
	require.ErrorIs(t, err, ErrDecode)
}
