// Package codec converts between 16-bit register words and typed values.
//
// Multi-word values are assembled in two independent steps: the word order
// decides whether the word sequence is reversed, the byte order decides how
// each word is laid out in the byte buffer. The assembled buffer is always
// interpreted big-endian.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/x448/float16"

	"github.com/tetragramaton/smh-meter/internal/register"
)

var (
	// ErrDecode is returned when words cannot be turned into a value.
	ErrDecode = errors.New("decode failed")
	// ErrEncode is returned when a value cannot be represented by the data type.
	ErrEncode = errors.New("encode failed")
	// ErrUnsupportedType is returned for data types the operation does not handle.
	ErrUnsupportedType = errors.New("unsupported data type")
)

// Endian selects big or little endian layout.
type Endian uint8

const (
	BigEndian Endian = iota
	LittleEndian
)

func (e Endian) String() string {
	if e == LittleEndian {
		return "little"
	}
	return "big"
}

// ParseEndian accepts "big" and "little" (and the *_endian spellings).
func ParseEndian(s string) (Endian, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "big", "big_endian":
		return BigEndian, nil
	case "little", "little_endian":
		return LittleEndian, nil
	default:
		return BigEndian, fmt.Errorf("unknown endianness %q", s)
	}
}

// Order combines the byte order inside a word with the order of words inside
// a multi-word value.
type Order struct {
	Byte Endian
	Word Endian
}

func (o Order) String() string {
	return fmt.Sprintf("byte=%s word=%s", o.Byte, o.Word)
}

// Decode turns length words into a value of type vt. The result is an int64,
// float64, []byte or string depending on vt.
func Decode(words []uint16, length int, dt register.DataType, vt register.ValueType, order Order) (any, error) {
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: %s: no data", ErrDecode, dt)
	}
	if len(words) != length {
		return nil, fmt.Errorf("%w: %s: got %d words, want %d", ErrDecode, dt, len(words), length)
	}
	if w := dt.Words(); w != 0 && w != len(words) {
		return nil, fmt.Errorf("%w: %s needs %d words, got %d", ErrDecode, dt, w, len(words))
	}
	buf := wordsToBytes(words, order)

	var raw any
	switch dt {
	case register.Uint8:
		raw = uint64(buf[1])
	case register.Int8:
		raw = int64(int8(buf[1]))
	case register.Uint16:
		raw = uint64(binary.BigEndian.Uint16(buf))
	case register.Int16:
		raw = int64(int16(binary.BigEndian.Uint16(buf)))
	case register.Uint32:
		raw = uint64(binary.BigEndian.Uint32(buf))
	case register.Int32:
		raw = int64(int32(binary.BigEndian.Uint32(buf)))
	case register.Uint64:
		raw = binary.BigEndian.Uint64(buf)
	case register.Int64:
		raw = int64(binary.BigEndian.Uint64(buf))
	case register.Float16:
		raw = float64(float16.Frombits(binary.BigEndian.Uint16(buf)).Float32())
	case register.Float32:
		raw = float64(math.Float32frombits(binary.BigEndian.Uint32(buf)))
	case register.String:
		raw = strings.TrimRight(string(buf), "\x00 ")
	case register.Bytes, register.Bits:
		raw = buf
	default:
		return nil, fmt.Errorf("%w: %w: %s", ErrDecode, ErrUnsupportedType, dt)
	}

	v, err := cast(raw, buf, vt)
	if err != nil {
		return nil, fmt.Errorf("%w: %s as %s: %w", ErrDecode, dt, vt, err)
	}
	return v, nil
}

func cast(raw any, buf []byte, vt register.ValueType) (any, error) {
	switch vt {
	case register.IntValue:
		switch v := raw.(type) {
		case int64:
			return v, nil
		case uint64:
			if v > math.MaxInt64 {
				return nil, fmt.Errorf("%d overflows int64", v)
			}
			return int64(v), nil
		case float64:
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%v has no integer representation", v)
			}
			if v < -(1<<63) || v >= 1<<63 {
				return nil, fmt.Errorf("%v overflows int64", v)
			}
			return int64(v), nil
		}
	case register.FloatValue:
		switch v := raw.(type) {
		case int64:
			return float64(v), nil
		case uint64:
			return float64(v), nil
		case float64:
			return v, nil
		}
	case register.BytesValue:
		return append([]byte(nil), buf...), nil
	case register.StringValue:
		switch v := raw.(type) {
		case string:
			return v, nil
		case []byte:
			return strings.TrimRight(string(v), "\x00 "), nil
		default:
			return fmt.Sprint(v), nil
		}
	default:
		return nil, fmt.Errorf("unknown value type %d", vt)
	}
	return nil, fmt.Errorf("cannot cast %T", raw)
}

// Encodable reports whether Encode supports dt.
func Encodable(dt register.DataType) bool {
	switch dt {
	case register.Float32, register.Int32, register.Uint32, register.Int16:
		return true
	default:
		return false
	}
}

// Encode turns value into register words. Integer types round to the nearest
// integer and reject values outside their range.
func Encode(value float64, dt register.DataType, order Order) ([]uint16, error) {
	if !Encodable(dt) {
		return nil, fmt.Errorf("%w: cannot encode %s", ErrUnsupportedType, dt)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		if dt != register.Float32 {
			return nil, fmt.Errorf("%w: %v as %s", ErrEncode, value, dt)
		}
	}
	var buf []byte
	switch dt {
	case register.Float32:
		if !math.IsInf(value, 0) && !math.IsNaN(value) && math.Abs(value) > math.MaxFloat32 {
			return nil, fmt.Errorf("%w: %v overflows %s", ErrEncode, value, dt)
		}
		buf = binary.BigEndian.AppendUint32(nil, math.Float32bits(float32(value)))
	case register.Int32:
		r := math.Round(value)
		if r < math.MinInt32 || r > math.MaxInt32 {
			return nil, fmt.Errorf("%w: %v overflows %s", ErrEncode, value, dt)
		}
		buf = binary.BigEndian.AppendUint32(nil, uint32(int32(r)))
	case register.Uint32:
		r := math.Round(value)
		if r < 0 || r > math.MaxUint32 {
			return nil, fmt.Errorf("%w: %v overflows %s", ErrEncode, value, dt)
		}
		buf = binary.BigEndian.AppendUint32(nil, uint32(r))
	case register.Int16:
		r := math.Round(value)
		if r < math.MinInt16 || r > math.MaxInt16 {
			return nil, fmt.Errorf("%w: %v overflows %s", ErrEncode, value, dt)
		}
		buf = binary.BigEndian.AppendUint16(nil, uint16(int16(r)))
	}
	return bytesToWords(buf, order), nil
}

func wordsToBytes(words []uint16, order Order) []byte {
	ordered := words
	if order.Word == LittleEndian {
		ordered = reversed(words)
	}
	buf := make([]byte, 0, len(ordered)*2)
	for _, w := range ordered {
		if order.Byte == LittleEndian {
			buf = binary.LittleEndian.AppendUint16(buf, w)
		} else {
			buf = binary.BigEndian.AppendUint16(buf, w)
		}
	}
	return buf
}

func bytesToWords(buf []byte, order Order) []uint16 {
	words := make([]uint16, len(buf)/2)
	for i := range words {
		if order.Byte == LittleEndian {
			words[i] = binary.LittleEndian.Uint16(buf[2*i:])
		} else {
			words[i] = binary.BigEndian.Uint16(buf[2*i:])
		}
	}
	if order.Word == LittleEndian {
		return reversed(words)
	}
	return words
}

func reversed(words []uint16) []uint16 {
	out := make([]uint16, len(words))
	for i, w := range words {
		out[len(words)-1-i] = w
	}
	return out
}

// WordsFromBytes converts a big-endian protocol payload into register words.
func WordsFromBytes(payload []byte) ([]uint16, error) {
	if len(payload)%2 != 0 {
		return nil, fmt.Errorf("%w: odd payload length %d", ErrDecode, len(payload))
	}
	words := make([]uint16, len(payload)/2)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(payload[2*i:])
	}
	return words, nil
}

// BytesFromWords converts register words into a big-endian protocol payload.
func BytesFromWords(words []uint16) []byte {
	buf := make([]byte, 0, len(words)*2)
	for _, w := range words {
		buf = binary.BigEndian.AppendUint16(buf, w)
	}
	return buf
}
