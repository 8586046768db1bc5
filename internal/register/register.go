package register

import (
	"fmt"
	"strings"
)

// Bank selects one of the two register address spaces of a device.
type Bank uint8

const (
	Input Bank = iota + 1
	Holding
)

func (b Bank) String() string {
	switch b {
	case Input:
		return "input"
	case Holding:
		return "holding"
	default:
		return fmt.Sprintf("bank(%d)", uint8(b))
	}
}

// ParseBank accepts the names used in configuration files.
func ParseBank(s string) (Bank, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "input", "input_register", "input_registers":
		return Input, nil
	case "holding", "holding_register", "holding_registers":
		return Holding, nil
	default:
		return 0, fmt.Errorf("unknown register bank %q", s)
	}
}

// DataType is the wire encoding of a register value.
type DataType uint8

const (
	Uint8 DataType = iota + 1
	Uint16
	Uint32
	Uint64
	Int8
	Int16
	Int32
	Int64
	Float16
	Float32
	String
	Bits
	Bytes
)

var dataTypeNames = map[DataType]string{
	Uint8:   "uint8",
	Uint16:  "uint16",
	Uint32:  "uint32",
	Uint64:  "uint64",
	Int8:    "int8",
	Int16:   "int16",
	Int32:   "int32",
	Int64:   "int64",
	Float16: "float16",
	Float32: "float32",
	String:  "string",
	Bits:    "bits",
	Bytes:   "bytes",
}

func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("datatype(%d)", uint8(t))
}

// Words returns the fixed number of 16-bit words the type occupies, or 0 for
// variable width types (strings, byte and bit blocks).
func (t DataType) Words() int {
	switch t {
	case Uint8, Int8, Uint16, Int16, Float16:
		return 1
	case Uint32, Int32, Float32:
		return 2
	case Uint64, Int64:
		return 4
	default:
		return 0
	}
}

// ValueType is the Go type a decoded register is cast into.
type ValueType uint8

const (
	// IntValue decodes into int64.
	IntValue ValueType = iota + 1
	// FloatValue decodes into float64.
	FloatValue
	// BytesValue decodes into []byte.
	BytesValue
	// StringValue decodes into string.
	StringValue
)

func (v ValueType) String() string {
	switch v {
	case IntValue:
		return "int"
	case FloatValue:
		return "float"
	case BytesValue:
		return "bytes"
	case StringValue:
		return "string"
	default:
		return fmt.Sprintf("valuetype(%d)", uint8(v))
	}
}

// Scale converts raw register values into engineering units:
// scaled = raw * Factor * 10^-Decimals.
type Scale struct {
	Factor   float64
	Decimals int32
}

// Factor returns a scale without decimal shift.
func Factor(f float64) *Scale {
	return &Scale{Factor: f}
}

// Shifted returns a scale with a decimal shift.
func Shifted(f float64, decimals int32) *Scale {
	return &Scale{Factor: f, Decimals: decimals}
}

// Descriptor describes one named register value. A nil Scale means the value
// cannot be scaled. BatchGroup 0 keeps the descriptor out of bulk reads.
type Descriptor struct {
	Address    uint16
	Length     uint16
	Bank       Bank
	DataType   DataType
	ValueType  ValueType
	Label      string
	Unit       string
	BatchGroup int
	Scale      *Scale
}

// End is the first address after the descriptor.
func (d Descriptor) End() int {
	return int(d.Address) + int(d.Length)
}

// Overlaps reports whether both descriptors share at least one word.
func (d Descriptor) Overlaps(other Descriptor) bool {
	return int(d.Address) < other.End() && int(other.Address) < d.End()
}

// Entry binds a symbolic key to its descriptor.
type Entry struct {
	Key string
	Descriptor
}
