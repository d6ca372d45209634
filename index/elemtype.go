package index

import (
	"fmt"
	"math"
	"strings"
)

// ElementType is the storage type of vector components.
type ElementType uint8

const (
	Float32 ElementType = iota + 1
	Float16
	BFloat16
	Int8
	Binary
)

// ElementTypes lists every supported element type in declaration order.
var ElementTypes = []ElementType{Float32, Float16, BFloat16, Int8, Binary}

func (t ElementType) String() string {
	switch t {
	case Float32:
		return "fp32"
	case Float16:
		return "fp16"
	case BFloat16:
		return "bf16"
	case Int8:
		return "int8"
	case Binary:
		return "binary"
	default:
		return fmt.Sprintf("ElementType(%d)", uint8(t))
	}
}

// Valid reports whether t is a known element type.
func (t ElementType) Valid() bool {
	return t >= Float32 && t <= Binary
}

// ParseElementType parses the short names returned by String.
// "float32", "float16" and "bfloat16" are accepted as well.
func ParseElementType(s string) (ElementType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fp32", "float32", "float":
		return Float32, nil
	case "fp16", "float16", "half":
		return Float16, nil
	case "bf16", "bfloat16":
		return BFloat16, nil
	case "int8", "i8":
		return Int8, nil
	case "binary", "bin":
		return Binary, nil
	default:
		return 0, fmt.Errorf("unknown element type: %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t ElementType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid element type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ElementType) UnmarshalText(b []byte) error {
	v, err := ParseElementType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// bfloat16 keeps the upper 16 bits of an IEEE-754 binary32 value.
func bf16FromFloat32(f float32) uint16 {
	bits := math.Float32bits(f)
	if f != f { // NaN: keep it quiet and non-zero after truncation
		return uint16(bits>>16) | 0x40
	}
	// round to nearest even
	bits += 0x7fff + (bits>>16)&1
	return uint16(bits >> 16)
}

func bf16ToFloat32(b uint16) float32 {
	return math.Float32frombits(uint32(b) << 16)
}
