package fk

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/x448/float16"
)

// ElemType is the storage type of one channel of one pixel.
type ElemType uint8

const (
	// Uint8 is an unsigned 8-bit channel.
	Uint8 ElemType = iota

	// Uint16 is an unsigned 16-bit channel.
	Uint16

	// Int16 is a signed 16-bit channel.
	Int16

	// Int32 is a signed 32-bit channel.
	Int32

	// Float16 is an IEEE 754 half precision channel.
	Float16

	// Float32 is an IEEE 754 single precision channel.
	Float32

	// Float64 is an IEEE 754 double precision channel.
	Float64

	elemTypeCount
)

type elemInfo struct {
	size    int
	integer bool
	min     float64
	max     float64
	name    string
}

var elemInfoTable = [elemTypeCount]elemInfo{
	Uint8:   {size: 1, integer: true, min: 0, max: math.MaxUint8, name: "u8"},
	Uint16:  {size: 2, integer: true, min: 0, max: math.MaxUint16, name: "u16"},
	Int16:   {size: 2, integer: true, min: math.MinInt16, max: math.MaxInt16, name: "s16"},
	Int32:   {size: 4, integer: true, min: math.MinInt32, max: math.MaxInt32, name: "s32"},
	Float16: {size: 2, min: -65504, max: 65504, name: "f16"},
	Float32: {size: 4, min: -math.MaxFloat32, max: math.MaxFloat32, name: "f32"},
	Float64: {size: 8, min: -math.MaxFloat64, max: math.MaxFloat64, name: "f64"},
}

func (t ElemType) info() elemInfo {
	if t >= elemTypeCount {
		return elemInfo{name: "invalid"}
	}
	return elemInfoTable[t]
}

// IsValid reports whether t is a known element type.
func (t ElemType) IsValid() bool { return t < elemTypeCount }

// Size returns the storage size of one channel in bytes.
func (t ElemType) Size() int { return t.info().size }

// IsInteger reports whether t stores integers.
func (t ElemType) IsInteger() bool { return t.info().integer }

// Range returns the smallest and largest finite values of t.
func (t ElemType) Range() (lo, hi float64) {
	info := t.info()
	return info.min, info.max
}

func (t ElemType) String() string { return t.info().name }

// Narrow rounds v to the nearest value representable by t.
//
// Integer types round half to even and saturate to their range; NaN becomes
// zero. Float32 and Float16 round to nearest, ties to even, directly from v.
// Every stage narrows its result to its output type, which makes a fused
// chain bit-identical to running its stages as separate passes.
func (t ElemType) Narrow(v float64) float64 {
	switch t {
	case Float64:
		return v
	case Float32:
		return float64(float32(v))
	case Float16:
		return float64(toHalf(v).Float32())
	}
	if math.IsNaN(v) {
		return 0
	}
	info := t.info()
	v = math.RoundToEven(v)
	if v < info.min {
		return info.min
	}
	if v > info.max {
		return info.max
	}
	return v
}

// toHalf rounds v to the nearest half precision value, ties to even.
// The float32 step rounds to odd, so the final rounding sees every bit of v.
func toHalf(v float64) float16.Float16 {
	f := float32(v)
	if d := float64(f); d != v && !math.IsNaN(v) && !math.IsInf(d, 0) && math.Float32bits(f)&1 == 0 {
		f = math.Nextafter32(f, float32(math.Copysign(math.Inf(1), v-d)))
	}
	return float16.Fromfloat32(f)
}

// load decodes one little-endian channel from b.
func (t ElemType) load(b []byte) float64 {
	switch t {
	case Uint8:
		return float64(b[0])
	case Uint16:
		return float64(binary.LittleEndian.Uint16(b))
	case Int16:
		return float64(int16(binary.LittleEndian.Uint16(b))) //nolint:gosec // two's complement reinterpretation
	case Int32:
		return float64(int32(binary.LittleEndian.Uint32(b))) //nolint:gosec // two's complement reinterpretation
	case Float16:
		return float64(float16.Frombits(binary.LittleEndian.Uint16(b)).Float32())
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
	return 0
}

// store narrows v and encodes it little-endian into b.
func (t ElemType) store(b []byte, v float64) {
	v = t.Narrow(v)
	switch t {
	case Uint8:
		b[0] = uint8(v)
	case Uint16:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case Int16:
		binary.LittleEndian.PutUint16(b, uint16(int16(v))) //nolint:gosec // two's complement reinterpretation
	case Int32:
		binary.LittleEndian.PutUint32(b, uint32(int32(v))) //nolint:gosec // two's complement reinterpretation
	case Float16:
		binary.LittleEndian.PutUint16(b, toHalf(v).Bits())
	case Float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	case Float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	}
}

// Format is an element format tag: element type plus channel count (1-4).
// Two stages can be linked only when the output Format of the first equals
// the input Format of the second.
type Format struct {
	Elem     ElemType
	Channels int
}

// Common formats.
var (
	U8C1 = Format{Uint8, 1}
	U8C2 = Format{Uint8, 2}
	U8C3 = Format{Uint8, 3}
	U8C4 = Format{Uint8, 4}

	U16C1 = Format{Uint16, 1}
	U16C3 = Format{Uint16, 3}
	U16C4 = Format{Uint16, 4}

	S16C1 = Format{Int16, 1}
	S16C3 = Format{Int16, 3}

	S32C1 = Format{Int32, 1}
	S32C3 = Format{Int32, 3}

	F16C1 = Format{Float16, 1}
	F16C3 = Format{Float16, 3}
	F16C4 = Format{Float16, 4}

	F32C1 = Format{Float32, 1}
	F32C2 = Format{Float32, 2}
	F32C3 = Format{Float32, 3}
	F32C4 = Format{Float32, 4}

	F64C1 = Format{Float64, 1}
	F64C3 = Format{Float64, 3}
)

// IsValid reports whether f has a known element type and 1 to 4 channels.
func (f Format) IsValid() bool {
	return f.Elem.IsValid() && f.Channels >= 1 && f.Channels <= 4
}

// PixelBytes returns the size of one pixel in bytes.
func (f Format) PixelBytes() int {
	return f.Elem.Size() * f.Channels
}

// RowBytes returns the number of bytes a row of width pixels occupies.
func (f Format) RowBytes(width int) int {
	return width * f.PixelBytes()
}

// WithElem returns f with its element type replaced.
func (f Format) WithElem(e ElemType) Format {
	return Format{Elem: e, Channels: f.Channels}
}

// WithChannels returns f with its channel count replaced.
func (f Format) WithChannels(n int) Format {
	return Format{Elem: f.Elem, Channels: n}
}

func (f Format) String() string {
	return fmt.Sprintf("%sc%d", f.Elem, f.Channels)
}

func checkFormat(f Format) error {
	if !f.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidFormat, f)
	}
	return nil
}
