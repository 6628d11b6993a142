package fk

import (
	"fmt"
	"strconv"
	"strings"
)

// Vec is the per-element value that flows through a fused kernel: up to four
// channel values plus the number of channels in use. Values are held in
// float64, which represents every supported element type exactly; each stage
// narrows its result to its declared output type.
type Vec struct {
	V [4]float64
	N int
}

// V1, V2, V3 and V4 build a Vec from 1, 2, 3 or 4 channel values.
func V1(a float64) Vec          { return Vec{V: [4]float64{a}, N: 1} }
func V2(a, b float64) Vec       { return Vec{V: [4]float64{a, b}, N: 2} }
func V3(a, b, c float64) Vec    { return Vec{V: [4]float64{a, b, c}, N: 3} }
func V4(a, b, c, d float64) Vec { return Vec{V: [4]float64{a, b, c, d}, N: 4} }

func (v Vec) narrow(t ElemType) Vec {
	for c := range v.N {
		v.V[c] = t.Narrow(v.V[c])
	}
	return v
}

func (v Vec) String() string {
	parts := make([]string, v.N)
	for c := range v.N {
		parts[c] = strconv.FormatFloat(v.V[c], 'g', -1, 64)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// Scalar is a generic multi-component numeric operand, the per-call
// parameter of the scalar arithmetic builders and the default value of
// batches. Its component count must match the channel count of the format it
// is packed for.
type Scalar struct {
	v [4]float64
	n int
}

// NewScalar returns a scalar with the given components. More than four
// components is allowed here and rejected when the scalar is packed.
func NewScalar(v ...float64) Scalar {
	s := Scalar{n: len(v)}
	copy(s.v[:], v)
	return s
}

// Len returns the number of components.
func (s Scalar) Len() int { return s.n }

// At returns component i, or 0 if i is out of range.
func (s Scalar) At(i int) float64 {
	if i < 0 || i >= min(s.n, 4) {
		return 0
	}
	return s.v[i]
}

// packers holds one packing function per channel count. Each narrows the
// components to the element type of the target format.
var packers = [5]func(s Scalar, t ElemType) Vec{
	1: func(s Scalar, t ElemType) Vec { return V1(t.Narrow(s.v[0])) },
	2: func(s Scalar, t ElemType) Vec { return V2(t.Narrow(s.v[0]), t.Narrow(s.v[1])) },
	3: func(s Scalar, t ElemType) Vec {
		return V3(t.Narrow(s.v[0]), t.Narrow(s.v[1]), t.Narrow(s.v[2]))
	},
	4: func(s Scalar, t ElemType) Vec {
		return V4(t.Narrow(s.v[0]), t.Narrow(s.v[1]), t.Narrow(s.v[2]), t.Narrow(s.v[3]))
	},
}

// Pack converts s into a value of format f. The component count must equal
// f.Channels exactly.
func (s Scalar) Pack(f Format) (Vec, error) {
	if err := checkFormat(f); err != nil {
		return Vec{}, err
	}
	if s.n != f.Channels {
		return Vec{}, fmt.Errorf("%w: scalar has %d components, %s has %d channels",
			ErrChannelMismatch, s.n, f, f.Channels)
	}
	return packers[f.Channels](s, f.Elem), nil
}
