package fk

import (
	"fmt"
	"math"
)

// Interp selects how a resize read samples its source.
type Interp uint8

const (
	// InterpLinear blends the four nearest source pixels (bilinear).
	InterpLinear Interp = iota

	// InterpNearest takes the source pixel containing the sample point.
	InterpNearest
)

func (m Interp) String() string {
	switch m {
	case InterpLinear:
		return "Linear"
	case InterpNearest:
		return "Nearest"
	default:
		return "Unknown"
	}
}

// ResizeParams are the parameters of an interpolated read.
//
// ScaleX and ScaleY map target coordinates to source coordinates
// (source size / target size), so the kernel multiplies instead of dividing.
type ResizeParams struct {
	Src    View
	ScaleX float64
	ScaleY float64
	Width  int
	Height int
	Interp Interp
}

// Resize returns a read stage that resamples src.
//
// An explicit non-zero size wins: the stored scale factors are
// (src.Width/size.Width, src.Height/size.Height). Otherwise fx and fy are
// target/source factors, the target size is round-half-even(src·f) and the
// stored factors are 1/fx and 1/fy.
//
// The output format is Float32 with the source channel count. A source with
// zero width or height returns ErrDegenerate.
func Resize(src View, size Size, fx, fy float64, interp Interp) (Op, error) {
	p, err := resizeParams(src, size, fx, fy, interp)
	if err != nil {
		return Op{}, err
	}
	return single(resizeStage(p)), nil
}

func resizeStage(p ResizeParams) Stage {
	return Stage{
		code:   OpResize,
		in:     p.Src.format,
		out:    p.Src.format.WithElem(Float32),
		resize: p,
	}
}

func resizeParams(src View, size Size, fx, fy float64, interp Interp) (ResizeParams, error) {
	if interp != InterpLinear && interp != InterpNearest {
		return ResizeParams{}, fmt.Errorf("fk: unsupported interpolation %s", interp)
	}
	if src.planes != 1 {
		return ResizeParams{}, fmt.Errorf("%w: resize source has %d planes", ErrInvalidDimensions, src.planes)
	}
	p := ResizeParams{Src: src, Interp: interp}

	switch {
	case size.Width > 0 && size.Height > 0:
		p.Width, p.Height = size.Width, size.Height
		if src.IsEmpty() {
			return p, fmt.Errorf("%w: resize source %s", ErrDegenerate, src)
		}
		p.ScaleX = float64(src.width) / float64(size.Width)
		p.ScaleY = float64(src.height) / float64(size.Height)
	case size.IsZero() && fx > 0 && fy > 0:
		if src.IsEmpty() {
			return p, fmt.Errorf("%w: resize source %s", ErrDegenerate, src)
		}
		p.Width = int(math.RoundToEven(float64(src.width) * fx))
		p.Height = int(math.RoundToEven(float64(src.height) * fy))
		if p.Width <= 0 || p.Height <= 0 {
			return p, fmt.Errorf("%w: %s scaled by %g,%g is empty", ErrInvalidSize, src, fx, fy)
		}
		p.ScaleX = 1 / fx
		p.ScaleY = 1 / fy
	default:
		return p, fmt.Errorf("%w: size %dx%d, factors %g,%g", ErrInvalidSize, size.Width, size.Height, fx, fy)
	}
	return p, nil
}

// sample evaluates the resize read at target pixel (x, y).
func (p ResizeParams) sample(x, y int) Vec {
	var v Vec
	if p.Interp == InterpNearest {
		v = p.sampleNearest(x, y)
	} else {
		v = p.sampleLinear(x, y)
	}
	return v.narrow(Float32)
}

// sampleNearest takes the source pixel containing the center of target
// pixel (x, y).
func (p ResizeParams) sampleNearest(x, y int) Vec {
	w, h := p.Src.width, p.Src.height
	sx := clamp(int(math.Floor((float64(x)+0.5)*p.ScaleX)), 0, w-1)
	sy := clamp(int(math.Floor((float64(y)+0.5)*p.ScaleY)), 0, h-1)
	return p.Src.Load(sx, sy, 0)
}

// sampleLinear maps the center of target pixel (x, y) into the source and
// blends the four surrounding pixels. Neighbours outside the source are
// clamped to its edges.
func (p ResizeParams) sampleLinear(x, y int) Vec {
	w, h := p.Src.width, p.Src.height

	fx := (float64(x)+0.5)*p.ScaleX - 0.5
	fy := (float64(y)+0.5)*p.ScaleY - 0.5

	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	tx := fx - float64(x0)
	ty := fy - float64(y0)

	x1 := clamp(x0+1, 0, w-1)
	y1 := clamp(y0+1, 0, h-1)
	x0 = clamp(x0, 0, w-1)
	y0 = clamp(y0, 0, h-1)

	v00 := p.Src.Load(x0, y0, 0)
	v10 := p.Src.Load(x1, y0, 0)
	v01 := p.Src.Load(x0, y1, 0)
	v11 := p.Src.Load(x1, y1, 0)

	out := Vec{N: v00.N}
	for c := range out.N {
		out.V[c] = lerp2D(v00.V[c], v10.V[c], v01.V[c], v11.V[c], tx, ty)
	}
	return out
}

//nolint:unparam // minVal is always 0 currently, but function is general-purpose
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

func lerp(a, b, t float64) float64 {
	return a*(1-t) + b*t
}

func lerp2D(v00, v10, v01, v11, tx, ty float64) float64 {
	return lerp(lerp(v00, v10, tx), lerp(v01, v11, tx), ty)
}
