package fk

import "fmt"

// View is a non-owning description of a pixel region in memory: base slice,
// width, height, row pitch, format, and optionally several planes laid out
// back to back.
//
// A View never allocates or copies. The memory belongs to whoever created
// the slice and must stay alive until every launch referencing the View has
// finished (see Stream.Synchronize).
//
// Pixel (x, y) of plane p starts at byte p*PlanePitch + y*Pitch +
// x*Format.PixelBytes(). Views are small values and are passed by value.
type View struct {
	data       []byte
	width      int
	height     int
	pitch      int
	planes     int
	planePitch int
	format     Format
}

// NewView wraps data as a single-plane region of width × height pixels.
// pitch is the distance in bytes between row starts and must be at least
// format.RowBytes(width). Zero width or height yields an empty view.
func NewView(data []byte, width, height, pitch int, format Format) (View, error) {
	return NewPlanarView(data, width, height, pitch, 1, format)
}

// NewPlanarView wraps data as planes consecutive regions of width × height
// pixels each. Planes are contiguous: plane p starts at p*pitch*height.
//
// Planar views are the destination of SplitPlanar and the tensor-shaped
// output of batched chains, where the plane index is the third launch
// dimension.
func NewPlanarView(data []byte, width, height, pitch, planes int, format Format) (View, error) {
	if width < 0 || height < 0 || planes <= 0 {
		return View{}, fmt.Errorf("%w: %dx%d, %d planes", ErrInvalidDimensions, width, height, planes)
	}
	if err := checkFormat(format); err != nil {
		return View{}, err
	}
	if pitch < format.RowBytes(width) {
		return View{}, fmt.Errorf("%w: pitch %d, need %d", ErrInvalidStride, pitch, format.RowBytes(width))
	}

	planePitch := pitch * height
	required := 0
	if width > 0 && height > 0 {
		required = (planes-1)*planePitch + (height-1)*pitch + format.RowBytes(width)
	}
	if len(data) < required {
		return View{}, fmt.Errorf("%w: have %d bytes, need %d", ErrDataTooSmall, len(data), required)
	}

	return View{
		data:       data[:required],
		width:      width,
		height:     height,
		pitch:      pitch,
		planes:     planes,
		planePitch: planePitch,
		format:     format,
	}, nil
}

// Width returns the width in pixels.
func (v View) Width() int { return v.width }

// Height returns the height in pixels.
func (v View) Height() int { return v.height }

// Pitch returns the number of bytes between the starts of two rows.
func (v View) Pitch() int { return v.pitch }

// Planes returns the number of planes (1 for a plain 2D view).
func (v View) Planes() int { return v.planes }

// PlanePitch returns the number of bytes between the starts of two planes.
func (v View) PlanePitch() int { return v.planePitch }

// Format returns the pixel format.
func (v View) Format() Format { return v.format }

// Data returns the underlying bytes, starting at pixel (0, 0) of plane 0.
func (v View) Data() []byte { return v.data }

// IsEmpty reports whether the view has zero width or height.
func (v View) IsEmpty() bool { return v.width == 0 || v.height == 0 }

// Size returns the width and height.
func (v View) Size() Size { return Size{Width: v.width, Height: v.height} }

// Contains reports whether (x, y, plane) is inside the view.
func (v View) Contains(x, y, plane int) bool {
	return x >= 0 && x < v.width && y >= 0 && y < v.height && plane >= 0 && plane < v.planes
}

// Offset returns the byte offset of pixel (x, y) of the given plane, or -1
// if the coordinate is outside the view.
func (v View) Offset(x, y, plane int) int {
	if !v.Contains(x, y, plane) {
		return -1
	}
	return v.offset(x, y, plane)
}

func (v View) offset(x, y, plane int) int {
	return plane*v.planePitch + y*v.pitch + x*v.format.PixelBytes()
}

// Plane returns plane i as a single-plane view sharing the same memory.
// It panics if i is out of range.
func (v View) Plane(i int) View {
	if i < 0 || i >= v.planes {
		panic(fmt.Sprintf("fk: plane %d out of range [0,%d)", i, v.planes))
	}
	p := v
	p.planes = 1
	if !v.IsEmpty() {
		start := i * v.planePitch
		p.data = v.data[start : start+(v.height-1)*v.pitch+v.format.RowBytes(v.width)]
	}
	return p
}

// Crop returns the single-plane region [x, x+width) × [y, y+height) of
// plane 0 as a view sharing the same memory and pitch.
func (v View) Crop(x, y, width, height int) (View, error) {
	if x < 0 || y < 0 || width < 0 || height < 0 || x+width > v.width || y+height > v.height {
		return View{}, fmt.Errorf("%w: crop %d,%d %dx%d of %dx%d",
			ErrInvalidDimensions, x, y, width, height, v.width, v.height)
	}
	c := View{
		width:  width,
		height: height,
		pitch:  v.pitch,
		planes: 1,
		format: v.format,
	}
	c.planePitch = c.pitch * height
	if width > 0 && height > 0 {
		start := v.offset(x, y, 0)
		c.data = v.data[start : start+(height-1)*v.pitch+v.format.RowBytes(width)]
	}
	return c, nil
}

// Load reads the pixel at (x, y, plane). The coordinate must be inside the view.
func (v View) Load(x, y, plane int) Vec {
	off := v.offset(x, y, plane)
	es := v.format.Elem.Size()
	out := Vec{N: v.format.Channels}
	for c := range out.N {
		out.V[c] = v.format.Elem.load(v.data[off+c*es:])
	}
	return out
}

// Store narrows val to the view's element type and writes its first
// Format.Channels components at (x, y, plane).
func (v View) Store(x, y, plane int, val Vec) {
	off := v.offset(x, y, plane)
	es := v.format.Elem.Size()
	for c := range v.format.Channels {
		v.format.Elem.store(v.data[off+c*es:], val.V[c])
	}
}

// storeChannel writes a single value into channel 0 of (x, y, plane).
func (v View) storeChannel(x, y, plane int, val float64) {
	v.format.Elem.store(v.data[v.offset(x, y, plane):], val)
}

func (v View) String() string {
	if v.planes > 1 {
		return fmt.Sprintf("%dx%dx%d %s", v.width, v.height, v.planes, v.format)
	}
	return fmt.Sprintf("%dx%d %s", v.width, v.height, v.format)
}
