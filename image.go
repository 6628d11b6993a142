package fk

// HostBuffer is an externally owned 2D pixel buffer: contiguous bytes plus
// geometry. WrapBuffer turns it into a View for one launch.
type HostBuffer interface {
	Data() []byte
	Width() int
	Height() int
	Stride() int
}

// WrapBuffer returns a View over buf interpreted with the given format.
// The View borrows buf's memory; buf keeps ownership.
func WrapBuffer(buf HostBuffer, format Format) (View, error) {
	return NewView(buf.Data(), buf.Width(), buf.Height(), buf.Stride(), format)
}

// Image is a simple owning host buffer. It implements HostBuffer and is the
// easiest way to get memory for sources, destinations and intermediates.
type Image struct {
	data   []byte
	width  int
	height int
	stride int
	format Format
}

// NewImage allocates a zeroed width × height image with tightly packed rows.
func NewImage(width, height int, format Format) (*Image, error) {
	return NewImageWithStride(width, height, format, format.RowBytes(width))
}

// NewImageWithStride allocates an image whose rows are stride bytes apart.
// Stride must be at least format.RowBytes(width).
func NewImageWithStride(width, height int, format Format, stride int) (*Image, error) {
	if width < 0 || height < 0 {
		return nil, ErrInvalidDimensions
	}
	if err := checkFormat(format); err != nil {
		return nil, err
	}
	if stride < format.RowBytes(width) {
		return nil, ErrInvalidStride
	}
	return &Image{
		data:   make([]byte, stride*height),
		width:  width,
		height: height,
		stride: stride,
		format: format,
	}, nil
}

// Data returns the raw pixel bytes.
func (m *Image) Data() []byte { return m.data }

// Width returns the width in pixels.
func (m *Image) Width() int { return m.width }

// Height returns the height in pixels.
func (m *Image) Height() int { return m.height }

// Stride returns the number of bytes per row, padding included.
func (m *Image) Stride() int { return m.stride }

// Format returns the pixel format.
func (m *Image) Format() Format { return m.format }

// View returns a view of the whole image.
func (m *Image) View() View {
	v, err := NewView(m.data, m.width, m.height, m.stride, m.format)
	if err != nil {
		// NewImageWithStride already validated the geometry.
		panic(err)
	}
	return v
}

// At returns the pixel at (x, y).
func (m *Image) At(x, y int) Vec {
	return m.View().Load(x, y, 0)
}

// Set stores val at (x, y), narrowed to the image element type.
func (m *Image) Set(x, y int, val Vec) {
	m.View().Store(x, y, 0, val)
}

// Fill sets every pixel to val.
func (m *Image) Fill(val Vec) {
	v := m.View()
	for y := range m.height {
		for x := range m.width {
			v.Store(x, y, 0, val)
		}
	}
}
