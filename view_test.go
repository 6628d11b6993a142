package fk

import (
	"errors"
	"testing"
)

func TestNewViewErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		w, h    int
		pitch   int
		format  Format
		wantErr error
	}{
		{"negative width", make([]byte, 16), -1, 2, 8, U8C1, ErrInvalidDimensions},
		{"bad format", make([]byte, 16), 2, 2, 8, Format{Uint8, 7}, ErrInvalidFormat},
		{"pitch too small", make([]byte, 64), 4, 2, 11, U8C3, ErrInvalidStride},
		{"data too small", make([]byte, 23), 4, 2, 12, U8C3, ErrDataTooSmall},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewView(tt.data, tt.w, tt.h, tt.pitch, tt.format)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewView() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewViewLastRowUnpadded(t *testing.T) {
	// Two rows of 4 u8c3 pixels with a 16 byte pitch: the last row needs
	// only 12 bytes.
	v, err := NewView(make([]byte, 28), 4, 2, 16, U8C3)
	if err != nil {
		t.Fatalf("NewView() = %v", err)
	}
	if got := len(v.Data()); got != 28 {
		t.Errorf("len(Data()) = %d, want 28", got)
	}
}

func TestViewEmpty(t *testing.T) {
	v, err := NewView(nil, 0, 5, 0, U8C1)
	if err != nil {
		t.Fatalf("NewView() = %v", err)
	}
	if !v.IsEmpty() {
		t.Error("IsEmpty() = false, want true")
	}
	if v.Contains(0, 0, 0) {
		t.Error("empty view contains (0, 0)")
	}
}

func TestViewOffset(t *testing.T) {
	v, err := NewPlanarView(make([]byte, 2*16*3), 4, 3, 16, 2, U8C3)
	if err != nil {
		t.Fatalf("NewPlanarView() = %v", err)
	}
	tests := []struct {
		x, y, p int
		want    int
	}{
		{0, 0, 0, 0},
		{2, 1, 0, 22},
		{3, 2, 0, 41},
		{0, 0, 1, 48},
		{1, 2, 1, 83},
		{4, 0, 0, -1},
		{0, 3, 0, -1},
		{0, 0, 2, -1},
		{-1, 0, 0, -1},
	}
	for _, tt := range tests {
		if got := v.Offset(tt.x, tt.y, tt.p); got != tt.want {
			t.Errorf("Offset(%d, %d, %d) = %d, want %d", tt.x, tt.y, tt.p, got, tt.want)
		}
	}
}

func TestViewLoadStorePitched(t *testing.T) {
	img, err := NewImageWithStride(3, 2, U16C3, 32)
	if err != nil {
		t.Fatalf("NewImageWithStride() = %v", err)
	}
	v := img.View()
	v.Store(2, 1, 0, V3(1, 70000, -5))
	if got, want := v.Load(2, 1, 0), V3(1, 65535, 0); got != want {
		t.Errorf("Load() = %v, want %v", got, want)
	}
	// Padding bytes between rows stay untouched.
	for i := U16C3.RowBytes(3); i < 32; i++ {
		if img.Data()[i] != 0 {
			t.Fatalf("padding byte %d = %d, want 0", i, img.Data()[i])
		}
	}
}

func TestViewCrop(t *testing.T) {
	img := newFilled(t, 5, 4, U8C1, func(x, y int) Vec { return V1(float64(10*y + x)) })
	v := img.View()

	c, err := v.Crop(1, 2, 3, 2)
	if err != nil {
		t.Fatalf("Crop() = %v", err)
	}
	if c.Width() != 3 || c.Height() != 2 || c.Pitch() != v.Pitch() {
		t.Fatalf("Crop() = %s pitch %d", c, c.Pitch())
	}
	for y := range 2 {
		for x := range 3 {
			if got, want := c.Load(x, y, 0), v.Load(x+1, y+2, 0); got != want {
				t.Errorf("crop (%d, %d) = %v, want %v", x, y, got, want)
			}
		}
	}

	if _, err := v.Crop(3, 0, 3, 1); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("Crop() past the edge error = %v, want ErrInvalidDimensions", err)
	}
}

func TestViewPlane(t *testing.T) {
	data := make([]byte, 3*2*2)
	v, err := NewPlanarView(data, 2, 2, 2, 3, U8C1)
	if err != nil {
		t.Fatalf("NewPlanarView() = %v", err)
	}
	for p := range 3 {
		for y := range 2 {
			for x := range 2 {
				v.Store(x, y, p, V1(float64(100*p+10*y+x)))
			}
		}
	}
	p1 := v.Plane(1)
	if p1.Planes() != 1 {
		t.Fatalf("Plane(1).Planes() = %d, want 1", p1.Planes())
	}
	if got, want := p1.Load(1, 1, 0), V1(111); got != want {
		t.Errorf("Plane(1).Load(1, 1) = %v, want %v", got, want)
	}

	defer func() {
		if recover() == nil {
			t.Error("Plane(3) did not panic")
		}
	}()
	v.Plane(3)
}

func TestWrapBuffer(t *testing.T) {
	img, err := NewImageWithStride(4, 4, U8C4, 20)
	if err != nil {
		t.Fatalf("NewImageWithStride() = %v", err)
	}
	v, err := WrapBuffer(img, U8C4)
	if err != nil {
		t.Fatalf("WrapBuffer() = %v", err)
	}
	if v.Pitch() != 20 || v.Width() != 4 {
		t.Errorf("WrapBuffer() = %s pitch %d", v, v.Pitch())
	}
	if _, err := WrapBuffer(img, F32C4); !errors.Is(err, ErrInvalidStride) {
		t.Errorf("WrapBuffer(f32c4) error = %v, want ErrInvalidStride", err)
	}
}
