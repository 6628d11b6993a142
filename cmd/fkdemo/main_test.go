package main

import (
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/fk"
)

func TestFromImageRoundTrip(t *testing.T) {
	m := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for y := range 2 {
		for x := range 3 {
			m.Set(x, y, color.NRGBA{R: uint8(10 * x), G: uint8(20 * y), B: 200, A: 255})
		}
	}
	img, err := fromImage(m)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := img.At(2, 1), fk.V3(20, 20, 200); got != want {
		t.Errorf("At(2, 1) = %v, want %v", got, want)
	}

	back := toNRGBA(img)
	if got := back.NRGBAAt(2, 1); got != (color.NRGBA{R: 20, G: 20, B: 200, A: 255}) {
		t.Errorf("NRGBAAt(2, 1) = %v", got)
	}
}

func TestHorizontalStrips(t *testing.T) {
	src, err := fk.NewImage(4, 5, fk.U8C3)
	if err != nil {
		t.Fatal(err)
	}
	strips, err := horizontalStrips(src.View(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if strips[0].Height() != 2 || strips[1].Height() != 3 {
		t.Errorf("heights = %d, %d, want 2, 3", strips[0].Height(), strips[1].Height())
	}

	// More strips than rows leaves some strips empty.
	strips, err = horizontalStrips(src.View(), 8)
	if err != nil {
		t.Fatal(err)
	}
	empty := 0
	for _, s := range strips {
		if s.IsEmpty() {
			empty++
		}
	}
	if empty != 3 {
		t.Errorf("empty strips = %d, want 3", empty)
	}
}

func TestPreprocessMatchesFormula(t *testing.T) {
	src, err := fk.NewImage(4, 4, fk.U8C3)
	if err != nil {
		t.Fatal(err)
	}
	src.Fill(fk.V3(255, 128, 0))

	s := fk.NewStream()
	defer s.Close()

	planes, err := preprocess(s, src.View(), 2, 2)
	if err != nil {
		t.Fatalf("preprocess() = %v", err)
	}
	if err := s.Synchronize(t.Context()); err != nil {
		t.Fatal(err)
	}

	for c, v := range []float64{255, 128, 0} {
		// Same stage-by-stage f32 narrowing the kernel applies.
		x := float64(float32(v * float64(float32(1.0/255))))
		x = float64(float32(x - float64(float32(mean[c]))))
		x = float64(float32(x / float64(float32(std[c]))))
		if got := planes[c].At(1, 1).V[0]; got != x {
			t.Errorf("channel %d = %v, want %v", c, got, x)
		}
	}
}

func TestResizeCropsZeroesEmptyStrips(t *testing.T) {
	src, err := fk.NewImage(4, 2, fk.U8C3)
	if err != nil {
		t.Fatal(err)
	}
	src.Fill(fk.V3(9, 9, 9))
	strips, err := horizontalStrips(src.View(), 3)
	if err != nil {
		t.Fatal(err)
	}

	s := fk.NewStream()
	defer s.Close()

	const w, h = 2, 2
	tensor := make([]byte, 3*w*h*fk.F32C3.PixelBytes())
	for i := range tensor {
		tensor[i] = 0xff
	}
	if err := resizeCrops(s, strips, tensor, w, h); err != nil {
		t.Fatalf("resizeCrops() = %v", err)
	}
	if err := s.Synchronize(t.Context()); err != nil {
		t.Fatal(err)
	}

	dst, err := fk.NewPlanarView(tensor, w, h, fk.F32C3.RowBytes(w), 3, fk.F32C3)
	if err != nil {
		t.Fatal(err)
	}
	for z := range 3 {
		want := fk.V3(9, 9, 9)
		if strips[z].IsEmpty() {
			want = fk.V3(0, 0, 0)
		}
		if got := dst.Load(1, 1, z); got != want {
			t.Errorf("plane %d = %v, want %v", z, got, want)
		}
	}
}
