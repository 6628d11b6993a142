package gpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/fk"
)

func TestParamsBytes(t *testing.T) {
	p := &Program{Width: 640, Height: 480, Depth: 3, Active: 2}
	b := p.ParamsBytes()
	want := []uint32{640, 480, 3, 2}
	for i, w := range want {
		if got := binary.LittleEndian.Uint32(b[i*4:]); got != w {
			t.Errorf("word %d = %d, want %d", i, got, w)
		}
	}
}

func TestPlanesBytes(t *testing.T) {
	p := &Program{Planes: []Plane{
		{Offset: 0, SrcWidth: 8, SrcHeight: 4, Width: 4, Height: 2, Flags: planeValid | planeNearest, ScaleX: 2, ScaleY: 2},
		{Offset: 32},
	}}
	b := p.PlanesBytes()
	if len(b) != 2*planeBytes {
		t.Fatalf("len = %d, want %d", len(b), 2*planeBytes)
	}
	words := []uint32{0, 8, 4, 4, 2, 3, math.Float32bits(2), math.Float32bits(2), 32}
	for i, w := range words {
		if got := binary.LittleEndian.Uint32(b[i*4:]); got != w {
			t.Errorf("word %d = %#x, want %#x", i, got, w)
		}
	}

	// An empty table still binds one record.
	if got := len((&Program{}).PlanesBytes()); got != planeBytes {
		t.Errorf("empty table = %d bytes, want %d", got, planeBytes)
	}
}

func TestSourceBytes(t *testing.T) {
	src := image(t, 3, 2, fk.U8C3)
	for y := range 2 {
		for x := range 3 {
			src.Set(x, y, fk.V3(float64(x), float64(y), 200))
		}
	}
	dst := image(t, 3, 2, fk.U8C3)
	prog := generate(t, capture(t, fk.Read(src.View()), fk.Write(dst.View())))

	b := prog.SourceBytes()
	if len(b) != 6*vec4Bytes {
		t.Fatalf("len = %d, want %d", len(b), 6*vec4Bytes)
	}
	// Element (2, 1) is index 5.
	got := getVec4(b[5*vec4Bytes:])
	if got.V != [4]float64{2, 1, 200, 0} {
		t.Errorf("element 5 = %v", got.V)
	}
}

func TestScatter(t *testing.T) {
	src := image(t, 4, 3, fk.U8C1)
	dst := image(t, 4, 3, fk.F32C1)
	l := capture(t, fk.Read(src.View()), fk.Write(dst.View()))

	out := make([]byte, 12*vec4Bytes)
	for i := range 12 {
		putVec4(out[i*vec4Bytes:], fk.V1(float64(i)+0.5))
	}
	if err := Scatter(out, l.Kernel, 1); err != nil {
		t.Fatalf("Scatter() = %v", err)
	}
	for y := range 3 {
		for x := range 4 {
			if got, want := dst.At(x, y).V[0], float64(y*4+x)+0.5; got != want {
				t.Errorf("(%d, %d) = %v, want %v", x, y, got, want)
			}
		}
	}

	if err := Scatter(out[:vec4Bytes], l.Kernel, 1); err == nil {
		t.Error("Scatter() with a short buffer should fail")
	}
}

func TestScatterMasksSmallPlanes(t *testing.T) {
	must := mustOp(t)
	big := image(t, 3, 2, fk.U8C1)
	small := image(t, 1, 1, fk.U8C1)
	dstBig := image(t, 3, 2, fk.U8C1)
	dstSmall := image(t, 1, 1, fk.U8C1)

	l := capture(t,
		must(fk.Batch([]fk.Op{fk.Read(big.View()), fk.Read(small.View())})),
		must(fk.WriteBatch([]fk.View{dstBig.View(), dstSmall.View()})),
	)
	out := make([]byte, 2*6*vec4Bytes)
	for i := range 12 {
		putVec4(out[i*vec4Bytes:], fk.V1(float64(i+1)))
	}
	if err := Scatter(out, l.Kernel, 1); err != nil {
		t.Fatalf("Scatter() = %v", err)
	}

	if diff := cmp.Diff([]byte{1, 2, 3, 4, 5, 6}, dstBig.Data()); diff != "" {
		t.Errorf("big plane (-want +got):\n%s", diff)
	}
	// Only (0, 0) of plane 1 lies inside its source.
	if diff := cmp.Diff([]byte{7}, dstSmall.Data()); diff != "" {
		t.Errorf("small plane (-want +got):\n%s", diff)
	}
}
