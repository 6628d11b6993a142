package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/fk"
)

// vec4Bytes is the size of one vec4<f32> element.
const vec4Bytes = 16

// ParamsBytes encodes the Params uniform.
func (p *Program) ParamsBytes() []byte {
	b := make([]byte, vec4Bytes)
	binary.LittleEndian.PutUint32(b[0:], p.Width)
	binary.LittleEndian.PutUint32(b[4:], p.Height)
	binary.LittleEndian.PutUint32(b[8:], p.Depth)
	binary.LittleEndian.PutUint32(b[12:], p.Active)
	return b
}

// PlanesBytes encodes the plane table.
func (p *Program) PlanesBytes() []byte {
	b := make([]byte, max(len(p.Planes), 1)*planeBytes)
	for i, pl := range p.Planes {
		r := b[i*planeBytes:]
		binary.LittleEndian.PutUint32(r[0:], pl.Offset)
		binary.LittleEndian.PutUint32(r[4:], pl.SrcWidth)
		binary.LittleEndian.PutUint32(r[8:], pl.SrcHeight)
		binary.LittleEndian.PutUint32(r[12:], pl.Width)
		binary.LittleEndian.PutUint32(r[16:], pl.Height)
		binary.LittleEndian.PutUint32(r[20:], pl.Flags)
		binary.LittleEndian.PutUint32(r[24:], math.Float32bits(pl.ScaleX))
		binary.LittleEndian.PutUint32(r[28:], math.Float32bits(pl.ScaleY))
	}
	return b
}

// SourceBytes expands every plane source into vec4<f32> elements, row by
// row, at the offsets recorded in the plane table. Planes are packed
// concurrently.
func (p *Program) SourceBytes() []byte {
	b := make([]byte, max(p.SrcLen, 1)*vec4Bytes)
	var g errgroup.Group
	for _, pl := range p.Planes {
		if pl.Flags&planeValid == 0 {
			continue
		}
		g.Go(func() error {
			src := pl.Source
			base := int(pl.Offset)
			for y := range src.Height() {
				for x := range src.Width() {
					putVec4(b[(base+y*src.Width()+x)*vec4Bytes:], src.Load(x, y, 0))
				}
			}
			return nil
		})
	}
	_ = g.Wait() // packing goroutines never fail
	return b
}

// OutputBytes returns the size of the destination buffer.
func (p *Program) OutputBytes() int {
	return max(int(p.Width)*int(p.Height)*int(p.Depth), 1) * vec4Bytes
}

// Scatter moves the device results in out into the destination views of k,
// plane by plane. channels is the channel count of the final value.
func Scatter(out []byte, k *fk.Kernel, channels int) error {
	e := k.Extent()
	if need := e.Width * e.Height * e.Planes * vec4Bytes; len(out) < need {
		return fmt.Errorf("gpu: readback has %d bytes, need %d", len(out), need)
	}
	var g errgroup.Group
	for z := range e.Planes {
		g.Go(func() error {
			for y := range e.Height {
				for x := range e.Width {
					i := (z*e.Height+y)*e.Width + x
					v := getVec4(out[i*vec4Bytes:])
					v.N = channels
					k.Store(x, y, z, v)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func putVec4(b []byte, v fk.Vec) {
	for c := range v.N {
		binary.LittleEndian.PutUint32(b[c*4:], math.Float32bits(float32(v.V[c])))
	}
}

func getVec4(b []byte) fk.Vec {
	var v fk.Vec
	for c := range 4 {
		v.V[c] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b[c*4:])))
	}
	return v
}
