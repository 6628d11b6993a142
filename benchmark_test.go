package fk

import (
	"fmt"
	"testing"
)

// preprocessOps is the usual network input normalization on a u8c3 frame.
func preprocessOps(b *testing.B) []Op {
	b.Helper()
	return []Op{
		mustOp(ConvertTo(U8C3, F32C3)),
		mustOp(Multiply(F32C3, NewScalar(1.0/255, 1.0/255, 1.0/255))),
		mustOp(Subtract(F32C3, NewScalar(0.485, 0.456, 0.406))),
		mustOp(Divide(F32C3, NewScalar(0.229, 0.224, 0.225))),
	}
}

func BenchmarkFusedChain(b *testing.B) {
	src := newFilled(b, 640, 480, U8C3, func(x, y int) Vec { return V3(float64(x%256), float64(y%256), 128) })
	dst, err := NewImage(640, 480, F32C3)
	if err != nil {
		b.Fatal(err)
	}
	ops := preprocessOps(b)
	s := newTestStream(b)

	b.ReportAllocs()
	for b.Loop() {
		if err := Transform(s, src.View(), dst.View(), ops...); err != nil {
			b.Fatal(err)
		}
		synchronize(b, s)
	}
}

func BenchmarkUnfusedChain(b *testing.B) {
	src := newFilled(b, 640, 480, U8C3, func(x, y int) Vec { return V3(float64(x%256), float64(y%256), 128) })
	ops := preprocessOps(b)
	tmp := make([]*Image, len(ops))
	for i, op := range ops {
		img, err := NewImage(640, 480, op.Out())
		if err != nil {
			b.Fatal(err)
		}
		tmp[i] = img
	}
	s := newTestStream(b)

	b.ReportAllocs()
	for b.Loop() {
		cur := src
		for i, op := range ops {
			if err := Transform(s, cur.View(), tmp[i].View(), op); err != nil {
				b.Fatal(err)
			}
			cur = tmp[i]
		}
		synchronize(b, s)
	}
}

func BenchmarkResizeBatch(b *testing.B) {
	frame := newFilled(b, 1920, 1080, U8C3, func(x, y int) Vec { return V3(float64(x%256), float64(y%256), 64) })
	const w, h = 64, 128

	for _, crops := range []int{1, 4, 16, 50} {
		b.Run(fmt.Sprintf("crops=%d", crops), func(b *testing.B) {
			srcs := make([]View, crops)
			for i := range srcs {
				v, err := frame.View().Crop((i*37)%1700, (i*23)%800, 200, 260)
				if err != nil {
					b.Fatal(err)
				}
				srcs[i] = v
			}
			dst, err := NewPlanarView(make([]byte, crops*F32C3.RowBytes(w)*h), w, h, F32C3.RowBytes(w), crops, F32C3)
			if err != nil {
				b.Fatal(err)
			}
			read, err := ResizeBatch(srcs, Size{Width: w, Height: h}, InterpLinear)
			if err != nil {
				b.Fatal(err)
			}
			ops := append([]Op{read}, preprocessOps(b)[1:]...)
			ops = append(ops, Write(dst))
			s := newTestStream(b)

			for b.Loop() {
				if err := Execute(s, ops...); err != nil {
					b.Fatal(err)
				}
				synchronize(b, s)
			}
		})
	}
}
