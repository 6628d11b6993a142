package fk

import "fmt"

// Read returns a read stage that loads src at the output coordinate.
// Planar sources are read plane by plane along the third launch dimension.
func Read(src View) Op {
	return single(Stage{code: OpRead, in: src.format, out: src.format, src: src})
}

// Write returns a write stage that stores the final value into dst with no
// transform. A planar dst receives plane z of a batched launch.
func Write(dst View) Op {
	return single(Stage{code: OpWrite, in: dst.format, out: dst.format, dsts: []View{dst}})
}

// ConvertTo returns a unary stage converting values from in to out.
// Channel counts must match; values are narrowed to out's element type.
func ConvertTo(in, out Format) (Op, error) {
	if err := checkFormat(in); err != nil {
		return Op{}, err
	}
	if err := checkFormat(out); err != nil {
		return Op{}, err
	}
	if in.Channels != out.Channels {
		return Op{}, fmt.Errorf("%w: convert %s to %s", ErrChannelMismatch, in, out)
	}
	return single(Stage{code: OpConvert, in: in, out: out}), nil
}

// Add returns a binary stage computing value + s for format f.
func Add(f Format, s Scalar) (Op, error) { return arithmetic(OpAdd, f, s) }

// Subtract returns a binary stage computing value - s for format f.
func Subtract(f Format, s Scalar) (Op, error) { return arithmetic(OpSub, f, s) }

// Multiply returns a binary stage computing value * s for format f.
func Multiply(f Format, s Scalar) (Op, error) { return arithmetic(OpMul, f, s) }

// Divide returns a binary stage computing value / s for format f.
// Division by a zero component follows IEEE 754 before narrowing, so integer
// formats saturate (or yield 0 for 0/0).
func Divide(f Format, s Scalar) (Op, error) { return arithmetic(OpDiv, f, s) }

func arithmetic(code Opcode, f Format, s Scalar) (Op, error) {
	operand, err := s.Pack(f)
	if err != nil {
		return Op{}, fmt.Errorf("%s: %w", code, err)
	}
	return single(Stage{code: code, in: f, out: f, operand: operand}), nil
}

// Split returns a write stage that scatters channel c of each value into
// dsts[c]. There must be one single-channel destination per channel of in,
// each with in's element type.
func Split(in Format, dsts []View) (Op, error) {
	if err := checkFormat(in); err != nil {
		return Op{}, err
	}
	if len(dsts) != in.Channels {
		return Op{}, fmt.Errorf("%w: split %s into %d destinations", ErrChannelMismatch, in, len(dsts))
	}
	want := in.WithChannels(1)
	for i, d := range dsts {
		if d.format != want {
			return Op{}, fmt.Errorf("%w: split destination %d is %s, want %s", ErrTypeMismatch, i, d.format, want)
		}
	}
	return single(Stage{
		code: OpSplit,
		in:   in,
		out:  in,
		dsts: append([]View(nil), dsts...),
	}), nil
}

// SplitPlanar is the plane-strided form of Split: channel c goes to plane c
// of dst, which must be a single-channel planar view with in.Channels planes.
func SplitPlanar(in Format, dst View) (Op, error) {
	if err := checkFormat(in); err != nil {
		return Op{}, err
	}
	if dst.planes != in.Channels {
		return Op{}, fmt.Errorf("%w: split %s into %d planes", ErrChannelMismatch, in, dst.planes)
	}
	if want := in.WithChannels(1); dst.format != want {
		return Op{}, fmt.Errorf("%w: split destination is %s, want %s", ErrTypeMismatch, dst.format, want)
	}
	return single(Stage{
		code:   OpSplit,
		in:     in,
		out:    in,
		dsts:   []View{dst},
		planar: true,
	}), nil
}
