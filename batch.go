package fk

import (
	"errors"
	"fmt"
)

// BuildBatch builds one Op per element of params with the same single-plane
// builder. The i-th Op is built only from params[i].
func BuildBatch[P any](params []P, build func(P) (Op, error)) ([]Op, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrBatchLength)
	}
	ops := make([]Op, len(params))
	for i := range params {
		op, err := build(params[i])
		if err != nil {
			return nil, fmt.Errorf("plane %d: %w", i, err)
		}
		ops[i] = op
	}
	return ops, nil
}

// BuildBatch2 zips two parameter arrays through a two-argument builder.
// Both arrays must have the same length.
func BuildBatch2[P, Q any](ps []P, qs []Q, build func(P, Q) (Op, error)) ([]Op, error) {
	if len(ps) != len(qs) {
		return nil, fmt.Errorf("%w: %d and %d parameters", ErrBatchLength, len(ps), len(qs))
	}
	idx := make([]int, len(ps))
	for i := range idx {
		idx[i] = i
	}
	return BuildBatch(idx, func(i int) (Op, error) {
		return build(ps[i], qs[i])
	})
}

// Batch bundles single-stage read or write Ops into one batch stage with
// every plane active. All planes must share opcode and formats.
func Batch(ops []Op) (Op, error) {
	return batch(ops, len(ops), Vec{}, false)
}

// BatchWithDefault bundles read Ops into a batch stage where only the first
// active planes hold data. Output elements of planes at or past active get
// def instead of anything read from memory. def must have as many components
// as the read produces channels.
//
// The launch always covers all len(ops) planes, so one fixed-capacity batch
// serves any workload up to that capacity.
func BatchWithDefault(ops []Op, active int, def Scalar) (Op, error) {
	if len(ops) == 0 {
		return Op{}, fmt.Errorf("%w: empty batch", ErrBatchLength)
	}
	fallback, err := def.Pack(ops[0].Out())
	if err != nil {
		return Op{}, fmt.Errorf("batch default: %w", err)
	}
	return batch(ops, active, fallback, true)
}

func batch(ops []Op, active int, fallback Vec, hasDefault bool) (Op, error) {
	if len(ops) == 0 {
		return Op{}, fmt.Errorf("%w: empty batch", ErrBatchLength)
	}
	if active < 0 || active > len(ops) {
		return Op{}, fmt.Errorf("%w: %d active planes of %d", ErrBatchLength, active, len(ops))
	}

	planes := make([]Stage, len(ops))
	for i, op := range ops {
		if op.Len() != 1 {
			return Op{}, fmt.Errorf("%w: plane %d has %d stages", ErrBatchMismatch, i, op.Len())
		}
		s := op.stages[0]
		if s.batch != nil {
			return Op{}, fmt.Errorf("%w: plane %d is itself a batch", ErrBatchMismatch, i)
		}
		if s.code == OpRead && s.src.planes != 1 {
			return Op{}, fmt.Errorf("%w: plane %d reads %d planes", ErrBatchMismatch, i, s.src.planes)
		}
		if i > 0 && (s.code != planes[0].code || s.in != planes[0].in || s.out != planes[0].out) {
			return Op{}, fmt.Errorf("%w: plane %d is %s, plane 0 is %s", ErrBatchMismatch, i, s, planes[0])
		}
		planes[i] = s
	}

	head := planes[0]
	switch head.Kind() {
	case KindRead:
	case KindWrite:
		if hasDefault {
			return Op{}, fmt.Errorf("%w: default values apply to reads only", ErrBatchMismatch)
		}
	default:
		return Op{}, fmt.Errorf("%w: cannot batch %s stages", ErrBatchMismatch, head.Kind())
	}

	return single(Stage{
		code: head.code,
		in:   head.in,
		out:  head.out,
		batch: &batchInfo{
			planes:     planes,
			active:     active,
			fallback:   fallback,
			hasDefault: hasDefault,
		},
	}), nil
}

// WriteBatch returns a batch write: plane z of the launch goes to dsts[z].
func WriteBatch(dsts []View) (Op, error) {
	ops, err := BuildBatch(dsts, func(d View) (Op, error) { return Write(d), nil })
	if err != nil {
		return Op{}, err
	}
	return Batch(ops)
}

// ResizeBatch resizes every source to size in one batch read. Scale factors
// are computed per plane, so sources may differ in size. size must be
// explicit (non-zero).
//
// A source with zero width or height is logged, reported by Op.Degenerate
// and treated as an inactive plane that produces zeros.
func ResizeBatch(srcs []View, size Size, interp Interp) (Op, error) {
	ops, err := resizePlanes(srcs, size, interp)
	if err != nil {
		return Op{}, err
	}
	return Batch(ops)
}

// ResizeBatchWithDefault is ResizeBatch with an active plane count and a
// default value for inactive and degenerate planes.
func ResizeBatchWithDefault(srcs []View, size Size, interp Interp, active int, def Scalar) (Op, error) {
	ops, err := resizePlanes(srcs, size, interp)
	if err != nil {
		return Op{}, err
	}
	return BatchWithDefault(ops, active, def)
}

func resizePlanes(srcs []View, size Size, interp Interp) ([]Op, error) {
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("%w: batch resize needs an explicit size, have %dx%d",
			ErrInvalidSize, size.Width, size.Height)
	}
	return BuildBatch(srcs, func(src View) (Op, error) {
		p, err := resizeParams(src, size, 0, 0, interp)
		if errors.Is(err, ErrDegenerate) {
			Logger().Warn("fk: degenerate batch plane treated as inactive",
				"width", src.width, "height", src.height)
			s := resizeStage(p)
			s.degenerate = true
			return single(s), nil
		}
		if err != nil {
			return Op{}, err
		}
		return single(resizeStage(p)), nil
	})
}
