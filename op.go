package fk

import (
	"fmt"
	"slices"
	"strings"
)

// Op is an immutable operation descriptor: a linear sequence of stages.
//
// Builders return single-stage Ops. Then links two Ops into a new Op that
// owns copies of both stage sequences, so an Op can be reused in any number
// of chains. The zero Op has no stages and cannot be executed.
type Op struct {
	stages []Stage
}

func single(s Stage) Op {
	return Op{stages: []Stage{s}}
}

// Stages returns a copy of the stages in execution order.
func (o Op) Stages() []Stage { return slices.Clone(o.stages) }

// Len returns the number of stages.
func (o Op) Len() int { return len(o.stages) }

// IsZero reports whether o has no stages.
func (o Op) IsZero() bool { return len(o.stages) == 0 }

// In returns the input format of the first stage.
func (o Op) In() Format {
	if o.IsZero() {
		return Format{}
	}
	return o.stages[0].in
}

// Out returns the output format of the last stage.
func (o Op) Out() Format {
	if o.IsZero() {
		return Format{}
	}
	return o.stages[len(o.stages)-1].out
}

// Then returns the Op that applies o and then next.
//
// The output format of o must equal the input format of next. Nothing may
// follow a write, and a read may only start a chain. Then records structure
// only; composition is associative because stages are concatenated in order:
// (a.Then(b)).Then(c) and a.Then(b.Then(c)) hold the same stages.
func (o Op) Then(next Op) (Op, error) {
	if o.IsZero() || next.IsZero() {
		return Op{}, fmt.Errorf("%w: empty operation", ErrInvalidChain)
	}
	last := o.stages[len(o.stages)-1]
	first := next.stages[0]
	if last.Kind() == KindWrite {
		return Op{}, fmt.Errorf("%w: %s cannot be followed by %s", ErrInvalidChain, last, first)
	}
	if first.Kind() == KindRead {
		return Op{}, fmt.Errorf("%w: %s must start the chain", ErrInvalidChain, first)
	}
	if last.out != first.in {
		return Op{}, fmt.Errorf("%w: %s produces %s, %s expects %s",
			ErrTypeMismatch, last, last.out, first, first.in)
	}

	stages := make([]Stage, 0, len(o.stages)+len(next.stages))
	stages = append(stages, o.stages...)
	stages = append(stages, next.stages...)
	return Op{stages: stages}, nil
}

// Chain links ops left to right with Then.
func Chain(ops ...Op) (Op, error) {
	if len(ops) == 0 {
		return Op{}, fmt.Errorf("%w: no operations", ErrInvalidChain)
	}
	chain := ops[0]
	for _, op := range ops[1:] {
		var err error
		if chain, err = chain.Then(op); err != nil {
			return Op{}, err
		}
	}
	return chain, nil
}

// Validate reports whether o is a complete chain: exactly one leading read,
// exactly one trailing write, and only unary or binary stages between.
func (o Op) Validate() error {
	if len(o.stages) < 2 {
		return fmt.Errorf("%w: need a read and a write, have %d stage(s)", ErrInvalidChain, len(o.stages))
	}
	for i, s := range o.stages {
		var want bool
		switch i {
		case 0:
			want = s.Kind() == KindRead
		case len(o.stages) - 1:
			want = s.Kind() == KindWrite
		default:
			want = s.Kind() == KindUnary || s.Kind() == KindBinary
		}
		if !want {
			return fmt.Errorf("%w: unexpected %s stage %s at position %d", ErrInvalidChain, s.Kind(), s, i)
		}
	}
	return nil
}

// Extent returns the output domain of the chain: the target size of a resize
// read or the source size of a plain read. Batch reads add the plane count
// as third dimension (all planes when the batch has a default value, the
// active ones otherwise) and use the largest plane width and height.
func (o Op) Extent() Extent {
	if o.IsZero() || o.stages[0].Kind() != KindRead {
		return Extent{}
	}
	return o.stages[0].extent()
}

// Degenerate returns the plane indices of the leading batch read whose
// sources have zero width or height. Those planes are inactive.
func (o Op) Degenerate() []int {
	if o.IsZero() {
		return nil
	}
	s := o.stages[0]
	if s.batch == nil {
		if s.degenerate {
			return []int{0}
		}
		return nil
	}
	var planes []int
	for i, p := range s.batch.planes {
		if p.degenerate {
			planes = append(planes, i)
		}
	}
	return planes
}

func (o Op) String() string {
	parts := make([]string, len(o.stages))
	for i, s := range o.stages {
		parts[i] = s.String()
	}
	return strings.Join(parts, " -> ")
}
