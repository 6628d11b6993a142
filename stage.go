package fk

import (
	"fmt"
	"slices"
	"strings"
)

// Kind classifies a stage by its role in a chain.
type Kind uint8

const (
	// KindRead produces a value from memory for an output coordinate.
	KindRead Kind = iota

	// KindUnary transforms a value with no extra operand.
	KindUnary

	// KindBinary combines a value with a stored operand.
	KindBinary

	// KindWrite stores the final value to memory.
	KindWrite
)

func (k Kind) String() string {
	switch k {
	case KindRead:
		return "Read"
	case KindUnary:
		return "Unary"
	case KindBinary:
		return "Binary"
	case KindWrite:
		return "Write"
	default:
		return "Unknown"
	}
}

// Opcode identifies the operation a stage performs.
type Opcode uint8

const (
	OpRead Opcode = iota
	OpResize
	OpConvert
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpWrite
	OpSplit
)

// Kind returns the kind of stage the opcode belongs to.
func (c Opcode) Kind() Kind {
	switch c {
	case OpRead, OpResize:
		return KindRead
	case OpConvert:
		return KindUnary
	case OpAdd, OpSub, OpMul, OpDiv:
		return KindBinary
	default:
		return KindWrite
	}
}

func (c Opcode) String() string {
	switch c {
	case OpRead:
		return "read"
	case OpResize:
		return "resize"
	case OpConvert:
		return "convert"
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpWrite:
		return "write"
	case OpSplit:
		return "split"
	default:
		return "unknown"
	}
}

// Size is a width and height in pixels.
type Size struct {
	Width, Height int
}

// IsZero reports whether both dimensions are zero.
func (s Size) IsZero() bool { return s.Width == 0 && s.Height == 0 }

// Extent is the logical output domain of a launch: one thread per
// (x, y, plane) with x < Width, y < Height, plane < Planes.
type Extent struct {
	Width, Height, Planes int
}

// IsEmpty reports whether the extent has no elements.
func (e Extent) IsEmpty() bool {
	return e.Width <= 0 || e.Height <= 0 || e.Planes <= 0
}

// Contains reports whether (x, y, z) is inside the extent.
func (e Extent) Contains(x, y, z int) bool {
	return x >= 0 && x < e.Width && y >= 0 && y < e.Height && z >= 0 && z < e.Planes
}

// Stage is one immutable pipeline step: its opcode, input and output
// formats, and the geometry-independent parameters the opcode needs.
// The coordinate a stage works on is supplied by the dispatcher when the
// kernel runs.
//
// Stages are built by the builder functions (Read, Add, Resize, Split, ...)
// and reached through Op.Stages.
type Stage struct {
	code       Opcode
	in, out    Format
	operand    Vec
	src        View
	resize     ResizeParams
	dsts       []View
	planar     bool
	degenerate bool
	batch      *batchInfo
}

// batchInfo is the fixed-capacity plane array of a batch stage.
type batchInfo struct {
	planes     []Stage
	active     int
	fallback   Vec
	hasDefault bool
}

// BatchInfo describes a batch stage: one stage per plane, the number of
// active planes and the optional value used for inactive planes.
type BatchInfo struct {
	Planes     []Stage
	Active     int
	Default    Vec
	HasDefault bool
}

// Code returns the opcode.
func (s Stage) Code() Opcode { return s.code }

// Kind returns the stage kind.
func (s Stage) Kind() Kind { return s.code.Kind() }

// In returns the input format.
func (s Stage) In() Format { return s.in }

// Out returns the output format.
func (s Stage) Out() Format { return s.out }

// Operand returns the packed operand of a binary stage.
func (s Stage) Operand() Vec { return s.operand }

// Source returns the source view of a plain read stage.
func (s Stage) Source() View { return s.src }

// Resize returns the parameters of a resize stage.
func (s Stage) Resize() ResizeParams { return s.resize }

// Destinations returns the destination views of a write or split stage.
func (s Stage) Destinations() []View { return slices.Clone(s.dsts) }

// Planar reports whether a split stage scatters into the planes of a
// single planar view.
func (s Stage) Planar() bool { return s.planar }

// IsDegenerate reports whether a read stage has a zero-sized source and
// therefore never reads memory.
func (s Stage) IsDegenerate() bool { return s.degenerate }

// Batch returns the batch description and true for batch stages.
func (s Stage) Batch() (BatchInfo, bool) {
	if s.batch == nil {
		return BatchInfo{}, false
	}
	return BatchInfo{
		Planes:     slices.Clone(s.batch.planes),
		Active:     s.batch.active,
		Default:    s.batch.fallback,
		HasDefault: s.batch.hasDefault,
	}, true
}

// IsBatch reports whether s is a batch stage.
func (s Stage) IsBatch() bool { return s.batch != nil }

// extent returns the output domain of a read stage.
func (s Stage) extent() Extent {
	if s.batch != nil {
		var e Extent
		for _, p := range s.batch.planes {
			pe := p.extent()
			e.Width = max(e.Width, pe.Width)
			e.Height = max(e.Height, pe.Height)
		}
		e.Planes = s.batch.active
		if s.batch.hasDefault {
			e.Planes = len(s.batch.planes)
		}
		return e
	}
	switch s.code {
	case OpResize:
		// Degenerate planes keep the explicit target size so that a batch
		// with no valid source still covers its planes with the default.
		return Extent{Width: s.resize.Width, Height: s.resize.Height, Planes: 1}
	case OpRead:
		return Extent{Width: s.src.width, Height: s.src.height, Planes: s.src.planes}
	}
	return Extent{}
}

func (s Stage) String() string {
	var b strings.Builder
	b.WriteString(s.code.String())
	if s.batch != nil {
		fmt.Fprintf(&b, "[%d/%d]", s.batch.active, len(s.batch.planes))
	}
	switch s.Kind() {
	case KindRead, KindWrite:
		fmt.Fprintf(&b, "(%s)", s.out)
	case KindUnary:
		fmt.Fprintf(&b, "(%s->%s)", s.in, s.out)
	case KindBinary:
		fmt.Fprintf(&b, "(%s,%s)", s.out, s.operand)
	}
	return b.String()
}
