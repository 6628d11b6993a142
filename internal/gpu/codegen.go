package gpu

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/fk"
)

// ErrUnsupported is returned by Generate for chains the device kernel cannot
// express exactly. Streams run such launches on the host instead.
var ErrUnsupported = errors.New("gpu: chain not supported on device")

// Plane flags.
const (
	planeValid   uint32 = 1 << 0
	planeNearest uint32 = 1 << 1
)

// planeBytes is the size of one Plane record in the planes buffer.
const planeBytes = 32

// Plane describes where one launch plane reads its source inside the packed
// source buffer. Offsets and sizes count vec4<f32> elements.
type Plane struct {
	Offset    uint32
	SrcWidth  uint32
	SrcHeight uint32
	Width     uint32
	Height    uint32
	Flags     uint32
	ScaleX    float32
	ScaleY    float32

	// Source is the host view packed at Offset. Degenerate planes have
	// none.
	Source fk.View
}

// Program is a fused chain lowered to a WGSL compute shader plus the tables
// the shader reads.
type Program struct {
	// Source is the WGSL code. Its entry point is "main".
	Source string

	// Block is the workgroup size baked into the shader.
	Block fk.Dim3

	// Width, Height, Depth and Active fill the Params uniform.
	Width, Height, Depth, Active uint32

	// Planes has one entry per launch plane.
	Planes []Plane

	// SrcLen is the number of vec4<f32> elements of the source buffer.
	SrcLen int
}

// deviceElem reports whether values of t survive a round trip through f32
// unchanged and can be narrowed in WGSL.
func deviceElem(t fk.ElemType) bool {
	switch t {
	case fk.Uint8, fk.Uint16, fk.Int16, fk.Float32:
		return true
	}
	return false
}

// Generate lowers a validated chain to a WGSL compute program for the given
// launch extent and block.
//
// Values travel as vec4<f32>. Each stage narrows its result to its output
// element type with the same rules as the host kernel (round half to even,
// saturate, NaN to zero). Chains touching Int32, Float64 or Float16 return
// ErrUnsupported.
func Generate(chain fk.Op, extent fk.Extent, block fk.Dim3) (*Program, error) {
	if err := chain.Validate(); err != nil {
		return nil, err
	}
	stages := chain.Stages()
	for _, s := range stages {
		if !deviceElem(s.In().Elem) || !deviceElem(s.Out().Elem) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupported, s)
		}
		if s.Kind() == fk.KindBinary && !finite(s.Operand()) {
			return nil, fmt.Errorf("%w: non-finite operand in %s", ErrUnsupported, s)
		}
	}

	head := stages[0]
	prog := &Program{
		Block:  block,
		Width:  uint32(extent.Width),  //nolint:gosec // extent fits uint32
		Height: uint32(extent.Height), //nolint:gosec // extent fits uint32
		Depth:  uint32(extent.Planes), //nolint:gosec // extent fits uint32
		Active: uint32(extent.Planes), //nolint:gosec // extent fits uint32
	}

	def := fk.Vec{N: head.Out().Channels}
	if info, ok := head.Batch(); ok {
		prog.Active = uint32(info.Active) //nolint:gosec // plane count fits uint32
		if info.HasDefault {
			def = info.Default
		}
		for _, p := range info.Planes {
			prog.addPlane(p, p.Source())
		}
	} else if head.Code() == fk.OpRead && head.Source().Planes() > 1 {
		src := head.Source()
		for i := range src.Planes() {
			prog.addPlane(head, src.Plane(i))
		}
	} else {
		prog.addPlane(head, head.Source())
	}
	if !finite(def) {
		return nil, fmt.Errorf("%w: non-finite default %s", ErrUnsupported, def)
	}

	var b strings.Builder
	writeHeader(&b)
	writeNarrowing(&b, stages)
	writeSampling(&b, head)
	writeMain(&b, stages, block, def)
	prog.Source = b.String()
	return prog, nil
}

func (p *Program) addPlane(s fk.Stage, src fk.View) {
	pl := Plane{Offset: uint32(p.SrcLen), Flags: planeValid} //nolint:gosec // buffer offsets fit uint32
	if s.IsDegenerate() {
		pl.Flags = 0
		p.Planes = append(p.Planes, pl)
		return
	}

	if s.Code() == fk.OpResize {
		r := s.Resize()
		src = r.Src
		pl.Width = uint32(r.Width)   //nolint:gosec // sizes fit uint32
		pl.Height = uint32(r.Height) //nolint:gosec // sizes fit uint32
		pl.ScaleX = float32(r.ScaleX)
		pl.ScaleY = float32(r.ScaleY)
		if r.Interp == fk.InterpNearest {
			pl.Flags |= planeNearest
		}
	} else {
		pl.Width = uint32(src.Width())   //nolint:gosec // sizes fit uint32
		pl.Height = uint32(src.Height()) //nolint:gosec // sizes fit uint32
	}
	pl.SrcWidth = uint32(src.Width())   //nolint:gosec // sizes fit uint32
	pl.SrcHeight = uint32(src.Height()) //nolint:gosec // sizes fit uint32
	pl.Source = src
	p.SrcLen += src.Width() * src.Height()
	p.Planes = append(p.Planes, pl)
}

const shaderHeader = `struct Params {
    width: u32,
    height: u32,
    planes: u32,
    active: u32,
}

struct Plane {
    offset: u32,
    src_width: u32,
    src_height: u32,
    width: u32,
    height: u32,
    flags: u32,
    scale_x: f32,
    scale_y: f32,
}

@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var<storage, read> src: array<vec4<f32>>;
@group(0) @binding(2) var<storage, read> planes: array<Plane>;
@group(0) @binding(3) var<storage, read_write> dst: array<vec4<f32>>;

fn load(p: Plane, x: i32, y: i32) -> vec4<f32> {
    return src[p.offset + u32(y) * p.src_width + u32(x)];
}
`

func writeHeader(b *strings.Builder) {
	b.WriteString(shaderHeader)
}

// writeNarrowing emits one narrow_<type> function per integer element type
// the chain produces.
func writeNarrowing(b *strings.Builder, stages []fk.Stage) {
	seen := map[fk.ElemType]bool{}
	for _, s := range stages[:len(stages)-1] {
		t := s.Out().Elem
		if !t.IsInteger() || seen[t] {
			continue
		}
		seen[t] = true
		lo, hi := t.Range()
		fmt.Fprintf(b, `
fn narrow_%s(v: vec4<f32>) -> vec4<f32> {
    let r = clamp(round(v), vec4<f32>(%s), vec4<f32>(%s));
    return select(vec4<f32>(0.0), r, v == v);
}
`, t, literal(lo), literal(hi))
	}
}

const samplingSource = `
fn sample_nearest(p: Plane, x: u32, y: u32) -> vec4<f32> {
    let sx = clamp(i32(floor((f32(x) + 0.5) * p.scale_x)), 0, i32(p.src_width) - 1);
    let sy = clamp(i32(floor((f32(y) + 0.5) * p.scale_y)), 0, i32(p.src_height) - 1);
    return load(p, sx, sy);
}

fn sample_linear(p: Plane, x: u32, y: u32) -> vec4<f32> {
    let fx = (f32(x) + 0.5) * p.scale_x - 0.5;
    let fy = (f32(y) + 0.5) * p.scale_y - 0.5;
    let fx0 = floor(fx);
    let fy0 = floor(fy);
    let tx = fx - fx0;
    let ty = fy - fy0;
    let mx = i32(p.src_width) - 1;
    let my = i32(p.src_height) - 1;
    let x0 = clamp(i32(fx0), 0, mx);
    let x1 = clamp(i32(fx0) + 1, 0, mx);
    let y0 = clamp(i32(fy0), 0, my);
    let y1 = clamp(i32(fy0) + 1, 0, my);
    let top = mix(load(p, x0, y0), load(p, x1, y0), tx);
    let bottom = mix(load(p, x0, y1), load(p, x1, y1), tx);
    return mix(top, bottom, ty);
}

fn read_source(p: Plane, x: u32, y: u32) -> vec4<f32> {
    if ((p.flags & 2u) != 0u) {
        return sample_nearest(p, x, y);
    }
    return sample_linear(p, x, y);
}
`

const plainReadSource = `
fn read_source(p: Plane, x: u32, y: u32) -> vec4<f32> {
    return load(p, i32(x), i32(y));
}
`

func writeSampling(b *strings.Builder, head fk.Stage) {
	if head.Code() == fk.OpResize {
		b.WriteString(samplingSource)
		return
	}
	b.WriteString(plainReadSource)
}

func writeMain(b *strings.Builder, stages []fk.Stage, block fk.Dim3, def fk.Vec) {
	fmt.Fprintf(b, `
@compute @workgroup_size(%d, %d, %d)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    if (id.x >= params.width || id.y >= params.height || id.z >= params.planes) {
        return;
    }
    let index = (id.z * params.height + id.y) * params.width + id.x;
    let p = planes[id.z];
    if (id.z >= params.active || (p.flags & 1u) == 0u) {
        dst[index] = %s;
        return;
    }
    if (id.x >= p.width || id.y >= p.height) {
        return;
    }
    var v = read_source(p, id.x, id.y);
`, block.X, block.Y, block.Z, vec4Literal(def))

	for _, s := range stages[1 : len(stages)-1] {
		fmt.Fprintf(b, "    v = %s; // %s\n", narrowExpr(s.Out().Elem, stageExpr(s)), s.Code())
	}
	b.WriteString("    dst[index] = v;\n}\n")
}

func stageExpr(s fk.Stage) string {
	operand := vec4Literal(s.Operand())
	switch s.Code() {
	case fk.OpAdd:
		return "v + " + operand
	case fk.OpSub:
		return "v - " + operand
	case fk.OpMul:
		return "v * " + operand
	case fk.OpDiv:
		return "v / " + operand
	default:
		return "v"
	}
}

func narrowExpr(t fk.ElemType, expr string) string {
	if t.IsInteger() {
		return fmt.Sprintf("narrow_%s(%s)", t, expr)
	}
	return expr
}

// vec4Literal formats v as a vec4<f32> constructor. Unused channels are 0.
func vec4Literal(v fk.Vec) string {
	parts := make([]string, 4)
	for c := range 4 {
		x := 0.0
		if c < v.N {
			x = v.V[c]
		}
		parts[c] = literal(x)
	}
	return "vec4<f32>(" + strings.Join(parts, ", ") + ")"
}

// literal formats x as the shortest WGSL float literal that round-trips
// through f32.
func literal(x float64) string {
	s := strconv.FormatFloat(x, 'g', -1, 32)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func finite(v fk.Vec) bool {
	for c := range v.N {
		if math.IsNaN(v.V[c]) || math.IsInf(v.V[c], 0) {
			return false
		}
	}
	return true
}
