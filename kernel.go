package fk

// Kernel is the fused per-element program of one chain. For every output
// coordinate it runs the read, each intermediate stage in order, and the
// write, with no intermediate storage.
//
// Elements are independent: Element touches only the memory addressed by
// its own coordinate, so any execution order gives the same result.
type Kernel struct {
	extent   Extent
	read     readFunc
	stages   []func(Vec) Vec
	write    writeFunc
	active   int
	inactive []bool
	fallback Vec
}

// readFunc loads the value for (x, y, z). It reports false when the
// coordinate lies outside the plane it addresses (heterogeneous batches).
type readFunc func(x, y, z int) (Vec, bool)

type writeFunc func(x, y, z int, v Vec)

// compile builds the kernel of a validated chain.
func compile(chain Op) *Kernel {
	stages := chain.stages
	head := stages[0]

	k := &Kernel{
		extent: head.extent(),
		read:   compileRead(head),
		write:  compileWrite(stages[len(stages)-1]),
		active: head.extent().Planes,
	}
	for _, s := range stages[1 : len(stages)-1] {
		k.stages = append(k.stages, compileStage(s))
	}

	if head.batch != nil {
		k.active = head.batch.active
		k.fallback = head.batch.fallback
		k.inactive = make([]bool, len(head.batch.planes))
		for i, p := range head.batch.planes {
			k.inactive[i] = p.degenerate
		}
	} else {
		k.fallback = Vec{N: head.out.Channels}
		if head.degenerate {
			k.inactive = []bool{true}
		}
	}
	if k.fallback.N == 0 {
		k.fallback.N = head.out.Channels
	}
	return k
}

// Extent returns the output domain of the kernel.
func (k *Kernel) Extent() Extent { return k.extent }

// Element evaluates the chain for output coordinate (x, y, z).
// Coordinates outside the extent perform no memory access.
func (k *Kernel) Element(x, y, z int) {
	if !k.extent.Contains(x, y, z) {
		return
	}
	if k.Inactive(z) {
		k.write(x, y, z, k.fallback)
		return
	}
	v, ok := k.read(x, y, z)
	if !ok {
		return
	}
	for _, stage := range k.stages {
		v = stage(v)
	}
	k.write(x, y, z, v)
}

// Inactive reports whether plane z is past the active plane count or has a
// degenerate source. Such planes produce the default value.
func (k *Kernel) Inactive(z int) bool {
	return z >= k.active || (z < len(k.inactive) && k.inactive[z])
}

// Default returns the value written for inactive planes.
func (k *Kernel) Default() Vec { return k.fallback }

// Masked reports whether (x, y, z) produces no output: outside the extent,
// or outside the source plane of a heterogeneous batch.
func (k *Kernel) Masked(x, y, z int) bool {
	if !k.extent.Contains(x, y, z) {
		return true
	}
	if k.Inactive(z) {
		return false
	}
	_, ok := k.read(x, y, z)
	return !ok
}

// Store runs only the write stage of the chain, storing v at (x, y, z).
// Device streams use it to move values computed on the device into the
// destination views. Masked coordinates are skipped.
func (k *Kernel) Store(x, y, z int, v Vec) {
	if k.Masked(x, y, z) {
		return
	}
	k.write(x, y, z, v)
}

func compileRead(s Stage) readFunc {
	if s.batch != nil {
		reads := make([]readFunc, len(s.batch.planes))
		for i, p := range s.batch.planes {
			reads[i] = compileRead(p)
		}
		return func(x, y, z int) (Vec, bool) {
			return reads[z](x, y, 0)
		}
	}

	switch s.code {
	case OpResize:
		p := s.resize
		return func(x, y, _ int) (Vec, bool) {
			if x >= p.Width || y >= p.Height {
				return Vec{}, false
			}
			return p.sample(x, y), true
		}
	default:
		src := s.src
		return func(x, y, z int) (Vec, bool) {
			if !src.Contains(x, y, z) {
				return Vec{}, false
			}
			return src.Load(x, y, z), true
		}
	}
}

func compileStage(s Stage) func(Vec) Vec {
	out := s.out.Elem
	operand := s.operand
	switch s.code {
	case OpAdd:
		return func(v Vec) Vec {
			for c := range v.N {
				v.V[c] += operand.V[c]
			}
			return v.narrow(out)
		}
	case OpSub:
		return func(v Vec) Vec {
			for c := range v.N {
				v.V[c] -= operand.V[c]
			}
			return v.narrow(out)
		}
	case OpMul:
		return func(v Vec) Vec {
			for c := range v.N {
				v.V[c] *= operand.V[c]
			}
			return v.narrow(out)
		}
	case OpDiv:
		return func(v Vec) Vec {
			for c := range v.N {
				v.V[c] /= operand.V[c]
			}
			return v.narrow(out)
		}
	default: // OpConvert
		return func(v Vec) Vec {
			return v.narrow(out)
		}
	}
}

func compileWrite(s Stage) writeFunc {
	if s.batch != nil {
		writes := make([]writeFunc, len(s.batch.planes))
		for i, p := range s.batch.planes {
			writes[i] = compileWrite(p)
		}
		return func(x, y, z int, v Vec) {
			if z < len(writes) {
				writes[z](x, y, 0, v)
			}
		}
	}

	switch {
	case s.code == OpSplit && s.planar:
		dst := s.dsts[0]
		return func(x, y, z int, v Vec) {
			if z != 0 || !dst.Contains(x, y, 0) {
				return
			}
			for c := range dst.planes {
				dst.storeChannel(x, y, c, v.V[c])
			}
		}
	case s.code == OpSplit:
		dsts := s.dsts
		return func(x, y, z int, v Vec) {
			if z != 0 {
				return
			}
			for c, dst := range dsts {
				if dst.Contains(x, y, 0) {
					dst.storeChannel(x, y, 0, v.V[c])
				}
			}
		}
	default:
		dst := s.dsts[0]
		return func(x, y, z int, v Vec) {
			if dst.Contains(x, y, z) {
				dst.Store(x, y, z, v)
			}
		}
	}
}
