package fk

import (
	"fmt"

	"github.com/gogpu/fk/internal/parallel"
)

// Dim3 is a three dimensional launch size in blocks (grid) or threads (block).
type Dim3 = parallel.Dim3

// LaunchGeometry returns the grid and block that cover e.
//
// Row-shaped extents (height 1) use blocks of 256 threads, 2D extents use
// 32×8 tiles; both are capped at the extent. Planes map to the grid's Z
// dimension. The grid is ⌈extent/block⌉ per dimension; threads of the last
// partial tile fall outside e and are masked by the kernel.
func LaunchGeometry(e Extent) (grid, block Dim3) {
	return parallel.Geometry(e.Width, e.Height, e.Planes)
}

// Launch is one kernel invocation handed to a Stream.
type Launch struct {
	Grid   Dim3
	Block  Dim3
	Extent Extent

	// Chain is the validated chain the kernel was compiled from. Streams
	// that generate device code read its stages.
	Chain Op

	// Kernel is the host-executable fused program.
	Kernel *Kernel
}

// Run evaluates every thread of the launch on the calling goroutine.
func (l *Launch) Run() {
	parallel.ForEachThread(l.Grid, l.Block, 0, l.Grid.Size(), l.Kernel.Element)
}

// Execute links ops into one chain and submits it to s as a single launch.
//
// The chain must start with a read and end with a write. The output extent
// comes from the read (the target size for a resize), destinations must be
// large enough to hold it, and the launch geometry covers it. Execute
// returns as soon as the launch is queued: synchronize s before reading the
// destinations, and keep every referenced buffer alive until then.
//
// Right after submission Execute asks s for a submission fault, through
// Submitter when s implements it and through Err otherwise. Streams without
// Submitter must not be shared by concurrent Execute calls. A fault
// means the launch itself was malformed; it is returned wrapped in
// ErrSubmission and must not be retried.
func Execute(s Stream, ops ...Op) error {
	chain, err := Chain(ops...)
	if err != nil {
		return err
	}
	if err := chain.Validate(); err != nil {
		return err
	}

	extent := chain.Extent()
	if err := checkDestination(chain, extent); err != nil {
		return err
	}
	if extent.IsEmpty() {
		Logger().Debug("fk: empty extent, nothing to launch", "chain", chain)
		return nil
	}

	grid, block := LaunchGeometry(extent)
	Logger().Debug("fk: launch",
		"chain", chain,
		"extent", extent,
		"grid", grid,
		"block", block)

	l := &Launch{
		Grid:   grid,
		Block:  block,
		Extent: extent,
		Chain:  chain,
		Kernel: compile(chain),
	}
	if err := submit(s, l); err != nil {
		return fmt.Errorf("%w: %w", ErrSubmission, err)
	}
	return nil
}

// submit queues l and returns its submission fault.
func submit(s Stream, l *Launch) error {
	if sub, ok := s.(Submitter); ok {
		return sub.Submit(l)
	}
	s.Launch(l)
	return s.Err()
}

// Transform runs Read(src), ops and Write(dst) as one fused launch.
func Transform(s Stream, src, dst View, ops ...Op) error {
	all := make([]Op, 0, len(ops)+2)
	all = append(all, Read(src))
	all = append(all, ops...)
	all = append(all, Write(dst))
	return Execute(s, all...)
}

// checkDestination verifies that the write stage can hold extent.
func checkDestination(chain Op, extent Extent) error {
	w := chain.stages[len(chain.stages)-1]
	if w.batch != nil {
		if len(w.batch.planes) < extent.Planes {
			return fmt.Errorf("%w: %d destination planes for %d output planes",
				ErrExtentMismatch, len(w.batch.planes), extent.Planes)
		}
		return nil
	}

	planes := extent.Planes
	if w.planar {
		// Planes of a planar split hold channels, not batch planes.
		if extent.Planes > 1 {
			return fmt.Errorf("%w: planar split of a %d-plane launch", ErrExtentMismatch, extent.Planes)
		}
		planes = w.dsts[0].planes
	}
	for i, d := range w.dsts {
		if d.width < extent.Width || d.height < extent.Height || d.planes < planes {
			return fmt.Errorf("%w: destination %d is %s, extent %dx%dx%d",
				ErrExtentMismatch, i, d, extent.Width, extent.Height, extent.Planes)
		}
	}
	return nil
}
