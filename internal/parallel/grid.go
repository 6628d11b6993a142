// Package parallel provides the launch-grid model and the worker pool that
// execute fused kernels on the host.
//
// A launch covers an output extent with a grid of blocks. Every block holds
// Block.X × Block.Y × Block.Z logical threads, one per output element. Edge
// blocks may reach past the extent; the kernel masks those threads.
//
// Thread safety: Dim3 and the geometry helpers are plain values.
// WorkerPool is safe for concurrent use.
package parallel

// Launch geometry constants.
const (
	// Block1D is the block width used for row-shaped (height 1) outputs.
	Block1D = 256

	// TileWidth is the block width used for 2D outputs.
	TileWidth = 32

	// TileHeight is the block height used for 2D outputs.
	// TileWidth × TileHeight is 256 threads, the same budget as Block1D.
	TileHeight = 8

	// MaxThreadsPerBlock is the default upper bound for threads in one block.
	MaxThreadsPerBlock = 1024

	// MaxGridDim is the largest number of blocks along Y or Z.
	MaxGridDim = 65535
)

// Dim3 is a three dimensional launch size, counted in blocks (grid) or in
// threads (block).
type Dim3 struct {
	X, Y, Z int
}

// Size returns X × Y × Z.
func (d Dim3) Size() int {
	return d.X * d.Y * d.Z
}

// IsZero reports whether any dimension is zero or negative.
func (d Dim3) IsZero() bool {
	return d.X <= 0 || d.Y <= 0 || d.Z <= 0
}

// Geometry computes the grid and block for an output extent of
// width × height × depth elements.
//
// Row-shaped outputs (height 1) use a Block1D-wide block, everything else a
// TileWidth × TileHeight tile. Both are capped at the extent so a small image
// does not launch idle threads. Depth always maps to grid Z with one thread
// per block along Z. The grid is the ceiling of extent/block per dimension,
// so grid × block covers every element of the extent.
//
// A zero or negative dimension yields a zero grid.
func Geometry(width, height, depth int) (grid, block Dim3) {
	if width <= 0 || height <= 0 || depth <= 0 {
		return Dim3{}, Dim3{}
	}

	if height == 1 {
		block = Dim3{X: min(Block1D, width), Y: 1, Z: 1}
	} else {
		block = Dim3{X: min(TileWidth, width), Y: min(TileHeight, height), Z: 1}
	}

	grid = Dim3{
		X: ceilDiv(width, block.X),
		Y: ceilDiv(height, block.Y),
		Z: depth,
	}
	return grid, block
}

// BlockAt returns the 3D block coordinate for a linear block index.
// Blocks are numbered X-fastest, then Y, then Z.
func BlockAt(grid Dim3, index int) Dim3 {
	perPlane := grid.X * grid.Y
	z := index / perPlane
	rem := index - z*perPlane
	y := rem / grid.X
	return Dim3{X: rem - y*grid.X, Y: y, Z: z}
}

// ForEachThread calls fn with the global (x, y, z) coordinate of every
// thread in the blocks [first, last) of grid. Coordinates past the output
// extent are passed through; masking is the kernel's job.
func ForEachThread(grid, block Dim3, first, last int, fn func(x, y, z int)) {
	for i := first; i < last; i++ {
		b := BlockAt(grid, i)
		x0 := b.X * block.X
		y0 := b.Y * block.Y
		z0 := b.Z * block.Z
		for tz := range block.Z {
			for ty := range block.Y {
				for tx := range block.X {
					fn(x0+tx, y0+ty, z0+tz)
				}
			}
		}
	}
}

// ceilDiv returns ⌈a/b⌉ for positive a and b.
func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
