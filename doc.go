// Package fk fuses chains of elementwise image operations into single
// kernel launches.
//
// # Overview
//
// An image pipeline such as crop → resize → convert → normalize → split
// normally runs as one pass per step, writing a full intermediate image
// after each. fk describes every step as an immutable operation descriptor
// (Op), links the descriptors into a chain, and executes the whole chain as
// one kernel: each output element is read once, transformed by every stage
// in order, and written once.
//
// # Quick Start
//
//	import "github.com/gogpu/fk"
//
//	s := fk.NewStream()
//	defer s.Close()
//
//	src, _ := fk.NewImage(640, 480, fk.U8C3)
//	dst, _ := fk.NewImage(640, 480, fk.F32C3)
//
//	conv, _ := fk.ConvertTo(fk.U8C3, fk.F32C3)
//	scale, _ := fk.Multiply(fk.F32C3, fk.NewScalar(1.0/255, 1.0/255, 1.0/255))
//
//	if err := fk.Transform(s, src.View(), dst.View(), conv, scale); err != nil {
//	    log.Fatal(err)
//	}
//	if err := s.Synchronize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Operations
//
// Every Op is a sequence of stages of one of four kinds:
//   - Read: Read, Resize, batch reads (ResizeBatch)
//   - Unary: ConvertTo
//   - Binary: Add, Subtract, Multiply, Divide with a Scalar operand
//   - Write: Write, Split, SplitPlanar, WriteBatch
//
// Op.Then links two Ops when the output Format of the first equals the
// input Format of the second. A chain passed to Execute must start with
// exactly one read and end with exactly one write. Format mismatches and
// malformed chains are reported by the builders, Then and Validate before
// anything is launched.
//
// # Numeric Semantics
//
// Values travel between stages as Vec (up to four float64 channels). Every
// stage narrows its result to its output element type: integers round half
// to even and saturate, Float32 and Float16 round through their IEEE
// representation. A fused chain therefore produces exactly the bytes that
// running its stages as separate passes would.
//
// # Batches
//
// Batch reads carry one plane per independent input; the plane index is
// the third launch dimension. BatchWithDefault fixes the capacity of a
// batch: planes at or past the active count, and planes whose source is
// degenerate, receive the default value without touching memory.
//
// # Execution
//
// Execute computes the output extent and the launch geometry, compiles the
// chain into a Kernel and submits one Launch to a Stream. Streams are
// asynchronous and ordered; call Synchronize before reading destinations.
// CPUStream runs kernels on a host worker pool. The gpu sub-package provides
// a WebGPU compute stream built on gogpu/wgpu.
//
// # Logging
//
// fk is silent by default. SetLogger installs a log/slog logger shared by
// all sub-packages.
package fk
