// Package gpu runs fused kernels as WebGPU compute shaders.
//
// Generate lowers a validated chain into a WGSL program: one invocation per
// output element, values carried as vec4<f32>, every stage followed by the
// same narrowing the host kernel applies. The shader is compiled to SPIR-V
// with gogpu/naga and dispatched through gogpu/wgpu/hal with the grid and
// workgroup size chosen by fk.LaunchGeometry.
//
// Memory layout of one dispatch:
//
//	binding 0  uniform  Params { width, height, planes, active }
//	binding 1  storage  src    array<vec4<f32>>  all plane sources, packed
//	binding 2  storage  planes array<Plane>      per-plane offset, size, scale
//	binding 3  storage  dst    array<vec4<f32>>  one element per output
//
// Sources are expanded to vec4<f32> on the host before upload and results
// are scattered back into the destination views through fk.Kernel.Store,
// so destinations of any supported layout (pitched, planar, split) are
// written exactly as the host kernel would write them.
//
// Chains with element types that do not round-trip through f32 (Int32,
// Float64) or need half-precision rounding (Float16) have no device form;
// Generate reports ErrUnsupported and the stream runs them on the host.
package gpu
