//go:build !nogpu

package gpu

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/fk"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// maxInvocations is the WebGPU default limit for threads in one workgroup.
const maxInvocations = 256

// Stream executes fused launches as wgpu/hal compute dispatches.
//
// Launches are queued and run by a single worker goroutine, one submit and
// one fence wait per launch, so submission order is preserved. Chains the
// device kernel cannot express (see ErrUnsupported) run on the host on the
// same worker.
type Stream struct {
	mu       sync.Mutex // guards device resources
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	external bool // shared device, not destroyed on Close

	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipelines  map[string]*pipeline

	timeout time.Duration

	jobs chan job
	done chan struct{}

	closeMu sync.RWMutex
	closed  bool

	errMu     sync.Mutex
	submitErr error
	execErr   error
}

var (
	_ fk.Stream    = (*Stream)(nil)
	_ fk.Submitter = (*Stream)(nil)
)

type pipeline struct {
	shader   hal.ShaderModule
	pipeline hal.ComputePipeline
}

type job struct {
	launch *fk.Launch
	fence  chan struct{}
}

// Open creates a stream on the first discrete or integrated GPU adapter.
func Open(timeout time.Duration) (*Stream, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, errors.New("gpu: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("gpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, errors.New("gpu: no GPU adapters found")
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("gpu: open device: %w", err)
	}

	s, err := newStream(openDev.Device, openDev.Queue, timeout)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	s.instance = instance
	fk.Logger().Info("gpu: stream opened", "adapter", selected.Info.Name)
	return s, nil
}

// OpenShared creates a stream on a device owned by the host application.
// The provider must implement HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue. The device is not destroyed by Close.
func OpenShared(provider any, timeout time.Duration) (*Stream, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, errors.New("gpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, errors.New("gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, errors.New("gpu: provider HalQueue is not hal.Queue")
	}

	s, err := newStream(device, queue, timeout)
	if err != nil {
		return nil, err
	}
	s.external = true
	fk.Logger().Info("gpu: stream opened on shared device")
	return s, nil
}

func newStream(device hal.Device, queue hal.Queue, timeout time.Duration) (*Stream, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	s := &Stream{
		device:    device,
		queue:     queue,
		pipelines: make(map[string]*pipeline),
		timeout:   timeout,
		jobs:      make(chan job, 16),
		done:      make(chan struct{}),
	}
	if err := s.createLayouts(); err != nil {
		return nil, err
	}
	go s.work()
	return s, nil
}

func (s *Stream) createLayouts() error {
	bindLayout, err := s.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "fk_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 3, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create bind group layout: %w", err)
	}
	s.bindLayout = bindLayout

	pipeLayout, err := s.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "fk_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{s.bindLayout},
	})
	if err != nil {
		s.device.DestroyBindGroupLayout(s.bindLayout)
		return fmt.Errorf("gpu: create pipeline layout: %w", err)
	}
	s.pipeLayout = pipeLayout
	return nil
}

// Launch validates l and queues it. A fault is kept for Err.
func (s *Stream) Launch(l *fk.Launch) {
	if err := s.Submit(l); err != nil {
		s.setSubmitErr(err)
	}
}

// Submit validates l and queues it, returning the fault to the caller.
func (s *Stream) Submit(l *fk.Launch) error {
	if err := check(l); err != nil {
		return err
	}
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed {
		return fk.ErrStreamClosed
	}
	s.jobs <- job{launch: l}
	return nil
}

func check(l *fk.Launch) error {
	switch {
	case l == nil || l.Kernel == nil:
		return fmt.Errorf("%w: no kernel", fk.ErrInvalidLaunch)
	case l.Block.IsZero() || l.Block.Size() > maxInvocations:
		return fmt.Errorf("%w: workgroup %v", fk.ErrInvalidLaunch, l.Block)
	case l.Grid.IsZero():
		return fmt.Errorf("%w: empty grid %v", fk.ErrInvalidLaunch, l.Grid)
	}
	return nil
}

// Err returns the last submission fault and clears it.
func (s *Stream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	err := s.submitErr
	s.submitErr = nil
	return err
}

// Synchronize waits for every launch queued before the call and returns the
// first device fault since the previous Synchronize.
func (s *Stream) Synchronize(ctx context.Context) error {
	fence := make(chan struct{})
	s.closeMu.RLock()
	if s.closed {
		s.closeMu.RUnlock()
		return fk.ErrStreamClosed
	}
	select {
	case s.jobs <- job{fence: fence}:
	case <-ctx.Done():
		s.closeMu.RUnlock()
		return ctx.Err()
	}
	s.closeMu.RUnlock()

	select {
	case <-fence:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	err := s.execErr
	s.execErr = nil
	return err
}

// Close finishes queued launches and releases device resources.
func (s *Stream) Close() error {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return nil
	}
	s.closed = true
	close(s.jobs)
	s.closeMu.Unlock()
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pipelines {
		s.device.DestroyComputePipeline(p.pipeline)
		s.device.DestroyShaderModule(p.shader)
	}
	s.pipelines = nil
	s.device.DestroyPipelineLayout(s.pipeLayout)
	s.device.DestroyBindGroupLayout(s.bindLayout)
	if !s.external {
		s.device.Destroy()
		if s.instance != nil {
			s.instance.Destroy()
		}
	}
	s.device = nil
	s.queue = nil
	s.instance = nil

	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.execErr
}

func (s *Stream) work() {
	defer close(s.done)
	for j := range s.jobs {
		if j.fence != nil {
			close(j.fence)
			continue
		}
		if err := s.execute(j.launch); err != nil {
			fk.Logger().Warn("gpu: launch failed", "chain", j.launch.Chain, "err", err)
			s.setExecErr(err)
		}
	}
}

// execute runs one launch on the device, or on the host when the chain has
// no device form or its shader does not compile.
func (s *Stream) execute(l *fk.Launch) error {
	prog, err := Generate(l.Chain, l.Extent, l.Block)
	if errors.Is(err, ErrUnsupported) {
		fk.Logger().Debug("gpu: running launch on host", "reason", err)
		l.Run()
		return nil
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.pipelineFor(prog)
	if errors.Is(err, ErrUnsupported) {
		fk.Logger().Warn("gpu: shader rejected, running launch on host", "err", err)
		l.Run()
		return nil
	}
	if err != nil {
		return err
	}
	out, err := s.dispatch(p, prog, l.Grid)
	if err != nil {
		return err
	}
	return Scatter(out, l.Kernel, l.Chain.Out().Channels)
}

// pipelineFor returns the compute pipeline for prog, compiling it on first use.
func (s *Stream) pipelineFor(prog *Program) (*pipeline, error) {
	if p, ok := s.pipelines[prog.Source]; ok {
		return p, nil
	}
	spirv, err := CompileShaderToSPIRV(prog.Source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	shader, err := s.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "fk_kernel",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create shader module: %w", err)
	}
	cp, err := s.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "fk_kernel_pipeline", Layout: s.pipeLayout,
		Compute: hal.ComputeState{Module: shader, EntryPoint: "main"},
	})
	if err != nil {
		s.device.DestroyShaderModule(shader)
		return nil, fmt.Errorf("gpu: create compute pipeline: %w", err)
	}
	p := &pipeline{shader: shader, pipeline: cp}
	s.pipelines[prog.Source] = p
	return p, nil
}

// dispatch uploads the program tables, runs one compute pass over grid and
// returns the contents of the destination buffer.
func (s *Stream) dispatch(p *pipeline, prog *Program, grid fk.Dim3) ([]byte, error) {
	params := prog.ParamsBytes()
	planes := prog.PlanesBytes()
	source := prog.SourceBytes()
	outSize := uint64(prog.OutputBytes()) //nolint:gosec // size is positive

	var bufs []hal.Buffer
	defer func() {
		for _, b := range bufs {
			s.device.DestroyBuffer(b)
		}
	}()
	create := func(label string, size uint64, usage gputypes.BufferUsage) (hal.Buffer, error) {
		b, err := s.device.CreateBuffer(&hal.BufferDescriptor{Label: label, Size: size, Usage: usage})
		if err != nil {
			return nil, fmt.Errorf("gpu: create %s buffer: %w", label, err)
		}
		bufs = append(bufs, b)
		return b, nil
	}

	paramsBuf, err := create("fk_params", uint64(len(params)), gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	srcBuf, err := create("fk_src", uint64(len(source)), gputypes.BufferUsageStorage|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	planesBuf, err := create("fk_planes", uint64(len(planes)), gputypes.BufferUsageStorage|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	dstBuf, err := create("fk_dst", outSize, gputypes.BufferUsageStorage|gputypes.BufferUsageCopySrc)
	if err != nil {
		return nil, err
	}
	stagingBuf, err := create("fk_staging", outSize, gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}

	s.queue.WriteBuffer(paramsBuf, 0, params)
	s.queue.WriteBuffer(srcBuf, 0, source)
	s.queue.WriteBuffer(planesBuf, 0, planes)

	bg, err := s.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "fk_bind", Layout: s.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: paramsBuf.NativeHandle(), Offset: 0, Size: uint64(len(params))}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: srcBuf.NativeHandle(), Offset: 0, Size: uint64(len(source))}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: planesBuf.NativeHandle(), Offset: 0, Size: uint64(len(planes))}},
			{Binding: 3, Resource: gputypes.BufferBinding{Buffer: dstBuf.NativeHandle(), Offset: 0, Size: outSize}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create bind group: %w", err)
	}
	defer s.device.DestroyBindGroup(bg)

	encoder, err := s.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "fk_encoder"})
	if err != nil {
		return nil, fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("fk_launch"); err != nil {
		return nil, fmt.Errorf("gpu: begin encoding: %w", err)
	}
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "fk_pass"})
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(uint32(grid.X), uint32(grid.Y), uint32(grid.Z)) //nolint:gosec // grid is bounded by the dispatcher
	pass.End()
	encoder.CopyBufferToBuffer(dstBuf, stagingBuf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: outSize},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("gpu: end encoding: %w", err)
	}
	defer s.device.FreeCommandBuffer(cmdBuf)

	fence, err := s.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("gpu: create fence: %w", err)
	}
	defer s.device.DestroyFence(fence)
	if err := s.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return nil, fmt.Errorf("gpu: submit: %w", err)
	}
	ok, err := s.device.Wait(fence, 1, s.timeout)
	if err != nil || !ok {
		return nil, fmt.Errorf("gpu: wait for device: ok=%v err=%w", ok, err)
	}

	out := make([]byte, outSize)
	if err := s.queue.ReadBuffer(stagingBuf, 0, out); err != nil {
		return nil, fmt.Errorf("gpu: readback: %w", err)
	}
	return out, nil
}

// CompileShaderToSPIRV compiles WGSL source to a SPIR-V word slice.
func CompileShaderToSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("gpu: compile shader: %w", err)
	}
	// SPIR-V is little-endian 32-bit words.
	spirv := make([]uint32, len(spirvBytes)/4)
	for i := range spirv {
		spirv[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return spirv, nil
}

func (s *Stream) setSubmitErr(err error) {
	s.errMu.Lock()
	s.submitErr = err
	s.errMu.Unlock()
}

func (s *Stream) setExecErr(err error) {
	s.errMu.Lock()
	if s.execErr == nil {
		s.execErr = err
	}
	s.errMu.Unlock()
}
