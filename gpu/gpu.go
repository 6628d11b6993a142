// Package gpu provides fused-kernel streams backed by a WebGPU device.
//
// The stream generates one WGSL compute shader per distinct chain, compiles
// it with gogpu/naga and dispatches it through gogpu/wgpu. Chains without a
// device form run on the host inside the same ordered queue.
//
// Usage:
//
//	s, err := gpu.NewStream()
//	if errors.Is(err, fk.ErrFallbackToCPU) {
//	    s = fk.NewStream()
//	}
//	defer s.Close()
//
// To share a device with a host application (for example a gogpu window),
// pass its gpucontext.DeviceProvider:
//
//	s, err := gpu.NewStream(gpu.WithDeviceProvider(app))
package gpu

import (
	"fmt"
	"time"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/fk"
	gpuimpl "github.com/gogpu/fk/internal/gpu"
)

// Option configures a GPU stream during creation.
type Option func(*options)

type options struct {
	provider gpucontext.DeviceProvider
	timeout  time.Duration
}

// WithDeviceProvider runs the stream on the device of an external provider
// instead of opening a new one. The provider must also expose its HAL
// handles (HalDevice() any, HalQueue() any), as gogpu applications do.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// WithTimeout bounds how long the stream waits for one dispatch to finish.
// The default is five seconds.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// NewStream opens a GPU stream. It returns an error wrapping
// fk.ErrFallbackToCPU when no usable device is available.
func NewStream(opts ...Option) (fk.Stream, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if o.provider != nil {
		s, err := gpuimpl.OpenShared(o.provider, o.timeout)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", fk.ErrFallbackToCPU, err)
		}
		return s, nil
	}

	s, err := gpuimpl.Open(o.timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fk.ErrFallbackToCPU, err)
	}
	return s, nil
}

// NewStreamOrCPU opens a GPU stream and falls back to a CPU stream when no
// device is available. The fallback is logged as a warning.
func NewStreamOrCPU(opts ...Option) fk.Stream {
	s, err := NewStream(opts...)
	if err != nil {
		fk.Logger().Warn("GPU stream not available, using CPU", "err", err)
		return fk.NewStream()
	}
	return s
}
