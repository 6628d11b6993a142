package fk

import "github.com/gogpu/fk/internal/parallel"

// StreamOption configures a CPUStream during creation.
//
// Example:
//
//	// One worker per CPU, default queue depth
//	s := fk.NewStream()
//
//	// Four workers, room for 64 queued launches
//	s := fk.NewStream(fk.WithWorkers(4), fk.WithQueueDepth(64))
type StreamOption func(*streamOptions)

// streamOptions holds optional configuration for stream creation.
type streamOptions struct {
	workers    int
	maxThreads int
	queueDepth int
}

// defaultStreamOptions returns the default stream options.
func defaultStreamOptions() streamOptions {
	return streamOptions{
		workers:    0, // GOMAXPROCS
		maxThreads: parallel.MaxThreadsPerBlock,
		queueDepth: 16,
	}
}

// WithWorkers sets the number of goroutines that execute kernel blocks.
// Zero or a negative value uses GOMAXPROCS.
func WithWorkers(n int) StreamOption {
	return func(o *streamOptions) {
		o.workers = n
	}
}

// WithMaxThreadsPerBlock sets the largest block the stream accepts.
// Launches with bigger blocks are rejected with ErrInvalidLaunch, the way a
// device rejects a configuration that exceeds its limits.
func WithMaxThreadsPerBlock(n int) StreamOption {
	return func(o *streamOptions) {
		if n > 0 {
			o.maxThreads = n
		}
	}
}

// WithQueueDepth sets how many launches may be queued before Launch blocks.
func WithQueueDepth(n int) StreamOption {
	return func(o *streamOptions) {
		if n > 0 {
			o.queueDepth = n
		}
	}
}
