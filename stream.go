package fk

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/fk/internal/parallel"
)

// Stream is an ordered, asynchronous execution queue.
//
// Launches submitted to one stream run in submission order; launches on
// different streams may run concurrently. Launch returns without waiting
// for the kernel. Memory referenced by a launch must stay alive until
// Synchronize returns.
type Stream interface {
	// Launch queues l. It never blocks on kernel execution; faults in the
	// launch configuration are recorded for Err.
	Launch(l *Launch)

	// Err returns the last submission fault and clears it. The fault
	// belongs to whichever launch caused it, so callers sharing a stream
	// that does not implement Submitter must serialize Launch and Err.
	Err() error

	// Synchronize waits until every launch queued so far has finished and
	// returns the first execution fault since the previous Synchronize.
	// ctx bounds the wait only; queued launches keep running.
	Synchronize(ctx context.Context) error

	// Close waits for queued launches and releases the stream.
	Close() error
}

// Submitter is implemented by streams that hand the submission fault of a
// launch back to the goroutine that queued it. Execute uses Submit when the
// stream provides it, so concurrent Execute calls on one stream each see
// only their own fault.
type Submitter interface {
	Submit(l *Launch) error
}

// CPUStream executes launches on a host worker pool.
//
// A single dispatcher goroutine takes launches off the queue in order and
// fans the blocks of each launch out over the pool, so a launch starts only
// after the previous one has completed.
//
// Thread safety: CPUStream is safe for concurrent use.
type CPUStream struct {
	opts  streamOptions
	pool  *parallel.WorkerPool
	queue chan streamItem
	done  chan struct{}

	mu     sync.RWMutex // guards closed against concurrent sends
	closed bool

	errMu     sync.Mutex
	submitErr error
	execErr   error
}

// streamItem is either a launch or a fence closed once everything queued
// before it has run.
type streamItem struct {
	launch *Launch
	fence  chan struct{}
}

// NewStream creates a CPU stream and starts its workers.
func NewStream(opts ...StreamOption) *CPUStream {
	o := defaultStreamOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &CPUStream{
		opts:  o,
		pool:  parallel.NewWorkerPool(o.workers),
		queue: make(chan streamItem, o.queueDepth),
		done:  make(chan struct{}),
	}
	go s.dispatch()

	Logger().Info("fk: cpu stream started", "workers", s.pool.Workers())
	return s
}

// Workers returns the number of goroutines executing kernel blocks.
func (s *CPUStream) Workers() int {
	return s.pool.Workers()
}

func (s *CPUStream) dispatch() {
	defer close(s.done)
	for item := range s.queue {
		if item.fence != nil {
			close(item.fence)
			continue
		}
		s.run(item.launch)
	}
}

// run executes one launch and records a panic from the kernel as an
// execution fault.
func (s *CPUStream) run(l *Launch) {
	if err := s.pool.RunGrid(l.Grid, l.Block, l.Kernel.Element); err != nil {
		s.setExecErr(fmt.Errorf("fk: kernel fault: %w", err))
	}
}

// Launch validates l and queues it. A fault is kept for Err.
func (s *CPUStream) Launch(l *Launch) {
	if err := s.Submit(l); err != nil {
		s.setSubmitErr(err)
	}
}

// Submit validates l and queues it, returning the submission fault to the
// caller instead of keeping it for Err.
func (s *CPUStream) Submit(l *Launch) error {
	if err := s.check(l); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStreamClosed
	}
	s.queue <- streamItem{launch: l}
	return nil
}

// check rejects launch configurations a device would refuse.
func (s *CPUStream) check(l *Launch) error {
	switch {
	case l == nil || l.Kernel == nil:
		return fmt.Errorf("%w: no kernel", ErrInvalidLaunch)
	case l.Block.IsZero():
		return fmt.Errorf("%w: empty block %v", ErrInvalidLaunch, l.Block)
	case l.Block.Size() > s.opts.maxThreads:
		return fmt.Errorf("%w: block %v has %d threads, limit %d",
			ErrInvalidLaunch, l.Block, l.Block.Size(), s.opts.maxThreads)
	case l.Grid.IsZero():
		return fmt.Errorf("%w: empty grid %v", ErrInvalidLaunch, l.Grid)
	case l.Grid.Y > parallel.MaxGridDim || l.Grid.Z > parallel.MaxGridDim:
		return fmt.Errorf("%w: grid %v exceeds %d", ErrInvalidLaunch, l.Grid, parallel.MaxGridDim)
	}
	return nil
}

// Err returns the last submission fault and clears it.
func (s *CPUStream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	err := s.submitErr
	s.submitErr = nil
	return err
}

// Synchronize waits for every launch queued before the call.
func (s *CPUStream) Synchronize(ctx context.Context) error {
	fence := make(chan struct{})

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrStreamClosed
	}
	select {
	case s.queue <- streamItem{fence: fence}:
	case <-ctx.Done():
		s.mu.RUnlock()
		return ctx.Err()
	}
	s.mu.RUnlock()

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

// Close drains the queue, stops the workers and returns any execution fault
// that was not reported by Synchronize. Close is safe to call multiple times.
func (s *CPUStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	<-s.done
	s.pool.Close()

	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.execErr
}

func (s *CPUStream) setSubmitErr(err error) {
	s.errMu.Lock()
	s.submitErr = err
	s.errMu.Unlock()
}

func (s *CPUStream) setExecErr(err error) {
	s.errMu.Lock()
	if s.execErr == nil {
		s.execErr = err
	}
	s.errMu.Unlock()
}
