package parallel

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool is a pool of goroutines that execute kernel blocks.
//
// Every worker owns a queue. Work is distributed round-robin and an idle
// worker steals from the other queues, which keeps all workers busy when the
// cost of a block varies (for example masked edge blocks).
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers    int
	workQueues []chan func()
	done       chan struct{}
	wg         sync.WaitGroup
	running    atomic.Bool
}

// NewWorkerPool creates a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
// The workers start immediately.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := max(workers*4, 8)

	p := &WorkerPool{
		workers:    workers,
		workQueues: make([]chan func(), workers),
		done:       make(chan struct{}),
	}
	for i := range workers {
		p.workQueues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}

	return p
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	own := p.workQueues[id]
	for {
		select {
		case <-p.done:
			p.drain(own)
			return
		case work := <-own:
			work()
		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}
			select {
			case <-p.done:
				p.drain(own)
				return
			case work := <-own:
				work()
			}
		}
	}
}

func (p *WorkerPool) drain(queue chan func()) {
	for {
		select {
		case work := <-queue:
			work()
		default:
			return
		}
	}
}

func (p *WorkerPool) steal(id int) func() {
	for i := range p.workers {
		if i == id {
			continue
		}
		select {
		case work := <-p.workQueues[i]:
			return work
		default:
		}
	}
	return nil
}

// Range splits [0, n) into contiguous chunks, runs fn(first, last) for each
// chunk on the pool and waits for all of them.
//
// The number of chunks is at most four per worker so stealing can balance
// uneven chunks. A closed pool runs nothing.
func (p *WorkerPool) Range(n int, fn func(first, last int)) {
	if n <= 0 || !p.running.Load() {
		return
	}

	chunks := min(n, p.workers*4)
	step := ceilDiv(n, chunks)

	var wg sync.WaitGroup
	for i, first := 0, 0; first < n; i, first = i+1, first+step {
		last := min(first+step, n)
		wg.Add(1)
		work := func() {
			defer wg.Done()
			fn(first, last)
		}
		select {
		case p.workQueues[i%p.workers] <- work:
		case <-p.done:
			wg.Done()
		}
	}
	wg.Wait()
}

// RunGrid executes fn for every thread of grid × block on the pool and
// returns when all blocks are done. A panic in fn stops the chunk it
// happened in and is returned as an error after the other chunks finish.
func (p *WorkerPool) RunGrid(grid, block Dim3, fn func(x, y, z int)) error {
	if grid.IsZero() || block.IsZero() {
		return nil
	}

	var (
		mu    sync.Mutex
		fault error
	)
	p.Range(grid.Size(), func(first, last int) {
		defer func() {
			if r := recover(); r != nil {
				mu.Lock()
				if fault == nil {
					fault = fmt.Errorf("parallel: blocks [%d,%d): %v", first, last, r)
				}
				mu.Unlock()
			}
		}()
		ForEachThread(grid, block, first, last, fn)
	})
	return fault
}

// Close stops accepting work, finishes queued work and stops the workers.
// Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning reports whether the pool still accepts work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}
