package parallel

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/gogpu/webpaint"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("parallel: worker pool closed")

// Worker processes jobs on one goroutine. Its state, such as a font
// context, is never shared with other workers.
type Worker[J, R any] interface {
	Do(job J) R
	Close()
}

// Factory builds the worker for slot id. It is called again with the same
// id when that worker crashes.
type Factory[J, R any] func(id int) Worker[J, R]

// Result is the outcome of one job.
type Result[J, R any] struct {
	Job    J
	Value  R
	Worker int

	// Lost is set when the worker panicked. Value is the zero value and
	// Panic holds the recovered value.
	Lost  bool
	Panic any
}

// WorkerPool runs a fixed number of supervised workers over a shared job
// queue and reports results on one channel. A worker that panics reports
// its job as Lost and is replaced by a fresh one from the factory.
//
// Thread safety: Submit and Close may be called from any goroutine.
type WorkerPool[J, R any] struct {
	workers int
	factory Factory[J, R]

	jobs    chan J
	results chan Result[J, R]
	done    chan struct{}
	wg      sync.WaitGroup

	running  atomic.Bool
	respawns atomic.Uint64
}

// NewWorkerPool builds workers Workers with factory and starts one
// goroutine for each. Every worker exists when NewWorkerPool returns. If
// workers is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool[J, R any](workers int, factory Factory[J, R]) *WorkerPool[J, R] {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	// Buffer size: 2-4x workers helps hide latency
	queueSize := max(workers*4, 8)

	p := &WorkerPool[J, R]{
		workers: workers,
		factory: factory,
		jobs:    make(chan J, queueSize),
		results: make(chan Result[J, R], queueSize),
		done:    make(chan struct{}),
	}
	p.running.Store(true)

	built := make([]Worker[J, R], workers)
	for i := range built {
		built[i] = factory(i)
	}
	p.wg.Add(workers)
	for i, w := range built {
		go p.worker(i, w)
	}
	return p
}

func (p *WorkerPool[J, R]) worker(id int, w Worker[J, R]) {
	defer p.wg.Done()
	defer func() { closeWorker(w, id) }()

	for {
		select {
		case <-p.done:
			return
		case job := <-p.jobs:
			res := p.run(w, id, job)
			if res.Lost {
				webpaint.Logger().Warn("parallel: worker crashed, respawning",
					"worker", id, "panic", fmt.Sprint(res.Panic))
				closeWorker(w, id)
				w = p.factory(id)
				p.respawns.Add(1)
			}
			select {
			case p.results <- res:
			case <-p.done:
				return
			}
		}
	}
}

func (p *WorkerPool[J, R]) run(w Worker[J, R], id int, job J) (res Result[J, R]) {
	res = Result[J, R]{Job: job, Worker: id}
	defer func() {
		if r := recover(); r != nil {
			var zero R
			res.Value = zero
			res.Lost = true
			res.Panic = r
		}
	}()
	res.Value = w.Do(job)
	return res
}

func closeWorker[J, R any](w Worker[J, R], id int) {
	defer func() {
		if r := recover(); r != nil {
			webpaint.Logger().Warn("parallel: worker close panicked", "worker", id, "panic", fmt.Sprint(r))
		}
	}()
	w.Close()
}

// Submit queues job, blocking while the queue is full.
func (p *WorkerPool[J, R]) Submit(ctx context.Context, job J) error {
	if !p.running.Load() {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job:
		return nil
	case <-p.done:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit queues job if there is room and reports whether it did.
// It never blocks, so a goroutine that also drains Results can use it.
func (p *WorkerPool[J, R]) TrySubmit(job J) (bool, error) {
	if !p.running.Load() {
		return false, ErrPoolClosed
	}
	select {
	case p.jobs <- job:
		return true, nil
	case <-p.done:
		return false, ErrPoolClosed
	default:
		return false, nil
	}
}

// Results returns the channel on which every finished job is reported.
// It is closed by Close once all workers have exited.
func (p *WorkerPool[J, R]) Results() <-chan Result[J, R] { return p.results }

// Close stops the workers after their current job and tears down their
// state. Queued jobs are discarded. Close is safe to call multiple times.
func (p *WorkerPool[J, R]) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
	close(p.results)
}

// Workers returns the number of worker slots.
func (p *WorkerPool[J, R]) Workers() int { return p.workers }

// Respawns returns how many crashed workers were replaced.
func (p *WorkerPool[J, R]) Respawns() uint64 { return p.respawns.Load() }

// IsRunning reports whether the pool accepts work.
func (p *WorkerPool[J, R]) IsRunning() bool { return p.running.Load() }

// QueuedWork returns the approximate number of queued jobs.
func (p *WorkerPool[J, R]) QueuedWork() int { return len(p.jobs) }
