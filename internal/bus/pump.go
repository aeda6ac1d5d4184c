package bus

import (
	"context"
	"sync"
	"sync/atomic"
)

// defaultQueueSize bounds the dispatch queue.
const defaultQueueSize = 4096

// pump executes queued tasks on a single goroutine in FIFO order.
//
// One worker is the point, not a limitation: every broadcast runs as a
// freshly scheduled unit of work, so a handler that creates or destroys
// applications never mutates a subscriber set another broadcast is
// iterating, and cross-call delivery order on a channel is the enqueue
// order.
type pump struct {
	queueSize int

	mu      sync.Mutex
	queue   chan func()
	running atomic.Bool
	wg      sync.WaitGroup

	// Stats
	enqueued atomic.Uint64
	executed atomic.Uint64
	dropped  atomic.Uint64
}

func newPump(queueSize int) *pump {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &pump{queueSize: queueSize}
}

// Start launches the worker.
func (p *pump) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running.Load() {
		return ErrAlreadyRunning
	}

	p.queue = make(chan func(), p.queueSize)
	p.running.Store(true)

	p.wg.Add(1)
	go p.worker()
	return nil
}

// Stop drains the queue and waits for the worker, or until ctx expires.
func (p *pump) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running.Load() {
		p.mu.Unlock()
		return ErrNotRunning
	}
	p.running.Store(false)
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue schedules fn for execution after all previously enqueued tasks.
// The mutex spans the running check and the send so that Stop cannot close
// the queue between them; the send itself never blocks.
func (p *pump) Enqueue(fn func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running.Load() {
		return ErrNotRunning
	}

	select {
	case p.queue <- fn:
		p.enqueued.Add(1)
		return nil
	default:
		p.dropped.Add(1)
		return ErrQueueFull
	}
}

func (p *pump) worker() {
	defer p.wg.Done()
	for fn := range p.queue {
		fn()
		p.executed.Add(1)
	}
}

// Depth returns the number of tasks waiting in the queue.
func (p *pump) Depth() int {
	if !p.running.Load() {
		return 0
	}
	return len(p.queue)
}
