package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Pool runs tasks on a fixed number of goroutines.
type Pool struct {
	g      errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	slots    chan struct{}
	finished chan struct{}
	closed   chan struct{}
	once     sync.Once
	inFlight atomic.Int32
}

// NewPool creates a pool of size workers. Tasks receive a context derived
// from ctx that Cancel also cancels.
func NewPool(ctx context.Context, size int) *Pool {
	if size < 1 {
		size = 1
	}
	pctx, cancel := context.WithCancel(ctx)
	p := &Pool{
		ctx:      pctx,
		cancel:   cancel,
		slots:    make(chan struct{}, size),
		finished: make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
	p.g.SetLimit(size)
	return p
}

// Submit runs task once a worker is free. It blocks until then, until ctx
// is done, or until the pool is drained.
func (p *Pool) Submit(ctx context.Context, task func(ctx context.Context)) error {
	select {
	case <-p.closed:
		return ErrPoolClosed
	default:
	}
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.closed:
		return ErrPoolClosed
	}

	p.inFlight.Add(1)
	p.g.Go(func() error {
		defer func() {
			p.inFlight.Add(-1)
			<-p.slots
			select {
			case p.finished <- struct{}{}:
			default:
			}
		}()
		task(p.ctx)
		return nil
	})
	return nil
}

// InFlight returns the number of running tasks.
func (p *Pool) InFlight() int {
	return int(p.inFlight.Load())
}

// Finished is signalled after a task completes. Signals coalesce.
func (p *Pool) Finished() <-chan struct{} {
	return p.finished
}

// Cancel cancels the context of every running task.
func (p *Pool) Cancel() {
	p.cancel()
}

// Drain stops accepting tasks and waits for running ones. When timeout
// elapses first, running tasks are cancelled and ErrDrainTimeout is
// returned without waiting further.
func (p *Pool) Drain(timeout time.Duration) error {
	p.once.Do(func() { close(p.closed) })

	done := make(chan struct{})
	go func() {
		_ = p.g.Wait() //nolint:errcheck // tasks never return errors
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		p.cancel()
		return nil
	case <-timer.C:
		p.cancel()
		return ErrDrainTimeout
	}
}
