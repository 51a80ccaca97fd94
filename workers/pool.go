package workers

import (
	"context"
	"errors"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"
)

var ErrPoolClosed = errors.New("worker pool closed")

// Pool runs blocking tasks on at most size goroutines. Tasks are independent:
// there is no ordering between them and a failing task does not affect the
// others.
type Pool struct {
	size   int
	group  errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{size: size, ctx: ctx, cancel: cancel}
	p.group.SetLimit(size)
	return p
}

func (p *Pool) Size() int { return p.size }

// Submit queues task, blocking while all workers are busy.
func (p *Pool) Submit(task func(ctx context.Context) error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.group.Go(p.wrap(task))
	return nil
}

// TrySubmit is Submit without blocking; it reports false when every worker is
// busy.
func (p *Pool) TrySubmit(task func(ctx context.Context) error) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false, ErrPoolClosed
	}
	return p.group.TryGo(p.wrap(task)), nil
}

func (p *Pool) wrap(task func(ctx context.Context) error) func() error {
	return func() error {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Pool] task panicked: %v", r)
			}
		}()
		if err := task(p.ctx); err != nil {
			log.Printf("[Pool] task failed: %v", err)
		}
		return nil
	}
}

// Close stops accepting tasks and waits for the running ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	_ = p.group.Wait()
	p.cancel()
}
