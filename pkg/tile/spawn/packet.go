package spawn

import (
	"context"
	"sync"

	"go.uber.org/multierr"
)

// Task is code run by a core. args is whatever the dispatcher passed.
type Task func(ctx context.Context, c *Core, args any) error

// packet is the instruction packet placed on an instruction FIFO. One
// packet may be delivered to several cores; each acknowledges and finishes
// it once.
type packet struct {
	fn       Task
	args     any
	accepted latch
	finished latch

	mu   sync.Mutex
	errs error
}

func newPacket(fn Task, args any, targets int) *packet {
	p := &packet{fn: fn, args: args}
	p.accepted.add(targets)
	p.finished.add(targets)
	return p
}

func (p *packet) fail(err error) {
	p.mu.Lock()
	p.errs = multierr.Append(p.errs, err)
	p.mu.Unlock()
}

func (p *packet) err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errs
}

// latch is a WaitGroup that can be waited on with a context.
type latch struct {
	wg   sync.WaitGroup
	once sync.Once
	done chan struct{}
}

func (l *latch) add(n int) {
	l.wg.Add(n)
}

func (l *latch) release() {
	l.wg.Done()
}

func (l *latch) wait(ctx context.Context) error {
	l.once.Do(func() {
		l.done = make(chan struct{})
		go func() {
			l.wg.Wait()
			close(l.done)
		}()
	})
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch tracks a packet delivered to one or more cores.
type Dispatch struct {
	p       *packet
	targets int
}

// Targets is the number of cores the packet was delivered to.
func (d *Dispatch) Targets() int {
	return d.targets
}

// Wait blocks until every target has finished the task and returns the
// errors the task reported.
func (d *Dispatch) Wait(ctx context.Context) error {
	if err := d.p.finished.wait(ctx); err != nil {
		return err
	}
	return d.p.err()
}
