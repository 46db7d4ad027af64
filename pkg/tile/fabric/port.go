package fabric

import (
	"context"
	"sync"

	"github.com/ib-77/tilenet/pkg/tile"
)

// Port is one input channel end: a bounded FIFO plus the ownership record
// used to arbitrate credited connections.
type Port struct {
	core tile.CoreID
	ch   tile.Channel
	buf  chan tile.Message

	mu     sync.Mutex
	owned  bool
	owner  tile.CoreID
	parked []acquireRequest
}

type acquireRequest struct {
	src   tile.CoreID
	reply func(acquired bool)
}

func newPort(core tile.CoreID, ch tile.Channel, depth int) *Port {
	return &Port{core: core, ch: ch, buf: make(chan tile.Message, depth)}
}

func (p *Port) Core() tile.CoreID {
	return p.core
}

func (p *Port) Channel() tile.Channel {
	return p.ch
}

// Push appends msg, blocking while the buffer is full.
func (p *Port) Push(ctx context.Context, msg tile.Message) error {
	select {
	case p.buf <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop removes the oldest message, blocking while the buffer is empty.
// The caller is responsible for consuming it.
func (p *Port) Pop(ctx context.Context) (tile.Message, error) {
	select {
	case msg := <-p.buf:
		return msg, nil
	case <-ctx.Done():
		return tile.Message{}, ctx.Err()
	}
}

func (p *Port) TryPop() (tile.Message, bool) {
	select {
	case msg := <-p.buf:
		return msg, true
	default:
		return tile.Message{}, false
	}
}

// Len is the number of buffered messages.
func (p *Port) Len() int {
	return len(p.buf)
}

// Ready exposes the buffer for multi-way selects.
func (p *Port) Ready() <-chan tile.Message {
	return p.buf
}

// Owner reports the core currently holding the connection, if any.
func (p *Port) Owner() (tile.CoreID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.owner, p.owned
}

// Drain consumes every buffered message and returns how many there were.
func (p *Port) Drain() int {
	n := 0
	for {
		msg, ok := p.TryPop()
		if !ok {
			return n
		}
		msg.Consume()
		n++
	}
}

// acquire grants the port to src when free, otherwise parks the request
// until the owner releases. reply runs outside the lock.
func (p *Port) acquire(src tile.CoreID, reply func(bool)) bool {
	p.mu.Lock()
	if p.owned && p.owner != src {
		p.parked = append(p.parked, acquireRequest{src: src, reply: reply})
		p.mu.Unlock()
		return false
	}
	p.owned = true
	p.owner = src
	p.mu.Unlock()

	reply(true)
	return true
}

// release frees the port and answers every parked request negatively, so
// the requesters retry.
func (p *Port) release(src tile.CoreID) bool {
	p.mu.Lock()
	if !p.owned || p.owner != src {
		p.mu.Unlock()
		return false
	}
	p.owned = false
	parked := p.parked
	p.parked = nil
	p.mu.Unlock()

	for _, r := range parked {
		r.reply(false)
	}
	return true
}

// withdraw drops every request src has parked here and gives up ownership
// if src holds it. Unlike release it is silent when src has nothing here.
func (p *Port) withdraw(src tile.CoreID) {
	p.mu.Lock()
	kept := p.parked[:0]
	for _, r := range p.parked {
		if r.src != src {
			kept = append(kept, r)
		}
	}
	p.parked = kept
	p.mu.Unlock()

	p.release(src)
}
