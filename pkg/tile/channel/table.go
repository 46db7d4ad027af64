package channel

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/ib-77/tilenet/internal/logging"
	"github.com/ib-77/tilenet/pkg/tile"
	"github.com/ib-77/tilenet/pkg/tile/fabric"
)

// Table is a core's channel map table.
type Table struct {
	owner   tile.CoreID
	chip    *fabric.Chip
	log     *logging.Logger
	entries [tile.TableSize]*link
	next    int
}

// link is the state of one binding. A rebind creates a new link, so grants
// for an old binding never touch the new one.
type link struct {
	addr     tile.Address
	credits  *semaphore.Weighted
	max      int64
	acquired atomic.Bool
}

func (l *link) grant(acquired bool) {
	l.acquired.Store(acquired)
	l.credits.Release(l.max)
}

// NewTable creates the table of core owner with every endpoint unbound.
func NewTable(chip *fabric.Chip, owner tile.CoreID) *Table {
	if !chip.Contains(owner) {
		panic(tile.Violation("core %s not on chip", owner))
	}
	return &Table{
		owner: owner,
		chip:  chip,
		log:   chip.Logger().Core(owner.String()),
	}
}

func (t *Table) Owner() tile.CoreID {
	return t.owner
}

func (t *Table) Chip() *fabric.Chip {
	return t.chip
}

// Bind stores addr in endpoint ep, replacing whatever was there. For a
// credited address the endpoint starts unacquired with zero credits and an
// acquisition request is sent to the destination.
func (t *Table) Bind(ep int, addr tile.Address) {
	tile.CheckEndpoint(ep)

	switch addr.Kind {
	case tile.KindUnbound:
		t.entries[ep] = nil
		return
	case tile.KindUnicast:
		if !t.chip.Contains(addr.Core) {
			panic(tile.Violation("bind endpoint %d: core %s not on chip", ep, addr.Core))
		}
	}

	l := &link{addr: addr}
	if addr.Credited() {
		l.max = int64(addr.Credits)
		l.credits = semaphore.NewWeighted(l.max)
		l.credits.TryAcquire(l.max)
		t.entries[ep] = l
		t.chip.Acquire(t.owner, addr, l.grant)
		return
	}
	l.acquired.Store(true)
	t.entries[ep] = l
}

// Poll reports whether the handshake on ep has completed. When the
// destination refused the request and all credits have come back, Poll
// sends a fresh acquisition request and returns false.
func (t *Table) Poll(ep int) bool {
	tile.CheckEndpoint(ep)
	l := t.entries[ep]
	if l == nil {
		return false
	}
	if l.acquired.Load() {
		return true
	}
	if !l.credits.TryAcquire(l.max) {
		return false
	}
	if l.acquired.Load() {
		l.credits.Release(l.max)
		return true
	}

	t.log.Debug("acquire refused, retrying", zap.Int("endpoint", ep), zap.Stringer("dst", l.addr))
	t.chip.Acquire(t.owner, l.addr, l.grant)
	return false
}

// Wait blocks until the handshake on ep has completed.
func (t *Table) Wait(ctx context.Context, ep int) error {
	tile.CheckEndpoint(ep)
	l := t.entries[ep]
	if l == nil {
		return fmt.Errorf("wait on endpoint %d: %w", ep, tile.ErrUnbound)
	}
	for !t.Poll(ep) {
		if err := l.credits.Acquire(ctx, l.max); err != nil {
			return err
		}
		l.credits.Release(l.max)
	}
	return nil
}

// Connect binds ep to addr and waits for the handshake.
func (t *Table) Connect(ctx context.Context, ep int, addr tile.Address) error {
	t.Bind(ep, addr)
	return t.Wait(ctx, ep)
}

// Release waits until every credit of ep has returned, then gives up the
// connection so another core can acquire the destination. The endpoint is
// unbound afterwards.
func (t *Table) Release(ctx context.Context, ep int) error {
	tile.CheckEndpoint(ep)
	l := t.entries[ep]
	if l == nil {
		return nil
	}
	if l.addr.Credited() {
		if err := l.credits.Acquire(ctx, l.max); err != nil {
			return err
		}
		if l.acquired.Load() {
			t.chip.Release(t.owner, l.addr)
		}
	}
	t.entries[ep] = nil
	return nil
}

// Abandon unbinds ep at once. A connection it holds or is still trying to
// acquire is given up without waiting for outstanding credits, so it is
// only for a core whose partners have stopped. Unbound endpoints are
// ignored.
func (t *Table) Abandon(ep int) {
	tile.CheckEndpoint(ep)
	l := t.entries[ep]
	if l == nil {
		return
	}
	t.entries[ep] = nil
	if l.addr.Credited() {
		t.chip.Withdraw(t.owner, l.addr)
	}
}

// Address returns the address bound to ep.
func (t *Table) Address(ep int) (tile.Address, bool) {
	tile.CheckEndpoint(ep)
	l := t.entries[ep]
	if l == nil {
		return tile.Address{}, false
	}
	return l.addr, true
}

// Binding is a saved endpoint, restorable with Restore.
type Binding struct {
	l *link
}

func (b Binding) Address() tile.Address {
	if b.l == nil {
		return tile.Address{}
	}
	return b.l.addr
}

// Save returns the current binding of ep, including its credit state.
func (t *Table) Save(ep int) Binding {
	tile.CheckEndpoint(ep)
	return Binding{l: t.entries[ep]}
}

// Restore puts back a binding returned by Save.
func (t *Table) Restore(ep int, b Binding) {
	tile.CheckEndpoint(ep)
	t.entries[ep] = b.l
}

// Swap installs b in ep and returns the binding it replaced.
func (t *Table) Swap(ep int, b Binding) Binding {
	old := t.Save(ep)
	t.Restore(ep, b)
	return old
}

func (t *Table) bound(ep int) *link {
	tile.CheckEndpoint(ep)
	l := t.entries[ep]
	if l == nil {
		panic(tile.Misuse(tile.ErrUnbound, "core %s: send on endpoint %d", t.owner, ep))
	}
	if !l.acquired.Load() {
		panic(tile.Misuse(tile.ErrNotAcquired, "core %s: send on endpoint %d to %s", t.owner, ep, l.addr))
	}
	return l
}
