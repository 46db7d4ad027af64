package spawn

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ib-77/tilenet/internal/logging"
	"github.com/ib-77/tilenet/internal/monitoring"
	"github.com/ib-77/tilenet/pkg/tile"
	"github.com/ib-77/tilenet/pkg/tile/fabric"
)

// Host is the source recorded on packets injected from outside the chip.
var Host = tile.CoreID{Tile: -1, Position: -1}

// Runtime owns the core goroutines of a chip.
type Runtime struct {
	chip    *fabric.Chip
	cores   []*Core
	log     *logging.Logger
	metrics *monitoring.Metrics

	ctx    context.Context
	cancel context.CancelCauseFunc
	group  *errgroup.Group

	mu     sync.Mutex
	faults error
}

// Boot starts every core of chip in the idle state. The runtime stops when
// ctx is cancelled, on Shutdown, or on the first fault.
func Boot(ctx context.Context, chip *fabric.Chip) *Runtime {
	ctx, cancel := context.WithCancelCause(ctx)
	g, gctx := errgroup.WithContext(ctx)

	rt := &Runtime{
		chip:    chip,
		cores:   make([]*Core, chip.Cores()),
		log:     chip.Logger(),
		metrics: chip.Metrics(),
		ctx:     gctx,
		cancel:  cancel,
		group:   g,
	}
	for u := range rt.cores {
		c := newCore(rt, tile.FromUnique(u))
		rt.cores[u] = c
		g.Go(func() error { return c.serve(gctx) })
	}

	rt.log.Debug("runtime booted", zap.Int("cores", len(rt.cores)))
	return rt
}

func (rt *Runtime) Chip() *fabric.Chip {
	return rt.chip
}

// Context is cancelled when the runtime stops.
func (rt *Runtime) Context() context.Context {
	return rt.ctx
}

// Core returns the handle of core id.
func (rt *Runtime) Core(id tile.CoreID) *Core {
	if !rt.chip.Contains(id) {
		panic(tile.Violation("core %s not on chip", id))
	}
	return rt.cores[id.Unique()]
}

// Main runs fn on core 0 of tile 0 and waits for it to finish. It returns
// the faults recorded while it ran, or fn's own error.
func (rt *Runtime) Main(ctx context.Context, fn Task, args any) error {
	if rt.ctx.Err() != nil {
		return rt.stopped()
	}

	p := newPacket(fn, args, 1)
	entry := rt.chip.Port(tile.CoreID{}, tile.ChannelIPKFIFO)
	if err := entry.Push(ctx, tile.Packet(Host, p)); err != nil {
		return err
	}
	if err := p.finished.wait(ctx); err != nil {
		return err
	}

	if err := rt.Err(); err != nil {
		return err
	}
	return p.err()
}

// Err returns every fault recorded so far.
func (rt *Runtime) Err() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.faults
}

// Faults splits Err into one error per failed core.
func (rt *Runtime) Faults() []error {
	return multierr.Errors(rt.Err())
}

// Shutdown stops every core and waits for the goroutines to exit.
func (rt *Runtime) Shutdown() error {
	rt.cancel(tile.ErrStopped)
	_ = rt.group.Wait()
	return rt.Err()
}

func (rt *Runtime) stopped() error {
	if err := rt.Err(); err != nil {
		return err
	}
	return tile.ErrStopped
}

// fault records err from core id and stops the runtime.
func (rt *Runtime) fault(id tile.CoreID, err error) {
	err = fmt.Errorf("core %s: %w", id, err)

	rt.mu.Lock()
	rt.faults = multierr.Append(rt.faults, err)
	rt.mu.Unlock()

	rt.metrics.RecordFault()
	var pe *PanicError
	if errors.As(err, &pe) {
		rt.log.Error("core task panicked",
			zap.Stringer("core", id),
			zap.Any("panic", pe.Value),
			zap.ByteString("stack", pe.Stack))
	} else {
		rt.log.Error("core task failed", zap.Stringer("core", id), zap.Error(err))
	}
	rt.cancel(err)
}
