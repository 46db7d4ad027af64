package loop

import (
	"context"
	"fmt"

	"github.com/ib-77/tilenet/pkg/tile"
	"github.com/ib-77/tilenet/pkg/tile/channel"
	"github.com/ib-77/tilenet/pkg/tile/spawn"
)

// Config describes a loop. Iteration is required, everything else is
// optional.
type Config[R any] struct {
	Cores      int
	Iterations int

	// Initialise runs once on every iterating core before its first
	// iteration.
	Initialise func(m *Member[R]) error
	// HelperInit runs once on the helper core (helper variant only).
	HelperInit func(m *Member[R]) error
	Iteration  func(m *Member[R], iteration int) error
	// Helper runs on position 0 once per round of iterations. Setting it
	// selects the helper variant of SIMD.
	Helper func(m *Member[R]) error
	Tidy   func(m *Member[R]) error
	// Reduce runs on position 0 after every core has finished.
	Reduce func(slots []R)
}

// Member is what a callback knows about the core running it.
type Member[R any] struct {
	Core       *spawn.Core
	Index      int
	Cores      int
	Iterations int
	Slot       *R

	ctx context.Context
}

func (m *Member[R]) Context() context.Context {
	return m.ctx
}

func (m *Member[R]) Table() *channel.Table {
	return m.Core.Table()
}

func (cfg Config[R]) validate(c *spawn.Core, minCores, maxCores, slots, needSlots int) error {
	if cfg.Cores < minCores || cfg.Cores > maxCores {
		return fmt.Errorf("%d cores, want %d..%d: %w", cfg.Cores, minCores, maxCores, tile.ErrCoreCount)
	}
	if cfg.Iteration == nil {
		return fmt.Errorf("no iteration function: %w", tile.ErrInvalidDescriptor)
	}
	if cfg.Iterations < 0 {
		return fmt.Errorf("%d iterations: %w", cfg.Iterations, tile.ErrInvalidDescriptor)
	}
	if slots < needSlots {
		return fmt.Errorf("%d result slots for %d: %w", slots, needSlots, tile.ErrInvalidDescriptor)
	}
	if c.ID().Position != 0 {
		return fmt.Errorf("started on core %s, not position 0: %w", c.ID(), tile.ErrInvalidDescriptor)
	}
	return nil
}

func call[R any](f func(*Member[R]) error, m *Member[R]) error {
	if f == nil {
		return nil
	}
	return f(m)
}
