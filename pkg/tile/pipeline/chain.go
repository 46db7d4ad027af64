package pipeline

import (
	"context"

	"github.com/ib-77/tilenet/pkg/tile/spawn"
)

// Chain builds a data-driven pipeline one stage at a time.
type Chain struct {
	eos    int
	stages []func(s *Stage, in int) int
}

// Start creates a chain whose first stage is source, called with 0, 1,
// 2... until it returns eos.
func Start(eos int, source func(iteration int) int) *Chain {
	return &Chain{
		eos:    eos,
		stages: []func(*Stage, int) int{func(_ *Stage, it int) int { return source(it) }},
	}
}

// Then appends a transformation stage.
func (c *Chain) Then(f func(in int) int) *Chain {
	return c.with(func(_ *Stage, in int) int { return f(in) })
}

// ThenStage appends a stage that needs its core, e.g. to use channels.
func (c *Chain) ThenStage(f func(s *Stage, in int) int) *Chain {
	return c.with(f)
}

// Sink appends the terminal stage.
func (c *Chain) Sink(f func(in int)) *Chain {
	return c.with(func(_ *Stage, in int) int {
		f(in)
		return in
	})
}

func (c *Chain) with(f func(*Stage, int) int) *Chain {
	stages := make([]func(*Stage, int) int, len(c.stages), len(c.stages)+1)
	copy(stages, c.stages)
	return &Chain{eos: c.eos, stages: append(stages, f)}
}

// Len is the number of stages, which is also the number of cores used.
func (c *Chain) Len() int {
	return len(c.stages)
}

func (c *Chain) Config() DDConfig {
	return DDConfig{
		Cores:       len(c.stages),
		EndOfStream: c.eos,
		Stages:      c.stages,
	}
}

// Run executes the chain from core, which must be position 0 of its tile.
func (c *Chain) Run(ctx context.Context, core *spawn.Core) error {
	return DataDriven(ctx, core, c.Config())
}
