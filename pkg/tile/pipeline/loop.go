package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ib-77/tilenet/pkg/tile"
	"github.com/ib-77/tilenet/pkg/tile/plumb"
	"github.com/ib-77/tilenet/pkg/tile/spawn"
	"github.com/ib-77/tilenet/pkg/tile/token"
)

// DefaultLinkCredits keeps one token in flight between adjacent stages.
const DefaultLinkCredits = 1

// Config describes a buffered pipeline. Stages has one function per core;
// Initialise and Tidy are either empty or per core.
type Config struct {
	Cores      int
	Iterations int
	Initialise []func(s *Stage) error
	Stages     []func(s *Stage, iteration int) error
	Tidy       []func(s *Stage) error
}

// Loop runs cfg with stage k on position k of the caller's tile. The
// credit count of the links between stages can be changed with
// plumb.WithCreditCount.
func Loop(ctx context.Context, c *spawn.Core, cfg Config) (err error) {
	if err := validate(c, cfg.Cores, len(cfg.Stages), len(cfg.Initialise), len(cfg.Tidy)); err != nil {
		return err
	}
	for i, f := range cfg.Stages {
		if f == nil {
			return fmt.Errorf("stage %d has no function: %w", i, tile.ErrInvalidDescriptor)
		}
	}
	if cfg.Iterations < 0 {
		return fmt.Errorf("%d iterations: %w", cfg.Iterations, tile.ErrInvalidDescriptor)
	}

	started := time.Now()
	defer func() { c.Chip().Metrics().RecordPattern("pipeline", started, err) }()

	credits := plumb.CreditCount(ctx, DefaultLinkCredits)
	section := plumb.NewSection(ctx, c.ID())
	stage := func(_ context.Context, sc *spawn.Core, _ any) error {
		return section.Exit(runLoopStage(section, sc, cfg, credits))
	}
	d, err := spawn.Execute(ctx, c, cfg.Cores, stage, nil)
	if err != nil {
		return err
	}
	if err := runLoopStage(section, c, cfg, credits); err != nil {
		err = plumb.Unwind(c.Runtime(), section, d, err)
		plumb.DrainRemaining(ctx, c.Chip(), plumb.Members(c.ID(), cfg.Cores), linkChannel)
		return err
	}
	return d.Wait(c.Runtime().Context())
}

func runLoopStage(section *plumb.Section, c *spawn.Core, cfg Config, credits int) error {
	ctx := section.Context()
	s := newStage(section, c, cfg.Cores)
	tbl := c.Table()
	// no-op after a clean Release
	defer tbl.Abandon(linkEndpoint)
	id := c.ID()
	last := cfg.Cores - 1
	linked := cfg.Cores > 1

	if err := callAt(cfg.Initialise, s); err != nil {
		return err
	}

	if linked {
		next := (s.Index + 1) % cfg.Cores
		if err := tbl.Connect(ctx, linkEndpoint, tile.CoreAddress(id.Tile, next, linkChannel, credits)); err != nil {
			return err
		}
	}

	for it := 0; it < cfg.Iterations; it++ {
		if s.Index > 0 {
			if err := token.Receive(ctx, tbl, linkChannel); err != nil {
				return err
			}
		}
		if err := cfg.Stages[s.Index](s, it); err != nil {
			return err
		}
		if s.Index < last {
			if err := token.Send(ctx, tbl, linkEndpoint); err != nil {
				return err
			}
		}
	}

	if linked {
		if s.Index == last {
			if err := token.Send(ctx, tbl, linkEndpoint); err != nil {
				return err
			}
		}
		if err := tbl.Release(ctx, linkEndpoint); err != nil {
			return err
		}
		if s.Index == 0 {
			if err := token.Receive(ctx, tbl, linkChannel); err != nil {
				return err
			}
		}
	}

	return callAt(cfg.Tidy, s)
}
