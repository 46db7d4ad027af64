package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ib-77/tilenet/pkg/tile"
	"github.com/ib-77/tilenet/pkg/tile/plumb"
	"github.com/ib-77/tilenet/pkg/tile/spawn"
)

// DDConfig describes a data-driven pipeline. Stages[0] is called with a
// counter 0, 1, 2... and produces values until it returns EndOfStream;
// every later stage is called with each value it receives. The result of the
// terminal stage is discarded.
type DDConfig struct {
	Cores       int
	EndOfStream int
	Initialise  []func(s *Stage) error
	Stages      []func(s *Stage, in int) int
	Tidy        []func(s *Stage) error
}

// DataDriven runs cfg with stage k on position k of the caller's tile and
// returns once the terminal stage has seen the sentinel and every stage has
// stopped.
func DataDriven(ctx context.Context, c *spawn.Core, cfg DDConfig) (err error) {
	if err := validate(c, cfg.Cores, len(cfg.Stages), len(cfg.Initialise), len(cfg.Tidy)); err != nil {
		return err
	}
	for i, f := range cfg.Stages {
		if f == nil {
			return fmt.Errorf("stage %d has no function: %w", i, tile.ErrInvalidDescriptor)
		}
	}

	started := time.Now()
	defer func() { c.Chip().Metrics().RecordPattern("dd_pipeline", started, err) }()

	first := c.ID()
	terminal := tile.CoreID{Tile: first.Tile, Position: cfg.Cores - 1}
	section := plumb.NewSection(ctx, terminal)
	log := c.Logger().Invocation("dd_pipeline", section.ID().String())

	section.Join(cfg.Cores)
	stage := func(_ context.Context, sc *spawn.Core, _ any) error {
		defer section.Leave()
		return section.Exit(runDDStage(section, sc, cfg))
	}
	d, err := spawn.Execute(ctx, c, cfg.Cores, stage, nil)
	if err != nil {
		section.Leave()
		return err
	}
	err = section.Exit(runDDStage(section, c, cfg))
	section.Leave()
	if err != nil {
		err = plumb.Unwind(c.Runtime(), section, d, err)
		plumb.DrainRemaining(ctx, c.Chip(), plumb.Members(first, cfg.Cores), linkChannel)
		log.Debug("aborted", zap.Error(err))
		return err
	}

	// participants stop on their own once the section or the caller's
	// context ends, so only the runtime bounds these waits
	if err := section.Wait(c.Runtime().Context()); err != nil {
		return err
	}
	if err := d.Wait(c.Runtime().Context()); err != nil {
		return err
	}
	if !section.Ended() {
		return fmt.Errorf("pipeline stopped before the terminal stage ended it: %w", context.Cause(section.Context()))
	}

	drained := plumb.DrainRemaining(ctx, c.Chip(), plumb.Members(first, cfg.Cores), linkChannel)
	log.Debug("finished", zap.Int("drained", drained))
	return nil
}

func runDDStage(section *plumb.Section, c *spawn.Core, cfg DDConfig) error {
	ctx := section.Context()
	s := newStage(section, c, cfg.Cores)
	tbl := c.Table()

	if err := callAt(cfg.Initialise, s); err != nil {
		return err
	}
	if !s.Last() {
		tbl.Bind(linkEndpoint, tile.MulticastAddress(tile.SingleCore(s.Index+1), linkChannel))
	}

	if s.Index == 0 {
		for arg := 0; ; arg++ {
			v := cfg.Stages[0](s, arg)
			if s.Last() {
				if v == cfg.EndOfStream {
					break
				}
				continue
			}
			if err := tbl.Send(ctx, linkEndpoint, v); err != nil {
				return err
			}
			if v == cfg.EndOfStream {
				break
			}
		}
	} else {
		for {
			v, err := tbl.Receive(ctx, linkChannel)
			if err != nil {
				return err
			}
			if v == cfg.EndOfStream {
				if !s.Last() {
					if err := tbl.Send(ctx, linkEndpoint, v); err != nil {
						return err
					}
				}
				break
			}
			out := cfg.Stages[s.Index](s, v)
			if !s.Last() {
				if err := tbl.Send(ctx, linkEndpoint, out); err != nil {
					return err
				}
			}
		}
	}

	if err := callAt(cfg.Tidy, s); err != nil {
		return err
	}
	if s.Last() {
		section.End(c.ID())
	}
	return nil
}
