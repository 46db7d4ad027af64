package pipeline

import (
	"context"
	"fmt"

	"github.com/ib-77/tilenet/pkg/tile"
	"github.com/ib-77/tilenet/pkg/tile/channel"
	"github.com/ib-77/tilenet/pkg/tile/plumb"
	"github.com/ib-77/tilenet/pkg/tile/spawn"
)

const (
	linkEndpoint = 2
	linkChannel  = tile.ChannelRegister6
)

// Stage is what a stage callback knows about the core running it.
type Stage struct {
	Core  *spawn.Core
	Index int
	Cores int

	section *plumb.Section
}

func (s *Stage) Context() context.Context {
	return s.section.Context()
}

// Section is the invocation the stage belongs to.
func (s *Stage) Section() *plumb.Section {
	return s.section
}

func (s *Stage) Table() *channel.Table {
	return s.Core.Table()
}

// Last reports whether this is the terminal stage.
func (s *Stage) Last() bool {
	return s.Index == s.Cores-1
}

func newStage(section *plumb.Section, c *spawn.Core, cores int) *Stage {
	return &Stage{Core: c, Index: c.ID().Position, Cores: cores, section: section}
}

func validate(c *spawn.Core, cores, stages int, optional ...int) error {
	if cores < 1 || cores > tile.CoresPerTile {
		return fmt.Errorf("%d stages, want 1..%d: %w", cores, tile.CoresPerTile, tile.ErrCoreCount)
	}
	if stages != cores {
		return fmt.Errorf("%d stage functions for %d cores: %w", stages, cores, tile.ErrInvalidDescriptor)
	}
	for _, n := range optional {
		if n != 0 && n != cores {
			return fmt.Errorf("%d per-stage callbacks for %d cores: %w", n, cores, tile.ErrInvalidDescriptor)
		}
	}
	if c.ID().Position != 0 {
		return fmt.Errorf("started on core %s, not position 0: %w", c.ID(), tile.ErrInvalidDescriptor)
	}
	return nil
}

func callAt(fs []func(*Stage) error, s *Stage) error {
	if len(fs) == 0 || fs[s.Index] == nil {
		return nil
	}
	return fs[s.Index](s)
}
