package loop

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ib-77/tilenet/internal/id"
	"github.com/ib-77/tilenet/pkg/tile"
	"github.com/ib-77/tilenet/pkg/tile/plumb"
	"github.com/ib-77/tilenet/pkg/tile/spawn"
	"github.com/ib-77/tilenet/pkg/tile/token"
)

const (
	gatherEndpoint = 2
	helperEndpoint = 3

	gatherChannel = tile.ChannelRegister6
	helperChannel = tile.ChannelRegister7

	roundGo   = 1
	roundStop = 0
)

// SIMD runs cfg on positions 0..cfg.Cores-1 of the caller's tile, the
// caller being position 0, and returns after Reduce. slots must hold at
// least cfg.Cores entries; core i owns slots[i].
func SIMD[R any](ctx context.Context, c *spawn.Core, cfg Config[R], slots []R) (err error) {
	minCores := 1
	if cfg.Helper != nil {
		minCores = 2
	}
	if err := cfg.validate(c, minCores, tile.CoresPerTile, len(slots), cfg.Cores); err != nil {
		return err
	}

	started := time.Now()
	defer func() { c.Chip().Metrics().RecordPattern("simd", started, err) }()
	log := c.Logger().Invocation("simd", id.NewInvocationID().String())
	log.Debug("starting", zap.Int("cores", cfg.Cores), zap.Int("iterations", cfg.Iterations), zap.Bool("helper", cfg.Helper != nil))

	section := plumb.NewSection(ctx, c.ID())
	member := func(_ context.Context, mc *spawn.Core, _ any) error {
		return section.Exit(runSIMD(section.Context(), mc, cfg, slots))
	}
	d, err := spawn.Execute(ctx, c, cfg.Cores, member, nil)
	if err != nil {
		return err
	}
	if err := runSIMD(section.Context(), c, cfg, slots); err != nil {
		err = plumb.Unwind(c.Runtime(), section, d, err)
		plumb.DrainRemaining(ctx, c.Chip(), plumb.Members(c.ID(), cfg.Cores), gatherChannel, helperChannel)
		log.Debug("aborted", zap.Error(err))
		return err
	}
	if err := d.Wait(c.Runtime().Context()); err != nil {
		return err
	}

	if cfg.Reduce != nil {
		cfg.Reduce(slots[:cfg.Cores])
	}
	log.Debug("finished")
	return nil
}

func runSIMD[R any](ctx context.Context, c *spawn.Core, cfg Config[R], slots []R) error {
	index := c.ID().Position
	m := &Member[R]{
		Core:       c,
		Index:      index,
		Cores:      cfg.Cores,
		Iterations: cfg.Iterations,
		Slot:       &slots[index],
		ctx:        ctx,
	}

	var err error
	switch {
	case cfg.Helper == nil:
		err = iterateStrided(m, cfg)
	case index == 0:
		err = helpRounds(m, cfg)
	default:
		err = iterateRounds(m, cfg)
	}
	if err != nil {
		return err
	}

	if err := call(cfg.Tidy, m); err != nil {
		return err
	}
	return token.Gather(ctx, c.Table(), cfg.Cores, gatherEndpoint, gatherChannel)
}

func iterateStrided[R any](m *Member[R], cfg Config[R]) error {
	if err := call(cfg.Initialise, m); err != nil {
		return err
	}
	for it := m.Index; it < cfg.Iterations; it += cfg.Cores {
		if err := cfg.Iteration(m, it); err != nil {
			return err
		}
	}
	return nil
}

// helpRounds is position 0 of the helper variant: release one round of
// iterations to the workers, run the helper, repeat, then stop everyone.
func helpRounds[R any](m *Member[R], cfg Config[R]) error {
	if err := call(cfg.HelperInit, m); err != nil {
		return err
	}

	tbl := m.Table()
	workers := cfg.Cores - 1
	for remaining := cfg.Iterations; remaining > 0; remaining -= workers {
		n := min(remaining, workers)
		tbl.Bind(helperEndpoint, tile.MulticastAddress(tile.AllCoresExcept0(n+1), helperChannel))
		if err := tbl.Send(m.ctx, helperEndpoint, roundGo); err != nil {
			return err
		}
		if err := cfg.Helper(m); err != nil {
			return err
		}
	}

	tbl.Bind(helperEndpoint, tile.MulticastAddress(tile.AllCoresExcept0(cfg.Cores), helperChannel))
	return tbl.Send(m.ctx, helperEndpoint, roundStop)
}

func iterateRounds[R any](m *Member[R], cfg Config[R]) error {
	if err := call(cfg.Initialise, m); err != nil {
		return err
	}

	workers := cfg.Cores - 1
	for it := m.Index - 1; ; it += workers {
		v, err := m.Table().Receive(m.ctx, helperChannel)
		if err != nil {
			return err
		}
		if v == roundStop {
			return nil
		}
		if err := cfg.Iteration(m, it); err != nil {
			return err
		}
	}
}
