package loop

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ib-77/tilenet/internal/id"
	"github.com/ib-77/tilenet/pkg/tile"
	"github.com/ib-77/tilenet/pkg/tile/plumb"
	"github.com/ib-77/tilenet/pkg/tile/spawn"
)

const (
	// MinFarmCores and MaxFarmCores bound a worker farm, master included.
	MinFarmCores = 2
	MaxFarmCores = 6

	requestEndpoint = 2
	replyEndpoint   = 3
	replyChannel    = tile.ChannelRegister7

	// farmDone tells a worker there is no more work.
	farmDone = -1
)

// requestChannel is the master input a worker at position asks on.
func requestChannel(position int) tile.Channel {
	return tile.Channel(position + 2)
}

// Farm runs cfg with the caller as master and positions 1..cfg.Cores-1 as
// workers. Each idle worker asks the master for the next iteration index;
// the master answers in increasing order until none are left, then tells
// every worker to stop. Worker w owns slots[w]; Reduce sees
// slots[:cfg.Cores-1].
func Farm[R any](ctx context.Context, c *spawn.Core, cfg Config[R], slots []R) (err error) {
	if err := cfg.validate(c, MinFarmCores, MaxFarmCores, len(slots), cfg.Cores-1); err != nil {
		return err
	}

	started := time.Now()
	defer func() { c.Chip().Metrics().RecordPattern("farm", started, err) }()
	log := c.Logger().Invocation("farm", id.NewInvocationID().String())
	log.Debug("starting", zap.Int("workers", cfg.Cores-1), zap.Int("iterations", cfg.Iterations))

	section := plumb.NewSection(ctx, c.ID())
	worker := func(_ context.Context, wc *spawn.Core, _ any) error {
		return section.Exit(work(section.Context(), wc, cfg, slots))
	}
	d, err := spawn.Execute(ctx, c, cfg.Cores, worker, nil)
	if err != nil {
		return err
	}
	if err := serveFarm(section.Context(), c, cfg); err != nil {
		err = plumb.Unwind(c.Runtime(), section, d, err)
		channels := []tile.Channel{replyChannel}
		for p := 1; p < cfg.Cores; p++ {
			channels = append(channels, requestChannel(p))
		}
		plumb.DrainRemaining(ctx, c.Chip(), plumb.Members(c.ID(), cfg.Cores), channels...)
		log.Debug("aborted", zap.Error(err))
		return err
	}

	if err := d.Wait(c.Runtime().Context()); err != nil {
		return err
	}
	if cfg.Reduce != nil {
		cfg.Reduce(slots[:cfg.Cores-1])
	}
	log.Debug("finished")
	return nil
}

// serveFarm is the master: answer requests with iteration indices in
// order, then with farmDone once per worker.
func serveFarm[R any](ctx context.Context, c *spawn.Core, cfg Config[R]) error {
	requests := make([]tile.Channel, 0, cfg.Cores-1)
	for p := 1; p < cfg.Cores; p++ {
		requests = append(requests, requestChannel(p))
	}

	tbl := c.Table()
	answer := func(value int) error {
		_, msg, err := tbl.ReceiveAny(ctx, requests...)
		if err != nil {
			return err
		}
		tbl.Bind(replyEndpoint, tile.MulticastAddress(tile.SingleCore(msg.Value()), replyChannel))
		return tbl.Send(ctx, replyEndpoint, value)
	}

	for it := 0; it < cfg.Iterations; it++ {
		if err := answer(it); err != nil {
			return err
		}
	}
	for w := 1; w < cfg.Cores; w++ {
		if err := answer(farmDone); err != nil {
			return err
		}
	}
	return nil
}

func work[R any](ctx context.Context, c *spawn.Core, cfg Config[R], slots []R) error {
	pos := c.ID().Position
	m := &Member[R]{
		Core:       c,
		Index:      pos - 1,
		Cores:      cfg.Cores,
		Iterations: cfg.Iterations,
		Slot:       &slots[pos-1],
		ctx:        ctx,
	}
	if err := call(cfg.Initialise, m); err != nil {
		return err
	}

	tbl := c.Table()
	tbl.Bind(requestEndpoint, tile.MulticastAddress(tile.SingleCore(0), requestChannel(pos)))
	for {
		if err := tbl.Send(ctx, requestEndpoint, pos); err != nil {
			return err
		}
		it, err := tbl.Receive(ctx, replyChannel)
		if err != nil {
			return err
		}
		if it == farmDone {
			break
		}
		if err := cfg.Iteration(m, it); err != nil {
			return err
		}
	}
	return call(cfg.Tidy, m)
}
