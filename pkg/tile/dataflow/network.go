package dataflow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ib-77/tilenet/pkg/tile"
	"github.com/ib-77/tilenet/pkg/tile/channel"
	"github.com/ib-77/tilenet/pkg/tile/plumb"
	"github.com/ib-77/tilenet/pkg/tile/spawn"
)

// firstOutputEndpoint is where a core's output links start in its table.
const firstOutputEndpoint = 2

// MaxOutputs is the number of links a node or the source can have.
const MaxOutputs = tile.TableSize - firstOutputEndpoint

// Link sends to input Channel of every listed position of the tile.
type Link struct {
	Cores   []int
	Channel tile.Channel
}

func (l Link) address() tile.Address {
	var mask tile.Bitmask
	for _, p := range l.Cores {
		mask |= tile.SingleCore(p)
	}
	return tile.MulticastAddress(mask, l.Channel)
}

// Node is the work of one non-source core.
type Node struct {
	Inputs   []tile.Channel
	Op       plumb.Engine
	Outputs  []Link
	Handlers plumb.CancellationHandlers
}

// Source drives the network from position 0. Run returns once every
// expected result has been produced.
type Source struct {
	Outputs []Link
	Run     func(d *Driver) error
}

// Network is a complete dataflow description. Nodes is keyed by position
// and needs an entry for each of 1..Cores-1.
type Network struct {
	Cores  int
	Source Source
	Nodes  map[int]Node
}

// Driver is the source's view of the network.
type Driver struct {
	core    *spawn.Core
	section *plumb.Section
}

func (d *Driver) Context() context.Context {
	return d.section.Context()
}

// Section is the invocation the network runs in.
func (d *Driver) Section() *plumb.Section {
	return d.section
}

func (d *Driver) Table() *channel.Table {
	return d.core.Table()
}

// Send sends v on the source's output link output.
func (d *Driver) Send(output, v int) error {
	return d.core.Table().Send(d.Context(), firstOutputEndpoint+output, v)
}

// Feed sends values in order on output link output. On failure the values
// not sent are passed to handlers.OnBreak.
func (d *Driver) Feed(output int, handlers plumb.FeedHandlers, values ...int) error {
	return plumb.Feed(d.Context(), d.core.Table(), firstOutputEndpoint+output, handlers, values...)
}

// Receive takes one word from input ch of the source.
func (d *Driver) Receive(ch tile.Channel) (int, error) {
	return d.core.Table().Receive(d.Context(), ch)
}

// Collect receives n words from input ch of the source.
func (d *Driver) Collect(ch tile.Channel, n int) ([]int, error) {
	return plumb.Collect(d.Context(), d.core.Table(), ch, n)
}

// CollectUntil receives words from input ch until end arrives.
func (d *Driver) CollectUntil(ch tile.Channel, end int) ([]int, error) {
	return plumb.CollectUntil(d.Context(), d.core.Table(), ch, end)
}

// Start runs net with the caller, position 0 of its tile, as source. It
// returns after the source has finished, the section has ended and every
// node has stopped.
func Start(ctx context.Context, c *spawn.Core, net Network) (err error) {
	if err := net.Validate(); err != nil {
		return err
	}
	if c.ID().Position != 0 {
		return fmt.Errorf("started on core %s, not position 0: %w", c.ID(), tile.ErrInvalidDescriptor)
	}

	started := time.Now()
	defer func() { c.Chip().Metrics().RecordPattern("dataflow", started, err) }()

	section := plumb.NewSection(ctx, c.ID())
	log := c.Logger().Invocation("dataflow", section.ID().String())
	log.Debug("starting", zap.Int("cores", net.Cores))

	section.Join(net.Cores - 1)
	node := func(_ context.Context, nc *spawn.Core, _ any) error {
		defer section.Leave()
		n := net.Nodes[nc.ID().Position]
		outputs := bindOutputs(nc.Table(), n.Outputs)
		return plumb.Locomotive(section, nc.Table(), n.Inputs, outputs, n.Op, n.Handlers, nil)
	}
	d, err := spawn.Execute(ctx, c, net.Cores, node, nil)
	if err != nil {
		return err
	}

	channels := make([]tile.Channel, 0, tile.InputChannels)
	for ch := tile.ChannelRegister2; ch < tile.InputChannels; ch++ {
		channels = append(channels, ch)
	}
	members := plumb.Members(c.ID(), net.Cores)

	bindOutputs(c.Table(), net.Source.Outputs)
	if err := net.Source.Run(&Driver{core: c, section: section}); err != nil {
		err = plumb.Unwind(c.Runtime(), section, d, err)
		plumb.DrainRemaining(ctx, c.Chip(), members, channels...)
		log.Debug("aborted", zap.Error(err))
		return err
	}
	section.End(c.ID())

	if err := section.Wait(c.Runtime().Context()); err != nil {
		return err
	}
	if err := d.Wait(c.Runtime().Context()); err != nil {
		return err
	}

	drained := plumb.DrainRemaining(ctx, c.Chip(), members, channels...)
	log.Debug("finished", zap.Int("drained", drained), zap.Stringer("state", section.State()))
	return nil
}

func bindOutputs(t *channel.Table, links []Link) []int {
	eps := make([]int, 0, len(links))
	for i, l := range links {
		ep := firstOutputEndpoint + i
		t.Bind(ep, l.address())
		eps = append(eps, ep)
	}
	return eps
}
