package fabric

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ib-77/tilenet/internal/logging"
	"github.com/ib-77/tilenet/internal/monitoring"
	"github.com/ib-77/tilenet/pkg/tile"
)

// Chip is the simulated substrate: every core's input channel ends and the
// tiles' memory banks.
type Chip struct {
	opts    Options
	ports   [][]*Port
	log     *logging.Logger
	metrics *monitoring.Metrics

	banksMu sync.Mutex
	banks   map[bankKey]*Bank
}

type bankKey struct {
	tile int
	bank int
}

// New builds a chip. log and metrics may be nil.
func New(opts Options, log *logging.Logger, metrics *monitoring.Metrics) (*Chip, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	cores := opts.Tiles() * tile.CoresPerTile
	c := &Chip{
		opts:    opts,
		ports:   make([][]*Port, cores),
		log:     logging.OrNop(log),
		metrics: metrics,
		banks:   make(map[bankKey]*Bank),
	}
	for u := 0; u < cores; u++ {
		id := tile.FromUnique(u)
		c.ports[u] = make([]*Port, tile.InputChannels)
		for ch := tile.Channel(0); ch < tile.InputChannels; ch++ {
			depth := opts.InputDepth
			if ch == tile.ChannelIPKFIFO {
				depth = opts.IPKDepth
			}
			c.ports[u][ch] = newPort(id, ch, depth)
		}
	}

	c.log.Debug("chip built",
		zap.Int("tiles", opts.Tiles()),
		zap.Int("cores", cores),
		zap.Int("input_depth", opts.InputDepth))
	return c, nil
}

func (c *Chip) Options() Options {
	return c.opts
}

func (c *Chip) Tiles() int {
	return c.opts.Tiles()
}

// Cores is the total number of cores on the chip.
func (c *Chip) Cores() int {
	return len(c.ports)
}

func (c *Chip) Contains(id tile.CoreID) bool {
	return id.Tile >= 0 && id.Position >= 0 && id.Position < tile.CoresPerTile &&
		id.Unique() < len(c.ports)
}

func (c *Chip) Logger() *logging.Logger {
	return c.log
}

func (c *Chip) Metrics() *monitoring.Metrics {
	return c.metrics
}

// Port returns the input channel end ch of core id.
func (c *Chip) Port(id tile.CoreID, ch tile.Channel) *Port {
	tile.CheckChannel(ch)
	if !c.Contains(id) {
		panic(tile.Violation("core %s not on a %d-tile chip", id, c.Tiles()))
	}
	return c.ports[id.Unique()][ch]
}

// Transmit delivers msg from src to addr. Multicast copies go to the
// selected cores of the sender's tile in ascending position order.
func (c *Chip) Transmit(ctx context.Context, src tile.CoreID, addr tile.Address, msg tile.Message) error {
	switch addr.Kind {
	case tile.KindUnicast:
		if err := c.Port(addr.Core, addr.Channel).Push(ctx, msg); err != nil {
			return err
		}
		c.metrics.RecordDelivery(msg.Kind().String(), addr.Kind.String())
		return nil

	case tile.KindMulticast:
		for n, pos := range addr.Mask.Cores() {
			dst := tile.CoreID{Tile: src.Tile, Position: pos}
			if err := c.Port(dst, addr.Channel).Push(ctx, msg); err != nil {
				return &DeliveryError{Delivered: n, Err: err}
			}
			c.metrics.RecordDelivery(msg.Kind().String(), addr.Kind.String())
		}
		return nil

	case tile.KindMemory:
		c.Bank(src.Tile, addr.Bank).write(addr.Group, msg.Value())
		c.metrics.RecordMemoryWrite()
		return nil

	default:
		return fmt.Errorf("transmit from %s: %w", src, tile.ErrUnbound)
	}
}

// Acquire asks for ownership of the input channel end addressed by addr.
// reply is called with true once granted, or with false when the request
// was parked and the previous owner has since released (retry).
func (c *Chip) Acquire(src tile.CoreID, addr tile.Address, reply func(acquired bool)) {
	granted := c.Port(addr.Core, addr.Channel).acquire(src, reply)
	if granted {
		c.metrics.RecordAcquire("granted")
		return
	}
	c.metrics.RecordAcquire("parked")
	c.log.Debug("acquire parked",
		zap.Stringer("src", src),
		zap.Stringer("dst", addr))
}

// Release gives up ownership held by src. Releasing a port src does not own
// is ignored.
func (c *Chip) Release(src tile.CoreID, addr tile.Address) {
	if !c.Port(addr.Core, addr.Channel).release(src) {
		c.log.Warn("release of a connection not owned",
			zap.Stringer("src", src),
			zap.Stringer("dst", addr))
	}
}

// Withdraw abandons whatever src holds or has requested on the input
// channel end addressed by addr, without waiting for credits.
func (c *Chip) Withdraw(src tile.CoreID, addr tile.Address) {
	c.Port(addr.Core, addr.Channel).withdraw(src)
	c.metrics.RecordAcquire("withdrawn")
}

// Bank returns memory bank bank of a tile, creating it on first use.
func (c *Chip) Bank(tileIndex, bank int) *Bank {
	c.banksMu.Lock()
	defer c.banksMu.Unlock()

	k := bankKey{tile: tileIndex, bank: bank}
	b, ok := c.banks[k]
	if !ok {
		b = &Bank{}
		c.banks[k] = b
	}
	return b
}

// Drain empties the given input channels of cores, returning credits for
// everything removed.
func (c *Chip) Drain(cores []tile.CoreID, channels ...tile.Channel) int {
	n := 0
	for _, id := range cores {
		for _, ch := range channels {
			n += c.Port(id, ch).Drain()
		}
	}
	return n
}
