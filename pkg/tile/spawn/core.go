package spawn

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ib-77/tilenet/internal/logging"
	"github.com/ib-77/tilenet/pkg/tile"
	"github.com/ib-77/tilenet/pkg/tile/channel"
	"github.com/ib-77/tilenet/pkg/tile/fabric"
)

// Core is the execution context handed to every task.
type Core struct {
	id    tile.CoreID
	table *channel.Table
	rt    *Runtime
	log   *logging.Logger
}

func newCore(rt *Runtime, id tile.CoreID) *Core {
	return &Core{
		id:    id,
		table: channel.NewTable(rt.chip, id),
		rt:    rt,
		log:   rt.log.Core(id.String()),
	}
}

func (c *Core) ID() tile.CoreID {
	return c.id
}

// Table is the core's channel map table.
func (c *Core) Table() *channel.Table {
	return c.table
}

func (c *Core) Runtime() *Runtime {
	return c.rt
}

func (c *Core) Chip() *fabric.Chip {
	return c.rt.chip
}

func (c *Core) Logger() *logging.Logger {
	return c.log
}

// serve is the idle loop: wait for an instruction packet, acknowledge it,
// run it, repeat.
func (c *Core) serve(ctx context.Context) error {
	fifo := c.rt.chip.Port(c.id, tile.ChannelIPKFIFO)
	for {
		msg, err := fifo.Pop(ctx)
		if err != nil {
			return nil
		}
		msg.Consume()

		p, ok := msg.Packet().(*packet)
		if !ok {
			c.log.Warn("discarding non-packet message on instruction FIFO", envelopeFields(msg)...)
			continue
		}
		p.accepted.release()
		c.rt.metrics.RecordDispatch()
		c.execute(ctx, p)
	}
}

func (c *Core) execute(ctx context.Context, p *packet) {
	defer p.finished.release()

	c.rt.metrics.CoreBusy(1)
	defer c.rt.metrics.CoreBusy(-1)

	err := tryCatch(func() error { return p.fn(ctx, c, p.args) })
	if err == nil {
		return
	}
	p.fail(err)
	if ctx.Err() == nil || !tile.IsCancellationError(err) {
		c.rt.fault(c.id, err)
	}
}

func envelopeFields(e tile.Envelope) []zap.Field {
	return []zap.Field{
		zap.Stringer("message", e.Id()),
		zap.Stringer("source", e.Source()),
		zap.Stringer("kind", e.Kind()),
		zap.Duration("age", time.Since(e.CreatedAt())),
	}
}
