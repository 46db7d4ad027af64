package spawn

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ib-77/tilenet/pkg/tile"
	"github.com/ib-77/tilenet/pkg/tile/fabric"
)

// DispatchEndpoint is the endpoint used to reach other cores' instruction
// FIFOs. Its previous binding is restored afterwards.
const DispatchEndpoint = 11

// Execute starts fn(args) on the cores cores of the group that begins at
// the caller, which must be position 0 of its tile. The caller itself is not
// dispatched to; it runs its own share after Execute returns. Cores on the
// caller's tile are reached by one multicast packet, remote tiles through
// their position 0, which forwards the packet across its tile.
//
// Execute returns once every target has dequeued the packet.
func Execute(ctx context.Context, c *Core, cores int, fn Task, args any) (*Dispatch, error) {
	first := c.id
	if first.Position != 0 {
		panic(tile.Violation("execute from core %s: caller must be position 0", first))
	}
	if cores < 1 || first.Unique()+cores > c.rt.chip.Cores() {
		return nil, fmt.Errorf("execute on %d cores from %s: %w", cores, first, tile.ErrCoreCount)
	}

	p := newPacket(fn, args, cores-1)
	d := &Dispatch{p: p, targets: cores - 1}

	saved := c.table.Save(DispatchEndpoint)
	defer c.table.Restore(DispatchEndpoint, saved)

	if local := tile.CoresThisTile(cores, 0); local > 1 {
		c.table.Bind(DispatchEndpoint, tile.MulticastAddress(tile.AllCoresExcept0(local), tile.ChannelIPKFIFO))
		if err := c.table.SendPacket(ctx, DispatchEndpoint, p); err != nil {
			return nil, err
		}
	}

	for k := 1; k < tile.NumTiles(cores); k++ {
		relay := newPacket(forward(p, tile.CoresThisTile(cores, k)), nil, 1)
		addr := tile.CoreAddress(first.Tile+k, 0, tile.ChannelIPKFIFO, tile.DefaultIPKCreditCount)
		if err := c.table.Connect(ctx, DispatchEndpoint, addr); err != nil {
			return nil, err
		}
		if err := c.table.SendPacket(ctx, DispatchEndpoint, relay); err != nil {
			return nil, err
		}
		if err := c.table.Release(ctx, DispatchEndpoint); err != nil {
			return nil, err
		}
	}

	if err := p.accepted.wait(ctx); err != nil {
		return nil, err
	}
	c.log.Debug("dispatched", zap.Int("cores", cores))
	return d, nil
}

// forward is the task run by position 0 of a remote tile: pass p on to the
// rest of the tile, then run it here too.
func forward(p *packet, local int) Task {
	return func(ctx context.Context, c *Core, _ any) error {
		if local > 1 {
			saved := c.table.Save(DispatchEndpoint)
			c.table.Bind(DispatchEndpoint, tile.MulticastAddress(tile.AllCoresExcept0(local), tile.ChannelIPKFIFO))
			err := c.table.SendPacket(ctx, DispatchEndpoint, p)
			c.table.Restore(DispatchEndpoint, saved)
			if err != nil {
				// Cores holding a copy account for it when they run it.
				missing := local
				var de *fabric.DeliveryError
				if errors.As(err, &de) {
					missing -= de.Delivered
				}
				for i := 0; i < missing; i++ {
					p.accepted.release()
					p.finished.release()
				}
				return err
			}
		}
		p.accepted.release()
		c.execute(ctx, p)
		return nil
	}
}

// RemoteExecute starts fn(args) on the single core target.
func RemoteExecute(ctx context.Context, c *Core, target tile.CoreID, fn Task, args any) (*Dispatch, error) {
	if target == c.id || !c.rt.chip.Contains(target) {
		panic(tile.Violation("remote execute from %s on %s", c.id, target))
	}

	p := newPacket(fn, args, 1)

	saved := c.table.Save(DispatchEndpoint)
	defer c.table.Restore(DispatchEndpoint, saved)

	addr := tile.LocalAddress(c.id, target, tile.ChannelIPKFIFO, tile.DefaultIPKCreditCount)
	if err := c.table.Connect(ctx, DispatchEndpoint, addr); err != nil {
		return nil, err
	}
	if err := c.table.SendPacket(ctx, DispatchEndpoint, p); err != nil {
		return nil, err
	}
	if err := c.table.Release(ctx, DispatchEndpoint); err != nil {
		return nil, err
	}

	if err := p.accepted.wait(ctx); err != nil {
		return nil, err
	}
	return &Dispatch{p: p, targets: 1}, nil
}
