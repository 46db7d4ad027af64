package token

import (
	"context"

	"github.com/ib-77/tilenet/pkg/tile"
	"github.com/ib-77/tilenet/pkg/tile/channel"
)

const (
	SyncEndpoint = 10
	TileChannel  = tile.ChannelRegister6
	TilesChannel = tile.ChannelRegister5
)

// Send sends one token on ep.
func Send(ctx context.Context, t *channel.Table, ep int) error {
	return t.SendToken(ctx, ep)
}

// Receive waits for one token on ch and discards it.
func Receive(ctx context.Context, t *channel.Table, ch tile.Channel) error {
	_, err := t.ReceiveMessage(ctx, ch)
	return err
}

// ConnectHelix binds ep of a member of a contiguous group of size cores
// starting at first to input ch of the member offset places further round
// the ring, then waits for the connection. Same-tile neighbours are reached
// by multicast, others by a credited connection.
func ConnectHelix(ctx context.Context, t *channel.Table, ep int, first tile.CoreID, cores, offset int, ch tile.Channel) (tile.Address, error) {
	i := tile.GroupIndex(first, t.Owner())
	if cores < 1 || i < 0 || i >= cores {
		panic(tile.Violation("core %s is not in the %d-core group at %s", t.Owner(), cores, first))
	}

	next := ((i+offset)%cores + cores) % cores
	addr := tile.LocalAddress(t.Owner(), tile.GroupCoreID(first, next), ch, tile.DefaultCreditCount)
	if err := t.Connect(ctx, ep, addr); err != nil {
		return tile.Address{}, err
	}
	return addr, nil
}

// Gather collapses a chain of tokens toward position 0 of the caller's
// tile: each of the first cores positions waits for its successor, then
// notifies its predecessor. When Gather returns on position 0 every other
// participant has called it.
func Gather(ctx context.Context, t *channel.Table, cores, ep int, ch tile.Channel) error {
	pos := t.Owner().Position
	if cores > tile.CoresPerTile || pos >= cores {
		panic(tile.Violation("core %s outside a %d-core tile group", t.Owner(), cores))
	}

	if pos < cores-1 {
		if err := Receive(ctx, t, ch); err != nil {
			return err
		}
	}
	if pos > 0 {
		t.Bind(ep, tile.MulticastAddress(tile.SingleCore(pos-1), ch))
		return Send(ctx, t, ep)
	}
	return nil
}
