package token

import (
	"context"

	"github.com/ib-77/tilenet/pkg/tile"
	"github.com/ib-77/tilenet/pkg/tile/channel"
)

// TileSync returns once the first cores cores of the caller's tile have all
// called it.
func TileSync(ctx context.Context, t *channel.Table, cores int) error {
	if cores <= 1 {
		return nil
	}
	if err := Gather(ctx, t, cores, SyncEndpoint, TileChannel); err != nil {
		return err
	}

	if t.Owner().Position > 0 {
		return Receive(ctx, t, TileChannel)
	}

	t.Chip().Metrics().RecordBarrier("tile")
	t.Bind(SyncEndpoint, tile.MulticastAddress(tile.AllCoresExcept0(cores), TileChannel))
	return Send(ctx, t, SyncEndpoint)
}

// SyncTiles is a barrier among position 0 of tiles 0..tiles-1. Tiles are
// linked by credited connections that are released after each token.
func SyncTiles(ctx context.Context, t *channel.Table, tiles int) error {
	if tiles <= 1 {
		return nil
	}
	id := t.Owner()
	if id.Position != 0 {
		panic(tile.Violation("tile barrier called on core %s, not position 0", id))
	}

	if id.Tile < tiles-1 {
		if err := Receive(ctx, t, TilesChannel); err != nil {
			return err
		}
	}

	if id.Tile > 0 {
		if err := sendTileToken(ctx, t, id.Tile-1); err != nil {
			return err
		}
		return Receive(ctx, t, TilesChannel)
	}

	for dst := 1; dst < tiles; dst++ {
		if err := sendTileToken(ctx, t, dst); err != nil {
			return err
		}
	}
	t.Chip().Metrics().RecordBarrier("tiles")
	return nil
}

func sendTileToken(ctx context.Context, t *channel.Table, dst int) error {
	addr := tile.CoreAddress(dst, 0, TilesChannel, tile.DefaultCreditCount)
	if err := t.Connect(ctx, SyncEndpoint, addr); err != nil {
		return err
	}
	if err := Send(ctx, t, SyncEndpoint); err != nil {
		return err
	}
	return t.Release(ctx, SyncEndpoint)
}

// Sync returns once the first cores cores of the chip, counted from tile 0,
// have all called it.
func Sync(ctx context.Context, t *channel.Table, cores int) error {
	if cores <= 1 {
		return nil
	}
	id := t.Owner()
	local := tile.CoresThisTile(cores, id.Tile)
	if id.Position >= local {
		panic(tile.Violation("core %s is not one of the first %d cores", id, cores))
	}

	if id.Position < local-1 {
		if err := Receive(ctx, t, TileChannel); err != nil {
			return err
		}
	}

	if id.Position > 0 {
		t.Bind(SyncEndpoint, tile.MulticastAddress(tile.SingleCore(id.Position-1), TileChannel))
		if err := Send(ctx, t, SyncEndpoint); err != nil {
			return err
		}
		return Receive(ctx, t, TileChannel)
	}

	if err := SyncTiles(ctx, t, tile.NumTiles(cores)); err != nil {
		return err
	}
	if local > 1 {
		t.Bind(SyncEndpoint, tile.MulticastAddress(tile.AllCoresExcept0(local), TileChannel))
		if err := Send(ctx, t, SyncEndpoint); err != nil {
			return err
		}
	}
	t.Chip().Metrics().RecordBarrier("chip")
	return nil
}
