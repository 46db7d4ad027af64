package spawn

import (
	"context"
	"fmt"

	"github.com/ib-77/tilenet/pkg/tile"
)

const (
	// MaxSpawnArgs is the largest number of word arguments Spawn carries.
	MaxSpawnArgs = 5
	// ReturnEndpoint is the endpoint a spawned function answers on.
	ReturnEndpoint = 2
)

// WordFunc is a function that can be spawned.
type WordFunc func(args ...int) int

// Designated returns the core Spawn runs on for caller id: the next
// position on the same tile.
func Designated(id tile.CoreID) tile.CoreID {
	return tile.CoreID{Tile: id.Tile, Position: (id.Position + 1) % tile.CoresPerTile}
}

// ReturnAddress is the address the designated core of c should answer to,
// landing on input ch of c.
func (c *Core) ReturnAddress(ch tile.Channel) tile.Address {
	return tile.LocalAddress(Designated(c.id), c.id, ch, tile.DefaultCreditCount)
}

// Spawn runs fn(args...) on the designated core of c, which sends the
// result to ret. Spawn returns once the designated core has accepted the
// work; the caller collects the result by receiving on ret's channel.
func Spawn(ctx context.Context, c *Core, fn WordFunc, ret tile.Address, args ...int) error {
	if len(args) > MaxSpawnArgs {
		return fmt.Errorf("spawn with %d arguments: %w", len(args), tile.ErrTooManyArguments)
	}
	words := append([]int(nil), args...)

	_, err := RemoteExecute(ctx, c, Designated(c.id), func(ctx context.Context, rc *Core, _ any) error {
		saved := rc.table.Save(ReturnEndpoint)
		defer rc.table.Restore(ReturnEndpoint, saved)

		if err := rc.table.Connect(ctx, ReturnEndpoint, ret); err != nil {
			return err
		}
		if err := rc.table.Send(ctx, ReturnEndpoint, fn(words...)); err != nil {
			return err
		}
		return rc.table.Release(ctx, ReturnEndpoint)
	}, nil)
	return err
}
