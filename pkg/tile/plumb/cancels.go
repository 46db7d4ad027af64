package plumb

import (
	"context"

	"go.uber.org/zap"

	"github.com/ib-77/tilenet/pkg/tile"
	"github.com/ib-77/tilenet/pkg/tile/fabric"
)

// DrainRemaining empties channels of cores after a section has gone idle,
// returning the credits of whatever was left in flight. It does nothing
// when draining is disabled in ctx.
func DrainRemaining(ctx context.Context, chip *fabric.Chip, cores []tile.CoreID, channels ...tile.Channel) int {
	if !IsDrainRemainingEnabled(ctx, true) {
		return 0
	}

	n := chip.Drain(cores, channels...)
	if n > 0 {
		chip.Logger().Debug("drained messages left by a finished section",
			zap.Int("messages", n),
			zap.Int("cores", len(cores)))
	}
	return n
}

// Members lists the first cores positions of the tile of first.
func Members(first tile.CoreID, cores int) []tile.CoreID {
	ids := make([]tile.CoreID, 0, cores)
	for i := 0; i < cores; i++ {
		ids = append(ids, tile.GroupCoreID(first, i))
	}
	return ids
}
