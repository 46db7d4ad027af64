package plumb

import (
	"context"

	"github.com/ib-77/tilenet/pkg/tile"
	"github.com/ib-77/tilenet/pkg/tile/channel"
)

type FeedHandlers struct {
	OnSuccess func(ctx context.Context, value int)
	OnBreak   func(ctx context.Context, rest []int)
}

// Feed sends values on ep in order. If a send fails, OnBreak receives the
// values that were not sent.
func Feed(ctx context.Context, t *channel.Table, ep int, handlers FeedHandlers, values ...int) error {
	for i, v := range values {
		if err := t.Send(ctx, ep, v); err != nil {
			if handlers.OnBreak != nil {
				handlers.OnBreak(ctx, values[i:])
			}
			return err
		}
		if handlers.OnSuccess != nil {
			handlers.OnSuccess(ctx, v)
		}
	}
	return nil
}

// Collect receives n words from ch.
func Collect(ctx context.Context, t *channel.Table, ch tile.Channel, n int) ([]int, error) {
	return t.ReceiveWords(ctx, ch, n)
}

// CollectUntil receives words from ch until end arrives. end is not
// included in the result.
func CollectUntil(ctx context.Context, t *channel.Table, ch tile.Channel, end int) ([]int, error) {
	res := make([]int, 0)
	for {
		v, err := t.Receive(ctx, ch)
		if err != nil {
			return res, err
		}
		if v == end {
			return res, nil
		}
		res = append(res, v)
	}
}
