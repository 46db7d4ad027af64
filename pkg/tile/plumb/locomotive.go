package plumb

import (
	"context"

	"github.com/ib-77/tilenet/pkg/tile"
	"github.com/ib-77/tilenet/pkg/tile/channel"
)

// Engine computes one step of a node. send reports whether result should
// be forwarded.
type Engine func(args []int) (result int, send bool)

type CancellationHandlers struct {
	OnCancel            func(ctx context.Context, core tile.CoreID)
	OnCancelUnprocessed func(ctx context.Context, partial []int)
	OnCancelProcessed   func(ctx context.Context, result int)
}

// Locomotive runs the steady state of a node until the section ends: take
// one word from each of inputs in order, compute, and send the result on
// each of outputs.
func Locomotive(s *Section, t *channel.Table, inputs []tile.Channel, outputs []int,
	engine Engine, handlers CancellationHandlers, onSuccess func(result int)) error {
	if len(inputs) == 0 {
		panic(tile.Violation("locomotive on core %s without inputs", t.Owner()))
	}

	ctx := s.Context()
	args := make([]int, len(inputs))

	for {
		for i, ch := range inputs {
			v, err := t.Receive(ctx, ch)
			if err != nil {
				if i > 0 && handlers.OnCancelUnprocessed != nil {
					handlers.OnCancelUnprocessed(ctx, append([]int(nil), args[:i]...))
				}
				if handlers.OnCancel != nil {
					handlers.OnCancel(ctx, t.Owner())
				}
				return s.Exit(err)
			}
			args[i] = v
		}

		res, send := engine(args)
		if !send {
			continue
		}

		for _, ep := range outputs {
			if err := t.Send(ctx, ep, res); err != nil {
				if handlers.OnCancelProcessed != nil {
					handlers.OnCancelProcessed(ctx, res)
				}
				if handlers.OnCancel != nil {
					handlers.OnCancel(ctx, t.Owner())
				}
				return s.Exit(err)
			}
		}
		if onSuccess != nil {
			onSuccess(res)
		}
	}
}
