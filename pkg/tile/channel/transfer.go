package channel

import (
	"context"
	"reflect"

	"github.com/ib-77/tilenet/pkg/tile"
)

// Send transmits one data word on ep, blocking while the endpoint has no
// credits.
func (t *Table) Send(ctx context.Context, ep int, value int) error {
	return t.SendMessage(ctx, ep, tile.Data(t.owner, value))
}

// SendToken transmits a zero-payload token on ep.
func (t *Table) SendToken(ctx context.Context, ep int) error {
	return t.SendMessage(ctx, ep, tile.Token(t.owner))
}

// SendPacket transmits an instruction packet on ep.
func (t *Table) SendPacket(ctx context.Context, ep int, packet any) error {
	return t.SendMessage(ctx, ep, tile.Packet(t.owner, packet))
}

// SendMessage transmits msg on ep. Messages sent on one endpoint arrive in
// order.
func (t *Table) SendMessage(ctx context.Context, ep int, msg tile.Message) error {
	l := t.bound(ep)

	if l.addr.Credited() {
		if !l.credits.TryAcquire(1) {
			t.chip.Metrics().RecordCreditStall()
			if err := l.credits.Acquire(ctx, 1); err != nil {
				return err
			}
		}
		msg = msg.WithCredit(func() { l.credits.Release(1) })
	}

	if err := t.chip.Transmit(ctx, t.owner, l.addr, msg); err != nil {
		msg.Consume()
		return err
	}
	return nil
}

// Receive takes the oldest word from input channel ch, blocking while it is
// empty, and returns its credit to the sender.
func (t *Table) Receive(ctx context.Context, ch tile.Channel) (int, error) {
	msg, err := t.ReceiveMessage(ctx, ch)
	if err != nil {
		return 0, err
	}
	return msg.Value(), nil
}

// ReceiveMessage is Receive for callers that need the envelope.
func (t *Table) ReceiveMessage(ctx context.Context, ch tile.Channel) (tile.Message, error) {
	msg, err := t.chip.Port(t.owner, ch).Pop(ctx)
	if err != nil {
		return tile.Message{}, err
	}
	msg.Consume()
	return msg, nil
}

// Probe reports whether input channel ch holds data.
func (t *Table) Probe(ch tile.Channel) bool {
	return t.chip.Port(t.owner, ch).Len() > 0
}

// ReceiveAny takes one message from whichever of channels has data. When
// several are ready the scan starts after the channel served last, so no
// input is starved.
func (t *Table) ReceiveAny(ctx context.Context, channels ...tile.Channel) (tile.Channel, tile.Message, error) {
	if len(channels) == 0 {
		panic(tile.Violation("core %s: receive from an empty channel set", t.owner))
	}

	for i := range channels {
		ch := channels[(t.next+i)%len(channels)]
		if msg, ok := t.chip.Port(t.owner, ch).TryPop(); ok {
			t.next = (t.next + i + 1) % len(channels)
			msg.Consume()
			return ch, msg, nil
		}
	}

	cases := make([]reflect.SelectCase, 0, len(channels)+1)
	for _, ch := range channels {
		cases = append(cases, reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(t.chip.Port(t.owner, ch).Ready()),
		})
	}
	cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())})

	chosen, value, _ := reflect.Select(cases)
	if chosen == len(channels) {
		return 0, tile.Message{}, ctx.Err()
	}
	msg := value.Interface().(tile.Message)
	msg.Consume()
	t.next = (chosen + 1) % len(channels)
	return channels[chosen], msg, nil
}
