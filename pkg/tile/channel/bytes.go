package channel

import (
	"context"
	"encoding/binary"

	"github.com/ib-77/tilenet/pkg/tile"
)

// WordSize is the number of bytes carried by one message.
const WordSize = 4

// SendBytes sends data as little-endian 32-bit words; a trailing partial
// word is zero padded.
func (t *Table) SendBytes(ctx context.Context, ep int, data []byte) error {
	var word [WordSize]byte
	for off := 0; off < len(data); off += WordSize {
		word = [WordSize]byte{}
		copy(word[:], data[off:])
		if err := t.Send(ctx, ep, int(binary.LittleEndian.Uint32(word[:]))); err != nil {
			return err
		}
	}
	return nil
}

// ReceiveBytes receives n bytes sent with SendBytes.
func (t *Table) ReceiveBytes(ctx context.Context, ch tile.Channel, n int) ([]byte, error) {
	words := (n + WordSize - 1) / WordSize
	out := make([]byte, words*WordSize)
	for i := 0; i < words; i++ {
		v, err := t.Receive(ctx, ch)
		if err != nil {
			return nil, err
		}
		binary.LittleEndian.PutUint32(out[i*WordSize:], uint32(v))
	}
	return out[:n], nil
}

// SendWords sends each value on ep in order.
func (t *Table) SendWords(ctx context.Context, ep int, values ...int) error {
	for _, v := range values {
		if err := t.Send(ctx, ep, v); err != nil {
			return err
		}
	}
	return nil
}

// ReceiveWords receives n words from ch.
func (t *Table) ReceiveWords(ctx context.Context, ch tile.Channel, n int) ([]int, error) {
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		v, err := t.Receive(ctx, ch)
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}
