package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib-77/tilenet/pkg/tile"
)

func TestBytesRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		data []byte
	}{
		{name: "aligned", data: []byte{1, 2, 3, 4, 5, 6, 7, 8}},
		{name: "unaligned", data: []byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02, 0x03}},
		{name: "single byte", data: []byte{0xff}},
		{name: "empty", data: []byte{}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			chip := newChip(t)
			src := NewTable(chip, core(0, 0))
			dst := NewTable(chip, core(1, 0))

			require.NoError(t, src.Connect(ctx, 2, tile.CoreAddress(1, 0, tile.ChannelRegister2, tile.DefaultCreditCount)))

			done := make(chan error, 1)
			go func() { done <- src.SendBytes(ctx, 2, tc.data) }()

			got, err := dst.ReceiveBytes(ctx, tile.ChannelRegister2, len(tc.data))
			require.NoError(t, err)
			require.NoError(t, <-done)
			assert.Equal(t, tc.data, got)
		})
	}
}

func TestSendBytesIsLittleEndian(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	chip := newChip(t)
	tbl := NewTable(chip, core(0, 2))
	tbl.Bind(2, tile.MulticastAddress(tile.SingleCore(2), tile.ChannelRegister4))

	require.NoError(t, tbl.SendBytes(ctx, 2, []byte{0x01, 0x02, 0x03}))
	v, err := tbl.Receive(ctx, tile.ChannelRegister4)
	require.NoError(t, err)
	assert.Equal(t, 0x030201, v)
}
