package spawn

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib-77/tilenet/pkg/tile"
	"github.com/ib-77/tilenet/pkg/tile/fabric"
)

func boot(t *testing.T) *Runtime {
	t.Helper()
	chip, err := fabric.New(fabric.DefaultOptions(), nil, nil)
	require.NoError(t, err)
	rt := Boot(context.Background(), chip)
	t.Cleanup(func() { _ = rt.Shutdown() })
	return rt
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestMainRunsOnFirstCore(t *testing.T) {
	t.Parallel()

	rt := boot(t)
	var ran tile.CoreID
	err := rt.Main(testContext(t), func(_ context.Context, c *Core, args any) error {
		ran = c.ID()
		assert.Equal(t, "hello", args)
		return nil
	}, "hello")

	require.NoError(t, err)
	assert.Equal(t, tile.CoreID{}, ran)
}

func TestSpawnReturnsResult(t *testing.T) {
	t.Parallel()

	rt := boot(t)
	add := func(args ...int) int {
		sum := 0
		for _, a := range args {
			sum += a
		}
		return sum
	}

	var got int
	err := rt.Main(testContext(t), func(ctx context.Context, c *Core, _ any) error {
		if err := Spawn(ctx, c, add, c.ReturnAddress(tile.ChannelRegister3), 4, 6); err != nil {
			return err
		}
		v, err := c.Table().Receive(ctx, tile.ChannelRegister3)
		got = v
		return err
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 10, got)
}

func TestSpawnRejectsTooManyArguments(t *testing.T) {
	t.Parallel()

	rt := boot(t)
	var spawnErr error
	err := rt.Main(testContext(t), func(ctx context.Context, c *Core, _ any) error {
		spawnErr = Spawn(ctx, c, func(...int) int { return 0 }, c.ReturnAddress(tile.ChannelRegister3), 1, 2, 3, 4, 5, 6)
		return nil
	}, nil)

	require.NoError(t, err)
	assert.ErrorIs(t, spawnErr, tile.ErrTooManyArguments)
}

type scale struct {
	data1, data2 int
	out          []int
}

func TestExecuteAcrossTiles(t *testing.T) {
	t.Parallel()

	const cores = 12
	rt := boot(t)
	args := &scale{data1: 3, data2: 7, out: make([]int, cores)}
	share := func(_ context.Context, c *Core, a any) error {
		s := a.(*scale)
		u := c.ID().Unique()
		s.out[u] = u*s.data1 + s.data2
		return nil
	}

	err := rt.Main(testContext(t), func(ctx context.Context, c *Core, _ any) error {
		d, err := Execute(ctx, c, cores, share, args)
		if err != nil {
			return err
		}
		assert.Equal(t, cores-1, d.Targets())
		if err := share(ctx, c, args); err != nil {
			return err
		}
		return d.Wait(ctx)
	}, nil)

	require.NoError(t, err)
	for u := 0; u < cores; u++ {
		assert.Equal(t, u*3+7, args.out[u], "core %d", u)
	}
}

func TestExecuteReturnsBeforeTargetsFinish(t *testing.T) {
	t.Parallel()

	rt := boot(t)
	gate := make(chan struct{})
	var finished atomic.Int32

	err := rt.Main(testContext(t), func(ctx context.Context, c *Core, _ any) error {
		d, err := Execute(ctx, c, 4, func(ctx context.Context, _ *Core, _ any) error {
			<-gate
			finished.Add(1)
			return nil
		}, nil)
		if err != nil {
			return err
		}
		assert.Equal(t, int32(0), finished.Load())
		close(gate)
		return d.Wait(ctx)
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, int32(3), finished.Load())
}

func TestExecuteRejectsBadCoreCount(t *testing.T) {
	t.Parallel()

	rt := boot(t)
	var execErr error
	err := rt.Main(testContext(t), func(ctx context.Context, c *Core, _ any) error {
		_, execErr = Execute(ctx, c, 17, func(context.Context, *Core, any) error { return nil }, nil)
		return nil
	}, nil)

	require.NoError(t, err)
	assert.ErrorIs(t, execErr, tile.ErrCoreCount)
}

func TestRemoteExecuteOnOtherTile(t *testing.T) {
	t.Parallel()

	rt := boot(t)
	target := tile.CoreID{Tile: 1, Position: 4}
	var ran atomic.Value

	err := rt.Main(testContext(t), func(ctx context.Context, c *Core, _ any) error {
		d, err := RemoteExecute(ctx, c, target, func(_ context.Context, rc *Core, _ any) error {
			ran.Store(rc.ID())
			return nil
		}, nil)
		if err != nil {
			return err
		}
		return d.Wait(ctx)
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, target, ran.Load())
}

func TestSleepReturnsCoreToIdle(t *testing.T) {
	t.Parallel()

	rt := boot(t)
	target := tile.CoreID{Tile: 0, Position: 2}
	var reached, second atomic.Bool

	err := rt.Main(testContext(t), func(ctx context.Context, c *Core, _ any) error {
		d, err := RemoteExecute(ctx, c, target, func(context.Context, *Core, any) error {
			Sleep()
			reached.Store(true)
			return nil
		}, nil)
		if err != nil {
			return err
		}
		if err := d.Wait(ctx); err != nil {
			return err
		}

		d, err = RemoteExecute(ctx, c, target, func(context.Context, *Core, any) error {
			second.Store(true)
			return nil
		}, nil)
		if err != nil {
			return err
		}
		return d.Wait(ctx)
	}, nil)

	require.NoError(t, err)
	assert.False(t, reached.Load())
	assert.True(t, second.Load())
}

func TestFaultStopsRuntime(t *testing.T) {
	t.Parallel()

	rt := boot(t)
	err := rt.Main(testContext(t), func(ctx context.Context, c *Core, _ any) error {
		_, err := RemoteExecute(ctx, c, tile.CoreID{Tile: 0, Position: 1}, func(_ context.Context, rc *Core, _ any) error {
			rc.Table().Bind(tile.TableSize, tile.MulticastAddress(1, tile.ChannelRegister2))
			return nil
		}, nil)
		if err != nil {
			return err
		}
		// Blocks until the fault cancels the runtime.
		_, err = c.Table().Receive(ctx, tile.ChannelRegister7)
		return err
	}, nil)

	require.Error(t, err)
	var cv *tile.ContractViolation
	assert.True(t, errors.As(err, &cv))
	assert.Error(t, rt.Context().Err())
	require.Len(t, rt.Faults(), 1)
	assert.Contains(t, rt.Faults()[0].Error(), "core 0.1")

	assert.ErrorIs(t, rt.Main(testContext(t), func(context.Context, *Core, any) error { return nil }, nil), cv)
}

func TestMainAfterShutdown(t *testing.T) {
	t.Parallel()

	rt := boot(t)
	require.NoError(t, rt.Shutdown())
	err := rt.Main(testContext(t), func(context.Context, *Core, any) error { return nil }, nil)
	assert.ErrorIs(t, err, tile.ErrStopped)
}

func TestForwardSettlesOnlyUndeliveredCopies(t *testing.T) {
	t.Parallel()

	chip, err := fabric.New(fabric.DefaultOptions(), nil, nil)
	require.NoError(t, err)
	// no serve loops: the test plays the part of the remote tile's cores
	rt := &Runtime{chip: chip, log: chip.Logger()}
	relay := newCore(rt, tile.CoreID{Tile: 1, Position: 0})

	full := chip.Port(tile.CoreID{Tile: 1, Position: 2}, tile.ChannelIPKFIFO)
	for i := 0; i < chip.Options().IPKDepth; i++ {
		require.NoError(t, full.Push(context.Background(), tile.Data(Host, i)))
	}

	p := newPacket(func(context.Context, *Core, any) error { return nil }, nil, 3)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = forward(p, 3)(ctx, relay, nil)
	var de *fabric.DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 1, de.Delivered)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// position 1 holds a copy and settles it the way serve does
	msg, ok := chip.Port(tile.CoreID{Tile: 1, Position: 1}, tile.ChannelIPKFIFO).TryPop()
	require.True(t, ok)
	assert.Same(t, p, msg.Packet())
	assert.NotPanics(t, func() {
		p.accepted.release()
		p.finished.release()
	})

	require.NoError(t, p.accepted.wait(testContext(t)))
	require.NoError(t, p.finished.wait(testContext(t)))
}
