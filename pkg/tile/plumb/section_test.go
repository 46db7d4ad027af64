package plumb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib-77/tilenet/pkg/tile"
)

func TestSectionLifecycle(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	authority := tile.CoreID{Tile: 0, Position: 3}
	s := NewSection(ctx, authority)
	assert.Equal(t, Running, s.State())
	assert.False(t, s.Ended())
	assert.NotEmpty(t, s.ID())

	s.Join(2)
	left := make(chan struct{})
	for i := 0; i < 2; i++ {
		go func() {
			defer s.Leave()
			<-s.Done()
			left <- struct{}{}
		}()
	}

	s.End(authority)
	assert.True(t, s.Ended())
	assert.Equal(t, Ending, s.State())
	assert.ErrorIs(t, context.Cause(s.Context()), tile.ErrSectionEnded)

	<-left
	<-left
	require.NoError(t, s.Wait(ctx))
	assert.Equal(t, Idle, s.State())

	assert.NotPanics(t, func() { s.End(authority) })
}

func TestSectionEndByOtherCorePanics(t *testing.T) {
	t.Parallel()

	s := NewSection(context.Background(), tile.CoreID{})
	defer func() {
		var cv *tile.ContractViolation
		require.True(t, errors.As(recover().(error), &cv))
		assert.False(t, s.Ended())
	}()
	s.End(tile.CoreID{Tile: 0, Position: 1})
}

func TestSectionExit(t *testing.T) {
	t.Parallel()

	s := NewSection(context.Background(), tile.CoreID{})
	assert.ErrorIs(t, s.Exit(context.Canceled), context.Canceled)

	s.End(tile.CoreID{})
	assert.NoError(t, s.Exit(context.Canceled))
	assert.Error(t, s.Exit(errors.New("boom")))
	assert.NoError(t, s.Exit(nil))
}

func TestSectionAbortFromAnyCore(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	boom := errors.New("boom")
	s := NewSection(ctx, tile.CoreID{})
	s.Join(1)
	go func() {
		defer s.Leave()
		<-s.Done()
	}()

	assert.NotPanics(t, func() { s.Abort(boom) })
	assert.True(t, s.Aborted())
	assert.False(t, s.Ended())
	assert.Equal(t, Ending, s.State())
	assert.ErrorIs(t, context.Cause(s.Context()), boom)
	assert.NoError(t, s.Exit(context.Canceled))
	assert.ErrorIs(t, s.Exit(boom), boom)

	require.NoError(t, s.Wait(ctx))
	assert.Equal(t, Idle, s.State())
}

func TestSectionWaitHonoursContext(t *testing.T) {
	t.Parallel()

	s := NewSection(context.Background(), tile.CoreID{})
	s.Join(1)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)
	assert.Equal(t, Running, s.State())
	s.Leave()
}

func TestOptions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Equal(t, 4, CreditCount(ctx, 4))
	assert.Equal(t, 1, CreditCount(WithCreditCount(ctx, 1), 4))
	assert.True(t, IsDrainRemainingEnabled(ctx, true))
	assert.False(t, IsDrainRemainingEnabled(WithDrainRemaining(ctx, false), true))
}
