package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib-77/tilenet/pkg/tile"
	"github.com/ib-77/tilenet/pkg/tile/fabric"
	"github.com/ib-77/tilenet/pkg/tile/plumb"
	"github.com/ib-77/tilenet/pkg/tile/spawn"
)

const eos = -1

func runMain(t *testing.T, fn spawn.Task) error {
	t.Helper()

	chip, err := fabric.New(fabric.DefaultOptions(), nil, nil)
	require.NoError(t, err)
	rt := spawn.Boot(context.Background(), chip)
	t.Cleanup(func() { _ = rt.Shutdown() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return rt.Main(ctx, fn, nil)
}

func TestLoopPassesEveryIterationThroughEveryStage(t *testing.T) {
	t.Parallel()

	const iterations = 8
	buf := make([]int, iterations)
	out := make([]int, iterations)

	var mu sync.Mutex
	var trace []string
	record := func(stage, it int) {
		mu.Lock()
		trace = append(trace, string(rune('a'+stage))+string(rune('0'+it)))
		mu.Unlock()
	}

	err := runMain(t, func(ctx context.Context, c *spawn.Core, _ any) error {
		return Loop(ctx, c, Config{
			Cores:      3,
			Iterations: iterations,
			Stages: []func(*Stage, int) error{
				func(s *Stage, it int) error { buf[it] = it; record(0, it); return nil },
				func(s *Stage, it int) error { buf[it] *= buf[it]; record(1, it); return nil },
				func(s *Stage, it int) error { out[it] = buf[it] + 1; record(2, it); return nil },
			},
		})
	})

	require.NoError(t, err)
	for it := 0; it < iterations; it++ {
		assert.Equal(t, it*it+1, out[it])
	}

	pos := make(map[string]int, len(trace))
	for i, e := range trace {
		pos[e] = i
	}
	for it := 0; it < iterations; it++ {
		d := string(rune('0' + it))
		assert.Less(t, pos["a"+d], pos["b"+d])
		assert.Less(t, pos["b"+d], pos["c"+d])
	}
}

func TestLoopCreditsLimitLead(t *testing.T) {
	t.Parallel()

	const iterations = 12
	var mu sync.Mutex
	started := make([]int, 2)
	maxLead := 0

	err := runMain(t, func(ctx context.Context, c *spawn.Core, _ any) error {
		step := func(stage int, pause time.Duration) func(*Stage, int) error {
			return func(*Stage, int) error {
				mu.Lock()
				started[stage]++
				if lead := started[0] - started[1]; lead > maxLead {
					maxLead = lead
				}
				mu.Unlock()
				time.Sleep(pause)
				return nil
			}
		}
		return Loop(ctx, c, Config{
			Cores:      2,
			Iterations: iterations,
			Stages:     []func(*Stage, int) error{step(0, 0), step(1, 2*time.Millisecond)},
		})
	})

	require.NoError(t, err)
	assert.Equal(t, []int{iterations, iterations}, started)
	// Stage 1 may hold a token it has not started working on yet.
	assert.LessOrEqual(t, maxLead, 3)
}

func TestLoopCreditOption(t *testing.T) {
	t.Parallel()

	var count int
	err := runMain(t, func(ctx context.Context, c *spawn.Core, _ any) error {
		return Loop(plumb.WithCreditCount(ctx, tile.DefaultCreditCount), c, Config{
			Cores:      4,
			Iterations: 5,
			Stages: []func(*Stage, int) error{
				func(*Stage, int) error { return nil },
				func(*Stage, int) error { return nil },
				func(*Stage, int) error { return nil },
				func(*Stage, int) error { count++; return nil },
			},
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestDataDrivenSquaresPlusOne(t *testing.T) {
	t.Parallel()

	var got []int
	messages := 0

	err := runMain(t, func(ctx context.Context, c *spawn.Core, _ any) error {
		return DataDriven(ctx, c, DDConfig{
			Cores:       3,
			EndOfStream: eos,
			Stages: []func(*Stage, int) int{
				func(_ *Stage, x int) int {
					if x >= 10 {
						return eos
					}
					return x * x
				},
				func(_ *Stage, v int) int { return v + 1 },
				func(_ *Stage, v int) int { got = append(got, v); return v },
			},
			Tidy: []func(*Stage) error{
				nil,
				nil,
				func(s *Stage) error {
					messages = len(got) + 1
					return nil
				},
			},
		})
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 5, 10, 17, 26, 37, 50, 65, 82}, got)
	assert.Equal(t, 11, messages)
}

func TestChainBuilder(t *testing.T) {
	t.Parallel()

	var got []int
	base := Start(eos, func(it int) int {
		if it >= 5 {
			return eos
		}
		return it
	})
	chain := base.Then(func(v int) int { return v * 10 }).
		Then(func(v int) int { return v + 3 }).
		Sink(func(v int) { got = append(got, v) })

	assert.Equal(t, 1, base.Len())
	assert.Equal(t, 4, chain.Len())

	err := runMain(t, func(ctx context.Context, c *spawn.Core, _ any) error {
		return chain.Run(ctx, c)
	})

	require.NoError(t, err)
	assert.Equal(t, []int{3, 13, 23, 33, 43}, got)
}

func TestDataDrivenSingleStage(t *testing.T) {
	t.Parallel()

	calls := 0
	err := runMain(t, func(ctx context.Context, c *spawn.Core, _ any) error {
		return Start(eos, func(it int) int {
			calls++
			if it == 3 {
				return eos
			}
			return it
		}).Run(ctx, c)
	})

	require.NoError(t, err)
	assert.Equal(t, 4, calls)
}

func TestPipelineDescriptorErrors(t *testing.T) {
	t.Parallel()

	var loopErr, ddErr, tidyErr error
	err := runMain(t, func(ctx context.Context, c *spawn.Core, _ any) error {
		loopErr = Loop(ctx, c, Config{Cores: 3, Stages: make([]func(*Stage, int) error, 2)})
		ddErr = DataDriven(ctx, c, DDConfig{Cores: 9, Stages: make([]func(*Stage, int) int, 9)})
		tidyErr = DataDriven(ctx, c, DDConfig{
			Cores:  2,
			Stages: []func(*Stage, int) int{func(*Stage, int) int { return 0 }, func(*Stage, int) int { return 0 }},
			Tidy:   make([]func(*Stage) error, 1),
		})
		return nil
	})

	require.NoError(t, err)
	assert.ErrorIs(t, loopErr, tile.ErrInvalidDescriptor)
	assert.ErrorIs(t, ddErr, tile.ErrCoreCount)
	assert.ErrorIs(t, tidyErr, tile.ErrInvalidDescriptor)
}

func TestDataDrivenSlowSinkHoldsBackSource(t *testing.T) {
	t.Parallel()

	const values = 40
	var produced atomic.Int64
	consumed, maxLead := 0, int64(0)

	err := runMain(t, func(ctx context.Context, c *spawn.Core, _ any) error {
		return DataDriven(ctx, c, DDConfig{
			Cores:       3,
			EndOfStream: eos,
			Stages: []func(*Stage, int) int{
				func(_ *Stage, it int) int {
					if it == values {
						return eos
					}
					produced.Add(1)
					return it
				},
				func(_ *Stage, v int) int { return v },
				func(_ *Stage, v int) int {
					consumed++
					maxLead = max(maxLead, produced.Load()-int64(consumed))
					time.Sleep(2 * time.Millisecond)
					return v
				},
			},
		})
	})

	require.NoError(t, err)
	assert.Equal(t, values, consumed)
	// two links of input buffers plus one value held by each stage
	assert.LessOrEqual(t, maxLead, int64(2*tile.InputBufferDepth+2))
}

func TestDataDrivenSectionGoesIdle(t *testing.T) {
	t.Parallel()

	var section *plumb.Section
	var during plumb.State

	err := runMain(t, func(ctx context.Context, c *spawn.Core, _ any) error {
		return Start(eos, func(it int) int {
			if it == 3 {
				return eos
			}
			return it
		}).ThenStage(func(s *Stage, v int) int {
			if section == nil {
				section = s.Section()
				during = section.State()
			}
			return v
		}).Sink(func(int) {}).Run(ctx, c)
	})

	require.NoError(t, err)
	require.NotNil(t, section)
	assert.Equal(t, plumb.Running, during)
	assert.Equal(t, plumb.Idle, section.State())
	assert.True(t, section.Ended())
	assert.False(t, section.Aborted())
}

func TestDataDrivenFailureOnFirstCoreLeavesCoresIdle(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var ddErr, loopErr error
	var section *plumb.Section
	var got []int

	err := runMain(t, func(ctx context.Context, c *spawn.Core, _ any) error {
		ddErr = DataDriven(ctx, c, DDConfig{
			Cores:       3,
			EndOfStream: eos,
			Initialise: []func(*Stage) error{
				func(s *Stage) error {
					section = s.Section()
					return boom
				},
				nil,
				nil,
			},
			Stages: []func(*Stage, int) int{
				func(*Stage, int) int { return eos },
				func(_ *Stage, v int) int { return v },
				func(_ *Stage, v int) int { return v },
			},
		})

		loopErr = Loop(ctx, c, Config{
			Cores:      3,
			Iterations: 4,
			Stages:     passStages(3, func(v int) { got = append(got, v) }),
		})
		return nil
	})

	require.NoError(t, err)
	assert.ErrorIs(t, ddErr, boom)
	assert.True(t, section.Aborted())
	assert.Equal(t, plumb.Idle, section.State())
	assert.ErrorIs(t, context.Cause(section.Context()), boom)
	require.NoError(t, loopErr)
	assert.Equal(t, []int{0, 1, 2, 3}, got)
}

func TestLoopFailureOnFirstCoreReleasesLinks(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var first, second error
	var got []int

	err := runMain(t, func(ctx context.Context, c *spawn.Core, _ any) error {
		stages := passStages(3, func(int) {})
		stages[0] = func(_ *Stage, it int) error {
			if it == 1 {
				return boom
			}
			return nil
		}
		first = Loop(ctx, c, Config{Cores: 3, Iterations: 5, Stages: stages})

		// the same links have to be acquired again
		second = Loop(ctx, c, Config{Cores: 3, Iterations: 2, Stages: passStages(3, func(int) {})})

		return Start(eos, func(it int) int {
			if it == 3 {
				return eos
			}
			return it
		}).Sink(func(v int) { got = append(got, v) }).Run(ctx, c)
	})

	require.NoError(t, err)
	assert.ErrorIs(t, first, boom)
	assert.NoError(t, second)
	assert.Equal(t, []int{0, 1, 2}, got)
}

// passStages builds cores stages that do nothing but report the iteration
// reaching the last one.
func passStages(cores int, last func(it int)) []func(*Stage, int) error {
	stages := make([]func(*Stage, int) error, cores)
	for i := range stages {
		stages[i] = func(s *Stage, it int) error {
			if s.Last() {
				last(it)
			}
			return nil
		}
	}
	return stages
}
