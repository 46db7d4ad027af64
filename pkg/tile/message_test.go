package tile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsumeReturnsCreditOnce(t *testing.T) {
	t.Parallel()

	returned := 0
	m := Data(CoreID{0, 1}, 42).WithCredit(func() { returned++ })

	m.Consume()
	m.Consume()
	copied := m
	copied.Consume()

	assert.Equal(t, 1, returned)
	assert.Equal(t, 42, m.Value())
	assert.Equal(t, KindData, m.Kind())
	assert.Equal(t, CoreID{0, 1}, m.Source())
}

func TestConsumeWithoutCreditIsNoop(t *testing.T) {
	t.Parallel()

	tok := Token(CoreID{0, 0})
	assert.NotPanics(t, tok.Consume)
	assert.True(t, tok.IsToken())
}

func TestMisuseIsClassified(t *testing.T) {
	t.Parallel()

	err := error(Misuse(ErrNotAcquired, "send on endpoint %d", 3))
	assert.ErrorIs(t, err, ErrNotAcquired)
	assert.Contains(t, err.Error(), "endpoint 3")

	var cv *ContractViolation
	assert.True(t, errors.As(err, &cv))
	assert.NotErrorIs(t, Violation("plain"), ErrNotAcquired)
}

func TestIsCancellationError(t *testing.T) {
	t.Parallel()

	assert.True(t, IsCancellationError(context.Canceled))
	assert.True(t, IsCancellationError(ErrSectionEnded))
	assert.False(t, IsCancellationError(ErrTooManyArguments))
}
