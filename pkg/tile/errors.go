package tile

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidDescriptor = errors.New("invalid execution pattern descriptor")
	ErrCoreCount         = errors.New("core count outside the range supported by the pattern")
	ErrTooManyArguments  = errors.New("too many spawn arguments")
	ErrSectionEnded      = errors.New("parallel section ended")
	ErrUnbound           = errors.New("endpoint is not bound")
	ErrNotAcquired       = errors.New("connection has not been acquired")
	ErrStopped           = errors.New("runtime stopped")
)

// ContractViolation is the panic value raised when a caller breaks a rule the
// layer does not check at run time in hardware: an out-of-range endpoint,
// channel or core, or an End from a core other than the section authority.
type ContractViolation struct {
	Reason string
	// Err classifies the misuse when one of the sentinels applies.
	Err error
}

func (c *ContractViolation) Error() string {
	if c.Err != nil {
		return "contract violation: " + c.Reason + ": " + c.Err.Error()
	}
	return "contract violation: " + c.Reason
}

func (c *ContractViolation) Unwrap() error {
	return c.Err
}

// Violation builds a ContractViolation with a formatted reason.
func Violation(format string, args ...any) *ContractViolation {
	return &ContractViolation{Reason: fmt.Sprintf(format, args...)}
}

// Misuse is Violation classified by err.
func Misuse(err error, format string, args ...any) *ContractViolation {
	return &ContractViolation{Reason: fmt.Sprintf(format, args...), Err: err}
}

func IsCancellationError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(err, ErrSectionEnded) || errors.Is(err, ErrStopped)
}

// CheckEndpoint panics with a ContractViolation unless ep is in range.
func CheckEndpoint(ep int) {
	if ep < 0 || ep >= TableSize {
		panic(Violation("endpoint %d outside [0,%d)", ep, TableSize))
	}
}

// CheckChannel panics with a ContractViolation unless ch is in range.
func CheckChannel(ch Channel) {
	if !ch.Valid() {
		panic(Violation("input channel %d outside [0,%d)", ch, InputChannels))
	}
}
