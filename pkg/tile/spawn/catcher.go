package spawn

import (
	"fmt"
	"runtime/debug"
)

// sleepSignal unwinds a task that called Sleep.
type sleepSignal struct{}

// Sleep stops the calling task immediately and returns its core to idle.
// It must only be called from a task's own goroutine.
func Sleep() {
	panic(sleepSignal{})
}

// PanicError is a task panic with the stack it was raised on.
type PanicError struct {
	Value any
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", p.Value, p.Stack)
}

func (p *PanicError) Unwrap() error {
	if err, ok := p.Value.(error); ok {
		return err
	}
	return nil
}

// tryCatch runs f, turning a panic into a *PanicError. Sleep is not a
// failure.
func tryCatch(f func() error) (err error) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		if _, ok := v.(sleepSignal); ok {
			err = nil
			return
		}
		err = &PanicError{Value: v, Stack: debug.Stack()}
	}()
	return f()
}
