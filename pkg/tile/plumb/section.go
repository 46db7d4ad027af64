package plumb

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ib-77/tilenet/internal/id"
	"github.com/ib-77/tilenet/pkg/tile"
)

// State of a parallel section.
type State int32

const (
	Running State = iota
	Ending
	Idle
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Ending:
		return "ending"
	default:
		return "idle"
	}
}

// Section is the state of one pattern invocation. Exactly one core, the
// authority, may end it. Participants observe the end at their next channel
// operation through Context and return; the section is Idle once every
// participant has left.
type Section struct {
	id        id.InvocationID
	authority tile.CoreID

	ctx    context.Context
	cancel context.CancelCauseFunc

	state   atomic.Int32
	ended   atomic.Bool
	aborted atomic.Bool
	endOnce sync.Once

	members sync.WaitGroup
	idle    chan struct{}
	idleOne sync.Once
}

// NewSection starts a section in the Running state. It also stops when
// parent is cancelled.
func NewSection(parent context.Context, authority tile.CoreID) *Section {
	ctx, cancel := context.WithCancelCause(parent)
	return &Section{
		id:        id.NewInvocationID(),
		authority: authority,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *Section) ID() id.InvocationID {
	return s.id
}

func (s *Section) Authority() tile.CoreID {
	return s.authority
}

// Context is cancelled when the section ends.
func (s *Section) Context() context.Context {
	return s.ctx
}

func (s *Section) Done() <-chan struct{} {
	return s.ctx.Done()
}

func (s *Section) State() State {
	return State(s.state.Load())
}

// Ended reports whether End has been called.
func (s *Section) Ended() bool {
	return s.ended.Load()
}

// End marks the section ended. Only the authority may call it; a second
// call is a no-op.
func (s *Section) End(by tile.CoreID) {
	if by != s.authority {
		panic(tile.Violation("core %s ended a section owned by %s", by, s.authority))
	}
	s.endOnce.Do(func() {
		s.ended.Store(true)
		s.state.CompareAndSwap(int32(Running), int32(Ending))
		s.cancel(tile.ErrSectionEnded)
	})
}

// Abort stops the section after a failure. Unlike End it may be called
// from any core; participants unwind exactly as they do after End, and
// cause is recorded as the context cause.
func (s *Section) Abort(cause error) {
	s.aborted.Store(true)
	s.state.CompareAndSwap(int32(Running), int32(Ending))
	s.cancel(cause)
}

// Aborted reports whether Abort has been called.
func (s *Section) Aborted() bool {
	return s.aborted.Load()
}

// Join registers n participants.
func (s *Section) Join(n int) {
	s.members.Add(n)
}

// Leave deregisters one participant.
func (s *Section) Leave() {
	s.members.Done()
}

// Wait blocks until every participant has left, then moves an ended or
// aborted section to Idle.
func (s *Section) Wait(ctx context.Context) error {
	s.idleOne.Do(func() {
		s.idle = make(chan struct{})
		go func() {
			s.members.Wait()
			close(s.idle)
		}()
	})

	select {
	case <-s.idle:
	case <-ctx.Done():
		return ctx.Err()
	}
	if s.Ended() || s.Aborted() {
		s.state.Store(int32(Idle))
	}
	return nil
}

// Exit maps the error a participant got from a channel operation: a
// cancellation seen once the section has stopped is a clean exit.
func (s *Section) Exit(err error) error {
	if err != nil && s.ctx.Err() != nil && tile.IsCancellationError(err) {
		return nil
	}
	return err
}
