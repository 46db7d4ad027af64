package plumb

import (
	"github.com/ib-77/tilenet/pkg/tile/spawn"
)

// Unwind aborts s after the calling core failed with cause and waits until
// every core dispatched by d has returned and every participant has left.
// The wait is bounded by the runtime rather than the caller's context, so a
// cancelled caller still leaves the cores idle. It returns cause.
func Unwind(rt *spawn.Runtime, s *Section, d *spawn.Dispatch, cause error) error {
	s.Abort(cause)
	if d != nil {
		_ = d.Wait(rt.Context())
	}
	_ = s.Wait(rt.Context())
	return cause
}
