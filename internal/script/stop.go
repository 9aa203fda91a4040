package script

import (
	"context"
	"sync/atomic"
)

// StopSignal is a one-way false -> true flag set from an interrupt context and
// polled by the interpreter. The zero value is ready to use.
type StopSignal struct {
	v atomic.Bool
}

// Stop sets the flag. Later calls have no further effect.
func (s *StopSignal) Stop() { s.v.Store(true) }

// Stopped reports whether Stop was called. A nil signal never stops.
func (s *StopSignal) Stopped() bool {
	return s != nil && s.v.Load()
}

// StopOnDone sets s once ctx is done, before returning if it already is.
// Call the returned func to detach the watcher without setting s, e.g. after
// the interpreter has returned.
func (s *StopSignal) StopOnDone(ctx context.Context) (detach func()) {
	if ctx.Err() != nil {
		s.Stop()
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-done:
		}
	}()
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			close(done)
		}
	}
}
