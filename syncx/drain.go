package syncx

import (
	"context"
	"sync"
)

// Drain counts in-flight operations so that a teardown can wait for all of them to finish.
// The zero value is ready to use.
//
// Unlike a [sync.WaitGroup], a Drain may be waited on with a context, and [Drain.Enter] may be called concurrently with [Drain.Wait].
type Drain struct {
	mux   sync.Mutex
	count int
	idle  chan struct{} // closed when count drops to zero
}

// Enter records the start of an operation.
func (d *Drain) Enter() {
	d.mux.Lock()
	defer d.mux.Unlock()
	if d.count == 0 {
		d.idle = make(chan struct{})
	}
	d.count++
}

// Leave records the end of an operation started with [Drain.Enter], and wakes waiters when none are left.
func (d *Drain) Leave() {
	d.mux.Lock()
	defer d.mux.Unlock()
	if d.count == 0 {
		panic("syncx: Drain.Leave called without matching Enter")
	}
	d.count--
	if d.count == 0 {
		close(d.idle)
	}
}

// Count returns the number of operations currently in flight.
func (d *Drain) Count() int {
	return LockFuncT(&d.mux, func() int {
		return d.count
	})
}

// Wait blocks until no operations are in flight, or ctx is done.
// The context error is returned if ctx finishes first.
func (d *Drain) Wait(ctx context.Context) error {
	idle := LockFuncT(&d.mux, func() chan struct{} {
		if d.count == 0 {
			return nil
		}
		return d.idle
	})
	if idle == nil {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
