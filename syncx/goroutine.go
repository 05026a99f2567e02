package syncx

import "github.com/petermattis/goid"

// GoroutineID returns the runtime's identifier of the calling goroutine.
//
// This should only be used to enforce ownership rules, never to store goroutine-local state.
func GoroutineID() int64 {
	return goid.Get()
}
