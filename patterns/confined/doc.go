/*
Package confined provides an event bus that is owned by a single goroutine.

The [Bus] records the goroutine that created it, and every operation compares the calling goroutine against that owner.
A call from any other goroutine fails with [ErrCrossThreadAccess] and has no other effect.
This is a hard error rather than a warning: a cross-goroutine call is a data race that the type exists to forbid.

Apart from the ownership check, [Register] and [Process] behave like their counterparts in the eventbus package, including lazy default handlers and panic recovery, but without any locking or drain on [Bus.Close].
*/
package confined
