/*
Package eventbus provides a concurrent, type-keyed event bus that dispatches each event to exactly one handler, synchronously, on the calling goroutine.

# Design Priorities

Here are the design priorities of the implementation:

  - It should allow true parallelism, so handlers run outside any lock and many goroutines may process events at once.
  - It should be safe to tear down, so no handler is released while it may still be running.
  - It should never crash the caller because of misuse of a released bus, an unknown event type, or a panicking handler.
  - It should be type safe, so a handler is only ever called with the type it was registered for.

# Registration and Processing

Events are plain Go values, and the static type of the value is the dispatch key.
Use [Register] to install the handler for a type, and [Process] to dispatch an event to it.
There is at most one handler per type, and registering again replaces the previous handler.

If [Process] is called for a type without a handler, then the bus consults the defaults given with [WithDefaults].
A default handler found there is installed once, and reused for later events of the same type.
Event types without a default are logged as a warning and otherwise ignored.

A handler that panics is recovered and logged. The panic is never propagated to the code calling [Process].

# Lifecycle

A bus starts active, and moves to draining and then destroyed when [EventBus.Close] or [EventBus.Shutdown] is called.
While draining, new registrations and events are rejected with a warning, and the bus waits for in-flight handlers to return.
Once all handlers have returned, they're released and the bus is destroyed. Any further use only logs a warning.

By default the drain wait is unbounded, so a handler that never returns will block teardown indefinitely.
Use [WithDrainTimeout], or a context with [EventBus.Shutdown], to bound the wait. Handlers still running at that point are abandoned and [ErrDrainTimeout] is returned.

# Global Instance

Use [Instance] to get a global singleton [EventBus], and [InitInstance] to configure it before first use.
*/
package eventbus
