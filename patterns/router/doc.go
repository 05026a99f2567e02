/*
Package router provides type-keyed message routing to processors that hold named sub-implementations.

# Processors

A [Processor] handles a single message type. Each message carries a logical name, and the processor picks the implementation registered under that name.
If no implementation matches, the [DefaultImpl] is used, so every processor must have one before it can be registered.
Implementations may be added or replaced at any time with [Processor.RegisterImpl].

# Routing

A [Router] holds one processor per message type. [Dispatch] looks up the entry point for the static type of the message and calls it synchronously.
By default the entry point forwards directly to the processor, but [RegisterOverride] can replace it with a function that inspects the message first.
An override either continues with [Forward], or uses [Redirect] to dispatch a different message in its place.

The router's lock is only held while resolving the entry point, never while a processor runs.
This makes it safe for an override to dispatch again from within a dispatch.

Panics in processors are not recovered by the router, and propagate to the code that called [Dispatch].
*/
package router
