/*
Package dispatch is the root of a typed, in-process event and message dispatch module.
Callers hand strongly typed values to a bus or router, and the static type of the value picks the handler, which runs synchronously on the calling goroutine.

The packages in this module are:

  - [github.com/saylorsolutions/dispatch/patterns/eventbus] is a concurrent bus that drains in-flight handlers before it's released.
  - [github.com/saylorsolutions/dispatch/patterns/confined] is a bus owned by a single goroutine, rejecting calls from any other.
  - [github.com/saylorsolutions/dispatch/patterns/router] routes messages to processors with named sub-implementations, and supports redirecting a message as a different type.
  - [github.com/saylorsolutions/dispatch/ops] wires the built-in tensor and operator events and messages into the above.
  - [github.com/saylorsolutions/dispatch/registry] holds the type-keyed handler tables shared by the buses.
  - [github.com/saylorsolutions/dispatch/logx], [github.com/saylorsolutions/dispatch/config], and [github.com/saylorsolutions/dispatch/metrics] are the supporting logging, configuration, and Prometheus metrics.

The dispatchdemo command runs each of these in a small scenario.
*/
package dispatch
