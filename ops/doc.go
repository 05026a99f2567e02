/*
Package ops defines the built-in tensor and operator events and messages, and wires them into the buses and router.

Events ([TensorEvent], [OpAddEvent], [OpMMAEvent]) are handled by [TensorHandler] and [OpHandler], which [Defaults] installs lazily on first use.
Messages ([OpAddMsg], [OpMMAMsg]) are routed by [NewRouter] to processors with named implementations.

A multiply-accumulate with any empty operand can't be computed, so [NewRouter] turns it into an addition of the first two operands, named with [RedirectSuffix].
*/
package ops
