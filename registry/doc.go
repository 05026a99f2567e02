/*
Package registry provides the type-keyed handler table shared by the buses in this module.

Every concrete event type is identified by a [TypeKey], created with [KeyOf].
A [Handler] is a type-erased callback, and [Erase] is the only way handlers are created from typed functions.
The erased handler remembers the type it was created for and refuses any other type with [ErrTypeMismatch], so a handler is never called with a type it wasn't registered for.

A [Registry] holds at most one handler per [TypeKey], and registration is last-write-wins.
[Defaults] supply the handlers a bus installs lazily for built-in event types.
*/
package registry
