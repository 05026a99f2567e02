package registry

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrTypeMismatch = errors.New("event type does not match handler type")
)

// TypeKey identifies a concrete event or message type.
// Two keys are equal only if they were created from the same Go type, which makes a TypeKey usable as a map key.
type TypeKey struct {
	t reflect.Type
}

// KeyOf returns the [TypeKey] for T.
func KeyOf[T any]() TypeKey {
	return TypeKey{t: reflect.TypeFor[T]()}
}

// KeyOfValue returns the [TypeKey] for the dynamic type of val.
func KeyOfValue(val any) TypeKey {
	return TypeKey{t: reflect.TypeOf(val)}
}

func (k TypeKey) String() string {
	if k.t == nil {
		return "<nil>"
	}
	return k.t.String()
}

// IsZero reports whether the key was never initialized.
func (k TypeKey) IsZero() bool {
	return k.t == nil
}

// Handler is a type-erased callback.
// Handlers created with [Register] or [Erase] will only call their typed callback for the type they were created with, and return [ErrTypeMismatch] otherwise.
type Handler func(event any) error

// Erase wraps a typed callback in a [Handler] that recovers T before calling fn.
func Erase[T any](fn func(T)) Handler {
	if fn == nil {
		panic("nil handler function")
	}
	return func(event any) error {
		typed, ok := event.(T)
		if !ok {
			return fmt.Errorf("%w: expected %s, got %T", ErrTypeMismatch, KeyOf[T](), event)
		}
		fn(typed)
		return nil
	}
}

// Registry maps a [TypeKey] to at most one [Handler].
//
// A Registry is not safe for concurrent use. Owners are expected to serialize access, either with a lock or by confining it to a single goroutine.
type Registry struct {
	handlers map[TypeKey]Handler
}

func New() *Registry {
	return &Registry{
		handlers: map[TypeKey]Handler{},
	}
}

// Register installs fn as the handler for T, replacing any existing handler for T.
func Register[T any](r *Registry, fn func(T)) {
	r.Set(KeyOf[T](), Erase(fn))
}

// Set installs an already erased [Handler] under key.
// The caller is responsible for key matching the type the handler was erased with.
func (r *Registry) Set(key TypeKey, handler Handler) {
	if handler == nil {
		panic("nil handler")
	}
	r.handlers[key] = handler
}

func (r *Registry) Lookup(key TypeKey) (Handler, bool) {
	handler, ok := r.handlers[key]
	return handler, ok
}

// Invoke resolves the handler for T and calls it with event.
// False is returned if there is no handler for T.
func Invoke[T any](r *Registry, event T) (bool, error) {
	handler, ok := r.Lookup(KeyOf[T]())
	if !ok {
		return false, nil
	}
	return true, handler(event)
}

func (r *Registry) Len() int {
	return len(r.handlers)
}

// Keys returns the registered keys in no particular order.
func (r *Registry) Keys() []TypeKey {
	if len(r.handlers) == 0 {
		return nil
	}
	keys := make([]TypeKey, 0, len(r.handlers))
	for key := range r.handlers {
		keys = append(keys, key)
	}
	return keys
}

func (r *Registry) Clear() {
	clear(r.handlers)
}
