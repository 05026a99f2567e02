package router

import (
	"errors"
	"slices"
	"sync"
)

// DefaultImpl is the name of the sub-implementation used when a message name matches nothing else.
const DefaultImpl = "default"

var (
	ErrMissingDefault = errors.New("processor has no default implementation")
	ErrNilImpl        = errors.New("nil implementation")
)

// Message is the capability every routed message type must have: a logical name used to pick a sub-implementation.
type Message interface {
	Name() string
}

// ImplFunc is a named sub-implementation of a [Processor].
type ImplFunc[M Message] func(msg M)

// Processor handles one message type, choosing a sub-implementation by the message's name.
// It's safe for concurrent use, and implementations may be added at any time, including after it was registered with a [Router].
type Processor[M Message] struct {
	mux   sync.RWMutex
	impls map[string]ImplFunc[M]
}

// NewProcessor creates a [Processor] whose [DefaultImpl] is defaultImpl.
// A nil defaultImpl creates a processor without a default, which [RegisterProcessor] will reject until one is added.
func NewProcessor[M Message](defaultImpl ImplFunc[M]) *Processor[M] {
	p := &Processor[M]{
		impls: map[string]ImplFunc[M]{},
	}
	if defaultImpl != nil {
		p.impls[DefaultImpl] = defaultImpl
	}
	return p
}

// RegisterImpl installs fn under name, replacing any previous implementation with that name.
func (p *Processor[M]) RegisterImpl(name string, fn ImplFunc[M]) error {
	if fn == nil {
		return ErrNilImpl
	}
	p.mux.Lock()
	defer p.mux.Unlock()
	p.impls[name] = fn
	return nil
}

// HasImpl reports whether an implementation is registered with name.
func (p *Processor[M]) HasImpl(name string) bool {
	p.mux.RLock()
	defer p.mux.RUnlock()
	_, ok := p.impls[name]
	return ok
}

// Impls returns the sorted names of all implementations.
func (p *Processor[M]) Impls() []string {
	p.mux.RLock()
	defer p.mux.RUnlock()
	names := make([]string, 0, len(p.impls))
	for name := range p.impls {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (p *Processor[M]) validate() error {
	if !p.HasImpl(DefaultImpl) {
		return ErrMissingDefault
	}
	return nil
}

// Process calls the implementation registered for msg.Name(), or [DefaultImpl] if there is none.
// The implementation runs outside the processor's lock.
func (p *Processor[M]) Process(msg M) error {
	p.mux.RLock()
	impl, ok := p.impls[msg.Name()]
	if !ok {
		impl, ok = p.impls[DefaultImpl]
	}
	p.mux.RUnlock()
	if !ok {
		return ErrMissingDefault
	}
	impl(msg)
	return nil
}
