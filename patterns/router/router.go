package router

import (
	"errors"
	"fmt"
	"github.com/saylorsolutions/dispatch/logx"
	"github.com/saylorsolutions/dispatch/metrics"
	"github.com/saylorsolutions/dispatch/registry"
	"github.com/saylorsolutions/dispatch/syncx"
	"sync"
)

var (
	ErrProcessorNotRegistered = errors.New("processor not registered for message type")
)

const (
	// DefaultLoggerName is the logger name used when [WithName] is not given.
	DefaultLoggerName = "router"

	metricsLabel = "router"
)

// thunk is the type-erased entry point for one message type.
type thunk func(r *Router, msg any)

// Router dispatches messages to the [Processor] registered for the message's type, optionally through a type-specific override.
//
// A single lock guards the router's tables, and it's only held while resolving the entry point for a message type.
// Processing happens outside the lock, so dispatches to different processors run in parallel.
type Router struct {
	conf routerConf

	mux        sync.Mutex
	processors map[registry.TypeKey]any
	thunks     map[registry.TypeKey]thunk
	overridden map[registry.TypeKey]bool
}

// New creates an empty [Router].
// Invalid configuration is a programming error and will panic.
func New(configFuncs ...ConfigFunc) *Router {
	conf := routerConf{
		name: DefaultLoggerName,
	}
	for _, fn := range configFuncs {
		if err := fn(&conf); err != nil {
			panic(fmt.Sprintf("invalid router configuration: %v", err))
		}
	}
	if conf.sink == nil {
		conf.sink = logx.Default()
	}
	return &Router{
		conf:       conf,
		processors: map[registry.TypeKey]any{},
		thunks:     map[registry.TypeKey]thunk{},
		overridden: map[registry.TypeKey]bool{},
	}
}

// Logf logs a message with the router's sink and logger name.
// This is intended for overrides that want their messages to appear alongside the router's.
func (r *Router) Logf(level logx.Level, format string, args ...any) {
	logx.Logf(r.conf.sink, level, r.conf.name, format, args...)
}

// Supports reports whether a message type has an entry point in this router.
func (r *Router) Supports(key registry.TypeKey) bool {
	return syncx.LockFuncT(&r.mux, func() bool {
		_, ok := r.thunks[key]
		return ok
	})
}

// RegisterProcessor installs p as the processor for M.
// Unless an override was registered for M with [RegisterOverride], messages of type M will be forwarded directly to p.
//
// A processor without a [DefaultImpl] is a configuration error, and is rejected with [ErrMissingDefault].
func RegisterProcessor[M Message](r *Router, p *Processor[M]) error {
	key := registry.KeyOf[M]()
	if p == nil {
		return fmt.Errorf("nil processor for %s", key)
	}
	if err := p.validate(); err != nil {
		return fmt.Errorf("%w: %s", err, key)
	}
	syncx.LockFunc(&r.mux, func() {
		r.processors[key] = p
		if !r.overridden[key] {
			r.thunks[key] = forward[M]
		}
	})
	return nil
}

// RegisterOverride installs fn as the entry point for M, replacing direct forwarding to M's processor.
// The override may do any pre-processing, and then call [Forward] to continue to the processor, or [Redirect] to dispatch a different message instead.
func RegisterOverride[M Message](r *Router, fn func(r *Router, msg M)) {
	if fn == nil {
		panic("nil override function")
	}
	key := registry.KeyOf[M]()
	syncx.LockFunc(&r.mux, func() {
		r.thunks[key] = func(r *Router, msg any) {
			fn(r, msg.(M))
		}
		r.overridden[key] = true
	})
}

func forward[M Message](r *Router, msg any) {
	Forward(r, msg.(M))
}

// Dispatch synchronously routes msg to the entry point registered for M.
// Unregistered message types are logged as an error and otherwise ignored.
func Dispatch[M Message](r *Router, msg M) {
	key := registry.KeyOf[M]()
	r.Logf(logx.LevelInfo, "dispatch<%s>.name = %s", key, msg.Name())
	r.mux.Lock()
	entry, ok := r.thunks[key]
	r.mux.Unlock()
	if !ok {
		metrics.IncDropped(metricsLabel, metrics.ReasonUnregistered)
		r.Logf(logx.LevelError, "Unsupported message type: %s", key)
		return
	}
	metrics.ProcessedTotal.WithLabelValues(metricsLabel, key.String()).Inc()
	entry(r, msg)
}

// GetProcessor returns the processor registered for M, or an error wrapping [ErrProcessorNotRegistered].
func GetProcessor[M Message](r *Router) (*Processor[M], error) {
	key := registry.KeyOf[M]()
	p, ok := syncx.LockFuncT(&r.mux, func() any {
		return r.processors[key]
	}).(*Processor[M])
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProcessorNotRegistered, key)
	}
	return p, nil
}

// Forward hands msg directly to M's processor, bypassing any override.
// Failures are logged, since forwarding happens inside a dispatch.
func Forward[M Message](r *Router, msg M) {
	p, err := GetProcessor[M](r)
	if err != nil {
		r.Logf(logx.LevelError, "Unable to forward %s: %v", msg.Name(), err)
		return
	}
	if err := p.Process(msg); err != nil {
		r.Logf(logx.LevelError, "Processor for %s failed on %s: %v", registry.KeyOf[M](), msg.Name(), err)
	}
}

// Redirect dispatches to in place of from.
// The from message is left untouched, and to goes through the full dispatch for N, including N's own name-based implementation lookup.
func Redirect[M, N Message](r *Router, from M, to N) {
	fromKey, toKey := registry.KeyOf[M](), registry.KeyOf[N]()
	metrics.RedirectsTotal.WithLabelValues(fromKey.String(), toKey.String()).Inc()
	r.Logf(logx.LevelWarn, "%s %s redirected to %s %s", fromKey, from.Name(), toKey, to.Name())
	Dispatch(r, to)
}

type routerConf struct {
	name string
	sink logx.Sink
}

// ConfigFunc sets a configuration option for a [Router], returning an error if the option is invalid.
type ConfigFunc func(conf *routerConf) error

// WithName sets the logger name used for this router's messages.
func WithName(name string) ConfigFunc {
	return func(conf *routerConf) error {
		if len(name) == 0 {
			return errors.New("empty router name")
		}
		conf.name = name
		return nil
	}
}

// WithSink sets the [logx.Sink] for this router. By default, [logx.Default] is used.
func WithSink(sink logx.Sink) ConfigFunc {
	return func(conf *routerConf) error {
		if sink == nil {
			return errors.New("nil log sink")
		}
		conf.sink = sink
		return nil
	}
}
