package eventbus

import (
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/saylorsolutions/dispatch/logx"
	"github.com/saylorsolutions/dispatch/metrics"
	"github.com/saylorsolutions/dispatch/registry"
	"github.com/saylorsolutions/dispatch/syncx"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrDrainTimeout = errors.New("timed out waiting for in-flight handlers")
)

const (
	// DefaultLoggerName is the logger name used when [WithName] is not given.
	DefaultLoggerName = "bus"

	metricsLabel = "concurrent"
)

var (
	instanceBus *EventBus
	initOnce    sync.Once
)

// InitInstance configures the global [EventBus] returned by [Instance].
// Only the first call has an effect, and true is returned if this call configured the instance.
func InitInstance(configFuncs ...ConfigFunc) bool {
	var initialized bool
	initOnce.Do(func() {
		instanceBus = NewEventBus(configFuncs...)
		initialized = true
	})
	return initialized
}

// Instance is useful in cases where a single, global [EventBus] is desired.
// If [InitInstance] was not called first, then the instance will use default settings.
func Instance() *EventBus {
	InitInstance()
	return instanceBus
}

// EventBus dispatches events to the handler registered for the event's type.
// It's safe for concurrent use: handlers run on the calling goroutine, outside any lock, so events may be processed in parallel.
//
// An EventBus must be released with [EventBus.Close] or [EventBus.Shutdown], which waits for in-flight handlers before clearing state.
type EventBus struct {
	id   uuid.UUID
	conf busConf

	mux      sync.RWMutex
	handlers *registry.Registry
	state    atomic.Int32
	inflight syncx.Drain
}

// NewEventBus creates an active [EventBus].
// Invalid configuration is a programming error and will panic.
func NewEventBus(configFuncs ...ConfigFunc) *EventBus {
	conf := busConf{
		name: DefaultLoggerName,
	}
	for _, fn := range configFuncs {
		if err := fn(&conf); err != nil {
			panic(fmt.Sprintf("invalid event bus configuration: %v", err))
		}
	}
	if conf.sink == nil {
		conf.sink = logx.Default()
	}
	return &EventBus{
		id:       uuid.New(),
		conf:     conf,
		handlers: registry.New(),
	}
}

func (b *EventBus) logf(level logx.Level, format string, args ...any) {
	logx.Logf(b.conf.sink, level, b.conf.name, format, args...)
}

// ID uniquely identifies this bus in log output.
func (b *EventBus) ID() uuid.UUID {
	return b.id
}

func (b *EventBus) Name() string {
	return b.conf.name
}

func (b *EventBus) State() registry.State {
	return registry.State(b.state.Load())
}

// InFlight returns the number of handlers currently executing.
func (b *EventBus) InFlight() int {
	return b.inflight.Count()
}

// HandlerCount returns the number of registered handlers, including lazily installed defaults.
func (b *EventBus) HandlerCount() int {
	return syncx.RLockFuncT(&b.mux, func() int {
		return b.handlers.Len()
	})
}

// Register installs handler for events of type T, replacing any previous handler for T.
// Registering with a bus that is not active logs a warning and does nothing.
func Register[T any](b *EventBus, handler func(T)) {
	key := registry.KeyOf[T]()
	erased := registry.Erase(handler)
	state := syncx.LockFuncT(&b.mux, func() registry.State {
		state := b.State()
		if state == registry.StateActive {
			b.handlers.Set(key, erased)
		}
		return state
	})
	if state != registry.StateActive {
		metrics.IncDropped(metricsLabel, metrics.ReasonInactive)
		b.logf(logx.LevelWarn, "Event bus is %s, ignoring handler registration for %s", state, key)
	}
}

// Process synchronously calls the handler registered for T with event.
//
// If no handler is registered, then a default handler is installed if the bus has one for T.
// Otherwise, a warning is logged and nothing else happens.
// A panic in the handler is recovered and logged, and never reaches the caller.
// Processing with a bus that is not active logs a warning and does nothing.
func Process[T any](b *EventBus, event T) {
	key := registry.KeyOf[T]()
	handler, state, installed := b.acquire(key)
	if state != registry.StateActive {
		metrics.IncDropped(metricsLabel, metrics.ReasonInactive)
		b.logf(logx.LevelWarn, "Event bus is %s, ignoring event %s", state, key)
		return
	}
	if installed {
		metrics.DefaultsInstalledTotal.WithLabelValues(metricsLabel, key.String()).Inc()
		b.logf(logx.LevelInfo, "Lazy registered default handler for %s", key)
	}
	if handler == nil {
		metrics.IncDropped(metricsLabel, metrics.ReasonNoHandler)
		b.logf(logx.LevelWarn, "No handler for event type: %s", key)
		return
	}
	defer b.inflight.Leave()
	b.invoke(key, handler, event)
}

// acquire resolves the handler for key, lazily installing a default if needed.
// When a handler is returned it has already been counted as in flight, so the caller must call Leave.
// The count is taken while the registry lock is held so that a teardown can never miss it.
func (b *EventBus) acquire(key registry.TypeKey) (handler registry.Handler, state registry.State, installed bool) {
	b.mux.RLock()
	state = b.State()
	if state != registry.StateActive {
		b.mux.RUnlock()
		return nil, state, false
	}
	if handler, ok := b.handlers.Lookup(key); ok {
		b.inflight.Enter()
		b.mux.RUnlock()
		return handler, state, false
	}
	b.mux.RUnlock()

	b.mux.Lock()
	defer b.mux.Unlock()
	// Things may have changed between locks.
	state = b.State()
	if state != registry.StateActive {
		return nil, state, false
	}
	handler, ok := b.handlers.Lookup(key)
	if !ok {
		handler, ok = b.conf.defaults.Lookup(key)
		if !ok {
			return nil, state, false
		}
		b.handlers.Set(key, handler)
		installed = true
	}
	b.inflight.Enter()
	return handler, state, installed
}

func (b *EventBus) invoke(key registry.TypeKey, handler registry.Handler, event any) {
	gauge := metrics.InFlight.WithLabelValues(metricsLabel)
	gauge.Inc()
	defer gauge.Dec()
	defer func() {
		if r := recover(); r != nil {
			metrics.HandlerPanicsTotal.WithLabelValues(metricsLabel, key.String()).Inc()
			b.logf(logx.LevelWarn, "Handler for %s panicked while processing event: %v", key, r)
		}
	}()
	metrics.ProcessedTotal.WithLabelValues(metricsLabel, key.String()).Inc()
	if err := handler(event); err != nil {
		b.logf(logx.LevelWarn, "Handler for %s failed: %v", key, err)
	}
}

// Close releases the bus, waiting for in-flight handlers to finish first.
// The wait is bounded by [WithDrainTimeout] if it was given, and unbounded otherwise.
// See [EventBus.Shutdown] for details.
func (b *EventBus) Close() error {
	ctx := context.Background()
	if b.conf.drainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.conf.drainTimeout)
		defer cancel()
	}
	return b.Shutdown(ctx)
}

// Shutdown stops the bus from accepting new registrations and events, waits until every in-flight handler returns, and then releases all handlers.
//
// If ctx is done before in-flight handlers finish, then the handlers still running are abandoned: the bus is released anyway and an error wrapping [ErrDrainTimeout] is returned.
// Abandoned handlers continue to run to completion on their own goroutines.
//
// Only the first call has an effect, later calls return nil immediately.
// Calling Shutdown from within a handler of the same bus will wait for that handler, so it will only return once ctx is done.
func (b *EventBus) Shutdown(ctx context.Context) error {
	started := syncx.LockFuncT(&b.mux, func() bool {
		return b.state.CompareAndSwap(int32(registry.StateActive), int32(registry.StateDraining))
	})
	if !started {
		return nil
	}
	b.logf(logx.LevelDebug, "Event bus %s draining with %d handlers in flight", b.id, b.InFlight())

	waitErr := b.inflight.Wait(ctx)
	released := syncx.LockFuncT(&b.mux, func() int {
		count := b.handlers.Len()
		b.handlers.Clear()
		b.state.Store(int32(registry.StateDestroyed))
		return count
	})
	if waitErr != nil {
		abandoned := b.InFlight()
		b.logf(logx.LevelWarn, "Event bus %s destroyed with %d handlers still running: %v", b.id, abandoned, waitErr)
		return fmt.Errorf("%w: %d handlers still running: %w", ErrDrainTimeout, abandoned, waitErr)
	}
	b.logf(logx.LevelInfo, "Event bus %s destroyed, %d handlers released", b.id, released)
	return nil
}

type busConf struct {
	name         string
	sink         logx.Sink
	defaults     *registry.Defaults
	drainTimeout time.Duration
}

// ConfigFunc sets a configuration option for an [EventBus], returning an error if the option is invalid.
type ConfigFunc func(conf *busConf) error

// WithName sets the logger name used for this bus' messages.
func WithName(name string) ConfigFunc {
	return func(conf *busConf) error {
		if len(name) == 0 {
			return errors.New("empty bus name")
		}
		conf.name = name
		return nil
	}
}

// WithSink sets the [logx.Sink] for this bus. By default, [logx.Default] is used.
func WithSink(sink logx.Sink) ConfigFunc {
	return func(conf *busConf) error {
		if sink == nil {
			return errors.New("nil log sink")
		}
		conf.sink = sink
		return nil
	}
}

// WithDefaults sets the default handlers that are installed lazily for event types without a registered handler.
func WithDefaults(defaults *registry.Defaults) ConfigFunc {
	return func(conf *busConf) error {
		conf.defaults = defaults
		return nil
	}
}

// WithDrainTimeout bounds the time [EventBus.Close] waits for in-flight handlers.
// A timeout of 0 waits indefinitely.
func WithDrainTimeout(timeout time.Duration) ConfigFunc {
	return func(conf *busConf) error {
		if timeout < 0 {
			return fmt.Errorf("drain timeout must be >= 0, got %s", timeout)
		}
		conf.drainTimeout = timeout
		return nil
	}
}
