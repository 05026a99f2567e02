package confined

import (
	"errors"
	"fmt"
	"github.com/saylorsolutions/dispatch/logx"
	"github.com/saylorsolutions/dispatch/metrics"
	"github.com/saylorsolutions/dispatch/registry"
	"github.com/saylorsolutions/dispatch/syncx"
)

var (
	ErrCrossThreadAccess = errors.New("confined bus accessed from a goroutine other than its owner")
)

const (
	// DefaultLoggerName is the logger name used when [WithName] is not given.
	DefaultLoggerName = "bus_single"

	metricsLabel = "confined"
)

// Bus is an event bus that may only be used by the goroutine that created it.
// Every method checks the calling goroutine first and returns [ErrCrossThreadAccess] on a mismatch.
// Because of this, no locking is needed internally.
type Bus struct {
	owner     int64
	conf      busConf
	handlers  *registry.Registry
	destroyed bool
}

// NewBus creates a [Bus] owned by the calling goroutine.
// Invalid configuration is a programming error and will panic.
func NewBus(configFuncs ...ConfigFunc) *Bus {
	conf := busConf{
		name: DefaultLoggerName,
	}
	for _, fn := range configFuncs {
		if err := fn(&conf); err != nil {
			panic(fmt.Sprintf("invalid confined bus configuration: %v", err))
		}
	}
	if conf.sink == nil {
		conf.sink = logx.Default()
	}
	return &Bus{
		owner:    syncx.GoroutineID(),
		conf:     conf,
		handlers: registry.New(),
	}
}

func (b *Bus) logf(level logx.Level, format string, args ...any) {
	logx.Logf(b.conf.sink, level, b.conf.name, format, args...)
}

// Owner returns the id of the goroutine that owns this bus.
func (b *Bus) Owner() int64 {
	return b.owner
}

func (b *Bus) checkOwner() error {
	current := syncx.GoroutineID()
	if current == b.owner {
		return nil
	}
	metrics.IncDropped(metricsLabel, metrics.ReasonCrossThread)
	b.logf(logx.LevelError, "Confined bus accessed from wrong goroutine! Owner: %d, Current: %d", b.owner, current)
	return fmt.Errorf("%w: owner goroutine %d, current goroutine %d", ErrCrossThreadAccess, b.owner, current)
}

// State returns [registry.StateActive] or [registry.StateDestroyed].
func (b *Bus) State() (registry.State, error) {
	if err := b.checkOwner(); err != nil {
		return registry.StateActive, err
	}
	if b.destroyed {
		return registry.StateDestroyed, nil
	}
	return registry.StateActive, nil
}

// HandlerCount returns the number of registered handlers, including lazily installed defaults.
func (b *Bus) HandlerCount() (int, error) {
	if err := b.checkOwner(); err != nil {
		return 0, err
	}
	return b.handlers.Len(), nil
}

// Register installs handler for events of type T, replacing any previous handler for T.
// An error is only returned for a call from a goroutine other than the owner.
func Register[T any](b *Bus, handler func(T)) error {
	if err := b.checkOwner(); err != nil {
		return err
	}
	key := registry.KeyOf[T]()
	if b.destroyed {
		metrics.IncDropped(metricsLabel, metrics.ReasonInactive)
		b.logf(logx.LevelWarn, "Confined bus has been destroyed, ignoring handler registration for %s", key)
		return nil
	}
	b.handlers.Set(key, registry.Erase(handler))
	return nil
}

// Process synchronously calls the handler registered for T with event, lazily installing a default handler if one is configured.
// Unknown event types and panicking handlers are logged, and are not returned as errors.
// An error is only returned for a call from a goroutine other than the owner.
func Process[T any](b *Bus, event T) error {
	if err := b.checkOwner(); err != nil {
		return err
	}
	key := registry.KeyOf[T]()
	if b.destroyed {
		metrics.IncDropped(metricsLabel, metrics.ReasonInactive)
		b.logf(logx.LevelWarn, "Confined bus has been destroyed, ignoring event %s", key)
		return nil
	}
	handler, ok := b.handlers.Lookup(key)
	if !ok {
		handler, ok = b.conf.defaults.Lookup(key)
		if !ok {
			metrics.IncDropped(metricsLabel, metrics.ReasonNoHandler)
			b.logf(logx.LevelWarn, "No handler registered for event type: %s", key)
			return nil
		}
		b.handlers.Set(key, handler)
		metrics.DefaultsInstalledTotal.WithLabelValues(metricsLabel, key.String()).Inc()
		b.logf(logx.LevelInfo, "Lazy registered default %s handler", key)
	}
	b.invoke(key, handler, event)
	return nil
}

func (b *Bus) invoke(key registry.TypeKey, handler registry.Handler, event any) {
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

// Close marks the bus destroyed. Later calls to [Register] and [Process] log a warning and do nothing.
// No drain is needed, since only the owner goroutine can be running a handler, and it's the one calling Close.
func (b *Bus) Close() error {
	if err := b.checkOwner(); err != nil {
		return err
	}
	if b.destroyed {
		return nil
	}
	b.destroyed = true
	b.logf(logx.LevelInfo, "Confined bus destroyed, registered handler count: %d", b.handlers.Len())
	b.handlers.Clear()
	return nil
}

type busConf struct {
	name     string
	sink     logx.Sink
	defaults *registry.Defaults
}

// ConfigFunc sets a configuration option for a [Bus], returning an error if the option is invalid.
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
