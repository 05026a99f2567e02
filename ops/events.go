package ops

import (
	"fmt"
	"github.com/saylorsolutions/dispatch/logx"
	"github.com/saylorsolutions/dispatch/patterns/confined"
	"github.com/saylorsolutions/dispatch/patterns/eventbus"
	"github.com/saylorsolutions/dispatch/registry"
	"strings"
)

// LoggerName is the logger name used by the built-in handlers and processors.
const LoggerName = "ops"

// TensorEvent announces the creation of a tensor.
type TensorEvent struct {
	Name  string
	Shape []int64
	DType string
}

// ShapeString renders the shape like "[2, 3, 4]".
func (e TensorEvent) ShapeString() string {
	var buf strings.Builder
	buf.WriteByte('[')
	for i, dim := range e.Shape {
		if i > 0 {
			buf.WriteString(", ")
		}
		_, _ = fmt.Fprintf(&buf, "%d", dim)
	}
	buf.WriteByte(']')
	return buf.String()
}

// OpAddEvent announces the creation of an addition: Input1 + Input2 -> Output.
type OpAddEvent struct {
	Name   string
	Input1 string
	Input2 string
	Output string
}

// OpMMAEvent announces the creation of a multiply-accumulate: A * B + C -> Output.
type OpMMAEvent struct {
	Name   string
	A      string
	B      string
	C      string
	Output string
}

// TensorHandler is the built-in handler for [TensorEvent].
type TensorHandler struct {
	Sink logx.Sink
}

func (h TensorHandler) Handle(event TensorEvent) {
	logx.Logf(h.Sink, logx.LevelInfo, LoggerName, "TensorHandler: CreateTensor name=%s, dtype=%s", event.Name, event.DType)
	logx.Logf(h.Sink, logx.LevelDebug, LoggerName, "TensorHandler: %s shape=%s", event.Name, event.ShapeString())
}

// OpHandler is the built-in handler for [OpAddEvent] and [OpMMAEvent].
type OpHandler struct {
	Sink logx.Sink
}

func (h OpHandler) HandleAdd(event OpAddEvent) {
	logx.Logf(h.Sink, logx.LevelInfo, LoggerName, "OpHandler: CreateOpAdd name=%s, %s + %s -> %s",
		event.Name, event.Input1, event.Input2, event.Output)
}

func (h OpHandler) HandleMMA(event OpMMAEvent) {
	logx.Logf(h.Sink, logx.LevelInfo, LoggerName, "OpHandler: CreateOpMMA name=%s, %s * %s + %s -> %s",
		event.Name, event.A, event.B, event.C, event.Output)
}

// Defaults returns the default handlers for the built-in events, logging to sink.
// A nil sink uses [logx.Default].
func Defaults(sink logx.Sink) *registry.Defaults {
	if sink == nil {
		sink = logx.Default()
	}
	tensors := TensorHandler{Sink: sink}
	ops := OpHandler{Sink: sink}
	d := registry.NewDefaults()
	registry.AddDefault(d, tensors.Handle)
	registry.AddDefault(d, ops.HandleAdd)
	registry.AddDefault(d, ops.HandleMMA)
	return d
}

// NewEventBus creates an [eventbus.EventBus] that lazily installs the built-in handlers.
// Both the bus and its handlers log to sink, and configFuncs may override either.
func NewEventBus(sink logx.Sink, configFuncs ...eventbus.ConfigFunc) *eventbus.EventBus {
	if sink == nil {
		sink = logx.Default()
	}
	base := []eventbus.ConfigFunc{
		eventbus.WithSink(sink),
		eventbus.WithDefaults(Defaults(sink)),
	}
	return eventbus.NewEventBus(append(base, configFuncs...)...)
}

// NewConfinedBus creates a [confined.Bus], owned by the calling goroutine, that lazily installs the built-in handlers.
func NewConfinedBus(sink logx.Sink, configFuncs ...confined.ConfigFunc) *confined.Bus {
	if sink == nil {
		sink = logx.Default()
	}
	base := []confined.ConfigFunc{
		confined.WithSink(sink),
		confined.WithDefaults(Defaults(sink)),
	}
	return confined.NewBus(append(base, configFuncs...)...)
}
