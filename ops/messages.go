package ops

import (
	"github.com/saylorsolutions/dispatch/logx"
	"github.com/saylorsolutions/dispatch/patterns/router"
)

const (
	// SpecialImpl is the name of the alternate addition implementation.
	SpecialImpl = "special"

	// RedirectSuffix is appended to the name of an invalid [OpMMAMsg] when it's redirected as an [OpAddMsg].
	RedirectSuffix = "_redirected"
)

var (
	_ router.Message = OpAddMsg{}
	_ router.Message = OpMMAMsg{}
)

// OpAddMsg requests an addition: input1 + input2 -> output.
type OpAddMsg struct {
	name, input1, input2, output string
}

func NewOpAddMsg(name, input1, input2, output string) OpAddMsg {
	return OpAddMsg{name: name, input1: input1, input2: input2, output: output}
}

func (m OpAddMsg) Name() string   { return m.name }
func (m OpAddMsg) Input1() string { return m.input1 }
func (m OpAddMsg) Input2() string { return m.input2 }
func (m OpAddMsg) Output() string { return m.output }

// OpMMAMsg requests a multiply-accumulate: a * b + c -> output.
type OpMMAMsg struct {
	name, a, b, c, output string
}

func NewOpMMAMsg(name, a, b, c, output string) OpMMAMsg {
	return OpMMAMsg{name: name, a: a, b: b, c: c, output: output}
}

func (m OpMMAMsg) Name() string   { return m.name }
func (m OpMMAMsg) A() string      { return m.a }
func (m OpMMAMsg) B() string      { return m.b }
func (m OpMMAMsg) C() string      { return m.c }
func (m OpMMAMsg) Output() string { return m.output }

// Valid reports whether all three operands are set.
// Output is not checked.
func (m OpMMAMsg) Valid() bool {
	return len(m.a) > 0 && len(m.b) > 0 && len(m.c) > 0
}

// Redirected returns the [OpAddMsg] that replaces an invalid m: a + b -> output, named with [RedirectSuffix].
func (m OpMMAMsg) Redirected() OpAddMsg {
	return NewOpAddMsg(m.name+RedirectSuffix, m.a, m.b, m.output)
}

// NewAddProcessor creates the processor for [OpAddMsg], with the default and [SpecialImpl] implementations.
func NewAddProcessor(sink logx.Sink) *router.Processor[OpAddMsg] {
	p := router.NewProcessor(func(msg OpAddMsg) {
		logx.Logf(sink, logx.LevelInfo, LoggerName, "OpAdd[default] - %s: %s + %s -> %s", msg.name, msg.input1, msg.input2, msg.output)
	})
	_ = p.RegisterImpl(SpecialImpl, func(msg OpAddMsg) {
		logx.Logf(sink, logx.LevelInfo, LoggerName, "OpAdd[special] - %s: %s + %s -> %s", msg.name, msg.input1, msg.input2, msg.output)
	})
	return p
}

// NewMMAProcessor creates the processor for [OpMMAMsg], with only a default implementation.
func NewMMAProcessor(sink logx.Sink) *router.Processor[OpMMAMsg] {
	return router.NewProcessor(func(msg OpMMAMsg) {
		logx.Logf(sink, logx.LevelInfo, LoggerName, "OpMMA - %s: %s * %s + %s -> %s", msg.name, msg.a, msg.b, msg.c, msg.output)
	})
}

// NewRouter creates a [router.Router] with both built-in processors installed.
// An [OpMMAMsg] with any empty operand is redirected as an [OpAddMsg], see [OpMMAMsg.Redirected].
func NewRouter(sink logx.Sink, configFuncs ...router.ConfigFunc) (*router.Router, error) {
	if sink == nil {
		sink = logx.Default()
	}
	r := router.New(append([]router.ConfigFunc{router.WithSink(sink)}, configFuncs...)...)
	if err := router.RegisterProcessor(r, NewAddProcessor(sink)); err != nil {
		return nil, err
	}
	if err := router.RegisterProcessor(r, NewMMAProcessor(sink)); err != nil {
		return nil, err
	}
	router.RegisterOverride(r, processMMA)
	return r, nil
}

func processMMA(r *router.Router, msg OpMMAMsg) {
	r.Logf(logx.LevelInfo, "process<OpMMAMsg>.name = %s", msg.name)
	if !msg.Valid() {
		r.Logf(logx.LevelDebug, "OpMMA %s has an empty operand", msg.name)
		router.Redirect(r, msg, msg.Redirected())
		return
	}
	router.Forward(r, msg)
}

// AddProcessor returns the [OpAddMsg] processor of r, so callers can add or replace implementations.
func AddProcessor(r *router.Router) (*router.Processor[OpAddMsg], error) {
	return router.GetProcessor[OpAddMsg](r)
}
