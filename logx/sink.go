package logx

import "fmt"

// Sink is the narrow logging interface consumed by the buses and the router.
// Implementations must be safe for concurrent use.
type Sink interface {
	Log(level Level, logger, msg string)
}

// SinkFunc is a function that implements [Sink].
type SinkFunc func(level Level, logger, msg string)

func (f SinkFunc) Log(level Level, logger, msg string) {
	f(level, logger, msg)
}

// Discard drops every message.
var Discard Sink = SinkFunc(func(Level, string, string) {})

// Logf formats a message printf-style with [fmt.Sprintf] and sends it to sink.
// A literal percent sign in format must be written as "%%", even when no args are given.
// A nil sink is treated as [Discard].
func Logf(sink Sink, level Level, logger, format string, args ...any) {
	if sink == nil || level == LevelOff {
		return
	}
	sink.Log(level, logger, fmt.Sprintf(format, args...))
}
