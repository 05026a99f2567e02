package logx

import "github.com/rs/zerolog"

type zerologSink struct {
	log zerolog.Logger
}

// NewZerologSink adapts a [zerolog.Logger] to a [Sink].
// The logger name is attached to each event as the "logger" field.
func NewZerologSink(log zerolog.Logger) Sink {
	return &zerologSink{log: log}
}

func (s *zerologSink) Log(level Level, logger, msg string) {
	zl := ZerologLevel(level)
	if zl == zerolog.Disabled {
		return
	}
	s.log.WithLevel(zl).Str(LoggerKey, logger).Msg(msg)
}

// ZerologLevel maps a [Level] to the matching [zerolog.Level].
// [LevelOff] and unknown levels map to [zerolog.Disabled].
func ZerologLevel(level Level) zerolog.Level {
	switch level {
	case LevelTrace:
		return zerolog.TraceLevel
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelCritical:
		// WithLevel does not exit for fatal.
		return zerolog.FatalLevel
	default:
		return zerolog.Disabled
	}
}
