package logx

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level is the severity of a log message.
type Level int32

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
	LevelOff // LevelOff disables output when used as a threshold, and is never emitted.
)

var levelNames = [...]string{"trace", "debug", "info", "warn", "error", "critical", "off"}

func (l Level) String() string {
	if l < LevelTrace || l > LevelOff {
		return fmt.Sprintf("UNKNOWN_%d", int32(l))
	}
	return levelNames[l]
}

// ParseLevel interprets s as a [Level], ignoring case and surrounding space.
// Unrecognized values return [LevelInfo].
func ParseLevel(s string) Level {
	level, ok := LookupLevel(s)
	if !ok {
		return LevelInfo
	}
	return level
}

// LookupLevel is like [ParseLevel], but reports whether s was recognized.
func LookupLevel(s string) (Level, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "warning":
		return LevelWarn, true
	case "err":
		return LevelError, true
	}
	for i, name := range levelNames {
		if s == name {
			return Level(i), true
		}
	}
	return LevelInfo, false
}

const (
	slogTrace    = slog.LevelDebug - 4
	slogCritical = slog.LevelError + 4
	slogOff      = slog.LevelError + 8
)

func (l Level) slog() slog.Level {
	switch l {
	case LevelTrace:
		return slogTrace
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	case LevelCritical:
		return slogCritical
	default:
		return slogOff
	}
}

func fromSlog(level slog.Level) Level {
	switch {
	case level < slog.LevelDebug:
		return LevelTrace
	case level < slog.LevelInfo:
		return LevelDebug
	case level < slog.LevelWarn:
		return LevelInfo
	case level < slog.LevelError:
		return LevelWarn
	case level < slogCritical:
		return LevelError
	default:
		return LevelCritical
	}
}
