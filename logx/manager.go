package logx

import (
	"context"
	"golang.org/x/term"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// LoggerKey is the attribute key that carries the logger name.
const LoggerKey = "logger"

// EnvLevel is the environment variable consulted by [Default] for the initial level.
const EnvLevel = "DISPATCH_LOG_LEVEL"

// ColorMode controls ANSI coloring of the level field.
type ColorMode int

const (
	ColorAuto   ColorMode = iota // ColorAuto colors output only when writing to a terminal.
	ColorAlways                  // ColorAlways always colors output.
	ColorNever                   // ColorNever never colors output.
)

// ParseColorMode interprets "auto", "always", or "never", ignoring case.
func ParseColorMode(s string) (ColorMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ColorAuto, true
	case "always", "on", "true":
		return ColorAlways, true
	case "never", "off", "false":
		return ColorNever, true
	default:
		return ColorAuto, false
	}
}

func (m ColorMode) String() string {
	switch m {
	case ColorAlways:
		return "always"
	case ColorNever:
		return "never"
	default:
		return "auto"
	}
}

// ManagerConfig configures a [Manager].
type ManagerConfig struct {
	Out   io.Writer // Out defaults to os.Stdout.
	Level Level
	Color ColorMode
	// Extra is an optional handler that receives every record in addition to the line output.
	Extra slog.Handler
}

// Manager hands out named loggers that share one output and one level.
// Changing the level with [Manager.SetLevel] affects every logger created by the Manager.
type Manager struct {
	level   *slog.LevelVar
	handler slog.Handler

	mux     sync.Mutex
	loggers map[string]*slog.Logger
}

var _ Sink = (*Manager)(nil)

func NewManager(conf ManagerConfig) *Manager {
	out := conf.Out
	if out == nil {
		out = os.Stdout
	}
	levelVar := new(slog.LevelVar)
	levelVar.Set(conf.Level.slog())
	var handler slog.Handler = &lineHandler{
		mux:   new(sync.Mutex),
		out:   out,
		level: levelVar,
		color: useColor(out, conf.Color),
	}
	if conf.Extra != nil {
		handler = &handlerJoiner{a: handler, b: conf.Extra}
	}
	return &Manager{
		level:   levelVar,
		handler: handler,
		loggers: map[string]*slog.Logger{},
	}
}

func useColor(out io.Writer, mode ColorMode) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Logger returns the logger with the given name, creating it on first use.
func (m *Manager) Logger(name string) *slog.Logger {
	m.mux.Lock()
	defer m.mux.Unlock()
	if logger, ok := m.loggers[name]; ok {
		return logger
	}
	logger := slog.New(m.handler).With(slog.String(LoggerKey, name))
	m.loggers[name] = logger
	return logger
}

// Log sends msg to the named logger.
// Levels outside of [LevelTrace] through [LevelCritical] are dropped.
func (m *Manager) Log(level Level, logger, msg string) {
	if level < LevelTrace || level >= LevelOff {
		return
	}
	m.Logger(logger).Log(context.Background(), level.slog(), msg)
}

// SetLevel changes the threshold for every logger of this Manager.
func (m *Manager) SetLevel(level Level) {
	m.level.Set(level.slog())
}

func (m *Manager) Level() Level {
	if m.level.Level() >= slogOff {
		return LevelOff
	}
	return fromSlog(m.level.Level())
}

var (
	defaultManager *Manager
	defaultOnce    sync.Once
)

// Default returns the process-wide [Manager], writing to stdout.
// The initial level is read once from [EnvLevel], and defaults to [LevelInfo].
func Default() *Manager {
	defaultOnce.Do(func() {
		level := LevelInfo
		if val, ok := os.LookupEnv(EnvLevel); ok && len(strings.TrimSpace(val)) > 0 {
			level = ParseLevel(val)
		}
		defaultManager = NewManager(ManagerConfig{Level: level})
	})
	return defaultManager
}

// Log formats and logs a message with the [Default] manager.
func Log(level Level, logger, format string, args ...any) {
	Logf(Default(), level, logger, format, args...)
}

// SetGlobalLevel changes the level of the [Default] manager.
func SetGlobalLevel(level Level) {
	Default().SetLevel(level)
}
