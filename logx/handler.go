package logx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

const timeLayout = "2006-01-02 15:04:05.000"

var levelColors = map[Level]string{
	LevelTrace:    "\x1b[37m",
	LevelDebug:    "\x1b[36m",
	LevelInfo:     "\x1b[32m",
	LevelWarn:     "\x1b[33;1m",
	LevelError:    "\x1b[31;1m",
	LevelCritical: "\x1b[1;41m",
}

const colorReset = "\x1b[0m"

var _ slog.Handler = (*lineHandler)(nil)

// lineHandler writes one line per record in the form
//
//	[2006-01-02 15:04:05.000] [name] [level] message key=value
type lineHandler struct {
	mux   *sync.Mutex
	out   io.Writer
	level slog.Leveler
	color bool
	name  string
	group string
	attrs []slog.Attr
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *lineHandler) Handle(_ context.Context, record slog.Record) error {
	var buf strings.Builder
	buf.WriteString("[")
	buf.WriteString(record.Time.Format(timeLayout))
	buf.WriteString("] [")
	buf.WriteString(h.name)
	buf.WriteString("] [")
	level := fromSlog(record.Level)
	if h.color {
		buf.WriteString(levelColors[level])
		buf.WriteString(level.String())
		buf.WriteString(colorReset)
	} else {
		buf.WriteString(level.String())
	}
	buf.WriteString("] ")
	buf.WriteString(record.Message)
	for _, attr := range h.attrs {
		writeAttr(&buf, "", attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		writeAttr(&buf, h.group, attr)
		return true
	})
	buf.WriteString("\n")

	h.mux.Lock()
	defer h.mux.Unlock()
	_, err := io.WriteString(h.out, buf.String())
	return err
}

func writeAttr(buf *strings.Builder, group string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	key := attr.Key
	if len(group) > 0 {
		key = group + "." + key
	}
	_, _ = fmt.Fprintf(buf, " %s=%v", key, attr.Value.Any())
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	cp := *h
	cp.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, attr := range attrs {
		if attr.Key == LoggerKey && len(h.group) == 0 {
			cp.name = attr.Value.String()
			continue
		}
		if len(h.group) > 0 {
			attr.Key = h.group + "." + attr.Key
		}
		cp.attrs = append(cp.attrs, attr)
	}
	return &cp
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	if len(name) == 0 {
		return h
	}
	cp := *h
	if len(cp.group) > 0 {
		cp.group += "." + name
	} else {
		cp.group = name
	}
	return &cp
}

var _ slog.Handler = (*handlerJoiner)(nil)

type handlerJoiner struct {
	a, b slog.Handler
}

func (h *handlerJoiner) Enabled(ctx context.Context, level slog.Level) bool {
	return h.a.Enabled(ctx, level) || h.b.Enabled(ctx, level)
}

func (h *handlerJoiner) Handle(ctx context.Context, record slog.Record) error {
	var aerr, berr error
	if h.a.Enabled(ctx, record.Level) {
		aerr = h.a.Handle(ctx, record.Clone())
	}
	if h.b.Enabled(ctx, record.Level) {
		berr = h.b.Handle(ctx, record.Clone())
	}
	return errors.Join(aerr, berr)
}

func (h *handlerJoiner) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &handlerJoiner{a: h.a.WithAttrs(attrs), b: h.b.WithAttrs(attrs)}
}

func (h *handlerJoiner) WithGroup(name string) slog.Handler {
	return &handlerJoiner{a: h.a.WithGroup(name), b: h.b.WithGroup(name)}
}
