package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

type Loggers struct {
	InfoLogger  *slog.Logger
	ErrorLogger *slog.Logger
}

// SetupLogger builds colored console loggers for stdout and stderr. Extra handlers,
// such as a Fluent Bit sink, receive every record the console handlers accept.
func SetupLogger(level string, sinks ...slog.Handler) (*Loggers, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	return &Loggers{
		InfoLogger:  slog.New(fanout(newConsoleHandler(os.Stdout, lvl), sinks...)),
		ErrorLogger: slog.New(fanout(newConsoleHandler(os.Stderr, lvl), sinks...)),
	}, nil
}

// NewDiscard returns loggers that drop everything; used by tests and tools.
func NewDiscard() *Loggers {
	h := slog.NewTextHandler(io.Discard, nil)
	return &Loggers{
		InfoLogger:  slog.New(h),
		ErrorLogger: slog.New(h),
	}
}

func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

func newConsoleHandler(w io.Writer, lvl slog.Level) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		TimeFormat: "2006-01-02 15:04:05",
	})
}

func fanout(primary slog.Handler, sinks ...slog.Handler) slog.Handler {
	if len(sinks) == 0 {
		return primary
	}
	return &multiHandler{handlers: append([]slog.Handler{primary}, sinks...)}
}

type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, lvl) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: next}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: next}
}
