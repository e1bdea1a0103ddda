package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
)

type FluentConfig struct {
	Host string
	Port int
	Tag  string
}

// Poster is the subset of *fluent.Fluent used by FluentHandler.
type Poster interface {
	Post(tag string, message interface{}) error
}

// NewFluentClient connects to a Fluent Bit forward input. The client connects lazily,
// so a nil error does not guarantee the collector is reachable.
func NewFluentClient(cfg FluentConfig) (*fluent.Fluent, error) {
	if cfg.Tag == "" {
		return nil, fmt.Errorf("fluent tag is required")
	}

	client, err := fluent.New(fluent.Config{
		FluentHost: cfg.Host,
		FluentPort: cfg.Port,
		TagPrefix:  cfg.Tag,
		Async:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create fluent client: %w", err)
	}
	return client, nil
}

// FluentHandler is a slog.Handler that ships each record as a flat map.
type FluentHandler struct {
	client Poster
	tag    string
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
}

func NewFluentHandler(client Poster, tag string, level slog.Leveler) *FluentHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &FluentHandler{client: client, tag: tag, level: level}
}

func (h *FluentHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	return lvl >= h.level.Level()
}

func (h *FluentHandler) Handle(_ context.Context, r slog.Record) error {
	msg := map[string]interface{}{
		"level": r.Level.String(),
		"msg":   r.Message,
		"time":  r.Time.UTC().Format(time.RFC3339Nano),
	}
	for _, a := range h.attrs {
		addAttr(msg, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(msg, h.prefix, a)
		return true
	})
	return h.client.Post(h.tag, msg)
}

func (h *FluentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	return &next
}

func (h *FluentHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func addAttr(dst map[string]interface{}, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			addAttr(dst, p, ga)
		}
		return
	}
	dst[strings.TrimSuffix(prefix+a.Key, ".")] = a.Value.Any()
}
