package logging

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// Poster is the subset of *fluent.Fluent used by FluentHandler.
type Poster interface {
	Post(tag string, message any) error
}

// FluentHandler forwards records to Fluent Bit tagged by level, e.g. "<prefix>.warn".
type FluentHandler struct {
	client   Poster
	minLevel slog.Level
	attrs    []slog.Attr
	groups   []string
}

// NewFluentHandler wraps client. Records below minLevel are dropped.
func NewFluentHandler(client Poster, minLevel slog.Leveler) *FluentHandler {
	level := slog.LevelInfo
	if minLevel != nil {
		level = minLevel.Level()
	}
	return &FluentHandler{client: client, minLevel: level}
}

func (h *FluentHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.minLevel
}

func (h *FluentHandler) Handle(_ context.Context, r slog.Record) error {
	data := make(map[string]any, len(h.attrs)+r.NumAttrs()+3)
	for _, a := range h.attrs {
		addAttr(data, a)
	}
	prefix := strings.Join(h.groups, ".")
	r.Attrs(func(a slog.Attr) bool {
		if prefix != "" {
			a.Key = prefix + "." + a.Key
		}
		addAttr(data, a)
		return true
	})

	level := strings.ToLower(r.Level.String())
	data["level"] = level
	data["message"] = r.Message
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	data["timestamp"] = ts.UTC().Format(time.RFC3339Nano)

	// Fluent outages must not break request handling.
	_ = h.client.Post(level, data)
	return nil
}

func (h *FluentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	prefix := strings.Join(h.groups, ".")
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	for _, a := range attrs {
		if prefix != "" {
			a.Key = prefix + "." + a.Key
		}
		merged = append(merged, a)
	}
	return &FluentHandler{client: h.client, minLevel: h.minLevel, attrs: merged, groups: h.groups}
}

func (h *FluentHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	groups := append(append([]string(nil), h.groups...), name)
	return &FluentHandler{client: h.client, minLevel: h.minLevel, attrs: h.attrs, groups: groups}
}

func addAttr(data map[string]any, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, inner := range v.Group() {
			inner.Key = a.Key + "." + inner.Key
			addAttr(data, inner)
		}
		return
	}
	if a.Key == "" {
		return
	}
	if err, ok := v.Any().(error); ok {
		data[a.Key] = err.Error()
		return
	}
	data[a.Key] = v.Any()
}

// fanout duplicates every record to each enabled child handler.
type fanout struct {
	handlers []slog.Handler
}

// Fanout combines handlers so a single logger writes to all of them.
func Fanout(handlers ...slog.Handler) slog.Handler {
	return &fanout{handlers: handlers}
}

func (f *fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &fanout{handlers: next}
}

func (f *fanout) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return &fanout{handlers: next}
}
