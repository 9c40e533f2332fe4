package clog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Attributes printed as leading columns, in this order, when present.
var textColumns = []string{"method", "procedure", "route", "path", "status", OperationKey, ActorIDKey}

type TextHandlerConfig struct {
	Color bool
	Level *slog.Level
}

type TextHandlerOption func(*TextHandlerConfig)

func WithColor(c bool) TextHandlerOption {
	return func(cfg *TextHandlerConfig) {
		cfg.Color = c
	}
}

func WithLevel(level slog.Level) TextHandlerOption {
	return func(cfg *TextHandlerConfig) {
		cfg.Level = &level
	}
}

// TextHandler is a human-oriented handler for local development: one
// coloured summary line per record followed by the remaining attributes.
type TextHandler struct {
	cfg   TextHandlerConfig
	attrs []slog.Attr
	mu    *sync.Mutex
	w     io.Writer
}

func NewTextHandler(w io.Writer, opts ...TextHandlerOption) *TextHandler {
	cfg := TextHandlerConfig{Color: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &TextHandler{cfg: cfg, mu: &sync.Mutex{}, w: w}
}

func (h *TextHandler) Enabled(_ context.Context, l slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.cfg.Level != nil {
		minLevel = *h.cfg.Level
	}
	return l >= minLevel
}

func (h *TextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(slices.Clip(h.attrs), attrs...)
	return &nh
}

// WithGroup is accepted but groups are flattened in text output.
func (h *TextHandler) WithGroup(string) slog.Handler {
	return h
}

func (h *TextHandler) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if !h.cfg.Color {
		c.DisableColor()
	} else {
		c.EnableColor()
	}
	return c
}

func (h *TextHandler) levelColor(l slog.Level) *color.Color {
	switch {
	case l >= slog.LevelError:
		return h.paint(color.FgRed)
	case l >= slog.LevelWarn:
		return h.paint(color.FgYellow)
	case l >= slog.LevelInfo:
		return h.paint(color.FgBlue)
	}
	return h.paint(color.FgCyan)
}

func (h *TextHandler) Handle(_ context.Context, record slog.Record) error {
	kv := make(map[string]slog.Value, len(h.attrs)+record.NumAttrs())
	for _, attr := range h.attrs {
		kv[attr.Key] = attr.Value
	}
	record.Attrs(func(attr slog.Attr) bool {
		kv[attr.Key] = attr.Value
		return true
	})

	buf := &bytes.Buffer{}
	plain := h.paint()
	plain.Fprintf(buf, "%s ", record.Time.Format(time.RFC3339))
	h.levelColor(record.Level).Fprintf(buf, "%s ", record.Level)
	for _, key := range textColumns {
		if v, ok := kv[key]; ok {
			plain.Fprintf(buf, "%s ", v)
			delete(kv, key)
		}
	}

	msg := h.paint(color.FgGreen)
	msg.Fprint(buf, "\"")
	if v, ok := kv["code"]; ok {
		msg.Fprintf(buf, "[%s] ", v)
		delete(kv, "code")
	}
	msg.Fprintf(buf, "%s\"", record.Message)
	if v, ok := kv[ErrorKindKey]; ok {
		h.paint(color.FgMagenta).Fprintf(buf, " %s", v)
		delete(kv, ErrorKindKey)
	}
	if v, ok := kv[ErrorAttributeKey]; ok {
		h.paint(color.FgRed).Fprintf(buf, " \"%s\"", v)
		delete(kv, ErrorAttributeKey)
	}
	buf.WriteByte('\n')

	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "    %s=%s\n", k, kv[k])
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}
