package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler writes one human-readable line per record:
//
//	2026-01-02T15:04:05Z INFO renamer: renamed [renamer.go:88] file=a.jpg destination=fox.jpg
//
// The component attribute becomes the line prefix instead of a field.
type consoleHandler struct {
	out       *syncWriter
	level     slog.Leveler
	addSource bool

	component string
	group     string // dotted prefix for keys, "" or "a.b."
	fields    []byte // handler attributes, already rendered
}

// syncWriter is shared by derived handlers so lines never interleave.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource bool) *consoleHandler {
	return &consoleHandler{out: &syncWriter{w: w}, level: level, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	component := h.component
	var fields []byte
	record.Attrs(func(attr slog.Attr) bool {
		if name, ok := h.componentName(attr); ok {
			if component == "" {
				component = name
			}
			return true
		}
		fields = appendField(fields, h.group, attr)
		return true
	})

	when := record.Time
	if when.IsZero() {
		when = time.Now()
	}
	line := make([]byte, 0, 96+len(h.fields)+len(fields))
	line = when.UTC().AppendFormat(line, time.RFC3339)
	line = append(line, ' ')
	line = append(line, record.Level.String()...)
	line = append(line, ' ')
	if component != "" {
		line = append(line, component...)
		line = append(line, ": "...)
	}
	if msg := strings.TrimSpace(record.Message); msg != "" {
		line = append(line, msg...)
	} else {
		line = append(line, "(no message)"...)
	}
	if h.addSource {
		if src := record.Source(); src != nil && src.File != "" {
			line = fmt.Appendf(line, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	line = append(line, h.fields...)
	line = append(line, fields...)
	line = append(line, '\n')

	h.out.mu.Lock()
	defer h.out.mu.Unlock()
	_, err := h.out.w.Write(line)
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.fields = slices.Clip(h.fields)
	for _, attr := range attrs {
		if name, ok := h.componentName(attr); ok {
			if clone.component == "" {
				clone.component = name
			}
			continue
		}
		clone.fields = appendField(clone.fields, h.group, attr)
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = h.group + name + "."
	return &clone
}

func (h *consoleHandler) componentName(attr slog.Attr) (string, bool) {
	if h.group != "" || attr.Key != FieldComponent {
		return "", false
	}
	return attr.Value.Resolve().String(), true
}

// appendField renders attr as " key=value", flattening groups into dotted
// keys.
func appendField(buf []byte, group string, attr slog.Attr) []byte {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return buf
	}
	if attr.Value.Kind() == slog.KindGroup {
		if attr.Key != "" {
			group += attr.Key + "."
		}
		for _, member := range attr.Value.Group() {
			buf = appendField(buf, group, member)
		}
		return buf
	}

	buf = append(buf, ' ')
	buf = append(buf, group...)
	buf = append(buf, attr.Key...)
	buf = append(buf, '=')

	var text string
	switch attr.Value.Kind() {
	case slog.KindString:
		text = attr.Value.String()
	case slog.KindAny:
		text = fmt.Sprint(attr.Value.Any())
	case slog.KindTime:
		return attr.Value.Time().UTC().AppendFormat(buf, time.RFC3339)
	default:
		return append(buf, attr.Value.String()...)
	}
	if text == "" || strings.ContainsFunc(text, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.AppendQuote(buf, text)
	}
	return append(buf, text...)
}
