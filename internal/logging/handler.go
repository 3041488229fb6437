package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Handler writes one line per record:
//
//	15:04:05 WRN access denied: D:\Work\a.jpg dst="E:\Backup\jpg\a.jpg"
//
// Values holding spaces, quotes or '=' are quoted so paths stay readable.
type Handler struct {
	level  slog.Leveler
	out    io.Writer
	mu     *sync.Mutex
	color  bool
	prefix string // rendered WithAttrs pairs
	group  string // dotted group path, with a trailing dot
}

// NewHandler returns a text handler for out. Colors are used only when
// ColorEnabled(out) holds.
func NewHandler(out io.Writer, opts *slog.HandlerOptions) *Handler {
	h := &Handler{out: out, mu: &sync.Mutex{}, color: ColorEnabled(out), level: slog.LevelInfo}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

// Enabled reports whether level reaches the configured minimum.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

var levelTags = []struct {
	min   slog.Level
	tag   string
	color *color.Color
}{
	{slog.LevelError, "ERR", color.New(color.FgRed, color.Bold)},
	{slog.LevelWarn, "WRN", color.New(color.FgYellow)},
	{slog.LevelInfo, "INF", color.New(color.FgGreen)},
	{slog.LevelDebug, "DBG", color.New(color.FgMagenta)},
	{LevelTrace, "TRC", color.New(color.FgHiBlack)},
}

func (h *Handler) levelTag(l slog.Level) string {
	for _, lt := range levelTags {
		if l >= lt.min {
			if h.color {
				return lt.color.Sprint(lt.tag)
			}
			return lt.tag
		}
	}
	return "TRC"
}

// Handle formats r and writes it with a single Write call.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	if !r.Time.IsZero() {
		stamp := r.Time.Format(time.TimeOnly)
		if h.color {
			stamp = color.New(color.FgHiBlack).Sprint(stamp)
		}
		buf.WriteString(stamp)
		buf.WriteByte(' ')
	}
	buf.WriteString(h.levelTag(r.Level))
	buf.WriteByte(' ')
	buf.WriteString(r.Message)
	buf.WriteString(h.prefix)
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&buf, h.group, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf.Bytes())
	return err
}

func (h *Handler) writeAttr(buf *bytes.Buffer, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		inner := group
		if a.Key != "" {
			inner += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			h.writeAttr(buf, inner, ga)
		}
		return
	}

	key := group + a.Key
	if h.color {
		key = color.New(color.FgCyan).Sprint(key)
	}
	fmt.Fprintf(buf, " %s=%s", key, formatValue(a.Value))
}

func formatValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindDuration:
		s = v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		s = v.Time().Format(time.RFC3339)
	default:
		s = fmt.Sprint(v.Any())
	}
	if s == "" || strings.ContainsAny(s, " \t\"=") {
		return strconv.Quote(s)
	}
	return s
}

// WithAttrs renders attrs once and returns a handler that appends them to
// every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var buf bytes.Buffer
	for _, a := range attrs {
		h.writeAttr(&buf, h.group, a)
	}
	next := *h
	next.prefix = h.prefix + buf.String()
	return &next
}

// WithGroup returns a handler that prefixes later keys with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = h.group + name + "."
	return &next
}
