package hal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LogHandler is a slog.Handler that formats records as single lines and
// writes them to a Logger. Extra sinks (for example an on-screen console)
// receive the same lines.
type LogHandler struct {
	out   Logger
	level slog.Leveler
	attrs string // preformatted " k=v" pairs
	group string

	mu    *sync.Mutex
	sinks *[]func(string)
}

// NewLogHandler returns a handler writing to out at or above level.
func NewLogHandler(out Logger, level slog.Leveler) *LogHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &LogHandler{
		out:   out,
		level: level,
		mu:    &sync.Mutex{},
		sinks: &[]func(string){},
	}
}

// Tee registers fn to receive every formatted line.
func (h *LogHandler) Tee(fn func(line string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	*h.sinks = append(*h.sinks, fn)
}

func (h *LogHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *LogHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	if !r.Time.IsZero() {
		b.WriteString(r.Time.Format(time.TimeOnly))
		b.WriteByte(' ')
	}
	b.WriteString(levelTag(r.Level))
	b.WriteByte(' ')
	b.WriteString(r.Message)
	b.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.group, a)
		return true
	})
	line := b.String()

	if h.out != nil {
		h.out.WriteLineString(line)
	}
	h.mu.Lock()
	sinks := *h.sinks
	h.mu.Unlock()
	for _, fn := range sinks {
		fn(line)
	}
	return nil
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	for _, a := range attrs {
		writeAttr(&b, h.group, a)
	}
	nh := *h
	nh.attrs += b.String()
	return &nh
}

func (h *LogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	if nh.group != "" {
		nh.group += "." + name
	} else {
		nh.group = name
	}
	return &nh
}

func levelTag(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERR"
	case l >= slog.LevelWarn:
		return "WRN"
	case l >= slog.LevelInfo:
		return "INF"
	default:
		return "DBG"
	}
}

func writeAttr(b *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(b, key, ga)
		}
		return
	}
	v := a.Value.String()
	if strings.ContainsAny(v, " \t\n\"=") {
		v = fmt.Sprintf("%q", v)
	}
	b.WriteByte(' ')
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(v)
}
