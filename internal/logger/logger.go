// Package logger provides a colored console slog.Handler.
package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-chi/chi/v5/middleware"
)

// Options configure the Handler.
type Options struct {
	// Level is the minimum level to log. Defaults to info.
	Level slog.Leveler

	// TimeFormat formats record timestamps.
	TimeFormat string

	// AddSource prints the short file:line of the call site.
	AddSource bool

	// NoColor strips ANSI sequences from the output.
	NoColor bool
}

// DefaultOptions is used when NewHandler receives nil.
var DefaultOptions = &Options{
	Level:      slog.LevelInfo,
	TimeFormat: time.DateTime,
	AddSource:  true,
}

// Handler writes one colored line per record.
type Handler struct {
	opts   Options
	attrs  []slog.Attr
	groups []string

	mu  *sync.Mutex
	out io.Writer
}

// NewHandler creates a Handler writing to out.
func NewHandler(out io.Writer, opts *Options) *Handler {
	h := &Handler{out: out, mu: &sync.Mutex{}}
	if opts == nil {
		opts = DefaultOptions
	}
	h.opts = *opts
	if h.opts.Level == nil {
		h.opts.Level = slog.LevelInfo
	}
	if h.opts.TimeFormat == "" {
		h.opts.TimeFormat = time.DateTime
	}
	return h
}

// New returns a slog.Logger backed by a Handler.
func New(out io.Writer, opts *Options) *slog.Logger {
	return slog.New(NewHandler(out, opts))
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	bf := bufPool.Get().(*bytes.Buffer)
	bf.Reset()
	defer bufPool.Put(bf)

	if !r.Time.IsZero() {
		bf.WriteString(color.New(color.Faint).Sprint(r.Time.Format(h.opts.TimeFormat)))
		bf.WriteByte(' ')
	}

	bf.WriteString(levelLabel(r.Level))
	bf.WriteByte(' ')

	if reqID := middleware.GetReqID(ctx); reqID != "" {
		bf.WriteString(color.New(color.FgMagenta).Sprint(reqID))
		bf.WriteByte(' ')
	}

	if h.opts.AddSource && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		fmt.Fprintf(bf, "%s:%d ", filepath.Base(f.File), f.Line)
	}

	bf.WriteString(color.HiWhiteString("| "))
	bf.WriteString(r.Message)

	writeAttr := func(prefix string, a slog.Attr) {
		if a.Equal(slog.Attr{}) {
			return
		}
		key := prefix + a.Key
		c := color.New(color.FgCyan)
		if strings.Contains(a.Key, "err") {
			c = color.New(color.FgRed)
		}
		bf.WriteByte(' ')
		bf.WriteString(c.Sprintf("%s=", key))
		bf.WriteString(a.Value.Resolve().String())
	}
	for _, a := range h.attrs {
		writeAttr("", a)
	}
	prefix := h.groupPrefix()
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(prefix, a)
		return true
	})
	bf.WriteByte('\n')

	if h.opts.NoColor {
		stripANSI(bf)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(bf.Bytes())
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := h.clone()
	prefix := h.groupPrefix()
	for _, a := range attrs {
		a.Key = prefix + a.Key
		h2.attrs = append(h2.attrs, a)
	}
	return h2
}

func (h *Handler) groupPrefix() string {
	if len(h.groups) == 0 {
		return ""
	}
	return strings.Join(h.groups, ".") + "."
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	h2.groups = append(h2.groups, name)
	return h2
}

func (h *Handler) clone() *Handler {
	return &Handler{
		opts:   h.opts,
		attrs:  append([]slog.Attr(nil), h.attrs...),
		groups: append([]string(nil), h.groups...),
		mu:     h.mu,
		out:    h.out,
	}
}

// Err wraps an error as a slog attribute.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("err", err.Error())
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return color.New(color.BgRed, color.FgHiWhite).Sprint("ERROR")
	case level >= slog.LevelWarn:
		return color.New(color.BgYellow, color.FgHiWhite).Sprint("WARN ")
	case level >= slog.LevelInfo:
		return color.New(color.BgGreen, color.FgHiWhite).Sprint("INFO ")
	default:
		return color.New(color.BgCyan, color.FgHiWhite).Sprint("DEBUG")
	}
}

var bufPool = sync.Pool{
	New: func() any { return &bytes.Buffer{} },
}

var ansi = regexp.MustCompile("[\u001B\u009B][[\\]()#;?]*(?:(?:(?:[a-zA-Z\\d]*(?:;[a-zA-Z\\d]*)*)?\u0007)|(?:(?:\\d{1,4}(?:;\\d{0,4})*)?[\\dA-PRZcf-ntqry=><~]))")

func stripANSI(bf *bytes.Buffer) {
	cleaned := ansi.ReplaceAll(bf.Bytes(), nil)
	bf.Reset()
	bf.Write(cleaned)
}
