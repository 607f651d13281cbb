package clog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// clogHandler 封装 slog.Handler，提供动态级别能力
type clogHandler struct {
	slog.Handler
	levelVar *slog.LevelVar
}

// newHandler 构造顺序：writer -> handler options -> base handler -> (可选) 彩色 handler
func newHandler(config *Config, options *options) (*clogHandler, error) {
	w, err := resolveWriter(config, options)
	if err != nil {
		return nil, err
	}

	level, _ := ParseLevel(config.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level.toSlog())

	opts := &slog.HandlerOptions{
		AddSource:   config.AddSource,
		Level:       levelVar,
		ReplaceAttr: newReplaceAttr(config),
	}

	var handler slog.Handler
	switch {
	case strings.EqualFold(config.Format, "json"):
		handler = slog.NewJSONHandler(w, opts)
	case config.EnableColor:
		handler = &coloredHandler{opts: opts, writer: w, mu: &sync.Mutex{}}
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return &clogHandler{Handler: handler, levelVar: levelVar}, nil
}

func resolveWriter(config *Config, options *options) (io.Writer, error) {
	switch strings.ToLower(config.Output) {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	case "buffer":
		if options.buffer != nil {
			return options.buffer, nil
		}
		return nil, fmt.Errorf("buffer output requires options.buffer to be set")
	default:
		if dir := filepath.Dir(config.Output); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		return os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	}
}

// newReplaceAttr 统一处理 Level/Time/Source 等字段
func newReplaceAttr(config *Config) func(groups []string, a slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		switch a.Key {
		case slog.LevelKey:
			if level, ok := a.Value.Any().(slog.Level); ok {
				a.Value = slog.StringValue(levelName(level))
			}
		case slog.TimeKey:
			if a.Value.Kind() == slog.KindTime {
				a.Value = slog.StringValue(a.Value.Time().Format(timeFormat))
			}
		case slog.SourceKey:
			if source, ok := a.Value.Any().(*slog.Source); ok {
				return slog.String("caller", fmt.Sprintf("%s:%d", trimSourcePath(source.File, config.SourceRoot), source.Line))
			}
		}
		return a
	}
}

func levelName(level slog.Level) string {
	switch {
	case level <= slog.LevelDebug:
		return "DEBUG"
	case level <= slog.LevelInfo:
		return "INFO"
	case level <= slog.LevelWarn:
		return "WARN"
	case level <= slog.LevelError:
		return "ERROR"
	default:
		return "FATAL"
	}
}

// trimSourcePath 优先按 sourceRoot 取相对路径，否则从项目目录名处截断
func trimSourcePath(fileName, sourceRoot string) string {
	if sourceRoot != "" {
		relPath, err := filepath.Rel(sourceRoot, fileName)
		if err == nil && !strings.HasPrefix(relPath, "..") {
			return relPath
		}
	}
	if idx := strings.Index(fileName, "asnkeeper"); idx != -1 {
		return fileName[idx:]
	}
	return fileName
}

func (h *clogHandler) SetLevel(level Level) {
	h.levelVar.Set(level.toSlog())
}

const (
	ansiReset   = "\033[0m"
	ansiBold    = "\033[1m"
	ansiRed     = "\033[31m"
	ansiGreen   = "\033[32m"
	ansiYellow  = "\033[33m"
	ansiMagenta = "\033[35m"
	ansiGray    = "\033[90m"
	ansiBgRed   = "\033[41m"
)

// coloredHandler 先用 TextHandler 渲染到缓冲区，再给级别加上 ANSI 颜色
type coloredHandler struct {
	opts   *slog.HandlerOptions
	writer io.Writer
	attrs  []slog.Attr
	groups []string
	mu     *sync.Mutex
}

func (h *coloredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *coloredHandler) Handle(ctx context.Context, r slog.Record) error {
	var buf bytes.Buffer
	var base slog.Handler = slog.NewTextHandler(&buf, h.opts)
	if len(h.attrs) > 0 {
		base = base.WithAttrs(h.attrs)
	}
	for _, g := range h.groups {
		base = base.WithGroup(g)
	}
	if err := base.Handle(ctx, r); err != nil {
		return err
	}

	name := levelName(r.Level)
	line := strings.Replace(buf.String(), "level="+name,
		ansiBold+levelColor(r.Level)+fmt.Sprintf("%-5s", name)+ansiReset+ansiGray+" |"+ansiReset, 1)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, line)
	return err
}

func (h *coloredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *coloredHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

func levelColor(level slog.Level) string {
	switch {
	case level <= slog.LevelDebug:
		return ansiMagenta
	case level <= slog.LevelInfo:
		return ansiGreen
	case level <= slog.LevelWarn:
		return ansiYellow
	case level <= slog.LevelError:
		return ansiRed
	default:
		return ansiBgRed
	}
}
