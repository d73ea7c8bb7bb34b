package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
	"github.com/lmittmann/tint"
)

// newLogger builds a logr.Logger on top of slog. Each -v lowers the slog
// level by one so that logr V(n) lines become visible.
func newLogger(w io.Writer, format string, verbosity int) (logr.Logger, error) {
	level := slog.Level(-verbosity)

	var handler slog.Handler
	switch format {
	case "human", "":
		handler = tint.NewHandler(w, &tint.Options{
			Level:       level,
			TimeFormat:  time.DateTime,
			ReplaceAttr: rewriteLogLevel,
			NoColor:     color.NoColor,
		})
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	default:
		return logr.Discard(), fmt.Errorf("unknown log format %q (human | json)", format)
	}

	return logr.FromSlogHandler(handler), nil
}

func rewriteLogLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey || len(groups) != 0 {
		return a
	}

	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}

	var text string
	switch {
	case level < slog.LevelInfo:
		text = "DEBUG"
	case level == slog.LevelInfo:
		text = color.GreenString("INFO")
	case level == slog.LevelWarn:
		text = color.YellowString("WARN")
	case level >= slog.LevelError:
		text = color.RedString("ERROR")
	default:
		text = level.String()
	}
	a.Value = slog.StringValue(text)

	return a
}
