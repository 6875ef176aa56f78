package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/devraulu/tabseek/pkg/config"
)

// InitLogger installs the default slog logger. Logs never go to stdout, the
// native messaging host owns it. The returned func flushes the log file.
func InitLogger(cfg *config.Config) func() {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	out, closeFn := output(cfg.Logging)

	logger := slog.New(newHandler(out, cfg.Logging)).With(
		"name", "tabseek",
		"pid", os.Getpid(),
		"hostname", hostname,
	)
	slog.SetDefault(logger)

	return closeFn
}

func newHandler(w io.Writer, cfg config.LoggingConfig) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				// Only use bunyan levels if JSON
				if cfg.Format != "text" {
					level := a.Value.Any().(slog.Level)
					return slog.Int(a.Key, bunyanLevel(level))
				}
			}
			return a
		},
	}

	if cfg.Format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func output(cfg config.LoggingConfig) (io.Writer, func()) {
	if cfg.File == "" {
		return os.Stderr, func() {}
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	return lj, func() { _ = lj.Close() }
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func bunyanLevel(level slog.Level) int {
	switch {
	case level >= slog.LevelError:
		return 50
	case level >= slog.LevelWarn:
		return 40
	case level >= slog.LevelInfo:
		return 30
	case level >= slog.LevelDebug:
		return 20
	default:
		return 10
	}
}
