package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/gray-logic-blueprints/internal/infrastructure/config"
)

// Logger is the service-wide structured logger. It embeds slog.Logger,
// so all the usual leveled methods are available, and stamps every
// entry with the service name and version. Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from the logging section of the config file.
// Format json suits log collectors, text suits a terminal; unknown
// values fall back to json. Output accepts stdout or stderr.
func New(cfg config.LoggingConfig, version string) *Logger {
	return newLogger(cfg, version, outputWriter(cfg.Output))
}

// newLogger is the writer-injectable core of New, split out so tests
// can capture output.
func newLogger(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "blueprintd"),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

func outputWriter(name string) io.Writer {
	if strings.ToLower(name) == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

// parseLevel maps a config level string onto slog's levels. Unknown
// strings mean info rather than an error: a typo in the config should
// not silence the service.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// With returns a child logger carrying extra default attributes.
// Components tag themselves this way:
//
//	mqttLog := log.With("component", "mqtt")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default returns a stdout JSON logger at info level for use during
// startup, before the config file has been read.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}
