package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/nerrad567/ir-emitter/internal/infrastructure/config"
)

// ServiceName is attached to every log entry.
const ServiceName = "linux-enable-ir-emitter"

// Logger wraps slog.Logger with tool-specific defaults.
//
// It provides structured logging with default fields and level-based filtering.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
}

// New creates a Logger writing to stdout or stderr as cfg.Output selects.
// The CLI passes its command streams so output can be captured.
//
// It configures:
//   - Output format (text for terminals, JSON for log collectors)
//   - Log level filtering
//   - Default fields (service name, version)
func New(cfg config.LoggingConfig, version string, stdout, stderr io.Writer) *Logger {
	output := stderr
	if strings.EqualFold(cfg.Output, "stdout") {
		output = stdout
	}
	return NewWithWriter(output, cfg, version)
}

// NewWithWriter is New with an explicit destination. The cfg.Output field
// is ignored.
func NewWithWriter(w io.Writer, cfg config.LoggingConfig, version string) *Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", ServiceName),
		slog.String("version", version),
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// parseLevel converts a string log level to slog.Level.
//
// Supported levels: debug, info, warn, error
// Defaults to info if unrecognised.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// With returns a new Logger with additional default attributes.
//
// Example:
//
//	bootLogger := logger.With("component", "boot")
//	bootLogger.Info("rule file written") // Includes component=boot
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}
