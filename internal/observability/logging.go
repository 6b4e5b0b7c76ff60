// Package observability provides logging, metrics, and tracing.
package observability

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// Component returns a logger with a fixed component attribute attached.
func Component(name string) *slog.Logger {
	return GlobalLogger.With(slog.String("component", name))
}
