package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/al002/zbfetch/internal/config"
)

type Logger struct {
	*slog.Logger
	closer io.Closer
}

func New(cfg *config.LogConfig) (*Logger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("Log config is nil")
	}

	level := parseLevel(cfg.Level)

	writer, err := getWriter(cfg.Dir)

	if err != nil {
		return nil, err
	}

	handler := createHandler(writer, level, cfg.Format)

	logger := &Logger{
		Logger: slog.New(handler),
	}
	if writer != os.Stdout {
		logger.closer = writer
	}

	slog.SetDefault(logger.Logger)

	return logger, nil
}

// Discard returns a logger that drops every record.
func Discard() Logger {
	return Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1})),
	}
}

// With returns a logger carrying args on every record.
func (l Logger) With(args ...any) Logger {
	return Logger{Logger: l.Logger.With(args...), closer: l.closer}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getWriter(dir string) (*os.File, error) {
	if dir == "" {
		return os.Stdout, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("Failed to create log directory: %v", err)
	}

	logPath := filepath.Join(dir, "zbfetch.log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("Failed to open log file: %v", err)
	}

	return f, nil
}

func createHandler(writer io.Writer, level slog.Level, format string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	}

	switch strings.ToLower(format) {
	case "text":
		return slog.NewTextHandler(writer, opts)
	default:
		return slog.NewJSONHandler(writer, opts)
	}
}

func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}

	return nil
}
