package bootstrap

import (
	"io"
	"log/slog"
	"os"

	"go.uber.org/fx"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func rotatingFile(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
}

func newLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}))
}

// ProvideLogger writes JSON logs to stdout, and also to a rotated file when
// LOG_FILE is set.
func ProvideLogger(lc fx.Lifecycle, cfg *Config) *slog.Logger {
	var w io.Writer = os.Stdout
	if cfg.LogFile != "" {
		file := rotatingFile(cfg.LogFile)
		w = io.MultiWriter(os.Stdout, file)
		lc.Append(fx.StopHook(file.Close))
	}

	logger := newLogger(w, cfg.LogLevel)
	slog.SetDefault(logger)
	return logger
}
