package logger

import (
	"log/slog"
	"os"
	"strings"
)

var log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

// Init reconfigures the package logger. level is one of debug|info|warn|error,
// format is json|text.
func Init(level string, format string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "text" {
		log = slog.New(slog.NewTextHandler(os.Stdout, opts))
	} else {
		log = slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
}

func Debug(msg string, args ...any) {
	log.Debug(msg, normalize(args)...)
}

func Info(msg string, args ...any) {
	log.Info(msg, normalize(args)...)
}

func Warn(msg string, args ...any) {
	log.Warn(msg, normalize(args)...)
}

func Error(msg string, args ...any) {
	log.Error(msg, normalize(args)...)
}

// normalize tolerates call sites that pass a bare error instead of key/value
// pairs, e.g. logger.Error("Service:Op:Error:", err).
func normalize(args []any) []any {
	if len(args)%2 == 0 {
		return args
	}
	out := make([]any, 0, len(args)+1)
	for i := 0; i < len(args)-1; i += 2 {
		out = append(out, args[i], args[i+1])
	}
	out = append(out, "error", args[len(args)-1])
	return out
}
