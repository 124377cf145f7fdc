package logger

import (
	"log/slog"
	"os"
)

var Log = slog.Default()

// Init installs the JSON handler. Debug level only outside gin release mode.
func Init(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	Log = slog.New(handler)
	slog.SetDefault(Log)
}
