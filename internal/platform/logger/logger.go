package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns a JSON logger on stdout, or a text logger at debug level when
// debug is set.
func New(debug bool) *slog.Logger {
	return NewWithWriter(os.Stdout, debug)
}

func NewWithWriter(w io.Writer, debug bool) *slog.Logger {
	if debug {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
