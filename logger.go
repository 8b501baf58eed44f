package dynafield

import (
	"log/slog"
	"os"
)

// NewTextLogger returns a logger writing human readable records to stderr at
// the given level. Tables log at debug level only.
func NewTextLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger returns a logger that discards all records. It is the default
// logger of a [Table].
func NoopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
