// Package logging builds the structured logger shared by the node and the CLI.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a text logger at level writing to stderr and, when file is set,
// to a rotating log file as well. The returned closer releases the file.
func New(level, file string) (*slog.Logger, io.Closer) {
	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if file != "" {
		rotating := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    100, // megabytes
			MaxBackups: 14,
			MaxAge:     14, // days
			Compress:   true,
			LocalTime:  true,
		}
		out = io.MultiWriter(os.Stderr, rotating)
		closer = rotating
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: ParseLevel(level)})
	return slog.New(handler), closer
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything else
// is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
