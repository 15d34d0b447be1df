package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/claude/movementmemory/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the process logger. With no file configured it writes to stdout;
// otherwise to a rotating file, teed to stdout when ToStdout is set. The
// returned closer flushes and closes the log file.
func New(cfg config.LoggingConfig) (*slog.Logger, io.Closer) {
	var (
		out    io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)

	if cfg.File != "" {
		filename := cfg.File
		if !strings.HasSuffix(filename, ".log") {
			filename += ".log"
		}
		rotating := &lumberjack.Logger{
			Filename:  filename,
			MaxSize:   50, // megabytes
			LocalTime: false,
			Compress:  true,
		}
		out, closer = rotating, rotating
		if cfg.ToStdout {
			out = io.MultiWriter(os.Stdout, rotating)
		}
	}

	return slog.New(newHandler(out, cfg)), closer
}

func newHandler(w io.Writer, cfg config.LoggingConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: Level(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Level parses a level name, defaulting to info.
func Level(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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
