package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultFile is the log stream written next to the binary when no path is configured.
const DefaultFile = "app.log"

// Options controls logger initialization.
type Options struct {
	// Level is debug, info, warn, or error. Empty falls back to
	// PHOTO_BACKUP_LOG_LEVEL, then info.
	Level string
	// File, when set, receives an append-only plain-text copy of every record.
	File string
}

// Init configures the global zerolog logger. The returned closer releases the
// log file and is safe to call when no file was opened.
func Init(opts Options) (io.Closer, error) {
	level := opts.Level
	if level == "" {
		level = os.Getenv("PHOTO_BACKUP_LOG_LEVEL")
	}
	zerolog.SetGlobalLevel(parseLevel(level))

	console := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: !colorTerminal(os.Stderr)}
	if opts.File == "" {
		log.Logger = zerolog.New(console).With().Timestamp().Logger()
		return nopCloser{}, nil
	}

	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Logger = zerolog.New(console).With().Timestamp().Logger()
		return nopCloser{}, fmt.Errorf("open log file %s: %w", opts.File, err)
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(console, FileWriter(f))).With().Timestamp().Logger()
	return f, nil
}

// FileWriter renders records as "timestamp - LEVEL - message key=value" lines
// without colour, the format Tail hands back to callers.
func FileWriter(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: time.DateTime,
		FormatLevel: func(i any) string {
			if s, ok := i.(string); ok {
				return "- " + strings.ToUpper(s) + " -"
			}
			return "- ??? -"
		},
	}
}

// colorTerminal reports whether f is an interactive terminal. Lambda and
// redirected output get plain text.
func colorTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
