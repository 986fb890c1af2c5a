// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Setup builds a zerolog.Logger at the given level. In production
// (env == "production") it writes newline-delimited JSON to stdout; in
// any other environment it writes a colorized console format when
// stdout is a terminal, and plain text otherwise.
func Setup(level, env string) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(level))

	if strings.EqualFold(env, "production") {
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	writer := zerolog.ConsoleWriter{Out: consoleOut(), NoColor: !isatty.IsTerminal(os.Stdout.Fd()), TimeFormat: "15:04:05"}
	return zerolog.New(writer).With().Timestamp().Logger()
}

func consoleOut() io.Writer {
	if isatty.IsTerminal(os.Stdout.Fd()) {
		return colorable.NewColorableStdout()
	}
	return os.Stdout
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
