package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const consoleTimeFormat = "15:04:05"

// New constructs a zerolog logger according to the runtime environment.
// Development environments get human readable console logs, others JSON.
// Logs go to stderr unless writers are supplied: stdout is reserved for the
// workflow result.
func New(env, level string, writers ...io.Writer) (*zerolog.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond

	var output io.Writer = os.Stderr
	if len(writers) > 0 {
		output = io.MultiWriter(writers...)
	}
	if isDevelopment(env) {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: consoleTimeFormat, NoColor: true}
	}

	logger := zerolog.New(output).With().Timestamp().Logger().Level(lvl)
	return &logger, nil
}

// Fallback returns a logger for failures that happen before configuration is
// available.
func Fallback() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func isDevelopment(env string) bool {
	return strings.EqualFold(env, "development") || strings.EqualFold(env, "dev")
}

func parseLevel(level string) (zerolog.Level, error) {
	level = strings.TrimSpace(level)
	if level == "" {
		level = zerolog.InfoLevel.String()
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.NoLevel, err
	}
	return lvl, nil
}
