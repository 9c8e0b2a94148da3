package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger in dev and a JSON logger with app and env fields otherwise.
func New(env, level, appName string) (zerolog.Logger, error) {
	return newWithWriter(os.Stdout, env, level, appName)
}

func newWithWriter(w io.Writer, env, level, appName string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if env == "dev" {
		out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
		return zerolog.New(out).Level(lvl).With().
			Timestamp().
			Str("app", appName).
			Logger(), nil
	}

	zerolog.TimeFieldFormat = time.RFC3339
	return zerolog.New(w).Level(lvl).With().
		Timestamp().
		Str("app", appName).
		Str("env", env).
		Logger(), nil
}
