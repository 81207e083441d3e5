package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// return new console logger with <loglevel> debug,info,warn,error and
// optional key/value pairs added to every line, e.g. "component", "tracker"

func NewLogger(logLevel string, kv ...string) *zerolog.Logger {

	// Set log output format
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}
	for k := 0; k+1 < len(kv); k += 2 {
		logger = logger.With().Str(kv[k], kv[k+1]).Logger()
	}
	// Set log level, default info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	switch strings.ToLower(logLevel) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	}
	return &logger
}
