// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// FormatJSON selects JSON lines; any other format uses the console writer.
const FormatJSON = "json"

// Init sets the global level and output format and returns the logger it
// installed as log.Logger. Unknown levels fall back to info.
func Init(level, format string) zerolog.Logger {
	return initWithWriter(level, format, os.Stdout)
}

func initWithWriter(level, format string, out io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var zl zerolog.Logger
	if strings.ToLower(format) == FormatJSON {
		zl = zerolog.New(out)
	} else {
		zl = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen})
	}
	zl = zl.With().Timestamp().Logger()

	log.Logger = zl
	return zl
}
