// Package logging configures the global zerolog logger.
package logging

import (
	"os"
	"runtime"
	"strings"

	"github.com/sockbridge/sockbridge/internal/config"
	"github.com/sockbridge/sockbridge/internal/logutils"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var levelByName = map[string]zerolog.Level{
	"none":  zerolog.NoLevel,
	"trace": zerolog.TraceLevel,
	"debug": zerolog.DebugLevel,
	"info":  zerolog.InfoLevel,
	"warn":  zerolog.WarnLevel,
	"error": zerolog.ErrorLevel,
	"fatal": zerolog.FatalLevel,
}

// Setup configures the global zerolog logger according to config. The
// returned function closes the log file (if any) and must be called on
// shutdown.
func Setup(cfg config.Config) func() {
	// Pretty print when attached to a terminal, except on Windows where
	// ANSI colors do not render.
	if isatty.IsTerminal(os.Stdout.Fd()) && runtime.GOOS != "windows" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:                 os.Stdout,
			TimeFormat:          "2006-01-02 15:04:05",
			FormatLevel:         logutils.ConsoleFormatLevel(),
			FormatErrFieldName:  logutils.ConsoleFormatErrFieldName(),
			FormatErrFieldValue: logutils.ConsoleFormatErrFieldValue(),
		})
	}
	SetLevel(cfg.Log.Level)

	if cfg.Log.File == "" {
		return nil
	}
	f, err := os.OpenFile(cfg.Log.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		log.Fatal().Msgf("error opening log file: %v", err)
	}
	log.Logger = log.Output(f)
	return func() {
		_ = f.Close()
	}
}

// SetLevel sets the global logging level. Unknown level names fall back
// to info. Used on setup and on config reload.
func SetLevel(level string) {
	l, ok := levelByName[strings.ToLower(level)]
	if !ok {
		l = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(l)
}

// Enabled reports whether messages at the given level are emitted.
func Enabled(level zerolog.Level) bool {
	return level >= zerolog.GlobalLevel()
}
