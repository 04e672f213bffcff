// Package logutils holds formatters for the zerolog console writer.
package logutils

import (
	"fmt"

	"github.com/rs/zerolog"
)

// ANSI SGR codes used for the level column.
const (
	ansiBold    = 1
	ansiRed     = 31
	ansiGreen   = 32
	ansiYellow  = 33
	ansiMagenta = 35
	ansiCyan    = 36
)

func styled(label string, codes ...int) string {
	for _, c := range codes {
		label = fmt.Sprintf("\x1b[%dm%s\x1b[0m", c, label)
	}
	return label
}

var levelLabels = map[string]string{
	zerolog.LevelTraceValue: styled("TRC", ansiCyan),
	zerolog.LevelDebugValue: styled("DBG", ansiMagenta),
	zerolog.LevelInfoValue:  styled("INF", ansiGreen),
	zerolog.LevelWarnValue:  styled("WRN", ansiYellow),
	zerolog.LevelErrorValue: styled("ERR", ansiRed),
	zerolog.LevelFatalValue: styled("FTL", ansiRed, ansiBold),
}

// ConsoleFormatLevel colors the three letter level label in console
// output.
func ConsoleFormatLevel() zerolog.Formatter {
	return func(i interface{}) string {
		if s, ok := i.(string); ok {
			if label, ok := levelLabels[s]; ok {
				return label
			}
		}
		return styled("???", ansiBold)
	}
}

// ConsoleFormatErrFieldName renders the error field name without the
// default console writer coloring.
func ConsoleFormatErrFieldName() zerolog.Formatter {
	return func(i interface{}) string {
		return fmt.Sprintf("%s=", i)
	}
}

// ConsoleFormatErrFieldValue renders the error value as plain text.
func ConsoleFormatErrFieldValue() zerolog.Formatter {
	return func(i interface{}) string {
		return fmt.Sprintf("%s", i)
	}
}
