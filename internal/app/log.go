package app

import (
	"strings"

	"github.com/sockbridge/sockbridge/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// logStartWarnings surfaces configuration that is valid but probably
// not what an operator wants in production.
func logStartWarnings(cfg config.Config, meta config.Meta) {
	for _, origin := range cfg.Client.AllowedOrigins {
		if origin == "*" {
			log.Warn().Msg("any Origin allowed for cross domain requests")
		}
	}
	if cfg.Debug.Enabled {
		log.Warn().Str("prefix", cfg.Debug.HandlerPrefix).Msg("DEBUG mode enabled")
	}
	for _, key := range meta.UnknownKeys {
		log.Warn().Str("key", key).Msg("unknown key in configuration file")
	}
}

// httpErrorLogWriter routes net/http server error output into zerolog.
type httpErrorLogWriter struct {
	zerolog.Logger
}

func (w *httpErrorLogWriter) Write(p []byte) (int, error) {
	w.Logger.Warn().Msg(strings.TrimSpace(string(p)))
	return len(p), nil
}
