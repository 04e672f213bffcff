package app

import (
	stdlog "log"
	"net"
	"net/http"
	"net/http/pprof"
	"strconv"
	"strings"

	"github.com/sockbridge/sockbridge/internal/apps"
	"github.com/sockbridge/sockbridge/internal/config"
	"github.com/sockbridge/sockbridge/internal/health"
	"github.com/sockbridge/sockbridge/internal/logging"
	"github.com/sockbridge/sockbridge/internal/middleware"
	"github.com/sockbridge/sockbridge/internal/origin"

	"github.com/justinas/alice"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// HandlerFlag selects the handlers a mux serves.
type HandlerFlag int

const (
	// HandlerApps enables SockJS application endpoints.
	HandlerApps HandlerFlag = 1 << iota
	// HandlerDebug enables debug handlers.
	HandlerDebug
	// HandlerPrometheus enables Prometheus handler.
	HandlerPrometheus
	// HandlerHealth enables health check endpoint.
	HandlerHealth
)

var handlerText = map[HandlerFlag]string{
	HandlerApps:       "apps",
	HandlerDebug:      "debug",
	HandlerPrometheus: "prometheus",
	HandlerHealth:     "health",
}

func (flags HandlerFlag) String() string {
	order := []HandlerFlag{HandlerApps, HandlerPrometheus, HandlerDebug, HandlerHealth}
	var parts []string
	for _, flag := range order {
		if flags&flag != 0 {
			parts = append(parts, handlerText[flag])
		}
	}
	return strings.Join(parts, ", ")
}

// Mux returns a mux with the set of handlers selected by flags.
func Mux(cfgContainer *config.Container, appHandlers []apps.App, flags HandlerFlag) *http.ServeMux {
	mux := http.NewServeMux()
	cfg := cfgContainer.Config()

	var commonMiddlewares []alice.Constructor
	if logging.Enabled(zerolog.DebugLevel) {
		commonMiddlewares = append(commonMiddlewares, middleware.LogRequest)
	}
	basicChain := alice.New(commonMiddlewares...)

	if flags&HandlerDebug != 0 {
		debugPrefix := cfg.Debug.HandlerPrefix
		mux.Handle(debugPrefix+"/", basicChain.Then(http.HandlerFunc(pprof.Index)))
		for suffix, h := range map[string]http.HandlerFunc{
			"/cmdline": pprof.Cmdline,
			"/profile": pprof.Profile,
			"/symbol":  pprof.Symbol,
			"/trace":   pprof.Trace,
		} {
			mux.Handle(debugPrefix+suffix, basicChain.Then(h))
		}
	}

	if flags&HandlerApps != 0 {
		connMiddlewares := append([]alice.Constructor{}, commonMiddlewares...)
		if cfg.Client.ConnectionRateLimit > 0 {
			connLimit := middleware.NewConnLimit(cfgContainer)
			connMiddlewares = append(connMiddlewares, connLimit.Middleware)
		}
		connMiddlewares = append(connMiddlewares, middleware.NewCORS(GetCheckOrigin(cfg)).Middleware)
		connChain := alice.New(connMiddlewares...)

		// Each application is mounted both at its prefix and at the
		// subtree below it, session URLs live in the subtree.
		for _, a := range appHandlers {
			prefix := a.Handler.Prefix()
			mux.Handle(prefix, connChain.Then(a.Handler))
			mux.Handle(prefix+"/", connChain.Then(a.Handler))
		}
	}

	getOnlyChain := basicChain.Append(middleware.Method(http.MethodGet))

	if flags&HandlerPrometheus != 0 {
		prometheusPrefix := strings.TrimRight(cfg.Prometheus.HandlerPrefix, "/")
		if prometheusPrefix == "" {
			prometheusPrefix = "/"
		}
		mux.Handle(prometheusPrefix, getOnlyChain.Then(promhttp.Handler()))
	}

	if flags&HandlerHealth != 0 {
		healthPrefix := strings.TrimRight(cfg.Health.HandlerPrefix, "/")
		if healthPrefix == "" {
			healthPrefix = "/"
		}
		mux.Handle(healthPrefix, getOnlyChain.Then(health.NewHandler()))
	}

	return mux
}

// GetCheckOrigin builds an origin check function from the configured
// allowed origin patterns.
func GetCheckOrigin(cfg config.Config) func(r *http.Request) bool {
	checker, err := origin.NewChecker(cfg.Client.AllowedOrigins)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating origin checker")
	}
	return func(r *http.Request) bool {
		err := checker.Check(r)
		if err != nil {
			log.Info().Str("origin", r.Header.Get("Origin")).Err(err).Msg("request origin not allowed")
			return false
		}
		return true
	}
}

// runHTTPServers starts one HTTP server per distinct listen address.
// Apps are served on the external address, operational endpoints on the
// internal one. When both resolve to the same address a single server
// carries everything.
func runHTTPServers(cfgContainer *config.Container, appHandlers []apps.App) ([]*http.Server, error) {
	cfg := cfgContainer.Config()

	externalAddr := net.JoinHostPort(cfg.HTTP.Address, strconv.Itoa(cfg.HTTP.Port))

	internalAddress := cfg.HTTP.InternalAddress
	if internalAddress == "" {
		internalAddress = cfg.HTTP.Address
	}
	internalPort := cfg.HTTP.InternalPort
	if internalPort == "" {
		internalPort = strconv.Itoa(cfg.HTTP.Port)
	}
	internalAddr := net.JoinHostPort(internalAddress, internalPort)

	addrFlags := map[string]HandlerFlag{externalAddr: HandlerApps}

	internalFlags := addrFlags[internalAddr]
	if cfg.Prometheus.Enabled {
		internalFlags |= HandlerPrometheus
	}
	if cfg.Debug.Enabled {
		internalFlags |= HandlerDebug
	}
	if cfg.Health.Enabled {
		internalFlags |= HandlerHealth
	}
	addrFlags[internalAddr] = internalFlags

	var servers []*http.Server
	for addr, flags := range addrFlags {
		if flags == 0 {
			continue
		}
		mux := Mux(cfgContainer, appHandlers, flags)
		log.Info().Msgf("serving %s endpoints on %s", flags, addr)

		server := &http.Server{
			Addr:     addr,
			Handler:  mux,
			ErrorLog: stdlog.New(&httpErrorLogWriter{Logger: log.Logger}, "", 0),
		}
		servers = append(servers, server)

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal().Err(err).Msg("error ListenAndServe")
			}
		}()
	}
	return servers, nil
}
