package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sockbridge/sockbridge/internal/apps"
	"github.com/sockbridge/sockbridge/internal/build"
	"github.com/sockbridge/sockbridge/internal/config"
	"github.com/sockbridge/sockbridge/internal/logging"
	"github.com/sockbridge/sockbridge/internal/service"
	"github.com/sockbridge/sockbridge/internal/tools"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

func Run(cmd *cobra.Command, configFile string) {
	dotEnvLoaded := false
	if tools.FileExists(".env") {
		if err := godotenv.Load(); err != nil {
			log.Fatal().Err(err).Msg("error loading .env file")
		}
		dotEnvLoaded = true
	}

	cfg, meta, err := config.GetConfig(cmd, configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("error getting config")
	}

	closeLog := logging.Setup(cfg)
	if closeLog != nil {
		defer closeLog()
	}

	if meta.FileNotFound {
		log.Warn().Msg("config file not found, proceeding with environment and flag options")
	} else {
		absPath, _ := filepath.Abs(configFile)
		log.Info().Str("path", absPath).Msg("using config file")
		if dotEnvLoaded {
			log.Info().Msg("environment variables have been loaded from .env file")
		}
	}

	if err := tools.WritePidFile(cfg.PidFile); err != nil {
		log.Fatal().Err(err).Msg("error writing PID")
	}
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		log.Info().Msgf(strings.ToLower(format), args...)
	}))

	log.Info().
		Str("version", build.Version).
		Str("runtime", runtime.Version()).
		Int("pid", os.Getpid()).
		Int("gomaxprocs", runtime.GOMAXPROCS(0)).
		Msg("starting Sockbridge")

	if build.Version == "0.0.0" {
		log.Warn().Msg("this is a development build, use a release build in production")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("error validating config")
	}
	cfgContainer, err := config.NewContainer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating config container")
	}

	appHandlers := apps.Build(cfg, GetCheckOrigin(cfg))
	if len(appHandlers) == 0 {
		log.Fatal().Msg("no applications enabled, nothing to serve")
	}
	for _, a := range appHandlers {
		log.Info().Str("app", a.Name).Str("prefix", a.Handler.Prefix()).Msg("serving application")
	}

	// Services run before HTTP servers start accepting and stop as part
	// of shutdown. Session handlers implement the service interface to
	// run their idle sweep loops.
	ctx, serviceCancel := context.WithCancel(context.Background())
	defer serviceCancel()
	serviceManager := service.NewManager()
	for _, a := range appHandlers {
		serviceManager.Register(a.Handler)
	}
	serviceManager.Run(ctx)

	httpServers, err := runHTTPServers(cfgContainer, appHandlers)
	if err != nil {
		log.Fatal().Err(err).Msg("error running HTTP server")
	}

	logStartWarnings(cfg, meta)

	handleSignals(cmd, configFile, cfgContainer, httpServers, serviceManager, serviceCancel)
}

func handleSignals(
	cmd *cobra.Command, configFile string, cfgContainer *config.Container,
	httpServers []*http.Server, serviceManager *service.Manager, serviceCancel context.CancelFunc,
) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, os.Interrupt, syscall.SIGTERM)
	for sig := range sigCh {
		log.Info().Msgf("signal received: %v", sig)
		if sig == syscall.SIGHUP {
			reloadConfig(cmd, configFile, cfgContainer)
			continue
		}
		shutdown(cfgContainer.Config(), httpServers, serviceManager, serviceCancel)
	}
}

// reloadConfig re-reads configuration and applies what can change at
// runtime: the log level plus everything read through the config
// Container. Session handlers keep the options they were built with.
func reloadConfig(cmd *cobra.Command, configFile string, cfgContainer *config.Container) {
	log.Info().Msg("reloading configuration")
	cfg, _, err := config.GetConfig(cmd, configFile)
	if err != nil {
		log.Error().Err(err).Msg("error reading config")
		return
	}
	// Reload validates before swapping the config in.
	if err := cfgContainer.Reload(cfg); err != nil {
		log.Error().Err(err).Msg("error reloading config")
		return
	}
	logging.SetLevel(cfg.Log.Level)
	log.Info().Msg("configuration successfully reloaded")
}

// shutdown stops session services and HTTP servers, removes the pid
// file and exits. A watchdog force-exits when the shutdown timeout is
// reached.
func shutdown(cfg config.Config, servers []*http.Server, serviceManager *service.Manager, serviceCancel context.CancelFunc) {
	log.Info().Msg("shutting down ...")
	pidFile := cfg.PidFile
	time.AfterFunc(cfg.HTTP.ShutdownTimeout.ToDuration(), func() {
		if pidFile != "" {
			_ = os.Remove(pidFile)
		}
		log.Fatal().Msg("shutdown timeout reached")
	})

	// Closing sessions first releases streaming responses held by
	// transports, otherwise server Shutdown waits for them until the
	// timeout.
	serviceCancel()

	var wg sync.WaitGroup
	for _, srv := range servers {
		wg.Add(1)
		go func(srv *http.Server) {
			defer wg.Done()
			_ = srv.Shutdown(context.Background())
		}(srv)
	}
	wg.Wait()
	_ = serviceManager.Wait()

	if pidFile != "" {
		_ = os.Remove(pidFile)
	}
	os.Exit(0)
}
