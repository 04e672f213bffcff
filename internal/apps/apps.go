package apps

import (
	"net/http"

	"github.com/sockbridge/sockbridge/internal/config"
	"github.com/sockbridge/sockbridge/internal/configtypes"
	"github.com/sockbridge/sockbridge/internal/sockjs"
)

// App couples a mounted SockJS handler with its config section name.
type App struct {
	Name    string
	Handler *sockjs.Handler
}

// Build constructs a handler for every application enabled in cfg.
func Build(cfg config.Config, checkOrigin func(*http.Request) bool) []App {
	var apps []App
	add := func(name string, appCfg configtypes.App, fn func(sockjs.Session)) {
		if !appCfg.Enabled {
			return
		}
		opts := buildOptions(cfg, appCfg, checkOrigin)
		apps = append(apps, App{
			Name:    name,
			Handler: sockjs.NewHandler(appCfg.HandlerPrefix, opts, fn),
		})
	}
	add("echo", cfg.Echo, Echo)
	add("close", cfg.Close, Close)
	add("disabled_websocket_echo", cfg.DisabledWebsocketEcho, Echo)
	add("cookie_needed_echo", cfg.CookieNeededEcho, Echo)
	return apps
}

// Echo sends every received message back into the session, preserving
// order, until the session ends.
func Echo(s sockjs.Session) {
	for {
		msg, err := s.Recv()
		if err != nil {
			return
		}
		if err := s.Send(msg); err != nil {
			return
		}
	}
}

// Close closes every session as soon as it opens.
func Close(s sockjs.Session) {
	_ = s.Close(sockjs.StatusGoAway, sockjs.ReasonGoAway)
}

func buildOptions(cfg config.Config, appCfg configtypes.App, checkOrigin func(*http.Request) bool) sockjs.Options {
	sj := cfg.SockJS
	opts := sockjs.Options{
		SockJSURL:        sj.URL,
		Websocket:        !appCfg.DisableWebsocket,
		RawWebsocket:     !appCfg.DisableWebsocket,
		CookieNeeded:     appCfg.CookieNeeded,
		HeartbeatDelay:   sj.HeartbeatInterval.ToDuration(),
		DisconnectDelay:  sj.SessionTimeout.ToDuration(),
		SweepInterval:    sj.SweepInterval.ToDuration(),
		ResponseLimit:    sj.MaxBytesStreaming,
		SendQueueMaxSize: sj.SendQueueMaxSize,
		MessageSizeLimit: sj.MessageSizeLimit,
		AffinityCookie:   sj.AffinityCookie,
		WriteTimeout:     sj.WriteTimeout.ToDuration(),
		CheckOrigin:      checkOrigin,

		WebsocketReadBufferSize:     sj.WebSocket.ReadBufferSize,
		WebsocketWriteBufferSize:    sj.WebSocket.WriteBufferSize,
		WebsocketUseWriteBufferPool: sj.WebSocket.UseWriteBufferPool,
		WebsocketCompression:        sj.WebSocket.Compression,
	}
	if appCfg.MaxBytesStreaming > 0 {
		opts.ResponseLimit = appCfg.MaxBytesStreaming
	}
	if sj.ReceiverConflict == "evict" {
		opts.ReceiverConflict = sockjs.ConflictEvict
	}
	return opts
}
