package sockjs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// URL grammar below the handler prefix. A session URL is exactly
// /<server>/<session>/<transport>: server and session segments must be
// non-empty and contain neither slashes nor dots, the transport name is
// a known lowercase word. Anything else under the prefix is a 404.
var (
	sessionRe = regexp.MustCompile(`^/([^/.]+)/([^/.]+)/([a-z0-9_]+)$`)
	iframeRe  = regexp.MustCompile(`^/iframe[\w.-]*\.html$`)
)

const oneYearSeconds = 365 * 24 * 60 * 60

// Handler serves one SockJS endpoint tree under a URL prefix and owns
// the sessions created through it. It implements http.Handler for the
// endpoint tree and service.Service for the session sweeper.
type Handler struct {
	prefix     string
	opts       Options
	handler    func(Session)
	registry   *registry
	upgrader   *websocket.Upgrader
	iframePage []byte
	iframeETag string
}

// NewHandler creates a handler serving the SockJS tree under prefix.
// Every started session is handed to fn on its own goroutine.
func NewHandler(prefix string, opts Options, fn func(Session)) *Handler {
	opts = opts.normalized()
	h := &Handler{
		prefix:   strings.TrimSuffix(prefix, "/"),
		opts:     opts,
		handler:  fn,
		registry: newRegistry(opts, fn),
		upgrader: newUpgrader(opts),
	}
	h.iframePage = renderIframe(opts.SockJSURL)
	h.iframeETag = pageETag(h.iframePage)
	return h
}

// Prefix returns the URL prefix the handler was mounted under.
func (h *Handler) Prefix() string {
	return h.prefix
}

// Options returns the normalized options the handler runs with.
func (h *Handler) Options() Options {
	return h.opts
}

// SessionCount reports currently registered sessions.
func (h *Handler) SessionCount() int {
	return h.registry.count()
}

// Run drives the session sweeper until ctx is done, then closes all
// remaining sessions with 3000/"Go away!".
func (h *Handler) Run(ctx context.Context) error {
	return h.registry.run(ctx)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, h.prefix)
	switch {
	case path == "" || path == "/":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		h.greeting(w)
	case path == "/info":
		switch r.Method {
		case http.MethodGet:
			h.infoHandler(w, r)
		case http.MethodOptions:
			h.infoOptions(w, r)
		default:
			methodNotAllowed(w, "OPTIONS, GET")
		}
	case iframeRe.MatchString(path):
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		h.iframeHandler(w, r)
	case path == "/websocket":
		if !h.opts.RawWebsocket {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		h.rawWebsocket(w, r)
	default:
		matches := sessionRe.FindStringSubmatch(path)
		if matches == nil {
			http.NotFound(w, r)
			return
		}
		// The server segment matches[1] only participates in the
		// grammar, sessions are keyed by the session segment alone.
		h.serveTransport(w, r, matches[3], matches[2])
	}
}

func (h *Handler) serveTransport(w http.ResponseWriter, r *http.Request, transport, sessionID string) {
	switch transport {
	case "websocket":
		if !h.opts.Websocket {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		h.sockjsWebsocket(w, r, sessionID)
	case "xhr_streaming":
		h.serveXHR(w, r, sessionID, h.xhrStreaming)
	case "xhr":
		h.serveXHR(w, r, sessionID, h.xhrPolling)
	case "xhr_send":
		h.serveXHR(w, r, sessionID, h.xhrSend)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) serveXHR(w http.ResponseWriter, r *http.Request, sessionID string, fn func(http.ResponseWriter, *http.Request, string)) {
	switch r.Method {
	case http.MethodPost:
		fn(w, r, sessionID)
	case http.MethodOptions:
		h.xhrOptions(w, r)
	default:
		methodNotAllowed(w, "OPTIONS, POST")
	}
}

func (h *Handler) greeting(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
	_, _ = io.WriteString(w, "Welcome to SockJS!\n")
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	w.WriteHeader(http.StatusMethodNotAllowed)
}

func writeNoCacheHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store, no-cache, no-transform, must-revalidate, max-age=0")
}

func writeCacheForHeaders(w http.ResponseWriter, seconds int) {
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", seconds))
	w.Header().Set("Expires", time.Now().Add(time.Duration(seconds)*time.Second).UTC().Format(http.TimeFormat))
	w.Header().Set("Access-Control-Max-Age", strconv.Itoa(seconds))
}
