package sockjs

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// echoSession is the application function used by transport tests.
func echoSession(s Session) {
	for {
		msg, err := s.Recv()
		if err != nil {
			return
		}
		if s.Send(msg) != nil {
			return
		}
	}
}

func newEchoHandler(opts Options) *Handler {
	return NewHandler("/echo", opts, echoSession)
}

func serveRequest(h *Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHandlerGreeting(t *testing.T) {
	h := newEchoHandler(Options{})

	for _, target := range []string{"/echo", "/echo/"} {
		rec := serveRequest(h, http.MethodGet, target)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "Welcome to SockJS!\n", rec.Body.String())
		require.Equal(t, "text/plain; charset=UTF-8", rec.Header().Get("Content-Type"))
	}

	rec := serveRequest(h, http.MethodPost, "/echo")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, http.MethodGet, rec.Header().Get("Allow"))
}

func TestHandlerNotFound(t *testing.T) {
	h := newEchoHandler(Options{})

	targets := []string{
		"/echo/a",
		"/echo/a.html",
		"/echo/a/a",
		"/echo/a/a/",
		"/echo/a/",
		"/echo//",
		"/echo///",
		"/echo/000/se.ssion/xhr",
		"/echo/000/session/bogus_transport",
		"/echo/000/session/XHR",
		"/echo/000/session/xhr/extra",
	}
	for _, target := range targets {
		rec := serveRequest(h, http.MethodGet, target)
		require.Equal(t, http.StatusNotFound, rec.Code, "target %s", target)
	}
}

func TestHandlerInfo(t *testing.T) {
	h := newEchoHandler(Options{Websocket: true})

	rec := serveRequest(h, http.MethodGet, "/echo/info")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json; charset=UTF-8", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Cache-Control"), "no-store")

	var info struct {
		Websocket    bool     `json:"websocket"`
		CookieNeeded bool     `json:"cookie_needed"`
		Origins      []string `json:"origins"`
		Entropy      *uint32  `json:"entropy"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	require.True(t, info.Websocket)
	require.False(t, info.CookieNeeded)
	require.Equal(t, []string{"*:*"}, info.Origins)
	require.NotNil(t, info.Entropy)
}

func TestHandlerInfoEntropyVaries(t *testing.T) {
	h := newEchoHandler(Options{})

	entropy := func() uint32 {
		rec := serveRequest(h, http.MethodGet, "/echo/info")
		var info struct {
			Entropy uint32 `json:"entropy"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
		return info.Entropy
	}
	first := entropy()
	for i := 0; i < 8; i++ {
		if entropy() != first {
			return
		}
	}
	require.Fail(t, "entropy must differ between responses")
}

func TestHandlerInfoReflectsOptions(t *testing.T) {
	h := newEchoHandler(Options{Websocket: false, CookieNeeded: true})
	rec := serveRequest(h, http.MethodGet, "/echo/info")

	var info struct {
		Websocket    bool `json:"websocket"`
		CookieNeeded bool `json:"cookie_needed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	require.False(t, info.Websocket)
	require.True(t, info.CookieNeeded)
}

func TestHandlerInfoOptions(t *testing.T) {
	h := newEchoHandler(Options{})
	rec := serveRequest(h, http.MethodOptions, "/echo/info")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "OPTIONS, GET", rec.Header().Get("Access-Control-Allow-Methods"))
	require.Equal(t, "31536000", rec.Header().Get("Access-Control-Max-Age"))
	require.Contains(t, rec.Header().Get("Cache-Control"), "public")
	require.NotEmpty(t, rec.Header().Get("Expires"))

	rec = serveRequest(h, http.MethodPut, "/echo/info")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "OPTIONS, GET", rec.Header().Get("Allow"))
}

func TestHandlerIframe(t *testing.T) {
	h := newEchoHandler(Options{SockJSURL: "https://cdn.example.com/sockjs.min.js"})

	for _, target := range []string{"/echo/iframe.html", "/echo/iframe-abc_123.html"} {
		rec := serveRequest(h, http.MethodGet, target)
		require.Equal(t, http.StatusOK, rec.Code, "target %s", target)
		require.Equal(t, "text/html; charset=UTF-8", rec.Header().Get("Content-Type"))
		require.Contains(t, rec.Body.String(), "https://cdn.example.com/sockjs.min.js")
		require.Contains(t, rec.Body.String(), "SockJS.bootstrap_iframe();")
		require.NotEmpty(t, rec.Header().Get("ETag"))
	}
}

func TestHandlerIframeNotModified(t *testing.T) {
	h := newEchoHandler(Options{})

	rec := serveRequest(h, http.MethodGet, "/echo/iframe.html")
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/echo/iframe.html", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotModified, rec.Code)
	require.Empty(t, rec.Body.String())
}

func TestHandlerIframeWrongSuffix(t *testing.T) {
	h := newEchoHandler(Options{})
	rec := serveRequest(h, http.MethodGet, "/echo/iframe.htm")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerTransportMethods(t *testing.T) {
	h := newEchoHandler(Options{Websocket: true})

	rec := serveRequest(h, http.MethodGet, "/echo/000/session/xhr")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "OPTIONS, POST", rec.Header().Get("Allow"))

	rec = serveRequest(h, http.MethodGet, "/echo/000/session/xhr_send")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "OPTIONS, POST", rec.Header().Get("Allow"))

	rec = serveRequest(h, http.MethodPost, "/echo/000/session/websocket")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, http.MethodGet, rec.Header().Get("Allow"))
}

func TestHandlerWebsocketUpgradeRequired(t *testing.T) {
	h := newEchoHandler(Options{Websocket: true})
	rec := serveRequest(h, http.MethodGet, "/echo/000/session/websocket")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `Can "Upgrade" only to "WebSocket".`)
}

func TestHandlerWebsocketDisabled(t *testing.T) {
	h := newEchoHandler(Options{Websocket: false, RawWebsocket: false})

	rec := serveRequest(h, http.MethodGet, "/echo/000/session/websocket")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = serveRequest(h, http.MethodGet, "/echo/websocket")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerPrefixNormalized(t *testing.T) {
	h := NewHandler("/echo/", Options{}, echoSession)
	require.Equal(t, "/echo", h.Prefix())

	rec := serveRequest(h, http.MethodGet, "/echo/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Welcome to SockJS!\n", rec.Body.String())
}

func TestHandlerOptionsNormalized(t *testing.T) {
	h := NewHandler("/echo", Options{}, echoSession)
	opts := h.Options()
	require.Equal(t, DefaultOptions.HeartbeatDelay, opts.HeartbeatDelay)
	require.Equal(t, DefaultOptions.ResponseLimit, opts.ResponseLimit)
	require.Equal(t, DefaultOptions.AffinityCookie, opts.AffinityCookie)
}

func TestHandlerSessionCount(t *testing.T) {
	h := newEchoHandler(Options{})
	require.Equal(t, 0, h.SessionCount())

	rec := serveRequest(h, http.MethodPost, "/echo/000/count-me/xhr")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "o\n", rec.Body.String())
	require.Equal(t, 1, h.SessionCount())
}
