package sockjs

import (
	"bufio"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func postRequest(h *Handler, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, target, reader))
	return rec
}

func startServer(t *testing.T, opts Options, fn func(Session)) (*Handler, *httptest.Server) {
	t.Helper()
	if fn == nil {
		fn = echoSession
	}
	h := NewHandler("/echo", opts, fn)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return h, srv
}

func TestXHRPollingOpenFrame(t *testing.T) {
	h := newEchoHandler(Options{})
	rec := postRequest(h, "/echo/000/poll/xhr", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "o\n", rec.Body.String())
	require.Equal(t, "application/javascript; charset=UTF-8", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Cache-Control"), "no-store")
}

func TestXHRPollingRoundTrip(t *testing.T) {
	h := newEchoHandler(Options{})

	rec := postRequest(h, "/echo/000/rt/xhr", "")
	require.Equal(t, "o\n", rec.Body.String())

	rec = postRequest(h, "/echo/000/rt/xhr_send", `["ping"]`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "text/plain; charset=UTF-8", rec.Header().Get("Content-Type"))

	rec = postRequest(h, "/echo/000/rt/xhr", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "a[\"ping\"]\n", rec.Body.String())
}

func TestXHRSendBareString(t *testing.T) {
	h := newEchoHandler(Options{})

	postRequest(h, "/echo/000/bare/xhr", "")
	rec := postRequest(h, "/echo/000/bare/xhr_send", `"plain"`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = postRequest(h, "/echo/000/bare/xhr", "")
	require.Equal(t, "a[\"plain\"]\n", rec.Body.String())
}

func TestXHRSendUnknownSession(t *testing.T) {
	h := newEchoHandler(Options{})
	rec := postRequest(h, "/echo/000/missing/xhr_send", `["x"]`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestXHRSendEmptyPayload(t *testing.T) {
	h := newEchoHandler(Options{})
	postRequest(h, "/echo/000/empty/xhr", "")

	rec := postRequest(h, "/echo/000/empty/xhr_send", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Payload expected.\n", rec.Body.String())
}

func TestXHRSendBrokenJSON(t *testing.T) {
	h := newEchoHandler(Options{})
	postRequest(h, "/echo/000/broken/xhr", "")

	for _, payload := range []string{`["x"`, `[corrupted]`, `{"x":1}`} {
		rec := postRequest(h, "/echo/000/broken/xhr_send", payload)
		require.Equal(t, http.StatusInternalServerError, rec.Code, "payload %s", payload)
		require.Equal(t, "Broken JSON encoding.\n", rec.Body.String())
	}
}

func TestXHRSendClosedSession(t *testing.T) {
	h := NewHandler("/echo", Options{}, func(s Session) {
		_ = s.Close(StatusGoAway, ReasonGoAway)
	})

	rec := postRequest(h, "/echo/000/bye/xhr", "")
	require.Equal(t, "o\n", rec.Body.String())

	require.Eventually(t, func() bool {
		s := h.registry.get("bye")
		return s != nil && s.State() == StateClosing
	}, 2*time.Second, 5*time.Millisecond)

	rec = postRequest(h, "/echo/000/bye/xhr_send", `["x"]`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// The close frame is replayed on every following poll.
	rec = postRequest(h, "/echo/000/bye/xhr", "")
	require.Equal(t, "c[3000,\"Go away!\"]\n", rec.Body.String())
	rec = postRequest(h, "/echo/000/bye/xhr", "")
	require.Equal(t, "c[3000,\"Go away!\"]\n", rec.Body.String())
}

func TestXHRStreamingPreludeAndLimit(t *testing.T) {
	opts := Options{ResponseLimit: 1}
	h := newEchoHandler(opts)

	rec := postRequest(h, "/echo/000/stream/xhr_streaming", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, strings.Repeat("h", 2048)+"\n"+"o\n", rec.Body.String())
	require.Equal(t, "application/javascript; charset=UTF-8", rec.Header().Get("Content-Type"))
	require.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))
}

func TestXHROptionsPreflight(t *testing.T) {
	h := newEchoHandler(Options{})

	for _, target := range []string{"/echo/000/pre/xhr", "/echo/000/pre/xhr_streaming", "/echo/000/pre/xhr_send"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, target, nil))
		require.Equal(t, http.StatusNoContent, rec.Code, "target %s", target)
		require.Equal(t, "OPTIONS, POST", rec.Header().Get("Access-Control-Allow-Methods"))
		require.Equal(t, "31536000", rec.Header().Get("Access-Control-Max-Age"))
	}
}

func TestXHRCookieNeeded(t *testing.T) {
	h := newEchoHandler(Options{CookieNeeded: true})

	rec := postRequest(h, "/echo/000/cook/xhr", "")
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "JSESSIONID", cookies[0].Name)
	require.Equal(t, "dummy", cookies[0].Value)
	require.Equal(t, "/", cookies[0].Path)

	// An existing cookie value is echoed back.
	req := httptest.NewRequest(http.MethodPost, "/echo/000/cook/xhr", nil)
	req.AddCookie(&http.Cookie{Name: "JSESSIONID", Value: "abc"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "abc", cookies[0].Value)
}

func TestXHRNoCookieByDefault(t *testing.T) {
	h := newEchoHandler(Options{})
	rec := postRequest(h, "/echo/000/nocook/xhr", "")
	require.Empty(t, rec.Result().Cookies())
}

func TestXHRStreamingFlow(t *testing.T) {
	_, srv := startServer(t, Options{}, nil)

	resp, err := http.Post(srv.URL+"/echo/000/flow/xhr_streaming", "", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reader := bufio.NewReader(resp.Body)
	prelude, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("h", 2048)+"\n", prelude)

	open, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "o\n", open)

	sendResp, err := http.Post(srv.URL+"/echo/000/flow/xhr_send", "text/plain", strings.NewReader(`["hello"]`))
	require.NoError(t, err)
	_ = sendResp.Body.Close()
	require.Equal(t, http.StatusNoContent, sendResp.StatusCode)

	frame, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "a[\"hello\"]\n", frame)
}

func TestXHRStreamingResponseLimitEndsResponse(t *testing.T) {
	_, srv := startServer(t, Options{ResponseLimit: 8}, nil)

	resp, err := http.Post(srv.URL+"/echo/000/lim/xhr_streaming", "", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	reader := bufio.NewReader(resp.Body)
	_, err = reader.ReadString('\n') // prelude
	require.NoError(t, err)
	_, err = reader.ReadString('\n') // open frame
	require.NoError(t, err)

	sendResp, err := http.Post(srv.URL+"/echo/000/lim/xhr_send", "text/plain", strings.NewReader(`["123456"]`))
	require.NoError(t, err)
	_ = sendResp.Body.Close()

	frame, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "a[\"123456\"]\n", frame)

	// The frame pushed the response over the limit, the server must
	// finish it so the client reconnects for the rest.
	_, err = reader.ReadString('\n')
	require.ErrorIs(t, err, io.EOF)
}

func TestXHRStreamingReceiverConflict(t *testing.T) {
	_, srv := startServer(t, Options{}, nil)

	first, err := http.Post(srv.URL+"/echo/000/conf/xhr_streaming", "", nil)
	require.NoError(t, err)
	defer func() { _ = first.Body.Close() }()
	firstReader := bufio.NewReader(first.Body)
	_, err = firstReader.ReadString('\n') // prelude
	require.NoError(t, err)
	open, err := firstReader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "o\n", open)

	second, err := http.Post(srv.URL+"/echo/000/conf/xhr_streaming", "", nil)
	require.NoError(t, err)
	defer func() { _ = second.Body.Close() }()
	secondReader := bufio.NewReader(second.Body)
	_, err = secondReader.ReadString('\n') // prelude
	require.NoError(t, err)
	frame, err := secondReader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "c[2010,\"Another connection still open\"]\n", frame)
	_, err = secondReader.ReadString('\n')
	require.ErrorIs(t, err, io.EOF)
}

func TestXHRStreamingHeartbeat(t *testing.T) {
	_, srv := startServer(t, Options{HeartbeatDelay: 25 * time.Millisecond}, nil)

	resp, err := http.Post(srv.URL+"/echo/000/hb/xhr_streaming", "", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	reader := bufio.NewReader(resp.Body)
	_, err = reader.ReadString('\n') // prelude
	require.NoError(t, err)
	_, err = reader.ReadString('\n') // open frame
	require.NoError(t, err)

	frame, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "h\n", frame)
}

func TestXHRStreamingClientDisconnect(t *testing.T) {
	h, srv := startServer(t, Options{}, nil)

	resp, err := http.Post(srv.URL+"/echo/000/gone/xhr_streaming", "", nil)
	require.NoError(t, err)
	reader := bufio.NewReader(resp.Body)
	_, err = reader.ReadString('\n')
	require.NoError(t, err)
	_ = resp.Body.Close()

	// A receiver arriving after the interrupt observes 1002 and the
	// session is disposed.
	require.Eventually(t, func() bool {
		rec := postRequest(h, "/echo/000/gone/xhr", "")
		return rec.Body.String() == "c[1002,\"Connection interrupted\"]\n"
	}, 2*time.Second, 20*time.Millisecond)
}
