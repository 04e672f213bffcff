package sockjs

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// Streaming responses start with 2049 bytes of prelude so proxies and
// browser XHR implementations start delivering the body immediately.
var xhrStreamingPrelude = strings.Repeat("h", 2048) + "\n"

func (h *Handler) xhrStreaming(w http.ResponseWriter, r *http.Request, sessionID string) {
	transportConnectCount.WithLabelValues(transportXHRStreaming).Inc()
	w.Header().Set("Content-Type", "application/javascript; charset=UTF-8")
	// Tell buffering reverse proxies to pass chunks through as they
	// are written, the prelude alone does not convince all of them.
	w.Header().Set("X-Accel-Buffering", "no")
	writeNoCacheHeaders(w)
	h.setAffinityCookie(w, r)
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, xhrStreamingPrelude); err != nil {
		return
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	h.serveHTTPReceiver(w, r, sessionID, h.opts.ResponseLimit, transportXHRStreaming)
}

func (h *Handler) xhrPolling(w http.ResponseWriter, r *http.Request, sessionID string) {
	transportConnectCount.WithLabelValues(transportXHRPolling).Inc()
	w.Header().Set("Content-Type", "application/javascript; charset=UTF-8")
	writeNoCacheHeaders(w)
	h.setAffinityCookie(w, r)
	w.WriteHeader(http.StatusOK)
	// Limit of one byte: the first frame, whatever it is, completes
	// the poll.
	h.serveHTTPReceiver(w, r, sessionID, 1, transportXHRPolling)
}

// serveHTTPReceiver attaches a response-backed receiver to the session
// and blocks until the response is complete or the client went away.
func (h *Handler) serveHTTPReceiver(w http.ResponseWriter, r *http.Request, sessionID string, limit int, transport string) {
	sess, _ := h.registry.getOrCreate(r, sessionID)
	recv := newHTTPReceiver(w, limit, transport)
	sess.attachReceiver(recv)
	select {
	case <-recv.doneNotify():
	case <-recv.interruptedNotify():
	case <-r.Context().Done():
		recv.interrupt()
	}
}

func (h *Handler) xhrSend(w http.ResponseWriter, r *http.Request, sessionID string) {
	sess := h.registry.get(sessionID)
	if sess == nil {
		http.NotFound(w, r)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Payload expected.", http.StatusInternalServerError)
		return
	}
	messages, err := decodeMessages(body)
	if err != nil {
		var decodeErr *DecodeError
		if errors.As(err, &decodeErr) && decodeErr.Offset > 0 {
			log.Debug().Str("session", sessionID).Int64("offset", decodeErr.Offset).
				Err(decodeErr.Err).Msg("malformed payload")
		}
		if len(body) == 0 {
			http.Error(w, "Payload expected.", http.StatusInternalServerError)
		} else {
			http.Error(w, "Broken JSON encoding.", http.StatusInternalServerError)
		}
		return
	}
	if err := sess.accept(messages...); err != nil {
		http.NotFound(w, r)
		return
	}
	transportMessagesReceived.WithLabelValues(transportXHRPolling).Add(float64(len(messages)))
	w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
	writeNoCacheHeaders(w)
	h.setAffinityCookie(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// xhrOptions answers CORS preflight requests for the xhr endpoints.
func (h *Handler) xhrOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Methods", "OPTIONS, POST")
	writeCacheForHeaders(w, oneYearSeconds)
	h.setAffinityCookie(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// setAffinityCookie emits the affinity cookie on HTTP transport
// responses when the handler runs in cookie_needed mode. An existing
// cookie value is echoed back so load balancers keep their mapping.
func (h *Handler) setAffinityCookie(w http.ResponseWriter, r *http.Request) {
	if !h.opts.CookieNeeded {
		return
	}
	cookie := &http.Cookie{Name: h.opts.AffinityCookie, Value: "dummy", Path: "/"}
	if c, err := r.Cookie(h.opts.AffinityCookie); err == nil && c.Value != "" {
		cookie.Value = c.Value
	}
	http.SetCookie(w, cookie)
}
