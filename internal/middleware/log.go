package middleware

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogRequest logs every request with its status, response size and
// duration. Only active on debug level, transport endpoints are too
// chatty for anything above it.
func LogRequest(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if zerolog.GlobalLevel() > zerolog.DebugLevel {
			h.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		lrw := &logResponseWriter{ResponseWriter: w}
		h.ServeHTTP(lrw, r)
		log.Debug().
			Str("method", r.Method).
			Int("status", lrw.Status()).
			Str("path", r.URL.Path).
			Str("addr", clientAddr(r)).
			Int("written", lrw.written).
			Str("duration", time.Since(start).String()).
			Msg("http request")
	})
}

func clientAddr(r *http.Request) string {
	if addr := r.Header.Get("X-Real-IP"); addr != "" {
		return addr
	}
	if addr := r.Header.Get("X-Forwarded-For"); addr != "" {
		return addr
	}
	return r.RemoteAddr
}

// logResponseWriter remembers status and body size. It keeps Hijacker
// for websocket upgrades and Flusher for streaming responses working.
type logResponseWriter struct {
	http.ResponseWriter
	status  int
	written int
}

func (lrw *logResponseWriter) WriteHeader(status int) {
	lrw.status = status
	lrw.ResponseWriter.WriteHeader(status)
}

func (lrw *logResponseWriter) Write(data []byte) (int, error) {
	n, err := lrw.ResponseWriter.Write(data)
	lrw.written += n
	return n, err
}

// Status reports the written status code, 200 if the handler never
// called WriteHeader explicitly.
func (lrw *logResponseWriter) Status() int {
	if lrw.status == 0 {
		return http.StatusOK
	}
	return lrw.status
}

func (lrw *logResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := lrw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("ResponseWriter doesn't support Hijacker interface")
	}
	lrw.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func (lrw *logResponseWriter) Flush() {
	lrw.ResponseWriter.(http.Flusher).Flush()
}
