// Package health exposes the liveness endpoint.
package health

import "net/http"

// Handler answers liveness probes. The body is an empty JSON object so
// the endpoint can grow richer payloads without breaking probes that
// parse it.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{}`))
}
