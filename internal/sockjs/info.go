package sockjs

import (
	"math/rand"
	"net/http"

	segjson "github.com/segmentio/encoding/json"
)

type infoData struct {
	Websocket    bool     `json:"websocket"`
	CookieNeeded bool     `json:"cookie_needed"`
	Origins      []string `json:"origins"`
	Entropy      uint32   `json:"entropy"`
}

// infoHandler reports transport capabilities to the client before it
// picks one. Entropy seeds the client random generator, a fresh value
// per response.
func (h *Handler) infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	writeNoCacheHeaders(w)
	b, err := segjson.Marshal(infoData{
		Websocket:    h.opts.Websocket,
		CookieNeeded: h.opts.CookieNeeded,
		Origins:      []string{"*:*"},
		Entropy:      rand.Uint32(),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(b)
}

func (h *Handler) infoOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Methods", "OPTIONS, GET")
	writeCacheForHeaders(w, oneYearSeconds)
	w.WriteHeader(http.StatusNoContent)
}
