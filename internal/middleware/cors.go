package middleware

import "net/http"

type OriginCheck func(r *http.Request) bool

// CORS middleware for SockJS endpoints. Responses echo the request
// Origin so browsers accept them with credentials. Requests without an
// Origin, or with the literal "null" one (file:// pages, sandboxed
// iframes), get a wildcard and no credentials flag, which is the only
// combination working for such clients.
type CORS struct {
	originCheck OriginCheck
}

func NewCORS(originCheck OriginCheck) *CORS {
	return &CORS{originCheck: originCheck}
}

func (c *CORS) Middleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		origin := r.Header.Get("origin")
		if origin == "" || origin == "null" {
			header.Set("Access-Control-Allow-Origin", "*")
			h.ServeHTTP(w, r)
			return
		}
		if c.originCheck(r) {
			header.Set("Access-Control-Allow-Origin", origin)
			header.Set("Access-Control-Allow-Credentials", "true")
			if allowHeaders := r.Header.Get("Access-Control-Request-Headers"); allowHeaders != "" && allowHeaders != "null" {
				header.Add("Access-Control-Allow-Headers", allowHeaders)
			}
		}
		h.ServeHTTP(w, r)
	})
}
