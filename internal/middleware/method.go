package middleware

import "net/http"

// Method returns a middleware constructor that rejects requests whose
// method differs from the given one with a 405 and an Allow header
// naming the only accepted method.
func Method(method string) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != method {
				w.Header().Set("Allow", method)
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.ServeHTTP(w, r)
		})
	}
}
