package middleware

import (
	"net/http"
	"sync"

	"github.com/sockbridge/sockbridge/internal/config"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ConnLimit limits the rate of new connection requests to transport
// endpoints. Rate is taken from config and may change on reload.
type ConnLimit struct {
	cfgContainer *config.Container

	mu          sync.Mutex
	limiter     *rate.Limiter
	limiterRate int
}

func NewConnLimit(cfgContainer *config.Container) *ConnLimit {
	return &ConnLimit{cfgContainer: cfgContainer}
}

// getLimiter returns a rate limiter for the current config value,
// rebuilding it when connection_rate_limit changed on reload.
func (l *ConnLimit) getLimiter(connRateLimit int) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.limiter == nil || l.limiterRate != connRateLimit {
		l.limiter = rate.NewLimiter(rate.Limit(connRateLimit), connRateLimit)
		l.limiterRate = connRateLimit
	}
	return l.limiter
}

func (l *ConnLimit) Middleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		connRateLimit := l.cfgContainer.Config().Client.ConnectionRateLimit
		if connRateLimit > 0 && !l.getLimiter(connRateLimit).Allow() {
			log.Warn().Int("limit", connRateLimit).Msg("connection rate limit reached")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		h.ServeHTTP(w, r)
	})
}
