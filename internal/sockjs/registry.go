package sockjs

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// registry owns the sessions of one handler. Lookups and creation are
// atomic with respect to each other: two transports racing for the
// same session id always observe the same session.
type registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
	opts     Options
	handler  func(Session)
}

func newRegistry(opts Options, handler func(Session)) *registry {
	return &registry{
		sessions: make(map[string]*session),
		opts:     opts,
		handler:  handler,
	}
}

// getOrCreate returns the session registered under id, creating and
// registering a fresh one when none exists. The second return value
// reports whether the session was created by this call.
func (r *registry) getOrCreate(req *http.Request, id string) (*session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return s, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s, false
	}
	s = newSession(req, id, r.opts, r.handler)
	r.sessions[id] = s
	sessionsActive.Inc()
	return s, true
}

// get returns the session registered under id, or nil.
func (r *registry) get(id string) *session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// remove unregisters the session stored under id. Removing an id that
// is not registered is a no-op, so transports may call it on every
// exit path without coordination.
func (r *registry) remove(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if ok {
		sessionsActive.Dec()
		s.expire()
	}
}

// add registers an externally created session, used by the raw
// websocket transport which generates its own session ids.
func (r *registry) add(id string, s *session) {
	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	sessionsActive.Inc()
}

func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// run sweeps idle sessions until ctx is done, then closes every
// remaining session so clients learn the server is going away.
func (r *registry) run(ctx context.Context) error {
	interval := r.opts.SweepInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return ctx.Err()
		case now := <-ticker.C:
			r.sweep(now)
		}
	}
}

func (r *registry) sweep(now time.Time) {
	r.mu.RLock()
	candidates := make(map[string]*session)
	for id, s := range r.sessions {
		if s.idleExpired(now, r.opts.DisconnectDelay) {
			candidates[id] = s
		}
	}
	r.mu.RUnlock()
	if len(candidates) == 0 {
		return
	}
	swept := 0
	r.mu.Lock()
	for id, s := range candidates {
		if r.sessions[id] != s {
			continue
		}
		delete(r.sessions, id)
		swept++
	}
	r.mu.Unlock()
	for _, s := range candidates {
		s.expire()
	}
	if swept > 0 {
		sessionsActive.Sub(float64(swept))
		sessionsSweptCount.Add(float64(swept))
		log.Debug().Int("count", swept).Msg("swept idle sessions")
	}
}

func (r *registry) shutdown() {
	r.mu.Lock()
	sessions := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*session)
	r.mu.Unlock()
	for _, s := range sessions {
		_ = s.Close(StatusGoAway, ReasonGoAway)
	}
	sessionsActive.Sub(float64(len(sessions)))
}
