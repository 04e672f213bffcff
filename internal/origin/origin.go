package origin

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// Checker validates request Origin header against a list of allowed
// origin glob patterns. With no patterns configured only same-origin
// requests pass.
type Checker struct {
	patterns []glob.Glob
}

func NewChecker(allowedOrigins []string) (*Checker, error) {
	var globs []glob.Glob
	for _, pattern := range allowedOrigins {
		g, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return nil, fmt.Errorf("malformed origin pattern: %w", err)
		}
		globs = append(globs, g)
	}
	return &Checker{patterns: globs}, nil
}

func (c *Checker) Check(r *http.Request) error {
	origin := r.Header.Get("Origin")
	if origin == "" || strings.EqualFold(origin, "null") {
		return nil
	}

	if len(c.patterns) == 0 {
		u, err := url.Parse(origin)
		if err != nil {
			return fmt.Errorf("error parsing request Origin %s: %w", origin, err)
		}
		if !strings.EqualFold(u.Host, r.Host) {
			return fmt.Errorf("request Origin %s is not authorized for Host %s", origin, r.Host)
		}
		return nil
	}

	originLower := strings.ToLower(origin)
	for _, pattern := range c.patterns {
		if pattern.Match(originLower) {
			return nil
		}
	}

	return fmt.Errorf("request Origin %s is not authorized", origin)
}
