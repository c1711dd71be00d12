package server

import (
	"net/http"
	"slices"
)

type OriginChecker struct {
	allowedOrigins []string
}

func NewOriginChecker(allowedOrigins []string) *OriginChecker {
	return &OriginChecker{
		allowedOrigins,
	}
}

// Check accepts same-origin requests and, when an allowlist is configured,
// only listed origins. An empty allowlist accepts everything.
func (c *OriginChecker) Check(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(c.allowedOrigins) == 0 {
		return true
	}

	return slices.Contains(c.allowedOrigins, origin)
}
