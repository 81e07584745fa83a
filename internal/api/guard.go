package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// tokenGuard gates the local surface behind a static bearer token.
type tokenGuard struct {
	enabled bool
	token   string
}

func (g tokenGuard) authorize(r *http.Request) bool {
	if !g.enabled {
		return true
	}
	head := strings.TrimSpace(r.Header.Get("Authorization"))
	candidate, ok := strings.CutPrefix(head, "Bearer ")
	if !ok {
		return false
	}
	candidate = strings.TrimSpace(candidate)
	if len(candidate) != len(g.token) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(g.token)) == 1
}
