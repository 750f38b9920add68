package server

import (
	"net/http"
	"net/url"
	"strings"
)

// sameOrigin reports whether r came from a page served by this host. Requests
// without an Origin header (curl, the tray, same-origin GETs) are allowed.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}
