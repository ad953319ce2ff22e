package clientip

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP returns the client IP for request logs. It reads r.RemoteAddr
// only; proxy headers are not trusted here.
func RealClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return strings.TrimSpace(host)
}
