package audit

import (
	"net"
	"net/http"
	"strings"
)

const unknownIP = "unknown"

// ClientIP resolves the caller address: first X-Forwarded-For entry, then
// X-Real-IP, then the transport peer, then "unknown".
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if addr := stripPort(r.RemoteAddr); addr != "" {
		return addr
	}
	return unknownIP
}

// stripPort removes the port from host:port and [v6]:port forms.
func stripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return strings.TrimSpace(addr)
	}
	return host
}
