// clientip.go -- Client network identity resolution.
package abuse

import (
	"net"
	"net/http"
	"strings"
)

// UnknownIdentity is returned when no address can be extracted from the
// request. Requests without identity still get a definite answer -- they all
// share one rate-limit bucket instead of failing.
const UnknownIdentity = "unknown"

// ClientIP extracts the client's claimed network address from the request.
//
// X-Forwarded-For wins if present: the first comma-separated entry is the
// nearest-hop address as reported by upstream proxies. No trusted-proxy chain
// is assumed, so this is best-effort identity, not authentication. Falls back
// to X-Real-IP, then to the connection address, then to UnknownIdentity.
// Never fails.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	// RemoteAddr is host:port for real connections, but tests and proxies
	// sometimes hand over a bare host.
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if addr := strings.TrimSpace(r.RemoteAddr); addr != "" {
		return addr
	}

	return UnknownIdentity
}
