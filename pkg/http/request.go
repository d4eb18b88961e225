package http

import (
	"net"
	"net/http"
	"strings"
)

// IPConfig names the proxy ranges whose forwarding headers are believed.
// The login audit trail and the per-IP rate limits both key on the value
// ExtractClientIP returns, so a spoofable header here poisons both.
type IPConfig struct {
	TrustedProxies []string // CIDR notation
}

// ExtractClientIP resolves the client address for audit and rate-limit
// purposes. Forwarding headers are only honored when the direct peer is one
// of the configured proxies; otherwise the socket address wins, whatever the
// headers claim.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	peer := peerAddr(r)

	if config == nil || !withinTrustedRanges(peer, config.TrustedProxies) {
		return peer
	}

	// X-Forwarded-For accumulates one hop per proxy; the leftmost parseable
	// entry is the original client as the edge saw it.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, hop := range strings.Split(xff, ",") {
			if ip := net.ParseIP(strings.TrimSpace(hop)); ip != nil {
				return ip.String()
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return ip.String()
		}
	}

	return peer
}

// peerAddr strips the port from the socket address.
func peerAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func withinTrustedRanges(addr string, ranges []string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}

	for _, cidr := range ranges {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			// Misconfigured entries are skipped rather than trusted
			continue
		}
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
