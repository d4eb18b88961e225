package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/code-sharad/inventory-management-sub000/pkg/http"
	"github.com/stretchr/testify/assert"
)

func ipRequest(remoteAddr string, headers map[string]string) *http.Request {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

// The rate limiter and the login audit trail both key on this value, so a
// direct client must never be able to pick its own IP via headers.
func TestExtractClientIP_DirectClientCannotSpoof(t *testing.T) {
	req := ipRequest("203.0.113.10:54321", map[string]string{
		"X-Forwarded-For": "1.2.3.4, 5.6.7.8",
		"X-Real-IP":       "192.168.1.1",
	})
	config := &pkghttp.IPConfig{
		TrustedProxies: []string{"10.0.0.0/8", "172.16.0.0/12", "127.0.0.1/32"},
	}

	assert.Equal(t, "203.0.113.10", pkghttp.ExtractClientIP(req, config),
		"headers from an untrusted peer carry no weight")
}

func TestExtractClientIP_TrustedProxyForwardsClient(t *testing.T) {
	req := ipRequest("10.0.0.5:54321", map[string]string{
		"X-Forwarded-For": "203.0.113.42, 10.0.0.5",
	})
	config := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	assert.Equal(t, "203.0.113.42", pkghttp.ExtractClientIP(req, config))
}

func TestExtractClientIP_XRealIPFallback(t *testing.T) {
	req := ipRequest("10.0.0.5:54321", map[string]string{
		"X-Real-IP": "203.0.113.42",
	})
	config := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	assert.Equal(t, "203.0.113.42", pkghttp.ExtractClientIP(req, config))
}

func TestExtractClientIP_IPv6(t *testing.T) {
	req := ipRequest("[::1]:54321", map[string]string{
		"X-Forwarded-For": "2001:db8::1",
	})
	config := &pkghttp.IPConfig{TrustedProxies: []string{"::1/128"}}

	assert.Equal(t, "2001:db8::1", pkghttp.ExtractClientIP(req, config))
}

func TestExtractClientIP_NilConfigIgnoresHeaders(t *testing.T) {
	req := ipRequest("203.0.113.10:54321", map[string]string{
		"X-Forwarded-For": "1.2.3.4",
		"X-Real-IP":       "192.168.1.1",
	})

	assert.Equal(t, "203.0.113.10", pkghttp.ExtractClientIP(req, nil))
}

func TestExtractClientIP_EmptyProxyListIgnoresHeaders(t *testing.T) {
	req := ipRequest("203.0.113.10:54321", map[string]string{
		"X-Forwarded-For": "1.2.3.4",
	})
	config := &pkghttp.IPConfig{TrustedProxies: []string{}}

	assert.Equal(t, "203.0.113.10", pkghttp.ExtractClientIP(req, config))
}

func TestExtractClientIP_BrokenCIDRsFailClosed(t *testing.T) {
	req := ipRequest("203.0.113.10:54321", map[string]string{
		"X-Forwarded-For": "1.2.3.4",
	})
	config := &pkghttp.IPConfig{TrustedProxies: []string{"not-a-cidr", "also/bad"}}

	assert.Equal(t, "203.0.113.10", pkghttp.ExtractClientIP(req, config),
		"unparseable proxy ranges must not become trusted")
}

func TestExtractClientIP_LeftmostForwardedEntryWins(t *testing.T) {
	req := ipRequest("10.0.0.5:54321", map[string]string{
		"X-Forwarded-For": "203.0.113.42, 203.0.113.43, 10.0.0.5",
	})
	config := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	// Leftmost entry is the client as the edge saw it; the rest are hops
	assert.Equal(t, "203.0.113.42", pkghttp.ExtractClientIP(req, config))
}

func TestExtractClientIP_StripsPort(t *testing.T) {
	req := ipRequest("203.0.113.10:54321", nil)

	assert.Equal(t, "203.0.113.10", pkghttp.ExtractClientIP(req, &pkghttp.IPConfig{}))
}

func TestExtractClientIP_LocalhostClaimRejected(t *testing.T) {
	// An attacker claiming to be 127.0.0.1 must still be limited under
	// their own address.
	req := ipRequest("203.0.113.10:54321", map[string]string{
		"X-Forwarded-For": "127.0.0.1, 203.0.113.10",
	})
	config := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}

	assert.Equal(t, "203.0.113.10", pkghttp.ExtractClientIP(req, config))
}
