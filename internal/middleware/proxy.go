package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/labstack/echo/v4"
)

// TrustedProxies makes c.RealIP() return the client address behind the
// reverse proxies in trustedCIDRs. Requests from any other peer keep their
// socket address, so forwarding headers cannot be spoofed from outside.
// The rate limiter keys on this address.
func TrustedProxies(e *echo.Echo, trustedCIDRs []string) {
	e.IPExtractor = buildIPExtractor(trustedCIDRs)
}

// proxySet is a list of trusted networks.
type proxySet []netip.Prefix

func (p proxySet) contains(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, prefix := range p {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// buildIPExtractor resolves the client address. X-Forwarded-For is read
// from the right, skipping trusted hops; the first untrusted hop is the
// client. X-Real-IP is used when the chain is absent.
func buildIPExtractor(trustedCIDRs []string) echo.IPExtractor {
	var trusted proxySet
	for _, cidr := range trustedCIDRs {
		prefix, err := netip.ParsePrefix(strings.TrimSpace(cidr))
		if err != nil {
			slog.Warn("ignoring invalid trusted proxy CIDR", slog.String("cidr", cidr))
			continue
		}
		trusted = append(trusted, prefix.Masked())
	}

	return func(req *http.Request) string {
		peer := peerAddr(req.RemoteAddr)
		ip, err := netip.ParseAddr(peer)
		if err != nil || !trusted.contains(ip) {
			return peer
		}

		if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
			hops := strings.Split(xff, ",")
			for i := len(hops) - 1; i >= 0; i-- {
				hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
				if err != nil {
					break
				}
				if !trusted.contains(hop) || i == 0 {
					return hop.Unmap().String()
				}
			}
		}

		if realIP, err := netip.ParseAddr(strings.TrimSpace(req.Header.Get("X-Real-IP"))); err == nil {
			return realIP.Unmap().String()
		}
		return peer
	}
}

// peerAddr strips the port from a RemoteAddr.
func peerAddr(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
