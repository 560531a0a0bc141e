package util

import (
	"net"
	"net/http"
	"strings"
)

// TrustedProxies is the set of proxy addresses whose forwarded headers
// are believed when keying per-client rate limits. Nil trusts none.
type TrustedProxies struct {
	nets []*net.IPNet
}

// NewTrustedProxies parses CIDR or single-IP entries. Blank entries are
// skipped; an empty result yields nil.
func NewTrustedProxies(entries []string) (*TrustedProxies, error) {
	var nets []*net.IPNet
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		n, err := parseProxyEntry(entry)
		if err != nil {
			return nil, err
		}
		nets = append(nets, n)
	}
	if len(nets) == 0 {
		return nil, nil
	}
	return &TrustedProxies{nets: nets}, nil
}

func parseProxyEntry(entry string) (*net.IPNet, error) {
	if strings.Contains(entry, "/") {
		_, cidr, err := net.ParseCIDR(entry)
		return cidr, err
	}
	ip := net.ParseIP(entry)
	if ip == nil {
		return nil, &net.ParseError{Type: "IP address", Text: entry}
	}
	bits := 32
	if ip.To4() == nil {
		bits = 128
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, nil
}

// Contains reports whether ip falls inside any trusted range.
func (t *TrustedProxies) Contains(ip net.IP) bool {
	if t == nil || ip == nil {
		return false
	}
	for _, n := range t.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP resolves the address a request should be attributed to. The
// X-Forwarded-For chain is consulted only when the direct peer is a
// trusted proxy, walking right to left until the first hop outside the
// trusted set.
func ClientIP(r *http.Request, trusted *TrustedProxies) string {
	peer := remoteIP(r.RemoteAddr)
	if peer == nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	if !trusted.Contains(peer) {
		return peer.String()
	}
	hops := forwardedChain(r.Header.Get("X-Forwarded-For"))
	for i := len(hops) - 1; i >= 0; i-- {
		if !trusted.Contains(hops[i]) {
			return hops[i].String()
		}
	}
	if len(hops) > 0 {
		return hops[0].String()
	}
	return peer.String()
}

func forwardedChain(header string) []net.IP {
	var out []net.IP
	for _, part := range strings.Split(header, ",") {
		if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
			out = append(out, ip)
		}
	}
	return out
}

func remoteIP(addr string) net.IP {
	addr = strings.TrimSpace(addr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return net.ParseIP(addr)
}
