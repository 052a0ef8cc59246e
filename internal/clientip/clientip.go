// Package clientip resolves the address of the client behind a request.
//
// The direct connection address is used unless it belongs to a trusted
// proxy. Only then are forwarding headers consulted, in priority order; for
// list-valued headers the first syntactically valid address wins.
package clientip

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// DefaultHeaders is the forwarding header priority used when none is given.
var DefaultHeaders = []string{
	"CF-Connecting-IP",
	"X-Real-IP",
	"X-Forwarded-For",
	"X-Client-IP",
	"True-Client-IP",
	"Forwarded-For",
	"Forwarded",
}

// Resolver is immutable and safe for concurrent use.
type Resolver struct {
	trusted []netip.Prefix
	headers []string
}

// New builds a Resolver. trusted holds CIDRs or bare addresses; headers
// overrides DefaultHeaders when non-empty.
func New(trusted []string, headers ...string) (*Resolver, error) {
	r := &Resolver{headers: DefaultHeaders}
	if len(headers) > 0 {
		r.headers = append([]string(nil), headers...)
	}
	for _, t := range trusted {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if strings.Contains(t, "/") {
			p, err := netip.ParsePrefix(t)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", t, err)
			}
			r.trusted = append(r.trusted, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(t)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", t, err)
		}
		a = a.Unmap()
		r.trusted = append(r.trusted, netip.PrefixFrom(a, a.BitLen()))
	}
	return r, nil
}

// Resolve returns the client address of req, or "" when none is valid.
func (r *Resolver) Resolve(req *http.Request) string {
	return r.FromHeaders(req.RemoteAddr, req.Header)
}

// FromHeaders applies the resolution rule to a raw remote address and
// request headers.
func (r *Resolver) FromHeaders(remoteAddr string, h http.Header) string {
	direct, ok := parse(remoteAddr)
	if !ok {
		return ""
	}
	if !r.isTrusted(direct) {
		return direct.String()
	}
	for _, name := range r.headers {
		for _, raw := range h.Values(name) {
			if a, ok := firstValid(name, raw); ok {
				return a.String()
			}
		}
	}
	return direct.String()
}

func (r *Resolver) isTrusted(a netip.Addr) bool {
	for _, p := range r.trusted {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

// Canonical parses s as an IP address (optionally with a port) and returns
// its canonical text form.
func Canonical(s string) (string, bool) {
	a, ok := parse(s)
	if !ok {
		return "", false
	}
	return a.String(), true
}

func firstValid(header, raw string) (netip.Addr, bool) {
	forwarded := strings.EqualFold(header, "Forwarded")
	for _, part := range strings.Split(raw, ",") {
		if forwarded {
			part = forwardedFor(part)
		}
		if a, ok := parse(part); ok {
			return a, true
		}
	}
	return netip.Addr{}, false
}

// forwardedFor extracts the for= parameter of one RFC 7239 element.
func forwardedFor(elem string) string {
	for _, pair := range strings.Split(elem, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if ok && strings.EqualFold(k, "for") {
			return strings.Trim(v, `"`)
		}
	}
	return ""
}

// parse accepts a bare address, an address with port, or a bracketed IPv6
// address. Zones are dropped and IPv4-mapped IPv6 is unmapped.
func parse(s string) (netip.Addr, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return netip.Addr{}, false
	}
	if a, err := netip.ParseAddr(s); err == nil {
		return a.WithZone("").Unmap(), true
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		if a, err := netip.ParseAddr(host); err == nil {
			return a.WithZone("").Unmap(), true
		}
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		if a, err := netip.ParseAddr(s[1 : len(s)-1]); err == nil {
			return a.WithZone("").Unmap(), true
		}
	}
	return netip.Addr{}, false
}
