// Package privacy masks client addresses before they reach the logs.
package privacy

import "net/netip"

// AnonymizeIP keeps only the network part of an address: /24 for IPv4
// (including IPv4-mapped IPv6) and /48 for IPv6.
//
// Returns "unknown" for an empty or unknown address and "invalid" when the
// value does not parse.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap()
	bits := 48
	if addr.Is4() {
		bits = 24
	}
	prefix, err := addr.WithZone("").Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}
