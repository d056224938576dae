package network

import (
	"errors"
	"fmt"
	"net"

	"github.com/jackpal/gateway"
)

// Fallback is the address advertised when no LAN address can be found.
// Links built from it only work on this host.
const Fallback = "127.0.0.1"

// ErrNoAddress is returned when no interface carries a usable LAN IPv4 address.
var ErrNoAddress = errors.New("no local network address found")

// Resolver discovers an address other hosts on the network can reach us at.
type Resolver interface {
	Resolve() (string, error)
}

// LocalResolver returns the machine's LAN-facing IPv4 address.
// The address on the default gateway's subnet wins; otherwise the first
// up, non-loopback, non-link-local IPv4 address is used.
type LocalResolver struct {
	// Gateway reports the default gateway. Nil skips the gateway lookup.
	Gateway func() (net.IP, error)
	// Addrs lists addresses of the interfaces that are up.
	Addrs func() ([]net.Addr, error)
}

// NewResolver returns a LocalResolver backed by the host's routing table
// and interface list.
func NewResolver() *LocalResolver {
	return &LocalResolver{
		Gateway: gateway.DiscoverGateway,
		Addrs:   upInterfaceAddrs,
	}
}

// Resolve implements Resolver.
func (r *LocalResolver) Resolve() (string, error) {
	list := r.Addrs
	if list == nil {
		list = upInterfaceAddrs
	}
	addrs, err := list()
	if err != nil {
		return "", fmt.Errorf("%w: list interface addresses: %w", ErrNoAddress, err)
	}

	candidates := lanIPv4(addrs)
	if len(candidates) == 0 {
		return "", ErrNoAddress
	}

	if r.Gateway != nil {
		if gw, err := r.Gateway(); err == nil && gw != nil {
			for _, c := range candidates {
				if c.Contains(gw) {
					return c.IP.String(), nil
				}
			}
		}
	}
	return candidates[0].IP.String(), nil
}

// lanIPv4 keeps IPv4 networks that another host could route to.
func lanIPv4(addrs []net.Addr) []*net.IPNet {
	var out []*net.IPNet
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipnet.IP.To4()
		if ip == nil || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			continue
		}
		out = append(out, &net.IPNet{IP: ip, Mask: ipnet.Mask})
	}
	return out
}

func upInterfaceAddrs() ([]net.Addr, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var out []net.Addr
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			// One broken interface should not hide the others.
			continue
		}
		out = append(out, addrs...)
	}
	return out, nil
}
