package imaging

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"syscall"
	"time"

	"github.com/oukeidos/xraylens/internal/httpclient"
)

// errBlockedHost marks a dial refused because the destination is internal.
var errBlockedHost = errors.New("destination address is not publicly routable")

// blockedAddr reports whether ip is loopback, private, link-local,
// multicast or unspecified.
func blockedAddr(ip netip.Addr) bool {
	ip = ip.Unmap()
	return !ip.IsValid() ||
		ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified()
}

// guardDial runs after name resolution, so redirects and rebinding DNS
// answers are checked against the address actually dialed.
func guardDial(_ string, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", errBlockedHost, address)
	}
	ip, err := netip.ParseAddr(host)
	if err != nil || blockedAddr(ip) {
		return fmt.Errorf("%w: %s", errBlockedHost, host)
	}
	return nil
}

// guardedClient returns a copy of base whose connections refuse internal
// destinations. Proxies are bypassed so the guard sees the real peer.
func guardedClient(base *http.Client) *http.Client {
	var tr *http.Transport
	if t, ok := base.Transport.(*http.Transport); ok && t != nil {
		tr = t.Clone()
	} else {
		tr = httpclient.NewClient(base.Timeout).Transport.(*http.Transport)
	}
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   guardDial,
	}
	tr.Proxy = nil
	tr.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialer.DialContext(ctx, network, addr)
	}
	tr.DialTLSContext = nil

	clone := *base
	clone.Transport = tr
	return &clone
}
