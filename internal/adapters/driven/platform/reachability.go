package platform

import (
	"context"
	"errors"
	"net"
	"net/url"
	"time"

	"github.com/custodia-labs/herbtrace/internal/core/domain"
	"github.com/custodia-labs/herbtrace/internal/core/ports/driven"
)

// DefaultDialTimeout bounds one reachability dial.
const DefaultDialTimeout = 3 * time.Second

// Ensure TCPProbe implements the interface.
var _ driven.ReachabilityProbe = (*TCPProbe)(nil)

// TCPProbe reports online when a TCP connection to address succeeds.
type TCPProbe struct {
	address string
	dialer  net.Dialer
}

// NewTCPProbe creates a probe for a host:port address.
func NewTCPProbe(address string) *TCPProbe {
	return &TCPProbe{
		address: address,
		dialer:  net.Dialer{Timeout: DefaultDialTimeout},
	}
}

// NewProbe builds the probe for the configured settings. An explicit probe
// address wins; otherwise the remote base URL's host is dialled. With
// neither, the probe reports domain.ErrConnectivityUnknown.
func NewProbe(conn domain.ConnectivitySettings, remote domain.RemoteSettings) *TCPProbe {
	if conn.ProbeAddress != "" {
		return NewTCPProbe(conn.ProbeAddress)
	}
	return NewTCPProbe(AddressFromURL(remote.BaseURL))
}

// Address returns the dialled address, empty when unknown.
func (p *TCPProbe) Address() string {
	return p.address
}

// Probe dials the address once. A dial cut short by the ctx deadline
// reports offline; cancellation is returned as an error.
func (p *TCPProbe) Probe(ctx context.Context) (domain.ConnectivityState, error) {
	if p.address == "" {
		return domain.Online, domain.ErrConnectivityUnknown
	}

	conn, err := p.dialer.DialContext(ctx, "tcp", p.address)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return domain.Offline, ctx.Err()
		}
		return domain.Offline, nil
	}
	_ = conn.Close()
	return domain.Online, nil
}

// AddressFromURL returns host:port for a URL, defaulting the port from the
// scheme. Returns "" for unparseable input.
func AddressFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "http":
			port = "80"
		default:
			port = "443"
		}
	}
	return net.JoinHostPort(u.Hostname(), port)
}
