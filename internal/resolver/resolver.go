// Package resolver resolves tracker host names through a process-wide DNS
// cache.
package resolver

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/rs/dnscache"
)

var (
	ErrNoAddress   = errors.New("no address for host")
	ErrInvalidPort = errors.New("invalid port number")
)

type Resolver struct {
	cache   *dnscache.Resolver
	timeout time.Duration
	dialer  net.Dialer
}

func New(timeout time.Duration) *Resolver {
	return &Resolver{
		cache:   &dnscache.Resolver{},
		timeout: timeout,
	}
}

// Resolve splits hostport and resolves the host, preferring IPv4 addresses.
func (r *Resolver) Resolve(ctx context.Context, hostport string) (net.IP, int, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return nil, 0, err
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, 0, err
	}

	if port <= 0 || port > 65535 {
		return nil, 0, ErrInvalidPort
	}

	if ip := net.ParseIP(host); ip != nil {
		return ip, port, nil
	}

	ip, err := r.lookup(ctx, host)
	if err != nil {
		return nil, 0, err
	}

	return ip, port, nil
}

func (r *Resolver) lookup(ctx context.Context, host string) (net.IP, error) {
	if r.timeout > 0 {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	addrs, err := r.cache.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}

	var first net.IP
	for _, a := range addrs {
		ip := net.ParseIP(a)
		if ip == nil {
			continue
		}
		if ip4 := ip.To4(); ip4 != nil {
			return ip4, nil
		}
		if first == nil {
			first = ip
		}
	}

	if first == nil {
		return nil, ErrNoAddress
	}

	return first, nil
}

// DialContext has the signature of http.Transport.DialContext.
func (r *Resolver) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	ip, port, err := r.Resolve(ctx, addr)
	if err != nil {
		return nil, err
	}

	taddr := &net.TCPAddr{
		IP:   ip,
		Port: port,
	}

	return r.dialer.DialContext(ctx, network, taddr.String())
}

// Refresh re-resolves cached entries and drops the ones unused since the
// previous refresh.
func (r *Resolver) Refresh() {
	r.cache.Refresh(true)
}
