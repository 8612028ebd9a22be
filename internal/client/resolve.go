package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// fallbackDNS is queried when the system resolver cannot resolve the relay.
var fallbackDNS = []string{
	"1.1.1.1",         // Cloudflare
	"1.0.0.1",         // Cloudflare
	"8.8.8.8",         // Google
	"8.8.4.4",         // Google
	"9.9.9.9",         // Quad9
	"149.112.112.112", // Quad9
	"208.67.222.222",  // OpenDNS
}

// resolver looks up the relay host. The zero value uses the system resolver
// first and then races fallbackDNS.
type resolver struct {
	local    func(ctx context.Context, host string) ([]string, error)
	servers  []string
	localTTL time.Duration
	raceTTL  time.Duration
}

func newResolver() *resolver {
	return &resolver{
		local:    (&net.Resolver{}).LookupHost,
		servers:  fallbackDNS,
		localTTL: time.Second,
		raceTTL:  2 * time.Second,
	}
}

// lookup resolves host to one address, preferring IPv4. IP literals are
// returned as they are.
func (r *resolver) lookup(ctx context.Context, host string) (string, error) {
	if net.ParseIP(host) != nil {
		return host, nil
	}

	lctx, cancel := context.WithTimeout(ctx, r.localTTL)
	ips, err := r.local(lctx, host)
	cancel()
	if err == nil {
		if ip, ok := preferIPv4(ips); ok {
			return ip, nil
		}
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return r.race(ctx, host)
}

// race queries every fallback server at once and returns the first answer.
func (r *resolver) race(ctx context.Context, host string) (string, error) {
	if len(r.servers) == 0 {
		return "", fmt.Errorf("resolve %s: no fallback servers", host)
	}

	type result struct {
		ip  string
		err error
	}

	ctx, cancel := context.WithTimeout(ctx, r.raceTTL)
	defer cancel()

	results := make(chan result, len(r.servers))
	for _, server := range r.servers {
		go func(server string) {
			ip, err := queryServer(ctx, host, server)
			results <- result{ip: ip, err: err}
		}(server)
	}

	failures := 0
	for range r.servers {
		select {
		case res := <-results:
			if res.err == nil {
				return res.ip, nil
			}
			failures++
		case <-ctx.Done():
			return "", fmt.Errorf("resolve %s: %w", host, ctx.Err())
		}
	}
	return "", fmt.Errorf("resolve %s: all %d fallback servers failed", host, failures)
}

func queryServer(ctx context.Context, host, server string) (string, error) {
	r := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(server, "53"))
		},
	}

	ips, err := r.LookupHost(ctx, host)
	if err != nil {
		return "", err
	}
	ip, ok := preferIPv4(ips)
	if !ok {
		return "", errors.New("no addresses returned")
	}
	return ip, nil
}

func preferIPv4(ips []string) (string, bool) {
	if len(ips) == 0 {
		return "", false
	}
	for _, ip := range ips {
		if parsed := net.ParseIP(ip); parsed != nil && parsed.To4() != nil {
			return ip, true
		}
	}
	return ips[0], true
}
