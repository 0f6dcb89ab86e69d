package gomon

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/eryajf/promwrite"
	"github.com/miekg/dns"
	"go.uber.org/zap"
)

type dnsSettings struct {
	enabled         bool
	cacheTTL        time.Duration
	refreshInterval time.Duration
	timeout         time.Duration
	udpServers      []string
	tlsServers      []string
	dohEndpoints    []string
}

type dnsCacheEntry struct {
	ips []string
	ttl time.Time
}

func newDNSSettings(cfg DNSConfig) dnsSettings {
	return dnsSettings{
		enabled:         cfg.Enable,
		cacheTTL:        pickDuration(cfg.CacheTTL, 10*time.Minute),
		refreshInterval: pickDuration(cfg.RefreshInterval, 5*time.Minute),
		timeout:         pickDuration(cfg.Timeout, 800*time.Millisecond),
		udpServers:      append([]string(nil), cfg.UDPServers...),
		tlsServers:      append([]string(nil), cfg.TLSServers...),
		dohEndpoints:    append([]string(nil), cfg.DoHEndpoints...),
	}
}

// RefreshDNS exposes DNS refresh functionality for external use.
func (m *manager) RefreshDNS(force bool) bool {
	return m.refreshDNS(force)
}

// refreshDNS resolves the target host and recreates the remote write
// client if the IP set changed.
func (m *manager) refreshDNS(force bool) bool {
	if m.targetHost == "" {
		return false
	}

	// Throttle resolves
	if !force && time.Since(m.lastResolve) < 1*time.Minute {
		return false
	}

	// Try cache first
	if ce, ok := m.dnsCache[m.targetHost]; ok && time.Now().Before(ce.ttl) && !force {
		if !stringSlicesEqual(ce.ips, m.resolvedIPs) {
			m.resolvedIPs = ce.ips
			m.lastResolve = time.Now()
			if m.config.RemoteWriteURL != "" {
				m.client = promwrite.NewClient(m.config.RemoteWriteURL)
			}
			if m.config.Logger != nil {
				m.config.Logger.Info("DNS cache hit, refreshed client",
					zap.String("host", m.targetHost), zap.Strings("ips", ce.ips))
			}
			return true
		}
		m.lastResolve = time.Now()
		return false
	}

	var (
		newSet []string
		err    error
	)
	if m.dns.enabled {
		newSet, err = m.resolveFastest(m.targetHost)
	} else {
		sysIPs, e := net.LookupIP(m.targetHost)
		err = e
		for _, ip := range sysIPs {
			newSet = append(newSet, ip.String())
		}
	}

	if err != nil || len(newSet) == 0 {
		if m.config.Logger != nil {
			m.config.Logger.Warn("DNS lookup failed",
				zap.String("host", m.targetHost), zap.Error(err))
		}
		m.lastResolve = time.Now()
		return false
	}

	changed := !stringSlicesEqual(newSet, m.resolvedIPs)
	m.resolvedIPs = newSet
	m.lastResolve = time.Now()

	if m.dns.enabled {
		m.dnsCache[m.targetHost] = dnsCacheEntry{ips: newSet, ttl: time.Now().Add(m.dns.cacheTTL)}
	}

	if changed || force {
		// Recreate client to force new connections
		if m.config.RemoteWriteURL != "" {
			m.client = promwrite.NewClient(m.config.RemoteWriteURL)
			if m.config.Logger != nil {
				m.config.Logger.Info("Refreshed remote write client after DNS update",
					zap.String("host", m.targetHost), zap.Strings("ips", m.resolvedIPs))
			}
		}
		return true
	}
	return false
}

// resolverFunc resolves a host to a set of IPv4 addresses.
type resolverFunc func(ctx context.Context, host string) ([]string, error)

// resolvers builds the list of configured resolvers. The system
// resolver is always included as a fallback.
func (m *manager) resolvers() []resolverFunc {
	var fns []resolverFunc

	for _, srv := range m.dns.udpServers {
		fns = append(fns, func(ctx context.Context, host string) ([]string, error) {
			return exchangeDNS(ctx, host, "udp", srv)
		})
	}
	for _, srv := range m.dns.tlsServers {
		fns = append(fns, func(ctx context.Context, host string) ([]string, error) {
			return exchangeDNS(ctx, host, "tcp-tls", srv)
		})
	}
	for _, ep := range m.dns.dohEndpoints {
		fns = append(fns, func(ctx context.Context, host string) ([]string, error) {
			return queryDoH(ctx, host, ep)
		})
	}

	fns = append(fns, func(ctx context.Context, host string) ([]string, error) {
		netIPs, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
		ips := make([]string, 0, len(netIPs))
		for _, ip := range netIPs {
			ips = append(ips, ip.String())
		}
		return ips, err
	})

	return fns
}

// resolveFastest queries all configured resolvers concurrently and
// returns the first success.
func (m *manager) resolveFastest(host string) ([]string, error) {
	ctx, cancel := context.WithTimeout(m.ctx, m.dns.timeout)
	defer cancel()

	type result struct {
		ips []string
		err error
	}

	fns := m.resolvers()
	ch := make(chan result, 1)
	var wg sync.WaitGroup

	for _, resolve := range fns {
		resolve := resolve
		wg.Add(1)
		go func() {
			defer wg.Done()
			ips, err := resolve(ctx, host)
			select {
			case ch <- result{ips, err}:
			default:
			}
		}()
	}

	var firstErr error
	for i := 0; i < len(fns); i++ {
		select {
		case r := <-ch:
			if r.err == nil && len(r.ips) > 0 {
				return r.ips, nil
			}
			if firstErr == nil {
				firstErr = r.err
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	wg.Wait()
	if firstErr == nil {
		firstErr = fmt.Errorf("no dns result")
	}
	return nil, firstErr
}

// exchangeDNS performs an A query against a single server over the
// given transport ("udp" or "tcp-tls").
func exchangeDNS(ctx context.Context, host, network, server string) ([]string, error) {
	q := new(dns.Msg)
	q.SetQuestion(dns.Fqdn(host), dns.TypeA)
	c := &dns.Client{Net: network, Timeout: 800 * time.Millisecond}
	r, _, err := c.ExchangeContext(ctx, q, server)
	if err != nil || r == nil || r.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("%s dns failed: %v", network, err)
	}
	return answerIPs(r), nil
}

// queryDoH performs an A query against a DNS-over-HTTPS endpoint.
func queryDoH(ctx context.Context, host, endpoint string) ([]string, error) {
	q := new(dns.Msg)
	q.SetQuestion(dns.Fqdn(host), dns.TypeA)
	payload, err := q.Pack()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/dns-message")
	req.Header.Set("Accept", "application/dns-message")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("doh status: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var r dns.Msg
	if err := r.Unpack(body); err != nil {
		return nil, err
	}
	if r.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("doh rcode: %d", r.Rcode)
	}
	return answerIPs(&r), nil
}

func answerIPs(r *dns.Msg) []string {
	ips := make([]string, 0, len(r.Answer))
	for _, ans := range r.Answer {
		if a, ok := ans.(*dns.A); ok {
			ips = append(ips, a.A.String())
		}
	}
	return ips
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
