// Package resolve asks an upstream DNS server about names so they can be
// compared with what the hosts file maps them to.
package resolve

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"

	"github.com/hedhosts/hed/internal/hosts"
)

// FallbackServer is used when no resolver is configured and resolv.conf is
// unreadable.
const FallbackServer = "1.1.1.1:53"

// Answer is the upstream view of one name.
type Answer struct {
	Name      string   `json:"name"`
	Addresses []string `json:"addresses"`
	CNAMEs    []string `json:"cnames,omitempty"`
	NXDomain  bool     `json:"nxdomain,omitempty"`
}

// Resolver queries a single upstream server.
type Resolver struct {
	Server  string
	Timeout time.Duration
}

// New creates a resolver for server. An empty server means DefaultServer.
func New(server string) *Resolver {
	if strings.TrimSpace(server) == "" {
		server = DefaultServer()
	}
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	return &Resolver{Server: server, Timeout: 5 * time.Second}
}

// DefaultServer returns the first nameserver in /etc/resolv.conf, or
// FallbackServer.
func DefaultServer() string {
	cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(cfg.Servers) == 0 {
		return FallbackServer
	}
	return net.JoinHostPort(cfg.Servers[0], cfg.Port)
}

// Lookup queries A and AAAA records for name concurrently.
func (r *Resolver) Lookup(ctx context.Context, name string) (Answer, error) {
	ans := Answer{Name: strings.TrimSuffix(strings.ToLower(name), ".")}

	var v4, v6 result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		v4, err = r.query(gctx, name, dns.TypeA)
		return err
	})
	g.Go(func() error {
		var err error
		v6, err = r.query(gctx, name, dns.TypeAAAA)
		return err
	})
	if err := g.Wait(); err != nil {
		return ans, err
	}

	ans.Addresses = append(v4.addresses, v6.addresses...)
	ans.CNAMEs = dedup(append(v4.cnames, v6.cnames...))
	ans.NXDomain = v4.nxdomain && v6.nxdomain
	return ans, nil
}

type result struct {
	addresses []string
	cnames    []string
	nxdomain  bool
}

func (r *Resolver) query(ctx context.Context, name string, qtype uint16) (result, error) {
	req := new(dns.Msg)
	req.SetQuestion(dns.Fqdn(name), qtype)
	req.RecursionDesired = true

	client := &dns.Client{Net: "udp", Timeout: r.Timeout}
	resp, _, err := client.ExchangeContext(ctx, req, r.Server)
	if err != nil {
		return result{}, fmt.Errorf("failed to query %s %s: %w", dns.TypeToString[qtype], name, err)
	}
	if resp.Truncated {
		client.Net = "tcp"
		resp, _, err = client.ExchangeContext(ctx, req, r.Server)
		if err != nil {
			return result{}, fmt.Errorf("failed to query %s %s over tcp: %w", dns.TypeToString[qtype], name, err)
		}
	}

	var res result
	switch resp.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		res.nxdomain = true
		return res, nil
	default:
		return result{}, fmt.Errorf("upstream answered %s for %s", dns.RcodeToString[resp.Rcode], name)
	}

	for _, rr := range resp.Answer {
		switch v := rr.(type) {
		case *dns.A:
			res.addresses = append(res.addresses, v.A.String())
		case *dns.AAAA:
			res.addresses = append(res.addresses, v.AAAA.String())
		case *dns.CNAME:
			res.cnames = append(res.cnames, strings.TrimSuffix(v.Target, "."))
		}
	}
	return res, nil
}

func dedup(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Mapping is one hosts file mapping for a name.
type Mapping struct {
	Address string `json:"address"`
	Enabled bool   `json:"enabled"`
}

// Comparison sets the hosts file mappings of a name against the upstream
// answer.
type Comparison struct {
	Name     string    `json:"name"`
	Mappings []Mapping `json:"mappings"`
	Upstream Answer    `json:"upstream"`
	// Shadowed is set when an enabled mapping points somewhere the public
	// answer does not.
	Shadowed bool `json:"shadowed"`
}

// MappingsFor lists every entry that maps name, enabled or not.
func MappingsFor(entries []hosts.Entry, name string) []Mapping {
	var out []Mapping
	for _, e := range entries {
		if i := e.HostIndex(name); i >= 0 {
			out = append(out, Mapping{Address: e.Address, Enabled: e.Hosts[i].Enabled})
		}
	}
	return out
}

// Compare builds the comparison for name.
func Compare(entries []hosts.Entry, name string, upstream Answer) Comparison {
	c := Comparison{Name: name, Mappings: MappingsFor(entries, name), Upstream: upstream}

	public := make(map[string]bool, len(upstream.Addresses))
	for _, a := range upstream.Addresses {
		public[a] = true
	}
	for _, m := range c.Mappings {
		if m.Enabled && len(public) > 0 && !public[m.Address] {
			c.Shadowed = true
		}
	}
	return c
}
