package resolve

import (
	"context"
	"net"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/miekg/dns"

	"github.com/hedhosts/hed/internal/hosts"
)

// startServer runs a DNS server on a random local UDP port answering from
// records; unknown names get NXDOMAIN.
func startServer(t *testing.T, records map[string][]string) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	mux := dns.NewServeMux()
	mux.HandleFunc(".", func(w dns.ResponseWriter, req *dns.Msg) {
		resp := new(dns.Msg)
		resp.SetReply(req)
		q := req.Question[0]
		rrs, ok := records[q.Name]
		if !ok {
			resp.SetRcode(req, dns.RcodeNameError)
			_ = w.WriteMsg(resp)
			return
		}
		for _, s := range rrs {
			rr, err := dns.NewRR(s)
			if err != nil {
				continue
			}
			if rr.Header().Rrtype == q.Qtype || rr.Header().Rrtype == dns.TypeCNAME {
				resp.Answer = append(resp.Answer, rr)
			}
		}
		_ = w.WriteMsg(resp)
	})

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: mux, NotifyStartedFunc: func() { close(started) }}
	go func() { _ = srv.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String()
}

func TestLookup(t *testing.T) {
	addr := startServer(t, map[string][]string{
		"example.test.": {
			"example.test. 60 IN A 93.184.216.34",
			"example.test. 60 IN AAAA 2606:2800:220:1::1",
		},
		"www.example.test.": {
			"www.example.test. 60 IN CNAME example.test.",
			"example.test. 60 IN A 93.184.216.34",
		},
	})
	r := New(addr)

	ans, err := r.Lookup(context.Background(), "Example.test")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	got := append([]string(nil), ans.Addresses...)
	sort.Strings(got)
	if diff := cmp.Diff([]string{"2606:2800:220:1::1", "93.184.216.34"}, got); diff != "" {
		t.Fatalf("addresses mismatch (-want +got):\n%s", diff)
	}
	if ans.Name != "example.test" || ans.NXDomain {
		t.Fatalf("unexpected answer %+v", ans)
	}

	ans, err = r.Lookup(context.Background(), "www.example.test")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if diff := cmp.Diff([]string{"example.test"}, ans.CNAMEs); diff != "" {
		t.Fatalf("cnames mismatch (-want +got):\n%s", diff)
	}

	ans, err = r.Lookup(context.Background(), "missing.test")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ans.NXDomain || len(ans.Addresses) != 0 {
		t.Fatalf("expected NXDOMAIN, got %+v", ans)
	}
}

func TestNewAddsPort(t *testing.T) {
	if got := New("10.0.0.53").Server; got != "10.0.0.53:53" {
		t.Fatalf("Server = %q", got)
	}
	if got := New("[::1]:5353").Server; got != "[::1]:5353" {
		t.Fatalf("Server = %q", got)
	}
}

func TestCompare(t *testing.T) {
	_, entries := hosts.NewSession(nil, hosts.LF).Parse(
		"127.0.0.1 api.test\n#(hed) 10.0.0.5 api.test\n93.184.216.34 site.test\n")

	tests := []struct {
		name     string
		upstream Answer
		shadowed bool
		mappings int
	}{
		{"overridden", Answer{Addresses: []string{"93.184.216.34"}}, true, 2},
		{"no public answer", Answer{NXDomain: true}, false, 2},
		{"matches public", Answer{Addresses: []string{"127.0.0.1"}}, false, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Compare(entries, "api.test", tt.upstream)
			if c.Shadowed != tt.shadowed {
				t.Fatalf("Shadowed = %v, want %v", c.Shadowed, tt.shadowed)
			}
			if len(c.Mappings) != tt.mappings {
				t.Fatalf("expected %d mappings, got %d", tt.mappings, len(c.Mappings))
			}
		})
	}

	c := Compare(entries, "site.test", Answer{Addresses: []string{"93.184.216.34"}})
	if c.Shadowed {
		t.Fatalf("mapping equal to the public answer is not shadowing")
	}
	want := []Mapping{{Address: "93.184.216.34", Enabled: true}}
	if diff := cmp.Diff(want, c.Mappings); diff != "" {
		t.Fatalf("mappings mismatch (-want +got):\n%s", diff)
	}
}
