package recon

import (
	"context"
	"net"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/miekg/dns"
)

// startDNSServer serves canned answers on a loopback UDP port and returns
// its address.
func startDNSServer(t *testing.T, handler dns.HandlerFunc) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &dns.Server{PacketConn: pc, Handler: handler}
	go srv.ActivateAndServe()
	t.Cleanup(func() { srv.Shutdown() })

	return pc.LocalAddr().String()
}

func cannedHandler(t *testing.T) dns.HandlerFunc {
	t.Helper()
	return func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		q := r.Question[0]
		switch {
		case q.Qtype == dns.TypeCNAME && q.Name == "app.example.com.":
			rr, err := dns.NewRR("app.example.com. 300 IN CNAME ghost.github.io.")
			if err != nil {
				t.Errorf("NewRR: %v", err)
			}
			m.Answer = append(m.Answer, rr)
		case q.Qtype == dns.TypeA && q.Name == "live.example.com.":
			rr, err := dns.NewRR("live.example.com. 300 IN A 192.0.2.10")
			if err != nil {
				t.Errorf("NewRR: %v", err)
			}
			m.Answer = append(m.Answer, rr)
		case q.Name == "gone.github.io.":
			m.Rcode = dns.RcodeNameError
		}
		w.WriteMsg(m)
	}
}

func testCNAMEClient(t *testing.T) *CNAMEClient {
	t.Helper()
	return &CNAMEClient{
		Server: startDNSServer(t, cannedHandler(t)),
		Client: &dns.Client{Timeout: 2 * time.Second},
	}
}

func TestCNAMEClientLookup(t *testing.T) {
	client := testCNAMEClient(t)

	cname, err := client.LookupCNAME(context.Background(), "app.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSuffix(cname, ".") != "ghost.github.io" {
		t.Errorf("cname = %q, want ghost.github.io", cname)
	}
}

func TestCNAMEClientNoCNAME(t *testing.T) {
	client := testCNAMEClient(t)

	cname, err := client.LookupCNAME(context.Background(), "plain.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cname != "" {
		t.Errorf("cname = %q, want empty", cname)
	}
}

func TestCNAMEClientTargetResolves(t *testing.T) {
	client := testCNAMEClient(t)

	up, err := client.TargetResolves(context.Background(), "live.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !up {
		t.Error("live.example.com should resolve")
	}
}

func TestCNAMEClientTargetNXDOMAIN(t *testing.T) {
	client := testCNAMEClient(t)

	up, err := client.TargetResolves(context.Background(), "gone.github.io")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if up {
		t.Error("gone.github.io should not resolve")
	}
}

func TestCNAMEClientDefaults(t *testing.T) {
	client := &CNAMEClient{}
	if got := client.server(); got != defaultDNSServer {
		t.Errorf("server() = %q, want %q", got, defaultDNSServer)
	}
	if client.client() == nil || client.client().Timeout == 0 {
		t.Error("default dns client should carry a timeout")
	}
}

func TestDedupeAddrs(t *testing.T) {
	got := dedupeAddrs([]string{"10.0.0.2", "10.0.0.1", "10.0.0.2", ""})
	want := []string{"10.0.0.1", "10.0.0.2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("dedupeAddrs = %v, want %v", got, want)
	}
	if dedupeAddrs(nil) != nil {
		t.Error("dedupeAddrs(nil) should be nil")
	}
}
