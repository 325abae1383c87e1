package recon

import (
	"context"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
)

const defaultDNSServer = "8.8.8.8:53"

// ResolveHosts looks up addresses for every host over a bounded worker
// pool. Every input host gets an entry in the result; a host that fails to
// resolve maps to nil. Passive sources routinely report dead names, and a
// dead name with a live CNAME is exactly what takeover evaluation wants to
// see.
func ResolveHosts(ctx context.Context, hosts []string, concurrency int) map[string][]string {
	if concurrency < 1 {
		concurrency = 1
	}

	work := make(chan string, len(hosts))
	for _, h := range hosts {
		work <- h
	}
	close(work)

	resolved := make(map[string][]string, len(hosts))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for host := range work {
				key := strings.ToLower(strings.TrimSpace(host))
				if key == "" {
					continue
				}
				addrs, err := net.DefaultResolver.LookupHost(ctx, host)
				if err != nil {
					addrs = nil
				}
				mu.Lock()
				resolved[key] = dedupeAddrs(addrs)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return resolved
}

func dedupeAddrs(addrs []string) []string {
	if len(addrs) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(addrs))
	out := addrs[:0]
	for _, a := range addrs {
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// CNAMEClient answers CNAME and liveness questions directly against a
// configured resolver. Querying the resolver instead of the system stub
// keeps NXDOMAIN visible; libc-level lookups flatten it into a generic
// not-found error.
type CNAMEClient struct {
	Server string      // "host:port"; defaultDNSServer when empty
	Client *dns.Client // nil gets a client with a 3s timeout
}

func (c *CNAMEClient) server() string {
	if c.Server != "" {
		return c.Server
	}
	return defaultDNSServer
}

func (c *CNAMEClient) client() *dns.Client {
	if c.Client != nil {
		return c.Client
	}
	return &dns.Client{Timeout: 3 * time.Second}
}

// LookupCNAME returns the canonical name host points at, or "" with a nil
// error when host has no CNAME record.
func (c *CNAMEClient) LookupCNAME(ctx context.Context, host string) (string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), dns.TypeCNAME)

	resp, _, err := c.client().ExchangeContext(ctx, msg, c.server())
	if err != nil {
		return "", err
	}
	for _, ans := range resp.Answer {
		if cname, ok := ans.(*dns.CNAME); ok {
			return cname.Target, nil
		}
	}
	return "", nil
}

// TargetResolves reports whether host still has an address record.
// NXDOMAIN is a definitive no, which is the answer takeover triage is
// usually after.
func (c *CNAMEClient) TargetResolves(ctx context.Context, host string) (bool, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), dns.TypeA)

	resp, _, err := c.client().ExchangeContext(ctx, msg, c.server())
	if err != nil {
		return false, err
	}
	if resp.Rcode == dns.RcodeNameError {
		return false, nil
	}
	for _, ans := range resp.Answer {
		if _, ok := ans.(*dns.A); ok {
			return true, nil
		}
	}
	return false, nil
}
