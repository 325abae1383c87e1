package recon

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"

	"github.com/driftsec/driftwatch/internal/wordlist"
)

// BruteEnumerate resolves every candidate from the embedded wordlist under
// domain and keeps the names that exist. Hits are sorted so repeated runs
// list them in the same order.
func BruteEnumerate(ctx context.Context, domain string, concurrency int) ([]string, error) {
	words := wordlist.Subdomains()
	if len(words) == 0 {
		return nil, fmt.Errorf("empty subdomain wordlist")
	}
	if concurrency < 1 {
		concurrency = 1
	}

	work := make(chan string, len(words))
	for _, w := range words {
		work <- fmt.Sprintf("%s.%s", w, domain)
	}
	close(work)

	var (
		mu    sync.Mutex
		hosts []string
		wg    sync.WaitGroup
	)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for host := range work {
				select {
				case <-ctx.Done():
					return
				default:
				}
				if addrs, err := net.DefaultResolver.LookupHost(ctx, host); err != nil || len(addrs) == 0 {
					continue
				}
				mu.Lock()
				hosts = append(hosts, strings.ToLower(host))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	sort.Strings(hosts)
	return hosts, nil
}
