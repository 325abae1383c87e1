package recon

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/driftsec/driftwatch/internal/surface"
)

const probeMaxBody = 1024 * 1024 // per-response body cap

// Prober fetches each discovered host over HTTPS, falling back to plain
// HTTP, and reports the raw response material the snapshot builder derives
// endpoint records from. It also serves fingerprint fetches for takeover
// evaluation through FetchBody.
type Prober struct {
	Timeout   time.Duration
	UserAgent string

	// Accept invalid certificates. Parked and dangling hosts rarely carry
	// valid ones, and those are the hosts this tool exists to watch.
	Insecure bool

	// OnResult, when set, is called once per probed host. It must be safe
	// for concurrent use.
	OnResult func()

	once   sync.Once
	client *http.Client
}

func (p *Prober) httpClient() *http.Client {
	p.once.Do(func() {
		p.client = &http.Client{
			Timeout: p.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: p.Insecure},
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		}
	})
	return p.client
}

// Probe visits every host over a bounded worker pool. Hosts that answer on
// neither scheme still produce a result, marked unreachable, so the
// snapshot records their silence.
func (p *Prober) Probe(ctx context.Context, hosts []string, concurrency int) []surface.ProbeResult {
	if concurrency < 1 {
		concurrency = 1
	}

	work := make(chan string, len(hosts))
	for _, h := range hosts {
		work <- h
	}
	close(work)

	var (
		mu      sync.Mutex
		results []surface.ProbeResult
		wg      sync.WaitGroup
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
				res := p.probeHost(ctx, host)
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
				if p.OnResult != nil {
					p.OnResult()
				}
			}
		}()
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].URL < results[j].URL })
	return results
}

// probeHost tries https:// first. Most estates redirect plain HTTP there
// anyway, and leading with TLS records the certificate-bearing identity
// when both schemes answer.
func (p *Prober) probeHost(ctx context.Context, host string) surface.ProbeResult {
	for _, scheme := range []string{"https", "http"} {
		res, err := p.probeURL(ctx, scheme+"://"+host)
		if err != nil {
			continue
		}
		res.Host = host
		return res
	}
	return surface.ProbeResult{Host: host, URL: "https://" + host}
}

func (p *Prober) probeURL(ctx context.Context, url string) (surface.ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return surface.ProbeResult{}, err
	}
	req.Header.Set("User-Agent", p.UserAgent)

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return surface.ProbeResult{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, probeMaxBody))
	if err != nil {
		return surface.ProbeResult{}, err
	}

	return surface.ProbeResult{
		URL:        url,
		FinalURL:   resp.Request.URL.String(),
		Reachable:  true,
		StatusCode: resp.StatusCode,
		Title:      extractTitle(body),
		Body:       body,
		Headers:    resp.Header,
	}, nil
}

// FetchBody retrieves a response body for fingerprint verification, HTTPS
// before HTTP like the probe itself.
func (p *Prober) FetchBody(ctx context.Context, host string) (string, error) {
	var lastErr error
	for _, scheme := range []string{"https", "http"} {
		res, err := p.probeURL(ctx, scheme+"://"+host)
		if err != nil {
			lastErr = err
			continue
		}
		return string(res.Body), nil
	}
	return "", lastErr
}

// extractTitle pulls the first <title> text out of an HTML document,
// whitespace collapsed.
func extractTitle(body []byte) string {
	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) != atom.Title {
				continue
			}
			if z.Next() == html.TextToken {
				return strings.Join(strings.Fields(z.Token().Data), " ")
			}
			return ""
		}
	}
}
