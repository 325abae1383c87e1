package recon

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// apiSource is one passive subdomain source: a name for error messages and
// the limits applied to its HTTP requests.
type apiSource struct {
	name       string
	timeout    time.Duration
	maxBody    int64
	retryDelay time.Duration
	acceptJSON bool
}

// fetch issues the request, retrying once after retryDelay on transient
// failure. Rate-limit responses are never retried: hammering a source that
// asked us to back off only gets the scanner blocked for longer.
func (s apiSource) fetch(ctx context.Context, url, userAgent string) ([]byte, error) {
	body, err := s.get(ctx, url, userAgent)
	if err == nil {
		return body, nil
	}
	if strings.Contains(err.Error(), "rate limited") {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.retryDelay):
	}

	return s.get(ctx, url, userAgent)
}

func (s apiSource) get(ctx context.Context, url, userAgent string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	if s.acceptJSON {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%s rate limited (429)", s.name)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", s.name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody))
	if err != nil {
		return nil, fmt.Errorf("%s read body: %w", s.name, err)
	}
	return body, nil
}

// inScope canonicalizes one discovered name and reports whether it belongs
// to domain. Wildcard prefixes are stripped rather than dropped: a
// certificate for *.example.com still names example.com infrastructure.
func inScope(name, domain string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimPrefix(name, "*.")
	if name == "" {
		return "", false
	}
	if name != domain && !strings.HasSuffix(name, "."+domain) {
		return "", false
	}
	return name, true
}
