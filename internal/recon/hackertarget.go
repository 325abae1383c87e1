package recon

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Variable so tests can stand in a local server.
var hackertargetBaseURL = "https://api.hackertarget.com/hostsearch/?q=%s"

// Over quota the API answers 200 with this prose message instead of data.
const hackertargetRateMsg = "API count exceeded"

var hackertargetSource = apiSource{
	name:       "hackertarget",
	timeout:    10 * time.Second,
	maxBody:    5 * 1024 * 1024,
	retryDelay: 2 * time.Second,
}

// HackerTargetEnumerate queries the HackerTarget host search API. The
// response is plain text, one "host,ip" pair per line.
func HackerTargetEnumerate(ctx context.Context, domain, userAgent string) ([]string, error) {
	body, err := hackertargetSource.fetch(ctx, fmt.Sprintf(hackertargetBaseURL, domain), userAgent)
	if err != nil {
		return nil, fmt.Errorf("hackertarget fetch for %s: %w", domain, err)
	}
	if strings.Contains(string(body), hackertargetRateMsg) {
		return nil, fmt.Errorf("hackertarget rate limited: %s", hackertargetRateMsg)
	}
	return parseHackerTargetHosts(string(body), domain), nil
}

func parseHackerTargetHosts(body, domain string) []string {
	seen := make(map[string]bool)
	var hosts []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		raw, _, _ := strings.Cut(line, ",")
		name, ok := inScope(raw, domain)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		hosts = append(hosts, name)
	}
	return hosts
}
