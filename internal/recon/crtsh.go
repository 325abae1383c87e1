package recon

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Variable so tests can stand in a local server.
var crtshBaseURL = "https://crt.sh/?q=%%25.%s&output=json"

// crt.sh returns the full certificate history for a domain in one response,
// which for a large estate runs to tens of megabytes.
var crtshSource = apiSource{
	name:       "crt.sh",
	timeout:    30 * time.Second,
	maxBody:    50 * 1024 * 1024,
	retryDelay: 3 * time.Second,
	acceptJSON: true,
}

type crtshEntry struct {
	NameValue string `json:"name_value"`
}

// CrtshEnumerate queries crt.sh Certificate Transparency logs for hostnames
// that appeared on certificates under domain.
func CrtshEnumerate(ctx context.Context, domain, userAgent string) ([]string, error) {
	body, err := crtshSource.fetch(ctx, fmt.Sprintf(crtshBaseURL, domain), userAgent)
	if err != nil {
		return nil, fmt.Errorf("crt.sh fetch for %s: %w", domain, err)
	}
	return parseCrtshHosts(body, domain)
}

func parseCrtshHosts(body []byte, domain string) ([]string, error) {
	var entries []crtshEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("crt.sh JSON parse for %s: %w", domain, err)
	}

	seen := make(map[string]bool)
	var hosts []string
	for _, entry := range entries {
		// name_value packs every SAN into one newline-separated string.
		for _, raw := range strings.Split(entry.NameValue, "\n") {
			name, ok := inScope(raw, domain)
			if !ok || seen[name] {
				continue
			}
			seen[name] = true
			hosts = append(hosts, name)
		}
	}
	return hosts, nil
}
