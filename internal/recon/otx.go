package recon

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Variable so tests can stand in a local server.
var otxBaseURL = "https://otx.alienvault.com/api/v1/indicators/domain/%s/passive_dns"

var otxSource = apiSource{
	name:       "otx",
	timeout:    15 * time.Second,
	maxBody:    10 * 1024 * 1024,
	retryDelay: 3 * time.Second,
	acceptJSON: true,
}

type otxResponse struct {
	PassiveDNS []otxEntry `json:"passive_dns"`
}

type otxEntry struct {
	Hostname string `json:"hostname"`
}

// OTXEnumerate queries AlienVault OTX passive DNS records for domain.
func OTXEnumerate(ctx context.Context, domain, userAgent string) ([]string, error) {
	body, err := otxSource.fetch(ctx, fmt.Sprintf(otxBaseURL, domain), userAgent)
	if err != nil {
		return nil, fmt.Errorf("otx fetch for %s: %w", domain, err)
	}
	return parseOTXHosts(body, domain)
}

func parseOTXHosts(body []byte, domain string) ([]string, error) {
	var resp otxResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("otx JSON parse for %s: %w", domain, err)
	}

	seen := make(map[string]bool)
	var hosts []string
	for _, entry := range resp.PassiveDNS {
		name, ok := inScope(entry.Hostname, domain)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		hosts = append(hosts, name)
	}
	return hosts, nil
}
