package recon

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	axfrDialTimeout = 10 * time.Second
	axfrReadTimeout = 30 * time.Second
)

// ZoneTransfer records one AXFR attempt against a single nameserver.
type ZoneTransfer struct {
	Nameserver string `json:"nameserver"`
	Success    bool   `json:"success"`
	Records    int    `json:"records"`
}

// ZoneTransferResult aggregates AXFR attempts across a domain's
// nameservers. A successful transfer is a finding in itself: the zone
// should not be readable by strangers.
type ZoneTransferResult struct {
	Transfers []ZoneTransfer
	Hostnames []string
}

// AttemptZoneTransfers asks each authoritative nameserver for a full zone
// transfer and collects any in-scope hostnames handed over.
func AttemptZoneTransfers(ctx context.Context, domain string) (*ZoneTransferResult, error) {
	nameservers, err := net.DefaultResolver.LookupNS(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("NS lookup for %s: %w", domain, err)
	}
	if len(nameservers) == 0 {
		return nil, fmt.Errorf("no NS records for %s", domain)
	}

	result := &ZoneTransferResult{}
	seen := make(map[string]bool)

	for _, ns := range nameservers {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		server := strings.TrimSuffix(ns.Host, ".")
		transfer := ZoneTransfer{Nameserver: server}

		names, err := attemptAXFR(domain, server)
		if err == nil {
			// Refusal is the normal outcome; only a served zone counts.
			transfer.Success = true
			transfer.Records = len(names)
			for _, name := range names {
				if !seen[name] {
					seen[name] = true
					result.Hostnames = append(result.Hostnames, name)
				}
			}
		}
		result.Transfers = append(result.Transfers, transfer)
	}

	sort.Strings(result.Hostnames)
	return result, nil
}

// attemptAXFR runs one zone transfer. The dns.Transfer API has no context
// hook, so cancellation is bounded by the dial and read timeouts.
func attemptAXFR(domain, nameserver string) ([]string, error) {
	transfer := &dns.Transfer{
		DialTimeout: axfrDialTimeout,
		ReadTimeout: axfrReadTimeout,
	}

	msg := new(dns.Msg)
	msg.SetAxfr(dns.Fqdn(domain))

	addr := nameserver
	if _, _, err := net.SplitHostPort(nameserver); err != nil {
		addr = net.JoinHostPort(nameserver, "53")
	}

	envelopes, err := transfer.In(msg, addr)
	if err != nil {
		return nil, fmt.Errorf("AXFR to %s: %w", nameserver, err)
	}

	seen := make(map[string]bool)
	var names []string
	for envelope := range envelopes {
		if envelope.Error != nil {
			return nil, fmt.Errorf("AXFR envelope from %s: %w", nameserver, envelope.Error)
		}
		for _, rr := range envelope.RR {
			name, ok := inScope(strings.TrimSuffix(rr.Header().Name, "."), domain)
			if !ok || seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	return names, nil
}
