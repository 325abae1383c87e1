// Package recon implements the discovery-side collaborators: passive
// subdomain sources, wordlist brute-force, zone transfer attempts, DNS
// resolution and HTTP probing. Everything here feeds the snapshot builder;
// nothing here decides what counts as a change.
package recon

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/driftsec/driftwatch/internal/engine"
)

// Discoverer fans subdomain discovery out across the enabled sources and
// folds the results into one resolved host set.
type Discoverer struct {
	UserAgent string
	Progress  engine.ProgressReporter

	CrtSh        bool
	HackerTarget bool
	OTX          bool
	Brute        bool
	AXFR         bool

	// resolve is swapped in tests; nil means ResolveHosts.
	resolve func(ctx context.Context, hosts []string, concurrency int) map[string][]string

	mu        sync.Mutex
	transfers []ZoneTransfer
	warnings  []string
}

// Warnings returns the non-fatal problems collected during the last
// Discover call: failed sources, rate limits, open zone transfers.
func (d *Discoverer) Warnings() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.warnings...)
}

// ZoneTransfers returns the per-nameserver AXFR outcomes of the last
// Discover call. Empty unless AXFR is enabled.
func (d *Discoverer) ZoneTransfers() []ZoneTransfer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]ZoneTransfer(nil), d.transfers...)
}

// Discover runs every enabled source in parallel, merges their hostnames
// and resolves addresses for the merged set. The root domain is always
// included: the apex is attack surface too, and keeping it in the set lets
// apex changes diff like any other host. When every enabled source fails
// the scan aborts rather than report a misleadingly empty surface.
func (d *Discoverer) Discover(ctx context.Context, domain string, concurrency int) (map[string][]string, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))

	d.mu.Lock()
	d.transfers = nil
	d.warnings = nil
	d.mu.Unlock()

	var (
		foundMu   sync.Mutex
		found     = map[string]bool{domain: true}
		succeeded int
		wg        sync.WaitGroup
	)
	merge := func(hosts []string) {
		foundMu.Lock()
		defer foundMu.Unlock()
		for _, h := range hosts {
			found[h] = true
		}
	}
	markSuccess := func() {
		foundMu.Lock()
		succeeded++
		foundMu.Unlock()
	}

	type source struct {
		name    string
		enabled bool
		run     func(context.Context) ([]string, error)
	}
	sources := []source{
		{"crt.sh", d.CrtSh, func(ctx context.Context) ([]string, error) {
			return CrtshEnumerate(ctx, domain, d.UserAgent)
		}},
		{"hackertarget", d.HackerTarget, func(ctx context.Context) ([]string, error) {
			return HackerTargetEnumerate(ctx, domain, d.UserAgent)
		}},
		{"otx", d.OTX, func(ctx context.Context) ([]string, error) {
			return OTXEnumerate(ctx, domain, d.UserAgent)
		}},
		{"brute-force", d.Brute, func(ctx context.Context) ([]string, error) {
			return BruteEnumerate(ctx, domain, bruteWorkers(concurrency))
		}},
	}

	enabled := 0
	for _, src := range sources {
		if !src.enabled {
			continue
		}
		enabled++
		wg.Add(1)
		go func(src source) {
			defer wg.Done()
			hosts, err := src.run(ctx)
			if err != nil {
				d.warn(fmt.Sprintf("%s: %s", src.name, err))
				return
			}
			merge(hosts)
			markSuccess()
			d.detail(fmt.Sprintf("%s: %d subdomains", src.name, len(hosts)))
		}(src)
	}

	if d.AXFR {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.attemptTransfers(ctx, domain, merge)
		}()
	}

	wg.Wait()

	if enabled > 0 && succeeded == 0 {
		return nil, fmt.Errorf("all subdomain sources failed for %s", domain)
	}

	hosts := make([]string, 0, len(found))
	for h := range found {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	d.detail(fmt.Sprintf("%d unique hosts", len(hosts)))

	resolve := d.resolve
	if resolve == nil {
		resolve = ResolveHosts
	}
	return resolve(ctx, hosts, concurrency), nil
}

// attemptTransfers folds AXFR results into the host set. Transfer attempts
// do not count toward source success: refusal is the expected outcome, and
// a run where only AXFR "worked" has still learned nothing.
func (d *Discoverer) attemptTransfers(ctx context.Context, domain string, merge func([]string)) {
	result, err := AttemptZoneTransfers(ctx, domain)
	if err != nil {
		d.warn(fmt.Sprintf("zone transfer: %s", err))
		return
	}

	d.mu.Lock()
	d.transfers = result.Transfers
	d.mu.Unlock()

	open := 0
	for _, t := range result.Transfers {
		if t.Success {
			open++
		}
	}
	if open > 0 {
		merge(result.Hostnames)
		d.warn(fmt.Sprintf("zone transfer enabled on %d of %d nameservers", open, len(result.Transfers)))
	}
	d.detail(fmt.Sprintf("zone transfer: %d nameservers tested, %d open", len(result.Transfers), open))
}

func bruteWorkers(concurrency int) int {
	n := concurrency / 2
	if n < 1 {
		n = 1
	}
	return n
}

func (d *Discoverer) warn(msg string) {
	d.mu.Lock()
	d.warnings = append(d.warnings, msg)
	d.mu.Unlock()
	if d.Progress != nil {
		d.Progress.Warn(msg)
	}
}

func (d *Discoverer) detail(msg string) {
	if d.Progress != nil {
		d.Progress.Detail(msg)
	}
}
