// Package surface defines the snapshot model: the canonical point-in-time
// record of one domain's externally visible attack surface, used both as the
// stored baseline and as the current scan during diffing.
package surface

import (
	"net"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Confidence classifies how certain a takeover verdict is.
type Confidence string

const (
	ConfidenceNone   Confidence = "none"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

var confidenceRank = map[Confidence]int{
	ConfidenceNone:   0,
	ConfidenceMedium: 1,
	ConfidenceHigh:   2,
}

// AtLeast reports whether c is the same tier as other or a stronger one.
func (c Confidence) AtLeast(other Confidence) bool {
	return confidenceRank[c] >= confidenceRank[other]
}

// Flag severities, shared with the priority classifier.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// Snapshot is a complete point-in-time record of one domain. Snapshots are
// never mutated after Build/Normalize; each scan cycle produces a fresh one.
type Snapshot struct {
	Domain     string                    `json:"domain"`
	CapturedAt time.Time                 `json:"captured_at"`
	Subdomains map[string][]string       `json:"subdomains"`
	Endpoints  map[string]EndpointRecord `json:"endpoints"`
	Takeovers  []TakeoverVerdict         `json:"takeovers,omitempty"`
}

// EndpointRecord describes one probed URL. StatusCode nil means the URL was
// unreachable on every scheme.
type EndpointRecord struct {
	StatusCode   *int              `json:"status_code"`
	Title        string            `json:"title,omitempty"`
	BodyLength   int               `json:"body_length"`
	ContentHash  string            `json:"content_hash,omitempty"`
	Technologies []string          `json:"technologies,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	Flags        []Flag            `json:"flags,omitempty"`
}

// Flag marks an endpoint property worth an operator's attention, raised by
// the high-value, outdated-tech and hygiene heuristics.
type Flag struct {
	Category string `json:"category"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// TakeoverVerdict is the outcome of evaluating one subdomain for a
// dangling-CNAME takeover. Note carries degradation or ambiguity annotations
// so operators can tell "definitely safe" from "inconclusive".
type TakeoverVerdict struct {
	Hostname   string     `json:"hostname"`
	CNAME      string     `json:"cname,omitempty"`
	Service    string     `json:"service,omitempty"`
	Confidence Confidence `json:"confidence"`
	Evidence   string     `json:"evidence,omitempty"`
	Note       string     `json:"note,omitempty"`
}

// Empty returns a Snapshot with no observations. It stands in as the prior
// when no baseline exists, so a first scan reports everything as new.
func Empty(domain string) *Snapshot {
	return &Snapshot{
		Domain:     domain,
		Subdomains: map[string][]string{},
		Endpoints:  map[string]EndpointRecord{},
	}
}

// CanonicalURL normalizes a URL for comparison: lowercase scheme and host,
// default ports stripped, trailing slashes and fragments dropped. Invalid or
// scheme-less input is returned trimmed but otherwise untouched. Idempotent.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)

	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && !defaultPort(u.Scheme, port) {
		host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		// Bare IPv6 literal without a port keeps its brackets.
		host = "[" + host + "]"
	}
	u.Host = host

	u.Path = strings.TrimRight(u.Path, "/")
	u.Fragment = ""

	return u.String()
}

func defaultPort(scheme, port string) bool {
	return (scheme == "http" && port == "80") || (scheme == "https" && port == "443")
}

// Normalize canonicalizes the snapshot in place: lowercased subdomain keys
// with sorted, deduplicated addresses, canonical endpoint URL keys, and
// takeovers ordered by hostname. Calling it twice yields the same result.
func (s *Snapshot) Normalize() {
	subs := make(map[string][]string, len(s.Subdomains))
	for host, addrs := range s.Subdomains {
		h := strings.ToLower(strings.TrimSpace(host))
		if h == "" {
			continue
		}
		subs[h] = uniqueSorted(append(subs[h], addrs...))
	}
	s.Subdomains = subs

	eps := make(map[string]EndpointRecord, len(s.Endpoints))
	for _, rawURL := range sortedEndpointKeys(s.Endpoints) {
		key := CanonicalURL(rawURL)
		// First writer wins on canonical collisions; sorted iteration keeps
		// the outcome reproducible.
		if _, ok := eps[key]; !ok {
			eps[key] = s.Endpoints[rawURL]
		}
	}
	s.Endpoints = eps

	for i := range s.Takeovers {
		s.Takeovers[i].Hostname = strings.ToLower(s.Takeovers[i].Hostname)
		s.Takeovers[i].CNAME = strings.ToLower(s.Takeovers[i].CNAME)
	}
	sort.Slice(s.Takeovers, func(i, j int) bool {
		return s.Takeovers[i].Hostname < s.Takeovers[j].Hostname
	})
}

// IndexByHost groups endpoint records under the hostname component of their
// URL, in sorted URL order. Endpoints with unparsable URLs are skipped.
func (s *Snapshot) IndexByHost() map[string][]EndpointRecord {
	idx := make(map[string][]EndpointRecord)
	for _, rawURL := range sortedEndpointKeys(s.Endpoints) {
		u, err := url.Parse(rawURL)
		if err != nil || u.Hostname() == "" {
			continue
		}
		host := strings.ToLower(u.Hostname())
		idx[host] = append(idx[host], s.Endpoints[rawURL])
	}
	return idx
}

func sortedEndpointKeys(eps map[string]EndpointRecord) []string {
	keys := make([]string, 0, len(eps))
	for k := range eps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func uniqueSorted(ss []string) []string {
	seen := make(map[string]bool, len(ss))
	out := ss[:0]
	for _, s := range ss {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
