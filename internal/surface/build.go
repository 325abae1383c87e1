package surface

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// ProbeResult is the raw outcome of probing one URL, as supplied by the HTTP
// probe collaborator. The core derives EndpointRecords from these fields;
// content hashing and flag heuristics are never delegated to the prober.
type ProbeResult struct {
	Host       string
	URL        string
	FinalURL   string
	Reachable  bool
	StatusCode int
	Title      string
	Body       []byte
	Headers    http.Header
}

// BuildConfig carries the knobs the builder needs from configuration.
type BuildConfig struct {
	// NoiseFilters are stripped from bodies before hashing and drop matching
	// header entries, so rotating tokens never register as change.
	NoiseFilters []*regexp.Regexp
}

// Build assembles a normalized Snapshot from collaborator outputs: discovered
// hosts with their addresses, raw probe results, and takeover verdicts.
// Only verdicts with confidence medium or higher are retained.
func Build(domain string, capturedAt time.Time, hosts map[string][]string, probes []ProbeResult, verdicts []TakeoverVerdict, cfg BuildConfig) *Snapshot {
	snap := &Snapshot{
		Domain:     strings.ToLower(domain),
		CapturedAt: capturedAt,
		Subdomains: make(map[string][]string, len(hosts)),
		Endpoints:  make(map[string]EndpointRecord, len(probes)),
	}

	for host, addrs := range hosts {
		snap.Subdomains[host] = append([]string(nil), addrs...)
	}

	for _, p := range probes {
		snap.Endpoints[p.URL] = BuildEndpoint(p, cfg.NoiseFilters)
	}

	for _, v := range verdicts {
		if v.Confidence.AtLeast(ConfidenceMedium) {
			snap.Takeovers = append(snap.Takeovers, v)
		}
	}

	snap.Normalize()
	return snap
}

// BuildEndpoint derives one EndpointRecord from a raw probe result.
// Unreachable probes produce a record with a nil status code and no content
// fields, which is itself a signal worth diffing.
func BuildEndpoint(p ProbeResult, filters []*regexp.Regexp) EndpointRecord {
	if !p.Reachable {
		return EndpointRecord{}
	}

	status := p.StatusCode
	title := strings.TrimSpace(p.Title)
	techs := DetectTechnologies(p.Headers, p.Body)

	return EndpointRecord{
		StatusCode:   &status,
		Title:        title,
		BodyLength:   len(p.Body),
		ContentHash:  HashContent(p.Body, filters),
		Technologies: techs,
		Headers:      retainedHeaders(p.Headers, filters),
		Flags:        EvaluateFlags(p.URL, title, status, p.Headers, techs),
	}
}

// HashContent returns the sha256 hex digest of body with every noise-filter
// match stripped first.
func HashContent(body []byte, filters []*regexp.Regexp) string {
	for _, f := range filters {
		body = f.ReplaceAll(body, nil)
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// retainedHeaders keeps only the security-relevant header subset, minus any
// entry a noise filter matches.
func retainedHeaders(h http.Header, filters []*regexp.Regexp) map[string]string {
	out := make(map[string]string)
	for _, name := range securityHeaderNames {
		value := h.Get(name)
		if value == "" {
			continue
		}
		if matchesAnyFilter(filters, name+": "+value) {
			continue
		}
		out[name] = value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func matchesAnyFilter(filters []*regexp.Regexp, s string) bool {
	for _, f := range filters {
		if f.MatchString(s) {
			return true
		}
	}
	return false
}
