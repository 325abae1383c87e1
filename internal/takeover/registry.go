// Package takeover implements dangling-CNAME takeover detection: a data-driven
// registry of vulnerable-service signatures and an evaluator that produces
// confidence-scored verdicts per hostname.
package takeover

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed takeover.json
var takeoverJSON []byte

// Service is one registered takeover-prone provider: CNAME patterns that
// identify it and body substrings its unclaimed-resource page contains.
// Adding a provider is an edit to takeover.json, nothing else.
type Service struct {
	Name          string   `json:"service"`
	CNAMEPatterns []string `json:"cname"`
	Fingerprints  []string `json:"fingerprints"`
}

// Registry holds the signature table, loaded once and immutable afterwards.
type Registry struct {
	services []Service
}

var (
	registryOnce sync.Once
	registry     *Registry
	registryErr  error
)

// Default returns the registry parsed from the embedded signature table.
func Default() (*Registry, error) {
	registryOnce.Do(func() {
		registry, registryErr = parseRegistry(takeoverJSON)
	})
	return registry, registryErr
}

func parseRegistry(data []byte) (*Registry, error) {
	var services []Service
	if err := json.Unmarshal(data, &services); err != nil {
		return nil, fmt.Errorf("parse takeover signatures: %w", err)
	}
	if len(services) == 0 {
		return nil, fmt.Errorf("takeover signature table is empty")
	}
	for _, svc := range services {
		if svc.Name == "" || len(svc.CNAMEPatterns) == 0 {
			return nil, fmt.Errorf("takeover signature missing service name or cname patterns: %+v", svc)
		}
	}
	return &Registry{services: services}, nil
}

// Lookup returns every registered service whose CNAME pattern occurs in
// cname, case-insensitively. All matches are returned; resolving pattern
// overlap is the evaluator's job, not the registry's.
func (r *Registry) Lookup(cname string) []Service {
	cname = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(cname), "."))
	if cname == "" {
		return nil
	}

	var matches []Service
	for _, svc := range r.services {
		for _, pattern := range svc.CNAMEPatterns {
			if strings.Contains(cname, strings.ToLower(pattern)) {
				matches = append(matches, svc)
				break
			}
		}
	}
	return matches
}

// Len reports how many services are registered.
func (r *Registry) Len() int {
	return len(r.services)
}
