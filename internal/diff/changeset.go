// Package diff compares two surface snapshots and reports what changed
// between them. Comparison is pure: the same pair of snapshots with the
// same config always yields the same ChangeSet, byte for byte once
// serialized, so notification text and tests are reproducible.
package diff

import (
	"github.com/driftsec/driftwatch/internal/surface"
)

// Category labels one kind of observed change. Category values double as
// the trigger names channels subscribe to in notification config.
type Category string

const (
	CategoryTakeover         Category = "subdomain_takeover"
	CategoryNewSubdomain     Category = "new_subdomain"
	CategoryRemovedSubdomain Category = "removed_subdomain"
	CategoryNewEndpoint      Category = "new_endpoint"
	CategoryRemovedEndpoint  Category = "removed_endpoint"
	CategoryChangedEndpoint  Category = "changed_endpoint"
	CategoryResolvedTakeover Category = "resolved_takeover"
	CategoryBaseline         Category = "baseline_complete"
)

// Categories lists every category a channel may subscribe to.
func Categories() []Category {
	return []Category{
		CategoryTakeover,
		CategoryNewSubdomain,
		CategoryRemovedSubdomain,
		CategoryNewEndpoint,
		CategoryRemovedEndpoint,
		CategoryChangedEndpoint,
		CategoryResolvedTakeover,
		CategoryBaseline,
	}
}

// StatusChange records a status code transition. A nil pointer stands for
// an unreachable probe.
type StatusChange struct {
	Old *int `json:"old"`
	New *int `json:"new"`
}

// TitleChange records a page title transition.
type TitleChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// BodyChange records a body size transition that met the configured
// percent threshold.
type BodyChange struct {
	OldLength   int     `json:"old_length"`
	NewLength   int     `json:"new_length"`
	DiffPercent float64 `json:"diff_percent"`
	OldHash     string  `json:"old_hash,omitempty"`
	NewHash     string  `json:"new_hash,omitempty"`
}

// TechChange records technologies that appeared or disappeared on an
// endpoint between scans.
type TechChange struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// EndpointDelta is the field-level difference for one URL present in both
// snapshots. A nil section means that field did not change.
type EndpointDelta struct {
	URL          string         `json:"url"`
	Status       *StatusChange  `json:"status,omitempty"`
	Title        *TitleChange   `json:"title,omitempty"`
	Body         *BodyChange    `json:"body,omitempty"`
	Technologies *TechChange    `json:"technologies,omitempty"`
	NewFlags     []surface.Flag `json:"new_flags,omitempty"`
}

// Summary counts change items per priority tier.
type Summary struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// Total returns the number of classified change items.
func (s Summary) Total() int {
	return s.Critical + s.High + s.Medium + s.Low
}

func (s *Summary) add(p Priority) {
	switch p {
	case PriorityCritical:
		s.Critical++
	case PriorityHigh:
		s.High++
	case PriorityMedium:
		s.Medium++
	default:
		s.Low++
	}
}

// ChangeSet is the full difference between a baseline snapshot and a
// current one. Every slice is sorted, and the set carries no timestamps,
// so identical inputs serialize identically.
type ChangeSet struct {
	Domain            string                    `json:"domain"`
	NewSubdomains     []string                  `json:"new_subdomains,omitempty"`
	RemovedSubdomains []string                  `json:"removed_subdomains,omitempty"`
	NewEndpoints      []string                  `json:"new_endpoints,omitempty"`
	RemovedEndpoints  []string                  `json:"removed_endpoints,omitempty"`
	ChangedEndpoints  []EndpointDelta           `json:"changed_endpoints,omitempty"`
	NewTakeovers      []surface.TakeoverVerdict `json:"new_takeovers,omitempty"`
	ResolvedTakeovers []surface.TakeoverVerdict `json:"resolved_takeovers,omitempty"`
	Severity          Summary                   `json:"severity_summary"`
}

// Empty reports whether the comparison found no differences at all.
func (c *ChangeSet) Empty() bool {
	return len(c.NewSubdomains) == 0 &&
		len(c.RemovedSubdomains) == 0 &&
		len(c.NewEndpoints) == 0 &&
		len(c.RemovedEndpoints) == 0 &&
		len(c.ChangedEndpoints) == 0 &&
		len(c.NewTakeovers) == 0 &&
		len(c.ResolvedTakeovers) == 0
}

// ChangeItem is one atomic observation from a ChangeSet, the unit both
// the classifier and the notification router work in.
type ChangeItem struct {
	Category Category
	// Subject is the hostname or URL the change is about.
	Subject string
	// Verdict is set for takeover items.
	Verdict *surface.TakeoverVerdict
	// Delta is set for changed-endpoint items.
	Delta *EndpointDelta
	// Flags holds the flags in force for a new endpoint, or the newly
	// raised ones for a changed endpoint.
	Flags []surface.Flag
}

// Items flattens the ChangeSet into change items in a fixed order.
// current, when non-nil, supplies endpoint records so flags on brand-new
// endpoints participate in classification.
func (c *ChangeSet) Items(current *surface.Snapshot) []ChangeItem {
	var items []ChangeItem
	for i := range c.NewTakeovers {
		v := &c.NewTakeovers[i]
		items = append(items, ChangeItem{Category: CategoryTakeover, Subject: v.Hostname, Verdict: v})
	}
	for _, host := range c.NewSubdomains {
		items = append(items, ChangeItem{Category: CategoryNewSubdomain, Subject: host})
	}
	for _, host := range c.RemovedSubdomains {
		items = append(items, ChangeItem{Category: CategoryRemovedSubdomain, Subject: host})
	}
	for _, url := range c.NewEndpoints {
		item := ChangeItem{Category: CategoryNewEndpoint, Subject: url}
		if current != nil {
			if rec, ok := current.Endpoints[url]; ok {
				item.Flags = rec.Flags
			}
		}
		items = append(items, item)
	}
	for _, url := range c.RemovedEndpoints {
		items = append(items, ChangeItem{Category: CategoryRemovedEndpoint, Subject: url})
	}
	for i := range c.ChangedEndpoints {
		d := &c.ChangedEndpoints[i]
		items = append(items, ChangeItem{Category: CategoryChangedEndpoint, Subject: d.URL, Delta: d, Flags: d.NewFlags})
	}
	for i := range c.ResolvedTakeovers {
		v := &c.ResolvedTakeovers[i]
		items = append(items, ChangeItem{Category: CategoryResolvedTakeover, Subject: v.Hostname, Verdict: v})
	}
	return items
}
