package diff

import (
	"fmt"

	"github.com/driftsec/driftwatch/internal/surface"
)

// Priority is a notification urgency tier.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Priorities lists the tiers from most to least urgent.
func Priorities() []Priority {
	return []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}
}

// Rank orders priorities for comparison; lower is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// Rule is one row of the classification table. Zero-valued fields are
// wildcards; a rule matches when every set field matches the item.
type Rule struct {
	// Category restricts the rule to one change category.
	Category Category `yaml:"category,omitempty"`
	// Confidence restricts the rule to takeover verdicts at that tier.
	Confidence surface.Confidence `yaml:"confidence,omitempty"`
	// FlagSeverity matches items carrying at least one flag of that
	// severity.
	FlagSeverity string `yaml:"flag_severity,omitempty"`
	// StatusRecovered matches endpoint changes whose status moved from an
	// error code back into the 2xx range.
	StatusRecovered bool `yaml:"status_recovered,omitempty"`

	Priority Priority `yaml:"priority"`
}

func (r Rule) matches(item ChangeItem) bool {
	if r.Category != "" && r.Category != item.Category {
		return false
	}
	if r.Confidence != "" {
		if item.Verdict == nil || item.Verdict.Confidence != r.Confidence {
			return false
		}
	}
	if r.FlagSeverity != "" && !hasFlagSeverity(item.Flags, r.FlagSeverity) {
		return false
	}
	if r.StatusRecovered && !statusRecovered(item.Delta) {
		return false
	}
	return true
}

// Validate rejects rules that could never match or carry an unknown tier.
func (r Rule) Validate() error {
	if r.Priority != PriorityCritical && r.Priority != PriorityHigh &&
		r.Priority != PriorityMedium && r.Priority != PriorityLow {
		return fmt.Errorf("unknown priority %q", r.Priority)
	}
	if r.Category != "" && !validCategory(r.Category) {
		return fmt.Errorf("unknown category %q", r.Category)
	}
	switch r.Confidence {
	case "", surface.ConfidenceNone, surface.ConfidenceMedium, surface.ConfidenceHigh:
	default:
		return fmt.Errorf("unknown confidence %q", r.Confidence)
	}
	switch r.FlagSeverity {
	case "", surface.SeverityHigh, surface.SeverityMedium, surface.SeverityLow:
	default:
		return fmt.Errorf("unknown flag severity %q", r.FlagSeverity)
	}
	return nil
}

func validCategory(c Category) bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Classifier assigns priorities from an ordered rule table, first match
// wins.
type Classifier struct {
	rules []Rule
}

func NewClassifier(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// DefaultRules returns the built-in classification table. Confirmed
// takeovers and high-severity flags outrank everything; new exposure
// outranks modified exposure; removals rank lowest.
func DefaultRules() []Rule {
	return []Rule{
		{Category: CategoryTakeover, Confidence: surface.ConfidenceHigh, Priority: PriorityCritical},
		{Category: CategoryTakeover, Confidence: surface.ConfidenceMedium, Priority: PriorityHigh},
		{FlagSeverity: surface.SeverityHigh, Priority: PriorityCritical},
		{Category: CategoryNewSubdomain, Priority: PriorityHigh},
		{Category: CategoryNewEndpoint, Priority: PriorityHigh},
		{Category: CategoryChangedEndpoint, StatusRecovered: true, Priority: PriorityHigh},
		{Category: CategoryChangedEndpoint, Priority: PriorityMedium},
	}
}

// Classify returns the priority of the first matching rule, or low when
// no rule matches.
func (c *Classifier) Classify(item ChangeItem) Priority {
	for _, r := range c.rules {
		if r.matches(item) {
			return r.Priority
		}
	}
	return PriorityLow
}

func hasFlagSeverity(flags []surface.Flag, severity string) bool {
	for _, f := range flags {
		if f.Severity == severity {
			return true
		}
	}
	return false
}

// statusRecovered reports a transition from an error status back to a
// 2xx, meaning a previously broken endpoint came alive again.
func statusRecovered(d *EndpointDelta) bool {
	if d == nil || d.Status == nil || d.Status.Old == nil || d.Status.New == nil {
		return false
	}
	return *d.Status.Old >= 400 && *d.Status.New >= 200 && *d.Status.New < 300
}
