package diff

import (
	"sort"

	"github.com/driftsec/driftwatch/internal/surface"
)

// DefaultMinChangePercent is the body size threshold used when a config
// does not set one.
const DefaultMinChangePercent = 5.0

// Config tunes noise suppression and classification during comparison.
type Config struct {
	// MinChangePercent is the minimum relative body size change, in
	// percent, for a content change to be reported. Zero reports every
	// size difference; status, title, technology, and flag changes are
	// always reported regardless of this value.
	MinChangePercent float64

	// Classifier assigns priority tiers to change items for the severity
	// summary. Nil means the built-in rule table.
	Classifier *Classifier
}

func (c Config) classifier() *Classifier {
	if c.Classifier != nil {
		return c.Classifier
	}
	return NewClassifier(DefaultRules())
}

// Compare reports every difference between baseline and current. A nil
// baseline stands for a first scan, so the whole current inventory comes
// back as new. Both snapshots are normalized in place before comparing.
func Compare(baseline, current *surface.Snapshot, cfg Config) *ChangeSet {
	if current == nil {
		current = surface.Empty("")
	}
	if baseline == nil {
		baseline = surface.Empty(current.Domain)
	}
	baseline.Normalize()
	current.Normalize()

	cs := &ChangeSet{Domain: current.Domain}

	cs.NewSubdomains = missingKeys(current.Subdomains, baseline.Subdomains)
	cs.RemovedSubdomains = missingKeys(baseline.Subdomains, current.Subdomains)
	cs.NewEndpoints = missingKeys(current.Endpoints, baseline.Endpoints)
	cs.RemovedEndpoints = missingKeys(baseline.Endpoints, current.Endpoints)

	for _, url := range sortedKeys(current.Endpoints) {
		old, ok := baseline.Endpoints[url]
		if !ok {
			continue
		}
		if delta := compareEndpoint(url, old, current.Endpoints[url], cfg); delta != nil {
			cs.ChangedEndpoints = append(cs.ChangedEndpoints, *delta)
		}
	}

	cs.NewTakeovers = newVerdicts(current.Takeovers, baseline.Takeovers)
	cs.ResolvedTakeovers = resolvedVerdicts(baseline.Takeovers, current.Takeovers)

	cl := cfg.classifier()
	for _, item := range cs.Items(current) {
		cs.Severity.add(cl.Classify(item))
	}
	return cs
}

// compareEndpoint returns the field-level delta for one URL, or nil when
// nothing reportable changed.
func compareEndpoint(url string, old, cur surface.EndpointRecord, cfg Config) *EndpointDelta {
	delta := &EndpointDelta{URL: url}

	if !equalStatus(old.StatusCode, cur.StatusCode) {
		delta.Status = &StatusChange{Old: old.StatusCode, New: cur.StatusCode}
	}
	if old.Title != cur.Title {
		delta.Title = &TitleChange{Old: old.Title, New: cur.Title}
	}

	// A hash mismatch alone is not enough: the size delta has to clear
	// the percent threshold before a content change is reported.
	if old.ContentHash != cur.ContentHash || old.BodyLength != cur.BodyLength {
		pct := bodyDiffPercent(old.BodyLength, cur.BodyLength)
		if pct >= cfg.MinChangePercent {
			delta.Body = &BodyChange{
				OldLength:   old.BodyLength,
				NewLength:   cur.BodyLength,
				DiffPercent: pct,
				OldHash:     old.ContentHash,
				NewHash:     cur.ContentHash,
			}
		}
	}

	if tech := diffTechnologies(old.Technologies, cur.Technologies); tech != nil {
		delta.Technologies = tech
	}
	if flags := addedFlags(old.Flags, cur.Flags); len(flags) > 0 {
		delta.NewFlags = flags
	}

	if delta.Status == nil && delta.Title == nil && delta.Body == nil &&
		delta.Technologies == nil && len(delta.NewFlags) == 0 {
		return nil
	}
	return delta
}

func bodyDiffPercent(old, cur int) float64 {
	diff := cur - old
	if diff < 0 {
		diff = -diff
	}
	den := old
	if den < 1 {
		den = 1
	}
	return float64(diff) / float64(den) * 100
}

func equalStatus(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func diffTechnologies(old, cur []string) *TechChange {
	added := missingStrings(cur, old)
	removed := missingStrings(old, cur)
	if len(added) == 0 && len(removed) == 0 {
		return nil
	}
	return &TechChange{Added: added, Removed: removed}
}

// addedFlags returns the flags present on cur but not on old, sorted.
func addedFlags(old, cur []surface.Flag) []surface.Flag {
	seen := make(map[surface.Flag]struct{}, len(old))
	for _, f := range old {
		seen[f] = struct{}{}
	}
	var out []surface.Flag
	for _, f := range cur {
		if _, ok := seen[f]; !ok {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Message < out[j].Message
	})
	return out
}

type verdictKey struct {
	hostname   string
	service    string
	confidence surface.Confidence
}

// newVerdicts returns verdicts whose (hostname, service, confidence)
// triple is absent from prior. A confidence escalation on an already
// known finding therefore reports again.
func newVerdicts(cur, prior []surface.TakeoverVerdict) []surface.TakeoverVerdict {
	seen := make(map[verdictKey]struct{}, len(prior))
	for _, v := range prior {
		seen[verdictKey{v.Hostname, v.Service, v.Confidence}] = struct{}{}
	}
	var out []surface.TakeoverVerdict
	for _, v := range cur {
		if _, ok := seen[verdictKey{v.Hostname, v.Service, v.Confidence}]; !ok {
			out = append(out, v)
		}
	}
	sortVerdicts(out)
	return out
}

// resolvedVerdicts returns prior verdicts whose hostname carries no
// takeover verdict at all anymore.
func resolvedVerdicts(prior, cur []surface.TakeoverVerdict) []surface.TakeoverVerdict {
	active := make(map[string]struct{}, len(cur))
	for _, v := range cur {
		active[v.Hostname] = struct{}{}
	}
	var out []surface.TakeoverVerdict
	for _, v := range prior {
		if _, ok := active[v.Hostname]; !ok {
			out = append(out, v)
		}
	}
	sortVerdicts(out)
	return out
}

func sortVerdicts(vs []surface.TakeoverVerdict) {
	sort.Slice(vs, func(i, j int) bool { return vs[i].Hostname < vs[j].Hostname })
}

// missingKeys returns the keys of in that are absent from from, sorted.
func missingKeys[V any](in, from map[string]V) []string {
	var out []string
	for k := range in {
		if _, ok := from[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func missingStrings(in, from []string) []string {
	seen := make(map[string]struct{}, len(from))
	for _, s := range from {
		seen[s] = struct{}{}
	}
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; !ok {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
