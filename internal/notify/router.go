package notify

import (
	"fmt"
	"strings"

	"github.com/driftsec/driftwatch/internal/diff"
	"github.com/driftsec/driftwatch/internal/surface"
)

// TriggerAll subscribes a channel to every category.
const TriggerAll diff.Category = "all"

// Subscription is one channel's routing settings: which change categories
// it wants to hear about.
type Subscription struct {
	Channel  string
	Enabled  bool
	Triggers []diff.Category
}

func (s Subscription) wants(cat diff.Category) bool {
	if !s.Enabled {
		return false
	}
	for _, t := range s.Triggers {
		if t == cat || t == TriggerAll {
			return true
		}
	}
	return false
}

// Router groups change items into per-category payloads and fans them out
// to subscribed channels.
type Router struct {
	Subscriptions []Subscription
	// Classifier assigns item priorities. Nil means the built-in rules.
	Classifier *diff.Classifier
}

// Route produces the dispatches for one scan cycle.
//
// baselineRun must be true only when the caller explicitly initialized the
// baseline or no prior baseline existed. A baseline run emits a single
// inventory summary per subscribed channel and nothing else; a routine run
// emits change dispatches only, never the summary. The two never mix.
func (r *Router) Route(cs *diff.ChangeSet, current *surface.Snapshot, baselineRun bool) []Dispatch {
	if baselineRun {
		return r.baselineDispatches(current)
	}
	if cs == nil || cs.Empty() {
		return nil
	}

	cl := r.Classifier
	if cl == nil {
		cl = diff.NewClassifier(diff.DefaultRules())
	}

	byCategory := map[diff.Category][]Item{}
	for _, change := range cs.Items(current) {
		item := Item{
			Subject:  change.Subject,
			Priority: cl.Classify(change),
			Detail:   describeChange(change, current),
		}
		byCategory[change.Category] = append(byCategory[change.Category], item)
	}

	var out []Dispatch
	for _, cat := range diff.Categories() {
		items := byCategory[cat]
		if len(items) == 0 {
			continue
		}
		payload := Payload{
			Domain:   cs.Domain,
			Category: cat,
			Priority: topPriority(items),
			Title:    payloadTitle(cat, cs.Domain, len(items)),
			Items:    items,
		}
		for _, sub := range r.Subscriptions {
			if sub.wants(cat) {
				out = append(out, Dispatch{Channel: sub.Channel, Payload: payload})
			}
		}
	}
	return out
}

func (r *Router) baselineDispatches(current *surface.Snapshot) []Dispatch {
	domain := ""
	if current != nil {
		domain = current.Domain
	}
	payload := Payload{
		Domain:   domain,
		Category: diff.CategoryBaseline,
		Priority: diff.PriorityLow,
		Title:    fmt.Sprintf("Baseline established for %s", domain),
		Baseline: Summarize(current),
	}
	var out []Dispatch
	for _, sub := range r.Subscriptions {
		if sub.wants(diff.CategoryBaseline) {
			out = append(out, Dispatch{Channel: sub.Channel, Payload: payload})
		}
	}
	return out
}

func topPriority(items []Item) diff.Priority {
	top := diff.PriorityLow
	for _, item := range items {
		if item.Priority.Rank() < top.Rank() {
			top = item.Priority
		}
	}
	return top
}

func payloadTitle(cat diff.Category, domain string, n int) string {
	switch cat {
	case diff.CategoryTakeover:
		return fmt.Sprintf("%s on %s", plural(n, "possible subdomain takeover"), domain)
	case diff.CategoryNewSubdomain:
		return fmt.Sprintf("%s on %s", plural(n, "new subdomain"), domain)
	case diff.CategoryRemovedSubdomain:
		return fmt.Sprintf("%s on %s", plural(n, "removed subdomain"), domain)
	case diff.CategoryNewEndpoint:
		return fmt.Sprintf("%s on %s", plural(n, "new endpoint"), domain)
	case diff.CategoryRemovedEndpoint:
		return fmt.Sprintf("%s on %s", plural(n, "removed endpoint"), domain)
	case diff.CategoryChangedEndpoint:
		return fmt.Sprintf("%s on %s", plural(n, "changed endpoint"), domain)
	case diff.CategoryResolvedTakeover:
		return fmt.Sprintf("%s on %s", plural(n, "resolved takeover"), domain)
	default:
		return fmt.Sprintf("%d changes on %s", n, domain)
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// describeChange builds the detail line for one change item, carrying the
// literal before/after values a reader needs.
func describeChange(change diff.ChangeItem, current *surface.Snapshot) string {
	switch change.Category {
	case diff.CategoryTakeover:
		return describeVerdict(change.Verdict)
	case diff.CategoryResolvedTakeover:
		if change.Verdict != nil && change.Verdict.Service != "" {
			return fmt.Sprintf("%s takeover no longer detected", change.Verdict.Service)
		}
		return "takeover no longer detected"
	case diff.CategoryNewSubdomain:
		if current != nil {
			if addrs := current.Subdomains[change.Subject]; len(addrs) > 0 {
				return "resolves to " + strings.Join(addrs, ", ")
			}
		}
		return "did not resolve"
	case diff.CategoryRemovedSubdomain:
		return "present in baseline, gone now"
	case diff.CategoryNewEndpoint:
		return describeEndpoint(change, current)
	case diff.CategoryRemovedEndpoint:
		return "present in baseline, gone now"
	case diff.CategoryChangedEndpoint:
		return describeDelta(change.Delta)
	default:
		return ""
	}
}

func describeVerdict(v *surface.TakeoverVerdict) string {
	if v == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "cname %s", v.CNAME)
	if v.Service != "" {
		fmt.Fprintf(&b, " matches %s", v.Service)
	}
	fmt.Fprintf(&b, " (%s confidence)", v.Confidence)
	if v.Evidence != "" {
		fmt.Fprintf(&b, ", response contains %q", v.Evidence)
	}
	if v.Note != "" {
		fmt.Fprintf(&b, "; %s", v.Note)
	}
	return b.String()
}

func describeEndpoint(change diff.ChangeItem, current *surface.Snapshot) string {
	var parts []string
	if current != nil {
		if rec, ok := current.Endpoints[change.Subject]; ok {
			parts = append(parts, statusString(rec.StatusCode))
			if rec.Title != "" {
				parts = append(parts, fmt.Sprintf("title %q", rec.Title))
			}
		}
	}
	for _, f := range change.Flags {
		parts = append(parts, fmt.Sprintf("%s [%s]", f.Message, f.Severity))
	}
	if len(parts) == 0 {
		return "newly discovered"
	}
	return strings.Join(parts, ", ")
}

func describeDelta(d *diff.EndpointDelta) string {
	if d == nil {
		return ""
	}
	var parts []string
	if d.Status != nil {
		parts = append(parts, fmt.Sprintf("status %s -> %s", statusString(d.Status.Old), statusString(d.Status.New)))
	}
	if d.Title != nil {
		parts = append(parts, fmt.Sprintf("title %q -> %q", d.Title.Old, d.Title.New))
	}
	if d.Body != nil {
		parts = append(parts, fmt.Sprintf("body %d -> %d bytes (%.1f%%)", d.Body.OldLength, d.Body.NewLength, d.Body.DiffPercent))
	}
	if d.Technologies != nil {
		if len(d.Technologies.Added) > 0 {
			parts = append(parts, "tech added: "+strings.Join(d.Technologies.Added, ", "))
		}
		if len(d.Technologies.Removed) > 0 {
			parts = append(parts, "tech removed: "+strings.Join(d.Technologies.Removed, ", "))
		}
	}
	for _, f := range d.NewFlags {
		parts = append(parts, fmt.Sprintf("new flag: %s [%s]", f.Message, f.Severity))
	}
	return strings.Join(parts, "; ")
}
