// Package engine orchestrates the driftwatch monitoring pipeline.
package engine

import (
	"context"
	"time"

	"github.com/driftsec/driftwatch/internal/diff"
	"github.com/driftsec/driftwatch/internal/notify"
	"github.com/driftsec/driftwatch/internal/surface"
)

// Report is the top-level output of one monitoring run for one domain.
type Report struct {
	Domain       string    `json:"domain"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
	DurationSecs float64   `json:"duration_secs"`
	// BaselineRun marks runs that (re)establish the baseline: the first
	// scan of a domain, or any scan where initialization was requested.
	BaselineRun    bool              `json:"baseline_run"`
	Snapshot       *surface.Snapshot `json:"snapshot"`
	Changes        *diff.ChangeSet   `json:"changes"`
	Dispatches     []notify.Dispatch `json:"dispatches,omitempty"`
	DeliveryErrors []string          `json:"delivery_errors,omitempty"`
	Warnings       []string          `json:"warnings,omitempty"`
	Summary        Summary           `json:"summary"`
}

// Summary provides aggregate counts for the run.
type Summary struct {
	Subdomains       int          `json:"subdomains"`
	Endpoints        int          `json:"endpoints"`
	Takeovers        int          `json:"takeovers"`
	Changes          int          `json:"changes"`
	Severity         diff.Summary `json:"severity"`
	Dispatched       int          `json:"dispatched"`
	FailedDeliveries int          `json:"failed_deliveries"`
}

// Discoverer produces the subdomain inventory for a domain: hostnames
// mapped to the addresses they resolve to. Hosts seen by a passive source
// but not resolving keep a nil address list.
type Discoverer interface {
	Discover(ctx context.Context, domain string, concurrency int) (map[string][]string, error)
}

// Prober fetches HTTP metadata for every hostname.
type Prober interface {
	Probe(ctx context.Context, hosts []string, concurrency int) []surface.ProbeResult
}

// Evaluator judges takeover exposure for every hostname.
type Evaluator interface {
	EvaluateAll(ctx context.Context, hostnames []string) []surface.TakeoverVerdict
}

// BaselineStore loads and persists per-domain baseline snapshots. Load
// returns (nil, nil) when no baseline exists yet; a baseline that exists
// but cannot be trusted is an error.
type BaselineStore interface {
	Load(domain string) (*surface.Snapshot, error)
	Save(domain string, snap *surface.Snapshot) error
}

// Router turns a change set into channel-addressed dispatches.
type Router interface {
	Route(cs *diff.ChangeSet, current *surface.Snapshot, baselineRun bool) []notify.Dispatch
}

// Dispatcher delivers dispatches to their channels and returns one error
// per failed delivery.
type Dispatcher interface {
	Deliver(ctx context.Context, dispatches []notify.Dispatch) []error
}

// WarningProvider is an optional interface that Discoverer implementations
// can satisfy to report non-fatal problems collected during discovery.
type WarningProvider interface {
	Warnings() []string
}

// ItemReporter is an optional interface that ProgressReporter
// implementations can satisfy to render per-item progress inside a stage.
// Ticks arrive out of band, typically from a worker pool callback.
type ItemReporter interface {
	StartItems(total int)
	FinishItems()
}
