package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/driftsec/driftwatch/internal/diff"
	"github.com/driftsec/driftwatch/internal/surface"
)

// Config holds the runtime configuration for one monitoring run.
type Config struct {
	Domain      string
	Concurrency int
	// InitBaseline treats the run as a baseline (re)initialization even
	// when a stored baseline exists: the summary is announced and no
	// change notifications fire.
	InitBaseline bool
	Diff         diff.Config
	Build        surface.BuildConfig
}

// Stages holds the injectable stage implementations.
type Stages struct {
	Discoverer Discoverer
	Prober     Prober
	Evaluator  Evaluator
	Store      BaselineStore
	Router     Router
	Dispatcher Dispatcher
}

// ProgressReporter is called by the engine to report stage progress.
type ProgressReporter interface {
	Stage(num, total int, msg string)
	Detail(msg string)
	Warn(msg string)
}

const totalStages = 6

// Run executes the full monitoring pipeline for one domain: discover,
// probe, evaluate takeover exposure, diff against the stored baseline,
// notify, and persist the new baseline.
func Run(ctx context.Context, cfg Config, stages Stages, progress ProgressReporter) (*Report, error) {
	report := &Report{
		Domain:    strings.ToLower(strings.TrimSpace(cfg.Domain)),
		StartedAt: time.Now(),
	}

	// Stage 1: baseline load. Loading before any network work makes a
	// corrupt baseline abort the run while it is still cheap.
	progress.Stage(1, totalStages, "Loading baseline...")
	baseline, err := stages.Store.Load(report.Domain)
	if err != nil {
		return nil, err
	}
	report.BaselineRun = baseline == nil || cfg.InitBaseline
	switch {
	case baseline == nil:
		progress.Detail("No baseline on disk; this run records the first one")
	case cfg.InitBaseline:
		progress.Detail("Baseline reset requested; this run replaces it")
	default:
		progress.Detail(fmt.Sprintf("Baseline from %s", baseline.CapturedAt.Format(time.RFC3339)))
	}

	// Stage 2: subdomain discovery.
	progress.Stage(2, totalStages, "Discovering subdomains...")
	hosts, err := stages.Discoverer.Discover(ctx, report.Domain, cfg.Concurrency)
	if err != nil {
		return nil, err
	}
	if wp, ok := stages.Discoverer.(WarningProvider); ok {
		report.Warnings = append(report.Warnings, wp.Warnings()...)
	}
	progress.Detail(fmt.Sprintf("%d hosts in inventory", len(hosts)))

	// A cancelled run must never reach Save: persisting a half-built
	// snapshot would turn every unscanned host into a removal next run.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 3: HTTP probing.
	hostnames := sortedHosts(hosts)
	items, hasItems := progress.(ItemReporter)
	progress.Stage(3, totalStages, fmt.Sprintf("Probing %d hosts...", len(hostnames)))
	if hasItems {
		items.StartItems(len(hostnames))
	}
	probes := stages.Prober.Probe(ctx, hostnames, cfg.Concurrency)
	if hasItems {
		items.FinishItems()
	}
	reachable := 0
	for _, p := range probes {
		if p.Reachable {
			reachable++
		}
	}
	progress.Detail(fmt.Sprintf("%d of %d hosts serve HTTP", reachable, len(hostnames)))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 4: takeover evaluation.
	progress.Stage(4, totalStages, "Checking takeover exposure...")
	if hasItems {
		items.StartItems(len(hostnames))
	}
	verdicts := stages.Evaluator.EvaluateAll(ctx, hostnames)
	if hasItems {
		items.FinishItems()
	}
	flagged := 0
	for _, v := range verdicts {
		if v.Confidence.AtLeast(surface.ConfidenceMedium) {
			flagged++
		}
	}
	progress.Detail(fmt.Sprintf("%d hosts flagged", flagged))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 5: snapshot build and comparison.
	progress.Stage(5, totalStages, "Comparing against baseline...")
	current := surface.Build(report.Domain, time.Now(), hosts, probes, verdicts, cfg.Build)
	report.Snapshot = current
	for _, host := range orphanEndpointHosts(current) {
		warn := fmt.Sprintf("endpoint host %s is missing from the subdomain inventory", host)
		report.Warnings = append(report.Warnings, warn)
		progress.Warn(warn)
	}
	changes := diff.Compare(baseline, current, cfg.Diff)
	report.Changes = changes
	progress.Detail(describeChanges(changes))

	// Stage 6: notification and persistence. Delivery failures are
	// warnings; the scan result is still sound and the baseline advances.
	progress.Stage(6, totalStages, "Notifying and saving...")
	dispatches := stages.Router.Route(changes, current, report.BaselineRun)
	report.Dispatches = dispatches
	if len(dispatches) > 0 {
		for _, derr := range stages.Dispatcher.Deliver(ctx, dispatches) {
			report.DeliveryErrors = append(report.DeliveryErrors, derr.Error())
			progress.Warn(fmt.Sprintf("delivery: %s", derr))
		}
		progress.Detail(fmt.Sprintf("%d notifications dispatched", len(dispatches)))
	} else {
		progress.Detail("Nothing to notify")
	}

	if err := stages.Store.Save(report.Domain, current); err != nil {
		return nil, err
	}

	report.CompletedAt = time.Now()
	report.DurationSecs = report.CompletedAt.Sub(report.StartedAt).Seconds()
	report.Summary = buildSummary(report)

	return report, nil
}

func buildSummary(report *Report) Summary {
	return Summary{
		Subdomains:       len(report.Snapshot.Subdomains),
		Endpoints:        len(report.Snapshot.Endpoints),
		Takeovers:        len(report.Snapshot.Takeovers),
		Changes:          report.Changes.Severity.Total(),
		Severity:         report.Changes.Severity,
		Dispatched:       len(report.Dispatches),
		FailedDeliveries: len(report.DeliveryErrors),
	}
}

func describeChanges(cs *diff.ChangeSet) string {
	if cs.Empty() {
		return "No changes against baseline"
	}
	s := cs.Severity
	return fmt.Sprintf("%d changes: %d critical, %d high, %d medium, %d low",
		s.Total(), s.Critical, s.High, s.Medium, s.Low)
}

// orphanEndpointHosts lists endpoint hosts absent from the subdomain
// inventory. The mismatch is informational; the snapshot stays usable.
func orphanEndpointHosts(snap *surface.Snapshot) []string {
	var orphans []string
	for host := range snap.IndexByHost() {
		if _, ok := snap.Subdomains[host]; !ok {
			orphans = append(orphans, host)
		}
	}
	sort.Strings(orphans)
	return orphans
}

func sortedHosts(hosts map[string][]string) []string {
	out := make([]string, 0, len(hosts))
	for h := range hosts {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}
