package takeover

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/driftsec/driftwatch/internal/surface"
)

// CNAMEResolver supplies canonical-name lookups. An empty cname with a nil
// error means the host simply has no CNAME record.
type CNAMEResolver interface {
	LookupCNAME(ctx context.Context, host string) (string, error)
}

// TargetChecker is an optional capability of a CNAMEResolver: reporting
// whether a CNAME target itself still resolves. Evaluators use it to
// annotate verdicts; it never changes the confidence rules.
type TargetChecker interface {
	TargetResolves(ctx context.Context, host string) (bool, error)
}

// BodyFetcher retrieves a response body for fingerprint verification.
type BodyFetcher interface {
	FetchBody(ctx context.Context, host string) (string, error)
}

// Evaluator scores one hostname at a time for dangling-CNAME takeover.
type Evaluator struct {
	Registry *Registry
	Resolver CNAMEResolver
	Fetcher  BodyFetcher
}

// Evaluate produces a verdict for hostname. It never returns an error:
// collaborator failures degrade the verdict to the highest confidence the
// remaining data supports, and the degradation is noted on the verdict.
func (e *Evaluator) Evaluate(ctx context.Context, hostname string) surface.TakeoverVerdict {
	verdict := surface.TakeoverVerdict{
		Hostname:   strings.ToLower(strings.TrimSpace(hostname)),
		Confidence: surface.ConfidenceNone,
	}

	cname, err := e.Resolver.LookupCNAME(ctx, hostname)
	if err != nil {
		verdict.Note = "cname lookup failed"
		return verdict
	}
	cname = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(cname), "."))
	if cname == "" || cname == verdict.Hostname {
		return verdict
	}
	verdict.CNAME = cname

	matches := e.Registry.Lookup(cname)
	if len(matches) == 0 {
		return verdict
	}

	// A CNAME pointing at a known provider is suspicious but unverified.
	verdict.Service = matches[0].Name
	verdict.Confidence = surface.ConfidenceMedium

	body, err := e.Fetcher.FetchBody(ctx, hostname)
	if err != nil {
		verdict.Note = "http fetch failed; cname match only"
		e.noteUnresolvedTarget(ctx, &verdict)
		return verdict
	}

	bodyLower := strings.ToLower(body)
	for _, svc := range matches {
		for _, fp := range svc.Fingerprints {
			if strings.Contains(bodyLower, strings.ToLower(fp)) {
				verdict.Service = svc.Name
				verdict.Confidence = surface.ConfidenceHigh
				verdict.Evidence = fp
				e.noteUnresolvedTarget(ctx, &verdict)
				return verdict
			}
		}
	}

	if len(matches) > 1 {
		verdict.Note = "ambiguous cname match; manual review"
	}
	e.noteUnresolvedTarget(ctx, &verdict)
	return verdict
}

// noteUnresolvedTarget adds a note when the resolver can also tell us the
// CNAME target no longer resolves, a strong hint the resource is unclaimed.
func (e *Evaluator) noteUnresolvedTarget(ctx context.Context, v *surface.TakeoverVerdict) {
	tc, ok := e.Resolver.(TargetChecker)
	if !ok || v.CNAME == "" {
		return
	}
	resolves, err := tc.TargetResolves(ctx, v.CNAME)
	if err != nil || resolves {
		return
	}
	if v.Note != "" {
		v.Note += "; cname target does not resolve"
	} else {
		v.Note = "cname target does not resolve"
	}
}

// Pool runs evaluations concurrently over a bounded worker pool.
type Pool struct {
	Evaluator   *Evaluator
	Concurrency int

	// OnResult, when set, is called once per finished evaluation. It must be
	// safe for concurrent use.
	OnResult func()
}

// EvaluateAll evaluates every hostname and returns verdicts sorted by
// hostname, never by completion order. When the context expires mid-run the
// remaining hosts receive inconclusive verdicts instead of being dropped.
func (p *Pool) EvaluateAll(ctx context.Context, hostnames []string) []surface.TakeoverVerdict {
	concurrency := p.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	work := make(chan string, len(hostnames))
	for _, h := range hostnames {
		work <- h
	}
	close(work)

	var (
		mu       sync.Mutex
		verdicts []surface.TakeoverVerdict
	)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for host := range work {
				var v surface.TakeoverVerdict

				select {
				case <-ctx.Done():
					v = surface.TakeoverVerdict{
						Hostname:   strings.ToLower(strings.TrimSpace(host)),
						Confidence: surface.ConfidenceNone,
						Note:       "evaluation timed out",
					}
				default:
					v = p.Evaluator.Evaluate(ctx, host)
				}

				mu.Lock()
				verdicts = append(verdicts, v)
				mu.Unlock()

				if p.OnResult != nil {
					p.OnResult()
				}
			}
		}()
	}
	wg.Wait()

	sort.Slice(verdicts, func(i, j int) bool {
		return verdicts[i].Hostname < verdicts[j].Hostname
	})
	return verdicts
}
