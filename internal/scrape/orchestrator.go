// Package scrape coordinates one fetch pass: primary sources first, then
// supplemental, each phase on a bounded worker pool, with every per-source
// failure resolved to "this source contributes zero records this run".
package scrape

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"jobscout-engine/internal/backend"
	"jobscout-engine/internal/dedupe"
	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/ledger"
	"jobscout-engine/internal/scrape/types"
	"jobscout-engine/internal/scrape/util"
)

type State int32

const (
	StateIdle State = iota
	StateFetchingPrimary
	StateFetchingSupplemental
	StateDeduplicating
	StateDone
)

const defaultWorkers = 4

type outcome int

const (
	outcomeOK outcome = iota
	outcomeNoCreds
	outcomeThrottled
	outcomeTransient
	outcomeAuth
)

type task struct {
	idx     int
	fetcher types.Fetcher
	query   types.Query
}

type taskResult struct {
	idx        int
	source     string
	outcome    outcome
	retryAfter time.Duration
	jobs       []domain.Job
}

type Orchestrator struct {
	fetchers map[string]types.Fetcher
	led      *ledger.Ledger
	ded      *dedupe.Deduper
	workers  int

	state atomic.Int32

	// sources that hit a permanent authorization failure this run; they are
	// logged once and never called again within the pass.
	deadMu sync.Mutex
	dead   map[string]bool
}

func New(led *ledger.Ledger, ded *dedupe.Deduper, workers int, fetchers ...types.Fetcher) *Orchestrator {
	if workers <= 0 {
		workers = defaultWorkers
	}
	m := make(map[string]types.Fetcher, len(fetchers))
	for _, f := range fetchers {
		m[f.Name()] = f
	}
	return &Orchestrator{
		fetchers: m,
		led:      led,
		ded:      ded,
		workers:  workers,
		dead:     make(map[string]bool),
	}
}

func (o *Orchestrator) State() State { return State(o.state.Load()) }

// Run executes one full fetch pass over the given queries and returns the
// deduplicated records plus the pass summary. It always completes: no
// adapter error propagates past this point.
func (o *Orchestrator) Run(ctx context.Context, queries []types.Query) ([]domain.Job, Summary) {
	var primary, supplemental []task
	for _, q := range queries {
		f, ok := o.fetchers[q.Source]
		if !ok {
			log.Printf("[scrape] no adapter for source %q; skipping query", q.Source)
			continue
		}
		t := task{fetcher: f, query: q}
		if f.Tier() == types.TierPrimary {
			t.idx = len(primary)
			primary = append(primary, t)
		} else {
			t.idx = len(supplemental)
			supplemental = append(supplemental, t)
		}
	}

	// Primary before supplemental: the phase barrier means no partial
	// hand-off, and first-seen dedupe later favors the primary copies.
	o.state.Store(int32(StateFetchingPrimary))
	results := o.runPhase(ctx, primary)

	o.state.Store(int32(StateFetchingSupplemental))
	results = append(results, o.runPhase(ctx, supplemental)...)

	o.state.Store(int32(StateDeduplicating))

	var all []domain.Job
	for _, r := range results {
		all = append(all, r.jobs...)
	}
	deduped := o.ded.Dedupe(all)

	summary := buildSummary(results, len(all), len(deduped))
	o.state.Store(int32(StateDone))

	log.Printf("[scrape] pass done: sources=%d fetched=%d kept=%d status=%s",
		summary.SourcesRun, summary.Fetched, summary.Kept, summary.Status)
	return deduped, summary
}

// runPhase runs every task on a bounded pool and blocks until all of them
// have returned. Completion order is arbitrary; results are re-sorted into
// task order so dedupe sees a deterministic sequence.
func (o *Orchestrator) runPhase(ctx context.Context, tasks []task) []taskResult {
	if len(tasks) == 0 {
		return nil
	}

	resCh := make(chan taskResult, len(tasks))

	var g errgroup.Group
	g.SetLimit(o.workers)
	for _, t := range tasks {
		t := t
		g.Go(func() error {
			resCh <- o.runOne(ctx, t)
			return nil // best-effort: one bad source never cancels siblings
		})
	}
	_ = g.Wait()
	close(resCh)

	out := make([]taskResult, 0, len(tasks))
	for r := range resCh {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].idx < out[j].idx })
	return out
}

func (o *Orchestrator) runOne(ctx context.Context, t task) taskResult {
	src := t.fetcher.Name()
	res := taskResult{idx: t.idx, source: src}

	if o.isDead(src) {
		res.outcome = outcomeAuth
		return res
	}

	// Credentials before quota: an unconfigured source must not burn a token.
	if !t.fetcher.Available() {
		log.Printf("[scrape:%s] credentials not configured; skipping", src)
		res.outcome = outcomeNoCreds
		return res
	}

	key := backend.Resolve(src)
	if !o.led.Acquire(key) {
		res.outcome = outcomeThrottled
		res.retryAfter = o.led.RetryAfter(key)
		log.Printf("[scrape:%s] rate budget for backend %q exhausted; retry in ~%s",
			src, key, res.retryAfter.Round(time.Second))
		return res
	}

	jobs, err := t.fetcher.Fetch(ctx, t.query)
	if err != nil {
		res.outcome = o.classify(src, err)
		return res
	}

	for _, j := range jobs {
		j.URL = util.CanonicalizeURL(j.URL)
		if !j.Valid() {
			log.Printf("[scrape:%s] dropping invalid record title=%q company=%q url=%q",
				src, j.Title, j.Company, j.URL)
			continue
		}
		res.jobs = append(res.jobs, j)
	}
	res.outcome = outcomeOK
	return res
}

func (o *Orchestrator) classify(src string, err error) outcome {
	if errors.Is(err, types.ErrNoCredentials) {
		return outcomeNoCreds
	}

	var authErr *types.AuthError
	if errors.As(err, &authErr) {
		o.markDead(src)
		// once per run, user-actionable
		log.Printf("[scrape:%s] AUTH: %v", src, authErr)
		return outcomeAuth
	}

	// everything else is transient: expected, developer-log only
	log.Printf("[scrape:%s] transient: %v", src, err)
	return outcomeTransient
}

func (o *Orchestrator) isDead(src string) bool {
	o.deadMu.Lock()
	defer o.deadMu.Unlock()
	return o.dead[src]
}

func (o *Orchestrator) markDead(src string) {
	o.deadMu.Lock()
	o.dead[src] = true
	o.deadMu.Unlock()
}

func buildSummary(results []taskResult, fetched, kept int) Summary {
	type agg struct {
		records    int
		ok         bool
		failed     bool
		throttled  bool
		retryAfter time.Duration
		skipped    bool
	}

	bySource := make(map[string]*agg)
	var order []string
	for _, r := range results {
		a, present := bySource[r.source]
		if !present {
			a = &agg{}
			bySource[r.source] = a
			order = append(order, r.source)
		}
		a.records += len(r.jobs)
		switch r.outcome {
		case outcomeOK:
			a.ok = true
		case outcomeTransient, outcomeAuth:
			a.failed = true
		case outcomeThrottled:
			a.throttled = true
			if r.retryAfter > a.retryAfter {
				a.retryAfter = r.retryAfter
			}
		case outcomeNoCreds:
			a.skipped = true
		}
	}

	s := Summary{
		SourcesRun: len(order),
		Fetched:    fetched,
		Kept:       kept,
	}

	anyHealthy := false
	anyFailed := false
	for _, src := range order {
		a := bySource[src]
		if a.ok {
			anyHealthy = true
			if a.records == 0 {
				s.ZeroResultSources = append(s.ZeroResultSources, src)
			}
		}
		if a.failed {
			anyFailed = true
			s.FailedSources = append(s.FailedSources, src)
		}
		if a.throttled {
			s.Throttled = append(s.Throttled, types.ThrottleNotice{Source: src, RetryAfter: a.retryAfter})
		}
	}

	switch {
	case kept > 0:
		s.Status = StatusOK
	case anyFailed && !anyHealthy:
		s.Status = StatusAllFailed
	default:
		s.Status = StatusAllEmpty
	}
	return s
}
