// Package comparison runs the solver algorithms side by side and flags the
// best performing ones.
package comparison

import (
	"context"
	"sync"
	"time"

	"github.com/portlogistics/portplan/core/logger"
	"github.com/portlogistics/portplan/core/metrics"
	"github.com/portlogistics/portplan/core/model"
	"github.com/portlogistics/portplan/core/solver"
)

// BaseScheduler provides the schedule handed to every algorithm.
type BaseScheduler interface {
	BaseSchedule(ctx context.Context, day string) (model.DailySchedule, error)
}

// AlgorithmResult is one row of a comparison. Algorithms that failed or timed
// out have Computed=false and are never best.
type AlgorithmResult struct {
	Algorithm       solver.Algorithm     `json:"algorithm"`
	Computed        bool                 `json:"computed"`
	Error           string               `json:"error,omitempty"`
	TotalDelay      float64              `json:"totalDelay"`
	TotalCraneHours float64              `json:"totalCraneHours"`
	OperationCount  int                  `json:"operationCount"`
	Best            bool                 `json:"best"`
	Schedule        *model.DailySchedule `json:"schedule,omitempty"`
}

// Comparison aggregates the per-algorithm results of a day.
type Comparison struct {
	Day     string             `json:"day"`
	Results []AlgorithmResult  `json:"results"`
	Best    []solver.Algorithm `json:"best"`
}

// Comparator fans the base schedule out to the solver.
type Comparator struct {
	base    BaseScheduler
	solver  solver.Solver
	metrics metrics.Sink
	log     logger.Logger
}

// New creates a Comparator. s is usually a *solver.Gateway so each call has
// its own timeout.
func New(base BaseScheduler, s solver.Solver, sink metrics.Sink, log logger.Logger) *Comparator {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Comparator{base: base, solver: s, metrics: sink, log: log}
}

// CompareAll runs every algorithm concurrently. A failing algorithm is
// reported as not computed; only a failure to build the base schedule fails
// the comparison.
func (c *Comparator) CompareAll(ctx context.Context, day string) (Comparison, error) {
	return c.compare(ctx, day, solver.All())
}

// Compare runs a single algorithm.
func (c *Comparator) Compare(ctx context.Context, day string, alg solver.Algorithm) (Comparison, error) {
	return c.compare(ctx, day, []solver.Algorithm{alg})
}

func (c *Comparator) compare(ctx context.Context, day string, algs []solver.Algorithm) (Comparison, error) {
	base, err := c.base.BaseSchedule(ctx, day)
	if err != nil {
		return Comparison{}, err
	}
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make([]AlgorithmResult, len(algs))
	)
	update := func(i int, r AlgorithmResult) {
		mu.Lock()
		defer mu.Unlock()
		results[i] = r
	}
	for i, alg := range algs {
		wg.Add(1)
		go func(i int, alg solver.Algorithm) {
			defer wg.Done()
			update(i, c.run(ctx, base, alg))
		}(i, alg)
	}
	wg.Wait()

	out := Comparison{Day: day, Results: results, Best: markBest(results)}
	c.record(day, results)
	return out, nil
}

func (c *Comparator) run(ctx context.Context, base model.DailySchedule, alg solver.Algorithm) AlgorithmResult {
	res, err := c.solver.Solve(ctx, base, alg)
	if err != nil {
		c.log.Warnf("algorithm %s not computed for %s: %v", alg, base.Day, err)
		return AlgorithmResult{Algorithm: alg, Error: err.Error()}
	}
	r := AlgorithmResult{
		Algorithm:      alg,
		Computed:       true,
		TotalDelay:     res.TotalDelay,
		OperationCount: len(res.Schedule.Operations),
		Schedule:       &res.Schedule,
	}
	for _, op := range res.Schedule.Operations {
		r.TotalCraneHours += op.CraneHours()
	}
	return r
}

// markBest flags the computed results with the minimum non-negative total
// delay. Ties are all flagged.
func markBest(results []AlgorithmResult) []solver.Algorithm {
	lowest, found := 0.0, false
	for _, r := range results {
		if r.Computed && r.TotalDelay >= 0 && (!found || r.TotalDelay < lowest) {
			lowest, found = r.TotalDelay, true
		}
	}
	if !found {
		return nil
	}
	var best []solver.Algorithm
	for i := range results {
		if results[i].Computed && results[i].TotalDelay == lowest {
			results[i].Best = true
			best = append(best, results[i].Algorithm)
		}
	}
	return best
}

func (c *Comparator) record(day string, results []AlgorithmResult) {
	rec, ok := c.metrics.(metrics.ComparisonRecorder)
	if !ok {
		return
	}
	now := time.Now()
	evs := make([]metrics.ComparisonEvent, 0, len(results))
	for _, r := range results {
		evs = append(evs, metrics.ComparisonEvent{
			Day:             day,
			Algorithm:       string(r.Algorithm),
			Computed:        r.Computed,
			Best:            r.Best,
			TotalDelay:      r.TotalDelay,
			TotalCraneHours: r.TotalCraneHours,
			OperationCount:  r.OperationCount,
			Time:            now,
		})
	}
	if err := rec.RecordComparison(evs); err != nil {
		c.log.Errorf("record comparison: %v", err)
	}
}
