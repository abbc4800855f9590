package comparison

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portlogistics/portplan/core/metrics"
	"github.com/portlogistics/portplan/core/model"
	"github.com/portlogistics/portplan/core/solver"
	"github.com/portlogistics/portplan/infra/logger"
)

type staticBase struct {
	schedule model.DailySchedule
	err      error
}

func (s staticBase) BaseSchedule(context.Context, string) (model.DailySchedule, error) {
	return s.schedule, s.err
}

type comparisonSink struct {
	metrics.NopSink
	events []metrics.ComparisonEvent
}

func (c *comparisonSink) RecordComparison(evs []metrics.ComparisonEvent) error {
	c.events = append(c.events, evs...)
	return nil
}

func base() staticBase {
	return staticBase{schedule: model.DailySchedule{Day: "2025-01-10", Operations: []model.Operation{
		{VvnID: "v1", StartTime: 0, EndTime: 4, CraneCountUsed: 2},
		{VvnID: "v2", StartTime: 4, EndTime: 6, CraneCountUsed: 1},
	}}}
}

// delays builds a solver returning the given delay per algorithm. Missing
// algorithms hang until their deadline.
func delays(d map[solver.Algorithm]float64) solver.Solver {
	return solver.Func(func(ctx context.Context, s model.DailySchedule, alg solver.Algorithm) (solver.Result, error) {
		delay, ok := d[alg]
		if !ok {
			<-ctx.Done()
			return solver.Result{}, ctx.Err()
		}
		ops := model.CloneOperations(s.Operations)
		for i := range ops {
			ops[i].OptimizedOperationDuration = 1
		}
		return solver.Result{Schedule: model.DailySchedule{Day: s.Day, Operations: ops}, TotalDelay: delay}, nil
	})
}

func gateway(s solver.Solver) *solver.Gateway {
	return solver.NewGateway(s, logger.NopLogger{}, solver.WithTimeout(50*time.Millisecond))
}

func result(c Comparison, alg solver.Algorithm) AlgorithmResult {
	for _, r := range c.Results {
		if r.Algorithm == alg {
			return r
		}
	}
	return AlgorithmResult{}
}

func TestCompareAll_BestAndNotComputed(t *testing.T) {
	sink := &comparisonSink{}
	c := New(base(), gateway(delays(map[solver.Algorithm]float64{
		solver.Optimal: 2.5,
		solver.Greedy:  4,
	})), sink, logger.NopLogger{})

	out, err := c.CompareAll(context.Background(), "2025-01-10")
	require.NoError(t, err)
	require.Len(t, out.Results, 3)
	assert.Equal(t, []solver.Algorithm{solver.Optimal}, out.Best)

	opt := result(out, solver.Optimal)
	assert.True(t, opt.Computed)
	assert.True(t, opt.Best)
	assert.Equal(t, 2, opt.OperationCount)
	assert.Equal(t, 3.0, opt.TotalCraneHours)

	ls := result(out, solver.LocalSearch)
	assert.False(t, ls.Computed)
	assert.False(t, ls.Best)
	assert.NotEmpty(t, ls.Error)

	assert.False(t, result(out, solver.Greedy).Best)
	assert.Len(t, sink.events, 3)
}

func TestCompareAll_Ties(t *testing.T) {
	c := New(base(), gateway(delays(map[solver.Algorithm]float64{
		solver.Optimal:     1,
		solver.Greedy:      1,
		solver.LocalSearch: 3,
	})), nil, logger.NopLogger{})
	out, err := c.CompareAll(context.Background(), "2025-01-10")
	require.NoError(t, err)
	assert.ElementsMatch(t, []solver.Algorithm{solver.Optimal, solver.Greedy}, out.Best)
}

func TestCompareAll_NegativeDelayExcluded(t *testing.T) {
	c := New(base(), gateway(delays(map[solver.Algorithm]float64{
		solver.Optimal:     -1,
		solver.Greedy:      5,
		solver.LocalSearch: 6,
	})), nil, logger.NopLogger{})
	out, err := c.CompareAll(context.Background(), "2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, []solver.Algorithm{solver.Greedy}, out.Best)
	assert.False(t, result(out, solver.Optimal).Best)
}

func TestCompareAll_NothingComputed(t *testing.T) {
	c := New(base(), gateway(delays(nil)), nil, logger.NopLogger{})
	out, err := c.CompareAll(context.Background(), "2025-01-10")
	require.NoError(t, err)
	assert.Empty(t, out.Best)
	for _, r := range out.Results {
		assert.False(t, r.Computed)
	}
}

func TestCompare_Single(t *testing.T) {
	c := New(base(), gateway(delays(map[solver.Algorithm]float64{solver.Greedy: 0})), nil, logger.NopLogger{})
	out, err := c.Compare(context.Background(), "2025-01-10", solver.Greedy)
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.True(t, out.Results[0].Best)
}

func TestCompare_BaseScheduleError(t *testing.T) {
	boom := errors.New("directory down")
	c := New(staticBase{err: boom}, gateway(delays(nil)), nil, logger.NopLogger{})
	_, err := c.CompareAll(context.Background(), "2025-01-10")
	assert.ErrorIs(t, err, boom)
}

func TestCompareAll_UnknownDelayAndCraneHours(t *testing.T) {
	s := solver.Func(func(ctx context.Context, sched model.DailySchedule, alg solver.Algorithm) (solver.Result, error) {
		res := solver.Result{Schedule: sched, TotalDelay: solver.UnknownDelay}
		if alg == solver.Greedy {
			res.TotalDelay = 9
		}
		return res, nil
	})
	out, err := New(base(), gateway(s), nil, logger.NopLogger{}).CompareAll(context.Background(), "2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, []solver.Algorithm{solver.Greedy}, out.Best)

	opt := result(out, solver.Optimal)
	assert.True(t, opt.Computed)
	assert.False(t, opt.Best)
	assert.Zero(t, opt.TotalCraneHours, "unoptimized operations carry no crane-hours")
}
