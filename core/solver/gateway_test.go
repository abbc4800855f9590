package solver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portlogistics/portplan/core/events"
	"github.com/portlogistics/portplan/core/metrics"
	"github.com/portlogistics/portplan/core/model"
	"github.com/portlogistics/portplan/infra/logger"
	"github.com/portlogistics/portplan/internal/eventbus"
)

type recordingSink struct {
	metrics.NopSink
	mu    sync.Mutex
	calls []metrics.SolverCallEvent
}

func (r *recordingSink) RecordSolverCall(ev metrics.SolverCallEvent) error {
	r.mu.Lock()
	r.calls = append(r.calls, ev)
	r.mu.Unlock()
	return nil
}

type recordingMonitor struct {
	errs   []error
	panics []any
}

func (m *recordingMonitor) CaptureException(err error, _ map[string]string) { m.errs = append(m.errs, err) }
func (m *recordingMonitor) CapturePanic(v any, _ map[string]string)        { m.panics = append(m.panics, v) }
func (m *recordingMonitor) Flush(time.Duration)                            {}

func schedule() model.DailySchedule {
	return model.DailySchedule{Day: "2025-01-10", Operations: []model.Operation{
		{VvnID: "v1", StartTime: 0, EndTime: 4, DepartureDelay: 1.5},
		{VvnID: "v2", StartTime: 4, EndTime: 6},
	}}
}

func TestParse(t *testing.T) {
	for in, want := range map[string]Algorithm{"optimal": Optimal, "GREEDY": Greedy, "local_search": LocalSearch, "local-search": LocalSearch} {
		got, err := Parse(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := Parse("genetic")
	assert.ErrorIs(t, err, model.ErrInvalidRequest)
}

func TestGateway_Success(t *testing.T) {
	sink := &recordingSink{}
	bus := eventbus.New[events.SolverOutcome](4)
	sub := bus.Subscribe()
	g := NewGateway(StaticSolver{}, logger.NopLogger{}, WithMetrics(sink), WithEvents(bus))

	res, err := g.Solve(context.Background(), schedule(), Greedy)
	require.NoError(t, err)
	assert.Equal(t, Greedy, res.Algorithm)
	assert.Equal(t, 1.5, res.TotalDelay)
	assert.Equal(t, 4.0, res.Schedule.Operations[0].OptimizedOperationDuration)

	require.Len(t, sink.calls, 1)
	assert.True(t, sink.calls[0].Success)
	ev := <-sub
	assert.True(t, ev.Success)
	assert.Equal(t, "2025-01-10", ev.Day)
}

func TestGateway_Timeout(t *testing.T) {
	slow := Func(func(ctx context.Context, _ model.DailySchedule, _ Algorithm) (Result, error) {
		<-ctx.Done()
		return Result{}, ctx.Err()
	})
	sink := &recordingSink{}
	mon := &recordingMonitor{}
	g := NewGateway(slow, logger.NopLogger{}, WithTimeout(20*time.Millisecond), WithMetrics(sink), WithMonitor(mon))

	_, err := g.Solve(context.Background(), schedule(), Optimal)
	var unavailable *model.SolverUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, "optimal", unavailable.Algorithm)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.Len(t, sink.calls, 1)
	assert.True(t, sink.calls[0].TimedOut)
	assert.Empty(t, mon.errs)
}

func TestGateway_RecoversPanic(t *testing.T) {
	boom := Func(func(context.Context, model.DailySchedule, Algorithm) (Result, error) {
		panic("solver exploded")
	})
	mon := &recordingMonitor{}
	g := NewGateway(boom, logger.NopLogger{}, WithMonitor(mon))

	_, err := g.Solve(context.Background(), schedule(), LocalSearch)
	var unavailable *model.SolverUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Len(t, mon.panics, 1)
	assert.Len(t, mon.errs, 1)
}

func TestGateway_TransportError(t *testing.T) {
	down := errors.New("connection refused")
	g := NewGateway(Func(func(context.Context, model.DailySchedule, Algorithm) (Result, error) {
		return Result{}, down
	}), logger.NopLogger{})
	_, err := g.Solve(context.Background(), schedule(), Greedy)
	assert.ErrorIs(t, err, down)
	assert.Equal(t, DefaultTimeout, g.Timeout())
}
