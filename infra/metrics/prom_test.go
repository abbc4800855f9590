package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/portlogistics/portplan/core/metrics"
)

func TestPromSink_RecordPlanUpdate(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	if err := sink.RecordPlanUpdate(coremetrics.PlanUpdateEvent{
		Action:       "update",
		Committed:    true,
		WarningCodes: []string{"CRANE_OVERLAP"},
		Latency:      20 * time.Millisecond,
	}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := sink.RecordPlanUpdate(coremetrics.PlanUpdateEvent{
		Action:        "batch_update",
		BlockingCodes: []string{"CRANE_CAPACITY_EXCEEDED"},
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	expected := `
# HELP portplan_plan_updates_total Plan edits by action and outcome
# TYPE portplan_plan_updates_total counter
portplan_plan_updates_total{action="batch_update",outcome="rejected"} 1
portplan_plan_updates_total{action="update",outcome="committed"} 1
`
	if err := testutil.CollectAndCompare(sink.updates, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
	if v := testutil.ToFloat64(sink.conflicts.WithLabelValues("CRANE_CAPACITY_EXCEEDED", "blocking")); v != 1 {
		t.Errorf("blocking conflicts = %v", v)
	}
	if c := testutil.CollectAndCount(sink.updateLatency); c != 2 {
		t.Errorf("latency series = %d", c)
	}
}

func TestPromSink_SolverComparisonRebalance(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	_ = sink.RecordSolverCall(coremetrics.SolverCallEvent{Algorithm: "greedy", Success: true, Latency: time.Second})
	_ = sink.RecordSolverCall(coremetrics.SolverCallEvent{Algorithm: "optimal", TimedOut: true})
	_ = sink.RecordSolverCall(coremetrics.SolverCallEvent{Algorithm: "optimal"})
	if v := testutil.ToFloat64(sink.solverCalls.WithLabelValues("optimal", "timeout")); v != 1 {
		t.Errorf("timeouts = %v", v)
	}
	if v := testutil.ToFloat64(sink.solverCalls.WithLabelValues("optimal", "error")); v != 1 {
		t.Errorf("errors = %v", v)
	}

	_ = sink.RecordComparison([]coremetrics.ComparisonEvent{
		{Algorithm: "optimal", Computed: true, Best: true, TotalDelay: 2, TotalCraneHours: 30},
		{Algorithm: "greedy", Computed: false},
	})
	if v := testutil.ToFloat64(sink.best.WithLabelValues("optimal")); v != 1 {
		t.Errorf("best optimal = %v", v)
	}
	if v := testutil.ToFloat64(sink.delay.WithLabelValues("optimal")); v != 2 {
		t.Errorf("delay = %v", v)
	}

	_ = sink.RecordRebalance(coremetrics.RebalanceEvent{StdDevBefore: 3.7, StdDevAfter: 0.9, MovesAccepted: 2, MovesRejected: 1})
	if v := testutil.ToFloat64(sink.stdDev.WithLabelValues("after")); v != 0.9 {
		t.Errorf("stddev after = %v", v)
	}
	if v := testutil.ToFloat64(sink.moves.WithLabelValues("accepted")); v != 2 {
		t.Errorf("accepted moves = %v", v)
	}

	_ = sink.RecordPlanVersion(coremetrics.PlanVersionEvent{Day: "2025-01-10", Version: 4})
	if v := testutil.ToFloat64(sink.planVersion.WithLabelValues("2025-01-10")); v != 4 {
		t.Errorf("plan version = %v", v)
	}
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("first sink: %v", err)
	}
	b, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("second sink: %v", err)
	}
	_ = a.RecordPlanUpdate(coremetrics.PlanUpdateEvent{Action: "update", Committed: true})
	_ = b.RecordPlanUpdate(coremetrics.PlanUpdateEvent{Action: "update", Committed: true})
	if v := testutil.ToFloat64(a.updates.WithLabelValues("update", "committed")); v != 2 {
		t.Errorf("shared counter = %v", v)
	}
}

func TestNewSink_FromFactory(t *testing.T) {
	s, err := coremetrics.NewSink(nil)
	if err != nil {
		t.Fatalf("nil config: %v", err)
	}
	if _, ok := s.(coremetrics.NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}
}
