package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/portlogistics/portplan/core/metrics"
)

// PromSink records planning events in Prometheus metrics.
type PromSink struct {
	updates       *prometheus.CounterVec
	conflicts     *prometheus.CounterVec
	updateLatency *prometheus.HistogramVec
	solverCalls   *prometheus.CounterVec
	solverLatency *prometheus.HistogramVec
	delay         *prometheus.GaugeVec
	craneHours    *prometheus.GaugeVec
	best          *prometheus.GaugeVec
	stdDev        *prometheus.GaugeVec
	moves         *prometheus.CounterVec
	planVersion   *prometheus.GaugeVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portplan_plan_updates_total",
			Help: "Plan edits by action and outcome",
		}, []string{"action", "outcome"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portplan_conflicts_total",
			Help: "Conflicts detected on plan edits",
		}, []string{"code", "severity"}),
		updateLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portplan_plan_update_latency_seconds",
			Help:    "Time spent validating and committing a plan edit",
			Buckets: prometheus.DefBuckets,
		}, []string{"action"}),
		solverCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portplan_solver_calls_total",
			Help: "External solver calls by algorithm and outcome",
		}, []string{"algorithm", "outcome"}),
		solverLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portplan_solver_latency_seconds",
			Help:    "External solver call latency",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"algorithm"}),
		delay: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "portplan_comparison_total_delay_hours",
			Help: "Total delay of the last comparison per algorithm",
		}, []string{"algorithm"}),
		craneHours: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "portplan_comparison_crane_hours",
			Help: "Total crane hours of the last comparison per algorithm",
		}, []string{"algorithm"}),
		best: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "portplan_comparison_best",
			Help: "1 when the algorithm was best in the last comparison",
		}, []string{"algorithm"}),
		stdDev: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "portplan_rebalance_stddev_hours",
			Help: "Dock load standard deviation of the last rebalance proposal",
		}, []string{"stage"}),
		moves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portplan_rebalance_moves_total",
			Help: "Rebalance moves by decision",
		}, []string{"decision"}),
		planVersion: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "portplan_plan_version",
			Help: "Current plan version per day",
		}, []string{"day"}),
	}
	var err error
	if s.updates, err = register(reg, s.updates); err != nil {
		return nil, err
	}
	if s.conflicts, err = register(reg, s.conflicts); err != nil {
		return nil, err
	}
	if s.updateLatency, err = register(reg, s.updateLatency); err != nil {
		return nil, err
	}
	if s.solverCalls, err = register(reg, s.solverCalls); err != nil {
		return nil, err
	}
	if s.solverLatency, err = register(reg, s.solverLatency); err != nil {
		return nil, err
	}
	if s.delay, err = register(reg, s.delay); err != nil {
		return nil, err
	}
	if s.craneHours, err = register(reg, s.craneHours); err != nil {
		return nil, err
	}
	if s.best, err = register(reg, s.best); err != nil {
		return nil, err
	}
	if s.stdDev, err = register(reg, s.stdDev); err != nil {
		return nil, err
	}
	if s.moves, err = register(reg, s.moves); err != nil {
		return nil, err
	}
	if s.planVersion, err = register(reg, s.planVersion); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the already registered collector when one with the same
// descriptor exists.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordPlanUpdate counts the edit and the conflicts it carried.
func (s *PromSink) RecordPlanUpdate(ev coremetrics.PlanUpdateEvent) error {
	outcome := "rejected"
	if ev.Committed {
		outcome = "committed"
	}
	s.updates.WithLabelValues(ev.Action, outcome).Inc()
	s.updateLatency.WithLabelValues(ev.Action).Observe(ev.Latency.Seconds())
	for _, c := range ev.WarningCodes {
		s.conflicts.WithLabelValues(c, "warning").Inc()
	}
	for _, c := range ev.BlockingCodes {
		s.conflicts.WithLabelValues(c, "blocking").Inc()
	}
	return nil
}

// RecordSolverCall counts the call and observes its latency.
func (s *PromSink) RecordSolverCall(ev coremetrics.SolverCallEvent) error {
	outcome := "success"
	switch {
	case ev.TimedOut:
		outcome = "timeout"
	case !ev.Success:
		outcome = "error"
	}
	s.solverCalls.WithLabelValues(ev.Algorithm, outcome).Inc()
	s.solverLatency.WithLabelValues(ev.Algorithm).Observe(ev.Latency.Seconds())
	return nil
}

// RecordComparison sets the per-algorithm gauges. Algorithms that were not
// computed keep their previous values but lose the best flag.
func (s *PromSink) RecordComparison(evs []coremetrics.ComparisonEvent) error {
	for _, ev := range evs {
		if ev.Computed {
			s.delay.WithLabelValues(ev.Algorithm).Set(ev.TotalDelay)
			s.craneHours.WithLabelValues(ev.Algorithm).Set(ev.TotalCraneHours)
		}
		best := 0.0
		if ev.Best {
			best = 1
		}
		s.best.WithLabelValues(ev.Algorithm).Set(best)
	}
	return nil
}

// RecordRebalance updates the std-dev gauges and move counters.
func (s *PromSink) RecordRebalance(ev coremetrics.RebalanceEvent) error {
	s.stdDev.WithLabelValues("before").Set(ev.StdDevBefore)
	s.stdDev.WithLabelValues("after").Set(ev.StdDevAfter)
	s.moves.WithLabelValues("accepted").Add(float64(ev.MovesAccepted))
	s.moves.WithLabelValues("rejected").Add(float64(ev.MovesRejected))
	return nil
}

// RecordPlanVersion sets the version gauge of the day.
func (s *PromSink) RecordPlanVersion(ev coremetrics.PlanVersionEvent) error {
	s.planVersion.WithLabelValues(ev.Day).Set(float64(ev.Version))
	return nil
}
