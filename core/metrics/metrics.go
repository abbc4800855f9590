package metrics

import "time"

// PlanUpdateEvent describes the outcome of one plan edit.
type PlanUpdateEvent struct {
	PlanID        string
	Day           string
	Action        string
	Committed     bool
	WarningCodes  []string
	BlockingCodes []string
	Latency       time.Duration
	Time          time.Time
}

// Sink records plan update outcomes.
type Sink interface {
	RecordPlanUpdate(ev PlanUpdateEvent) error
}

// SolverCallEvent captures one call to the external solver.
type SolverCallEvent struct {
	Algorithm string
	Success   bool
	TimedOut  bool
	Latency   time.Duration
	Time      time.Time
}

// SolverCallRecorder records solver calls.
type SolverCallRecorder interface {
	RecordSolverCall(ev SolverCallEvent) error
}

// ComparisonEvent is one algorithm row of a comparison.
type ComparisonEvent struct {
	Day             string
	Algorithm       string
	Computed        bool
	Best            bool
	TotalDelay      float64
	TotalCraneHours float64
	OperationCount  int
	Time            time.Time
}

// ComparisonRecorder records algorithm comparisons.
type ComparisonRecorder interface {
	RecordComparison(evs []ComparisonEvent) error
}

// RebalanceEvent summarises a computed rebalance proposal.
type RebalanceEvent struct {
	Day                string
	StdDevBefore       float64
	StdDevAfter        float64
	ImprovementPercent float64
	MovesAccepted      int
	MovesRejected      int
	Time               time.Time
}

// RebalanceRecorder records rebalance proposals.
type RebalanceRecorder interface {
	RecordRebalance(ev RebalanceEvent) error
}

// PlanVersionEvent reports the version a day's plan reached.
type PlanVersionEvent struct {
	Day     string
	PlanID  string
	Version int64
	Time    time.Time
}

// PlanVersionRecorder tracks the current plan version per day.
type PlanVersionRecorder interface {
	RecordPlanVersion(ev PlanVersionEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordPlanUpdate(PlanUpdateEvent) error   { return nil }
func (NopSink) RecordSolverCall(SolverCallEvent) error   { return nil }
func (NopSink) RecordComparison([]ComparisonEvent) error { return nil }
func (NopSink) RecordRebalance(RebalanceEvent) error     { return nil }
func (NopSink) RecordPlanVersion(PlanVersionEvent) error { return nil }
