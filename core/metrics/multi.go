package metrics

import "errors"

// MultiSink fans out events to multiple sinks.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPlanUpdate forwards the event to all sinks and joins their errors.
func (m *MultiSink) RecordPlanUpdate(ev PlanUpdateEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordPlanUpdate(ev))
	}
	return errors.Join(errs...)
}

// RecordSolverCall forwards to sinks implementing SolverCallRecorder.
func (m *MultiSink) RecordSolverCall(ev SolverCallEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(SolverCallRecorder); ok {
			errs = append(errs, r.RecordSolverCall(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordComparison forwards to sinks implementing ComparisonRecorder.
func (m *MultiSink) RecordComparison(evs []ComparisonEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(ComparisonRecorder); ok {
			errs = append(errs, r.RecordComparison(evs))
		}
	}
	return errors.Join(errs...)
}

// RecordRebalance forwards to sinks implementing RebalanceRecorder.
func (m *MultiSink) RecordRebalance(ev RebalanceEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(RebalanceRecorder); ok {
			errs = append(errs, r.RecordRebalance(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordPlanVersion forwards to sinks implementing PlanVersionRecorder.
func (m *MultiSink) RecordPlanVersion(ev PlanVersionEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(PlanVersionRecorder); ok {
			errs = append(errs, r.RecordPlanVersion(ev))
		}
	}
	return errors.Join(errs...)
}

// Close releases the member sinks that hold resources.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
