// Package metrics defines the sinks used to observe the planning engine.
// Every sink implements Sink; richer sinks additionally implement the
// recorder interfaces (SolverCallRecorder, ComparisonRecorder,
// RebalanceRecorder, PlanVersionRecorder) and callers detect them with a
// type assertion. Sinks are built from configuration through the factory
// registry and combined with MultiSink when several are configured.
package metrics
