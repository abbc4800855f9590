package events

import "time"

// SolverOutcome is published for each solver invocation.
type SolverOutcome struct {
	Algorithm string
	Day       string
	Success   bool
	TimedOut  bool
	Err       error
	Latency   time.Duration
}
