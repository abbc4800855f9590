// Package events defines the plan related events emitted on the event bus.
//
// Available event types:
//   - PlanCommitted: a plan edit passed validation and was persisted
//   - PlanRejected: a plan edit was refused before any write
//   - SolverOutcome: result of one external solver call
package events
