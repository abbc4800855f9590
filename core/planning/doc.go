// Package planning owns the mutation path of operation plans.
//
// Every edit goes through the Coordinator: the plan is read under a per-plan
// lock, the edited operation set is checked by the conflict validator and the
// result is saved with an optimistic version check. An edit carrying a
// blocking conflict is rejected before any write so the stored plan stays
// unchanged. Each outcome is recorded in the audit store, published on the
// event bus and reported to the metrics sink.
package planning
