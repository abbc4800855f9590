// Package conflict detects resource conflicts in a set of crane/dock
// operations.
//
// Two kinds are reported:
//   - CraneOverlap: two operations hold the same crane over intersecting
//     [start,end) intervals.
//   - CapacityExceeded: at some instant the cranes in use on a dock exceed the
//     cranes the dock has.
//
// Detection is a pure function of the operation set. Severity is applied
// afterwards through a SeverityPolicy so deployments can decide which kinds
// block a plan edit.
package conflict
