package conflict

import (
	"sort"

	"github.com/portlogistics/portplan/core/model"
)

// Validator turns an operation set into conflict warnings.
type Validator struct {
	policy SeverityPolicy
}

// NewValidator returns a Validator using policy, or the default policy when
// policy is nil.
func NewValidator(policy SeverityPolicy) *Validator {
	if policy == nil {
		policy = DefaultSeverityPolicy()
	}
	return &Validator{policy: policy}
}

// Policy returns the severity policy in use.
func (v *Validator) Policy() SeverityPolicy { return v.policy }

// Warnings detects conflicts in ops and applies the severity policy.
func (v *Validator) Warnings(ops []model.Operation) []model.ConflictWarning {
	return v.ToWarnings(Detect(ops))
}

// ToWarnings serializes conflicts to their wire representation.
func (v *Validator) ToWarnings(cs []Conflict) []model.ConflictWarning {
	out := make([]model.ConflictWarning, 0, len(cs))
	for _, c := range cs {
		out = append(out, model.ConflictWarning{
			Code:     c.Code(),
			Message:  c.Message(),
			Severity: v.policy.For(c.Code()),
		})
	}
	return out
}

// BlockingCodes returns the distinct blocking codes in first-seen order.
func BlockingCodes(ws []model.ConflictWarning) []string {
	var codes []string
	seen := make(map[string]struct{})
	for _, w := range ws {
		if w.Severity != model.SeverityBlocking {
			continue
		}
		if _, ok := seen[w.Code]; ok {
			continue
		}
		seen[w.Code] = struct{}{}
		codes = append(codes, w.Code)
	}
	return codes
}

// NonBlocking filters out blocking warnings.
func NonBlocking(ws []model.ConflictWarning) []model.ConflictWarning {
	out := make([]model.ConflictWarning, 0, len(ws))
	for _, w := range ws {
		if w.Severity != model.SeverityBlocking {
			out = append(out, w)
		}
	}
	return out
}

// Detect runs the crane-overlap and dock-capacity sweeps. Crane conflicts come
// first, each group in key order, so the output is deterministic.
func Detect(ops []model.Operation) []Conflict {
	var out []Conflict
	out = append(out, craneOverlaps(ops)...)
	out = append(out, capacityExceeded(ops)...)
	return out
}

type indexed struct {
	idx int
	op  model.Operation
}

func groupBy(ops []model.Operation, key func(model.Operation) string) ([]string, map[string][]indexed) {
	groups := make(map[string][]indexed)
	var keys []string
	for i, op := range ops {
		k := key(op)
		if k == "" {
			continue
		}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], indexed{idx: i, op: op})
	}
	sort.Strings(keys)
	return keys, groups
}

// craneOverlaps sorts each crane group by start time and compares every
// operation with the predecessor that reaches furthest to the right.
func craneOverlaps(ops []model.Operation) []Conflict {
	keys, groups := groupBy(ops, func(o model.Operation) string { return o.Crane })
	var out []Conflict
	for _, crane := range keys {
		g := groups[crane]
		sort.SliceStable(g, func(i, j int) bool { return g[i].op.StartTime < g[j].op.StartTime })
		reach := -1
		for i, cur := range g {
			if reach >= 0 && cur.op.StartTime < g[reach].op.EndTime {
				prev := g[reach]
				out = append(out, CraneOverlap{
					Crane: crane,
					A:     OperationRef{VvnID: prev.op.VvnID, Index: prev.idx},
					B:     OperationRef{VvnID: cur.op.VvnID, Index: cur.idx},
					Window: Window{
						Start: cur.op.StartTime,
						End:   minFloat(prev.op.EndTime, cur.op.EndTime),
					},
				})
			}
			if reach < 0 || cur.op.EndTime > g[reach].op.EndTime {
				reach = i
			}
		}
	}
	return out
}

type event struct {
	at    float64
	delta int
	ref   indexed
}

// capacityExceeded sweeps the start/end events of each dock keeping a running
// sum of cranes in use. One conflict is reported per contiguous window above
// capacity.
func capacityExceeded(ops []model.Operation) []Conflict {
	keys, groups := groupBy(ops, func(o model.Operation) string { return o.Dock })
	var out []Conflict
	for _, dock := range keys {
		g := groups[dock]
		capacity := dockCapacity(g)
		events := make([]event, 0, 2*len(g))
		for _, it := range g {
			if it.op.CraneCountUsed > it.op.TotalCranesOnDock {
				out = append(out, CapacityExceeded{
					Dock:       dock,
					Operations: []OperationRef{{VvnID: it.op.VvnID, Index: it.idx}},
					Window:     Window{Start: it.op.StartTime, End: it.op.EndTime},
					Used:       it.op.CraneCountUsed,
					Capacity:   it.op.TotalCranesOnDock,
				})
			}
			if it.op.EndTime <= it.op.StartTime || it.op.CraneCountUsed == 0 {
				continue
			}
			events = append(events,
				event{at: it.op.StartTime, delta: it.op.CraneCountUsed, ref: it},
				event{at: it.op.EndTime, delta: -it.op.CraneCountUsed, ref: it},
			)
		}
		// ends before starts at the same instant: intervals are half-open
		sort.SliceStable(events, func(i, j int) bool {
			if events[i].at != events[j].at {
				return events[i].at < events[j].at
			}
			return events[i].delta < events[j].delta
		})

		var (
			running int
			open    *CapacityExceeded
			active  = make(map[int]indexed)
		)
		for i, ev := range events {
			running += ev.delta
			if ev.delta > 0 {
				active[ev.ref.idx] = ev.ref
			} else {
				delete(active, ev.ref.idx)
			}
			// only evaluate once all events at this instant are applied
			if i+1 < len(events) && events[i+1].at == ev.at {
				continue
			}
			switch {
			case running > capacity && open == nil:
				open = &CapacityExceeded{Dock: dock, Window: Window{Start: ev.at}, Used: running, Capacity: capacity}
				open.Operations = activeRefs(active)
			case running > capacity && open != nil:
				if running > open.Used {
					open.Used = running
				}
				open.Operations = mergeRefs(open.Operations, activeRefs(active))
			case running <= capacity && open != nil:
				open.Window.End = ev.at
				out = append(out, *open)
				open = nil
			}
		}
	}
	return out
}

// dockCapacity is the smallest crane count declared by the operations on the
// dock.
func dockCapacity(g []indexed) int {
	capacity := -1
	for _, it := range g {
		if capacity < 0 || it.op.TotalCranesOnDock < capacity {
			capacity = it.op.TotalCranesOnDock
		}
	}
	if capacity < 0 {
		return 0
	}
	return capacity
}

func activeRefs(active map[int]indexed) []OperationRef {
	refs := make([]OperationRef, 0, len(active))
	for _, it := range active {
		refs = append(refs, OperationRef{VvnID: it.op.VvnID, Index: it.idx})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Index < refs[j].Index })
	return refs
}

func mergeRefs(a, b []OperationRef) []OperationRef {
	seen := make(map[int]bool, len(a))
	for _, r := range a {
		seen[r.Index] = true
	}
	for _, r := range b {
		if !seen[r.Index] {
			a = append(a, r)
			seen[r.Index] = true
		}
	}
	sort.Slice(a, func(i, j int) bool { return a[i].Index < a[j].Index })
	return a
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
