package model

import "time"

// DayLayout is the wire format of a plan day.
const DayLayout = "2006-01-02"

// OperationPlan is one day's schedule. It is only mutated through the plan
// update coordinator and is never partially persisted.
type OperationPlan struct {
	ID         string      `json:"planDomainId"`
	PlanDate   string      `json:"planDate"`
	Author     string      `json:"author"`
	Algorithm  string      `json:"algorithm"`
	TotalDelay float64     `json:"totalDelay"`
	Status     string      `json:"status"`
	Version    int64       `json:"version"`
	UpdatedAt  time.Time   `json:"updatedAt"`
	Operations []Operation `json:"operations"`
}

// Clone returns a deep copy of the plan.
func (p OperationPlan) Clone() OperationPlan {
	cp := p
	cp.Operations = cloneOperations(p.Operations)
	return cp
}

// OperationsFor returns the operations belonging to the given VVN.
func (p OperationPlan) OperationsFor(vvnID string) []Operation {
	var out []Operation
	for _, op := range p.Operations {
		if op.VvnID == vvnID {
			out = append(out, op)
		}
	}
	return out
}

// HasVvn reports whether the plan holds at least one operation for vvnID.
func (p OperationPlan) HasVvn(vvnID string) bool {
	for _, op := range p.Operations {
		if op.VvnID == vvnID {
			return true
		}
	}
	return false
}

// ReplaceVvn returns a new operation slice where the operations of vvnID are
// replaced by ops. Operations of other VVNs keep their relative order.
func ReplaceVvn(all []Operation, vvnID string, ops []Operation) []Operation {
	out := make([]Operation, 0, len(all)+len(ops))
	for _, op := range all {
		if op.VvnID != vvnID {
			out = append(out, op)
		}
	}
	return append(out, cloneOperations(ops)...)
}

// MoveToDock returns a copy of ops where every operation of vvnID sits on
// dock. Each moved operation takes the first dock crane that is free over its
// interval, or the dock's first crane when none is.
func MoveToDock(ops []Operation, vvnID string, dock Dock) []Operation {
	out := cloneOperations(ops)
	cranes := dock.Cranes
	if len(cranes) == 0 {
		cranes = []string{dock.Code + "-C1"}
	}
	for i := range out {
		if out[i].VvnID != vvnID {
			continue
		}
		out[i].Dock = dock.Code
		out[i].TotalCranesOnDock = len(cranes)
		out[i].Crane = freeCrane(out, i, cranes)
	}
	return out
}

func freeCrane(ops []Operation, self int, cranes []string) string {
	for _, crane := range cranes {
		busy := false
		for j, other := range ops {
			if j != self && other.Crane == crane && other.Overlaps(ops[self]) {
				busy = true
				break
			}
		}
		if !busy {
			return crane
		}
	}
	return cranes[0]
}

// DailySchedule is the base schedule handed to the solver.
type DailySchedule struct {
	Day        string      `json:"day"`
	Operations []Operation `json:"operations"`
}

// ParseDay parses a YYYY-MM-DD day string.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DayLayout, s)
}
