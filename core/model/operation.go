package model

import "fmt"

// StaffAssignment binds a staff member to part of an operation.
type StaffAssignment struct {
	StaffMemberName string  `json:"staffMemberName"`
	IntervalStart   float64 `json:"intervalStart"`
	IntervalEnd     float64 `json:"intervalEnd"`
}

// Operation is one vessel's execution unit within a plan. Times are hour
// offsets relative to the start of the plan day.
type Operation struct {
	VvnID                      string            `json:"vvnId"`
	Vessel                     string            `json:"vessel"`
	Dock                       string            `json:"dock"`
	Crane                      string            `json:"crane"`
	StartTime                  float64           `json:"startTime"`
	EndTime                    float64           `json:"endTime"`
	LoadingDuration            float64           `json:"loadingDuration"`
	UnloadingDuration          float64           `json:"unloadingDuration"`
	CraneCountUsed             int               `json:"craneCountUsed"`
	TotalCranesOnDock          int               `json:"totalCranesOnDock"`
	OptimizedOperationDuration float64           `json:"optimizedOperationDuration"`
	RealArrivalTime            float64           `json:"realArrivalTime"`
	RealDepartureTime          float64           `json:"realDepartureTime"`
	DepartureDelay             float64           `json:"departureDelay"`
	TheoreticalRequiredCranes  int               `json:"theoreticalRequiredCranes"`
	ResourceSuggestion         string            `json:"resourceSuggestion,omitempty"`
	StaffAssignments           []StaffAssignment `json:"staffAssignments"`
}

// Duration returns the optimized duration when the solver supplied one,
// otherwise the scheduled interval length.
func (o Operation) Duration() float64 {
	if o.OptimizedOperationDuration > 0 {
		return o.OptimizedOperationDuration
	}
	return o.EndTime - o.StartTime
}

// CraneHours is the solver's optimized duration weighted by the cranes the
// operation holds. Operations the solver left unoptimized count zero.
func (o Operation) CraneHours() float64 {
	return o.OptimizedOperationDuration * float64(o.CraneCountUsed)
}

// Overlaps reports whether the half-open intervals [start,end) intersect.
func (o Operation) Overlaps(other Operation) bool {
	return o.StartTime < other.EndTime && other.StartTime < o.EndTime
}

// Validate checks the per-operation invariants.
func (o Operation) Validate() error {
	if o.VvnID == "" {
		return &InvalidOperationError{VvnID: o.VvnID, Reason: "vvnId is required"}
	}
	if !(o.EndTime > o.StartTime) {
		return &InvalidOperationError{VvnID: o.VvnID, Reason: fmt.Sprintf("endTime %.2f must be after startTime %.2f", o.EndTime, o.StartTime)}
	}
	if o.CraneCountUsed < 0 {
		return &InvalidOperationError{VvnID: o.VvnID, Reason: "craneCountUsed must not be negative"}
	}
	if o.CraneCountUsed > o.TotalCranesOnDock {
		return &InvalidOperationError{VvnID: o.VvnID, Reason: fmt.Sprintf("craneCountUsed %d exceeds totalCranesOnDock %d", o.CraneCountUsed, o.TotalCranesOnDock)}
	}
	return nil
}

func cloneOperations(ops []Operation) []Operation {
	if ops == nil {
		return nil
	}
	out := make([]Operation, len(ops))
	for i, op := range ops {
		out[i] = op
		if op.StaffAssignments != nil {
			out[i].StaffAssignments = append([]StaffAssignment(nil), op.StaffAssignments...)
		}
	}
	return out
}

// CloneOperations returns a deep copy of ops.
func CloneOperations(ops []Operation) []Operation { return cloneOperations(ops) }
