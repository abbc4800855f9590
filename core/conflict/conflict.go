package conflict

import (
	"fmt"
	"strings"

	"github.com/portlogistics/portplan/core/model"
)

// Window is a half-open time interval in plan hours.
type Window struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Conflict is implemented by every conflict variant.
type Conflict interface {
	// Code returns the wire-level code of the variant.
	Code() string
	// Message returns a human readable description.
	Message() string
	isConflict()
}

// CraneOverlap is reported when two operations share a crane at the same time.
type CraneOverlap struct {
	Crane  string
	A, B   OperationRef
	Window Window
}

// CapacityExceeded is reported when a dock runs more cranes than it owns.
type CapacityExceeded struct {
	Dock       string
	Operations []OperationRef
	Window     Window
	Used       int
	Capacity   int
}

// OperationRef identifies an operation inside a conflict.
type OperationRef struct {
	VvnID string
	Index int
}

func (CraneOverlap) isConflict()     {}
func (CapacityExceeded) isConflict() {}

func (CraneOverlap) Code() string     { return model.CodeCraneOverlap }
func (CapacityExceeded) Code() string { return model.CodeCraneCapacityExceeded }

func (c CraneOverlap) Message() string {
	return fmt.Sprintf("crane %s is used by %s and %s between %.2fh and %.2fh",
		c.Crane, c.A.VvnID, c.B.VvnID, c.Window.Start, c.Window.End)
}

func (c CapacityExceeded) Message() string {
	ids := make([]string, 0, len(c.Operations))
	seen := map[string]bool{}
	for _, r := range c.Operations {
		if !seen[r.VvnID] {
			seen[r.VvnID] = true
			ids = append(ids, r.VvnID)
		}
	}
	return fmt.Sprintf("dock %s uses %d cranes (capacity %d) between %.2fh and %.2fh [%s]",
		c.Dock, c.Used, c.Capacity, c.Window.Start, c.Window.End, strings.Join(ids, ", "))
}
