package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperation_Duration(t *testing.T) {
	op := Operation{StartTime: 2, EndTime: 7, CraneCountUsed: 1}
	assert.Equal(t, 5.0, op.Duration())
	assert.Zero(t, op.CraneHours())
	op.OptimizedOperationDuration = 3.5
	assert.Equal(t, 3.5, op.Duration())
	op.CraneCountUsed = 2
	assert.Equal(t, 7.0, op.CraneHours())
}

func TestOperation_Validate(t *testing.T) {
	ok := Operation{VvnID: "v1", StartTime: 0, EndTime: 1, CraneCountUsed: 1, TotalCranesOnDock: 2}
	assert.NoError(t, ok.Validate())

	bad := []Operation{
		{VvnID: "", StartTime: 0, EndTime: 1},
		{VvnID: "v1", StartTime: 3, EndTime: 3},
		{VvnID: "v1", StartTime: 0, EndTime: 1, CraneCountUsed: 3, TotalCranesOnDock: 2},
		{VvnID: "v1", StartTime: 0, EndTime: 1, CraneCountUsed: -1},
	}
	for _, op := range bad {
		err := op.Validate()
		var inv *InvalidOperationError
		assert.True(t, errors.As(err, &inv), "%+v", op)
	}
}

func TestOperation_OverlapsHalfOpen(t *testing.T) {
	a := Operation{StartTime: 0, EndTime: 5}
	b := Operation{StartTime: 5, EndTime: 8}
	c := Operation{StartTime: 3, EndTime: 8}
	assert.False(t, a.Overlaps(b))
	assert.True(t, a.Overlaps(c))
}

func TestPlan_CloneIsDeep(t *testing.T) {
	p := OperationPlan{ID: "p", Operations: []Operation{{VvnID: "v1", StaffAssignments: []StaffAssignment{{StaffMemberName: "ana"}}}}}
	cp := p.Clone()
	cp.Operations[0].StaffAssignments[0].StaffMemberName = "rui"
	cp.Operations[0].Dock = "D9"
	assert.Equal(t, "ana", p.Operations[0].StaffAssignments[0].StaffMemberName)
	assert.Equal(t, "", p.Operations[0].Dock)
}

func TestReplaceVvn(t *testing.T) {
	all := []Operation{{VvnID: "a", Crane: "c1"}, {VvnID: "b"}, {VvnID: "a", Crane: "c2"}}
	out := ReplaceVvn(all, "a", []Operation{{VvnID: "a", Crane: "c3"}})
	assert.Len(t, out, 2)
	assert.Equal(t, "b", out[0].VvnID)
	assert.Equal(t, "c3", out[1].Crane)
}

func TestErrors(t *testing.T) {
	err := &VvnNotEditableError{VvnID: "v", Status: VVNSubmitted}
	assert.ErrorIs(t, err, ErrPreconditionFailed)
	bc := &BlockingConflictError{Codes: []string{CodeCraneCapacityExceeded, CodeCraneOverlap}}
	assert.Equal(t, "CRANE_CAPACITY_EXCEEDED, CRANE_OVERLAP", bc.Error())
}

func TestMoveToDock(t *testing.T) {
	ops := []Operation{
		{VvnID: "a", Dock: "D1", Crane: "C1", StartTime: 0, EndTime: 4, TotalCranesOnDock: 1},
		{VvnID: "b", Dock: "D2", Crane: "C2", StartTime: 1, EndTime: 3, TotalCranesOnDock: 2},
	}
	out := MoveToDock(ops, "a", Dock{Code: "D2", Cranes: []string{"C2", "C3"}})
	assert.Equal(t, "D2", out[0].Dock)
	assert.Equal(t, "C3", out[0].Crane)
	assert.Equal(t, 2, out[0].TotalCranesOnDock)
	assert.Equal(t, "D1", ops[0].Dock)

	out = MoveToDock(ops, "a", Dock{Code: "D9"})
	assert.Equal(t, "D9-C1", out[0].Crane)
	assert.Equal(t, 1, out[0].TotalCranesOnDock)
}
