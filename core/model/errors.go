package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPlanNotFound is returned when no plan matches the id or day.
	ErrPlanNotFound = errors.New("operation plan not found")
	// ErrVvnNotFoundInPlan is returned when the plan holds no operation of the VVN.
	ErrVvnNotFoundInPlan = errors.New("vvn not found in plan")
	// ErrPreconditionFailed marks precondition failures such as a non-editable VVN.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrVersionConflict is returned when the stored plan changed since it was read.
	ErrVersionConflict = errors.New("plan version conflict")
	// ErrDockIncompatible is returned when a vessel type may not use a dock.
	ErrDockIncompatible = errors.New("vessel type incompatible with target dock")
	// ErrInvalidRequest marks malformed input such as a bad day string.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrVvnNotFound is returned by the VVN directory for unknown ids.
	ErrVvnNotFound = errors.New("vvn not found")
	// ErrVesselNotFound is returned by the vessel directory for unknown IMOs.
	ErrVesselNotFound = errors.New("vessel not found")
	// ErrDockNotFound is returned for dock codes missing from the directory.
	ErrDockNotFound = errors.New("dock not found")
)

// BlockingConflictError rejects a plan edit. Codes are deduplicated and keep
// their first-seen order.
type BlockingConflictError struct {
	Codes []string
}

func (e *BlockingConflictError) Error() string {
	return strings.Join(e.Codes, ", ")
}

// VvnNotEditableError is returned for VVNs outside the editable states.
type VvnNotEditableError struct {
	VvnID  string
	Status VVNStatus
}

func (e *VvnNotEditableError) Error() string {
	return fmt.Sprintf("vvn %s is not editable in status %s", e.VvnID, e.Status)
}

func (e *VvnNotEditableError) Unwrap() error { return ErrPreconditionFailed }

// InvalidOperationError reports an operation breaking a per-operation invariant.
type InvalidOperationError struct {
	VvnID  string
	Reason string
}

func (e *InvalidOperationError) Error() string {
	if e.VvnID == "" {
		return "invalid operation: " + e.Reason
	}
	return fmt.Sprintf("invalid operation for vvn %s: %s", e.VvnID, e.Reason)
}

// SolverUnavailableError isolates the failure of one solver algorithm.
type SolverUnavailableError struct {
	Algorithm string
	Err       error
}

func (e *SolverUnavailableError) Error() string {
	return fmt.Sprintf("solver unavailable for %s: %v", e.Algorithm, e.Err)
}

func (e *SolverUnavailableError) Unwrap() error { return e.Err }
