package model

import "fmt"

// VVNStatus is the lifecycle state of a vessel visit notification.
type VVNStatus string

const (
	VVNInProgress         VVNStatus = "InProgress"
	VVNPendingInformation VVNStatus = "PendingInformation"
	VVNSubmitted          VVNStatus = "Submitted"
	VVNRejected           VVNStatus = "Rejected"
	VVNWithdrawn          VVNStatus = "Withdrawn"
)

var vvnTransitions = map[VVNStatus][]VVNStatus{
	VVNInProgress:         {VVNSubmitted, VVNPendingInformation, VVNWithdrawn},
	VVNPendingInformation: {VVNInProgress},
	VVNSubmitted:          {VVNRejected},
	VVNWithdrawn:          {VVNInProgress},
}

// IsEditable reports whether operations may still be scheduled for the VVN.
func (s VVNStatus) IsEditable() bool {
	return s == VVNInProgress || s == VVNPendingInformation
}

// CanTransition reports whether the state machine allows s -> to.
func (s VVNStatus) CanTransition(to VVNStatus) bool {
	for _, next := range vvnTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// VVN is a vessel visit notification as seen by the scheduling engine.
// ETA and ETD are hour offsets within the plan day.
type VVN struct {
	ID                string    `json:"id" yaml:"id"`
	Day               string    `json:"day" yaml:"day"`
	VesselIMO         string    `json:"vesselImo" yaml:"vessel_imo"`
	ETA               float64   `json:"eta" yaml:"eta"`
	ETD               float64   `json:"etd" yaml:"etd"`
	LoadingDuration   float64   `json:"loadingDuration" yaml:"loading_duration"`
	UnloadingDuration float64   `json:"unloadingDuration" yaml:"unloading_duration"`
	Status            VVNStatus `json:"status" yaml:"status"`
}

// Transition moves the VVN to a new status if the edge exists.
func (v *VVN) Transition(to VVNStatus) error {
	if !v.Status.CanTransition(to) {
		return fmt.Errorf("vvn %s: invalid transition %s -> %s", v.ID, v.Status, to)
	}
	v.Status = to
	return nil
}

// Resume brings a withdrawn VVN back in progress.
func (v *VVN) Resume() error { return v.Transition(VVNInProgress) }
