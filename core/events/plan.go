package events

import "time"

// PlanCommitted is published after a plan edit has been persisted.
type PlanCommitted struct {
	PlanID   string
	Day      string
	Action   string
	VvnIDs   []string
	Version  int64
	Warnings []string
	Author   string
	Latency  time.Duration
	Time     time.Time
}

// PlanRejected is published when an edit is refused. Codes holds the
// deduplicated blocking codes when the rejection came from validation.
type PlanRejected struct {
	PlanID  string
	Day     string
	Action  string
	VvnIDs  []string
	Codes   []string
	Reason  string
	Latency time.Duration
	Time    time.Time
}

// PlanEvent is either PlanCommitted or PlanRejected.
type PlanEvent interface {
	planEvent()
}

func (PlanCommitted) planEvent() {}
func (PlanRejected) planEvent()  {}
