// Package audit records every committed or rejected plan edit.
package audit

import (
	"context"
	"time"
)

// Action names the coordinator path that produced an entry.
type Action string

const (
	ActionCreate      Action = "create"
	ActionUpdate      Action = "update"
	ActionBatchUpdate Action = "batch_update"
	ActionReassign    Action = "reassign"
)

// Outcome tells whether the edit was persisted.
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"
	OutcomeRejected  Outcome = "rejected"
)

// Entry is one audit trail record.
type Entry struct {
	ID        string    `json:"id"`
	PlanID    string    `json:"plan_id"`
	Day       string    `json:"day"`
	Action    Action    `json:"action"`
	Outcome   Outcome   `json:"outcome"`
	VvnIDs    []string  `json:"vvn_ids"`
	Codes     []string  `json:"codes,omitempty"`
	Reason    string    `json:"reason"`
	Author    string    `json:"author"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// Query defines filters for retrieving entries. Zero fields match anything.
type Query struct {
	PlanID string
	Day    string
	VvnID  string
	Start  time.Time
	End    time.Time
}

// Match reports whether e satisfies the query.
func (q Query) Match(e Entry) bool {
	if q.PlanID != "" && e.PlanID != q.PlanID {
		return false
	}
	if q.Day != "" && e.Day != q.Day {
		return false
	}
	if !q.Start.IsZero() && e.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && e.Timestamp.After(q.End) {
		return false
	}
	if q.VvnID != "" {
		for _, id := range e.VvnIDs {
			if id == q.VvnID {
				return true
			}
		}
		return false
	}
	return true
}

// Store persists entries and supports querying.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Query(ctx context.Context, q Query) ([]Entry, error)
	Close() error
}
