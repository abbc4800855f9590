package planning

import "github.com/portlogistics/portplan/core/model"

// UpdateRequest replaces the operations of one VVN.
type UpdateRequest struct {
	PlanID          string            `json:"planDomainId"`
	VvnID           string            `json:"vvnId"`
	Operations      []model.Operation `json:"operations"`
	ReasonForChange string            `json:"reasonForChange"`
	Author          string            `json:"author"`
}

// VvnEdit is one VVN's part of a batch.
type VvnEdit struct {
	VvnID      string            `json:"vvnId"`
	Operations []model.Operation `json:"operations"`
}

// BatchRequest replaces the operations of several VVNs at once.
type BatchRequest struct {
	PlanID          string    `json:"planDomainId"`
	Edits           []VvnEdit `json:"edits"`
	ReasonForChange string    `json:"reasonForChange"`
	Author          string    `json:"author"`
}

// ReassignRequest moves a VVN's operations to another dock.
type ReassignRequest struct {
	PlanID       string `json:"planDomainId"`
	VvnID        string `json:"vvnId"`
	ProposedDock string `json:"proposedDock"`
	Officer      string `json:"officer"`
	Reason       string `json:"reason"`
}

// CreateRequest stores a new plan for a day.
type CreateRequest struct {
	Day        string            `json:"planDate"`
	Algorithm  string            `json:"algorithm"`
	Author     string            `json:"author"`
	Status     string            `json:"status"`
	Operations []model.Operation `json:"operations"`
}

// UpdateResult is returned by a committed edit. Warnings holds the
// non-blocking conflicts of the committed plan.
type UpdateResult struct {
	Plan     model.OperationPlan     `json:"plan"`
	Warnings []model.ConflictWarning `json:"warnings"`
}
