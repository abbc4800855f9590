package model

// Severity classifies how a conflict affects a plan edit.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityBlocking Severity = "blocking"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool { return s == SeverityWarning || s == SeverityBlocking }

// Wire-level conflict codes.
const (
	CodeCraneOverlap          = "CRANE_OVERLAP"
	CodeCraneCapacityExceeded = "CRANE_CAPACITY_EXCEEDED"
)

// ConflictWarning is attached to plan update responses. It is never
// persisted on its own.
type ConflictWarning struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// DockLoad holds occupancy hours of a dock before and after a rebalance.
type DockLoad struct {
	Dock   string  `json:"dock"`
	Before float64 `json:"before"`
	After  float64 `json:"after"`
}

// Decision types of a reassignment entry.
const (
	DecisionMove      = "move"
	DecisionRejected  = "rejected"
	DecisionUnchanged = "unchanged"
)

// ReassignmentEntry describes what the rebalancer decided for one VVN.
type ReassignmentEntry struct {
	VvnID                   string             `json:"vvnId"`
	VesselName              string             `json:"vesselName"`
	OriginalDock            string             `json:"originalDock"`
	ProposedDock            string             `json:"proposedDock"`
	DecisionType            string             `json:"decisionType"`
	Rejected                bool               `json:"rejected"`
	RejectionReason         string             `json:"rejectionReason,omitempty"`
	DockLoadBefore          map[string]float64 `json:"dockLoadBefore"`
	DockLoadAfter           map[string]float64 `json:"dockLoadAfter"`
	BalanceImprovementScore float64            `json:"balanceImprovementScore"`
	EvaluationNotes         string             `json:"evaluationNotes,omitempty"`
}

// IsProposedMove reports whether the entry moves the vessel to another dock.
func (e ReassignmentEntry) IsProposedMove() bool {
	return e.OriginalDock != e.ProposedDock && !e.Rejected
}

// OptimizationSummary aggregates the balance metrics of a proposal.
type OptimizationSummary struct {
	StdDevBefore       float64    `json:"stdDevBefore"`
	StdDevAfter        float64    `json:"stdDevAfter"`
	ImprovementPercent float64    `json:"improvementPercent"`
	MovesAccepted      int        `json:"movesAccepted"`
	MovesRejected      int        `json:"movesRejected"`
	DockLoads          []DockLoad `json:"dockLoads"`
	Summary            string     `json:"summary"`
}

// RebalanceProposal is a non-committing suggestion to move vessels between
// docks.
type RebalanceProposal struct {
	Day                 string              `json:"day"`
	PlanID              string              `json:"planDomainId,omitempty"`
	Reassignments       []ReassignmentEntry `json:"reassignments"`
	OptimizationSummary OptimizationSummary `json:"optimizationSummary"`
}
