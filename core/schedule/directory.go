// Package schedule builds the base daily schedule from the dock, vessel,
// staff and VVN directories.
package schedule

import (
	"context"

	"github.com/portlogistics/portplan/core/model"
)

// DockDirectory lists the port's docks.
type DockDirectory interface {
	Docks(ctx context.Context) ([]model.Dock, error)
}

// VesselDirectory looks vessels up by IMO. Unknown IMOs return
// model.ErrVesselNotFound.
type VesselDirectory interface {
	VesselByIMO(ctx context.Context, imo string) (model.Vessel, error)
}

// StaffDirectory returns staff holding at least one of the qualification
// codes. An empty code list returns every member.
type StaffDirectory interface {
	StaffWithQualifications(ctx context.Context, codes []string) ([]model.StaffMember, error)
}

// VVNDirectory exposes vessel visit notifications. Unknown ids return
// model.ErrVvnNotFound.
type VVNDirectory interface {
	VVN(ctx context.Context, id string) (model.VVN, error)
	VVNsForDay(ctx context.Context, day string) ([]model.VVN, error)
}

// PlanReader reads stored plans. A day without a plan returns
// model.ErrPlanNotFound.
type PlanReader interface {
	GetByDay(ctx context.Context, day string) (model.OperationPlan, error)
}

// Directories groups the collaborators consumed by the engine.
type Directories struct {
	Docks   DockDirectory
	Vessels VesselDirectory
	Staff   StaffDirectory
	VVNs    VVNDirectory
}
