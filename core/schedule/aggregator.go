package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/portlogistics/portplan/core/logger"
	"github.com/portlogistics/portplan/core/model"
)

// Aggregator builds the day's base schedule.
type Aggregator struct {
	dirs           Directories
	plans          PlanReader
	qualifications []string
	log            logger.Logger
}

// NewAggregator creates an Aggregator. plans may be nil, in which case the
// schedule is always built from the directories.
func NewAggregator(dirs Directories, plans PlanReader, qualifications []string, log logger.Logger) *Aggregator {
	return &Aggregator{dirs: dirs, plans: plans, qualifications: qualifications, log: log}
}

// Directories returns the collaborators used by the aggregator.
func (a *Aggregator) Directories() Directories { return a.dirs }

// Snapshot loads the directory snapshot of day.
func (a *Aggregator) Snapshot(ctx context.Context, day string) (*Snapshot, error) {
	if _, err := model.ParseDay(day); err != nil {
		return nil, fmt.Errorf("%w: day %q", model.ErrInvalidRequest, day)
	}
	return LoadSnapshot(ctx, a.dirs, day, a.qualifications)
}

// BaseSchedule returns the stored plan of day when one exists, otherwise a
// naive sequential schedule of the day's editable VVNs.
func (a *Aggregator) BaseSchedule(ctx context.Context, day string) (model.DailySchedule, error) {
	if _, err := model.ParseDay(day); err != nil {
		return model.DailySchedule{}, fmt.Errorf("%w: day %q", model.ErrInvalidRequest, day)
	}
	if a.plans != nil {
		plan, err := a.plans.GetByDay(ctx, day)
		switch {
		case err == nil:
			return model.DailySchedule{Day: day, Operations: model.CloneOperations(plan.Operations)}, nil
		case !errors.Is(err, model.ErrPlanNotFound):
			return model.DailySchedule{}, fmt.Errorf("read plan for %s: %w", day, err)
		}
	}
	snap, err := LoadSnapshot(ctx, a.dirs, day, a.qualifications)
	if err != nil {
		return model.DailySchedule{}, err
	}
	ops := Sequential(snap, a.log)
	a.log.Debugw("base schedule built", map[string]any{"day": day, "operations": len(ops)})
	return model.DailySchedule{Day: day, Operations: ops}, nil
}

// Sequential assigns each editable VVN, by ETA, one operation on the
// compatible dock that frees up first. Staff are assigned round-robin.
func Sequential(snap *Snapshot, log logger.Logger) []model.Operation {
	vvns := snap.VVNs()
	sort.Slice(vvns, func(i, j int) bool {
		if vvns[i].ETA != vvns[j].ETA {
			return vvns[i].ETA < vvns[j].ETA
		}
		return vvns[i].ID < vvns[j].ID
	})
	free := make(map[string]float64)
	staff := snap.Staff()
	next := 0
	ops := make([]model.Operation, 0, len(vvns))
	for _, vvn := range vvns {
		if !vvn.Status.IsEditable() {
			continue
		}
		vessel, ok := snap.Vessel(vvn.VesselIMO)
		if !ok {
			log.Warnf("vvn %s: vessel %s unknown, skipped", vvn.ID, vvn.VesselIMO)
			continue
		}
		dock, ok := earliestDock(snap, vessel.VesselTypeID, free)
		if !ok {
			log.Warnf("vvn %s: no dock accepts vessel type %s", vvn.ID, vessel.VesselTypeID)
			continue
		}
		duration := vvn.LoadingDuration + vvn.UnloadingDuration
		if duration <= 0 {
			duration = vvn.ETD - vvn.ETA
		}
		if duration <= 0 {
			duration = 1
		}
		start := vvn.ETA
		if free[dock.Code] > start {
			start = free[dock.Code]
		}
		end := start + duration
		free[dock.Code] = end

		total := len(dock.Cranes)
		crane := dock.Code + "-C1"
		if total > 0 {
			crane = dock.Cranes[0]
		} else {
			total = 1
		}
		op := model.Operation{
			VvnID:                     vvn.ID,
			Vessel:                    vessel.Name,
			Dock:                      dock.Code,
			Crane:                     crane,
			StartTime:                 start,
			EndTime:                   end,
			LoadingDuration:           vvn.LoadingDuration,
			UnloadingDuration:         vvn.UnloadingDuration,
			CraneCountUsed:            1,
			TotalCranesOnDock:         total,
			TheoreticalRequiredCranes: 1,
		}
		if end > vvn.ETD {
			op.DepartureDelay = end - vvn.ETD
		}
		if len(staff) > 0 {
			op.StaffAssignments = []model.StaffAssignment{{
				StaffMemberName: staff[next%len(staff)].Name,
				IntervalStart:   start,
				IntervalEnd:     end,
			}}
			next++
		}
		ops = append(ops, op)
	}
	return ops
}

func earliestDock(snap *Snapshot, vesselTypeID string, free map[string]float64) (model.Dock, bool) {
	var best model.Dock
	found := false
	for _, d := range snap.Docks() {
		if !d.Allows(vesselTypeID) {
			continue
		}
		if !found || free[d.Code] < free[best.Code] {
			best = d
			found = true
		}
	}
	return best, found
}
