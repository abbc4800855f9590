package solver

import (
	"context"

	"github.com/portlogistics/portplan/core/model"
)

// StaticSolver returns the input schedule unchanged for every algorithm. The
// total delay is the sum of positive departure delays.
type StaticSolver struct{}

func (StaticSolver) Solve(ctx context.Context, schedule model.DailySchedule, alg Algorithm) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	ops := model.CloneOperations(schedule.Operations)
	var delay float64
	for i := range ops {
		if ops[i].OptimizedOperationDuration <= 0 {
			ops[i].OptimizedOperationDuration = ops[i].EndTime - ops[i].StartTime
		}
		if ops[i].DepartureDelay > 0 {
			delay += ops[i].DepartureDelay
		}
	}
	return Result{
		Algorithm:  alg,
		Schedule:   model.DailySchedule{Day: schedule.Day, Operations: ops},
		TotalDelay: delay,
		Raw:        map[string]any{"total_delay": delay},
	}, nil
}
