// Package export renders schedules, comparisons and rebalance proposals as
// CSV, JSON or HTML charts.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/portlogistics/portplan/core/comparison"
	"github.com/portlogistics/portplan/core/model"
)

// WriteJSON writes v to w as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var scheduleHeader = []string{
	"vvn_id", "vessel", "dock", "crane", "start_time", "end_time",
	"crane_count_used", "total_cranes_on_dock", "departure_delay", "staff",
}

// WriteScheduleCSV writes one row per operation. Staff members are joined
// with ';'.
func WriteScheduleCSV(w io.Writer, schedule model.DailySchedule) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(scheduleHeader); err != nil {
		return err
	}
	for _, op := range schedule.Operations {
		staff := make([]string, 0, len(op.StaffAssignments))
		for _, s := range op.StaffAssignments {
			staff = append(staff, s.StaffMemberName)
		}
		rec := []string{
			op.VvnID,
			op.Vessel,
			op.Dock,
			op.Crane,
			formatFloat(op.StartTime),
			formatFloat(op.EndTime),
			strconv.Itoa(op.CraneCountUsed),
			strconv.Itoa(op.TotalCranesOnDock),
			formatFloat(op.DepartureDelay),
			strings.Join(staff, ";"),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteComparisonCSV writes one row per algorithm.
func WriteComparisonCSV(w io.Writer, c comparison.Comparison) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"algorithm", "computed", "total_delay", "total_crane_hours", "operations", "best", "error"}); err != nil {
		return err
	}
	for _, r := range c.Results {
		rec := []string{
			string(r.Algorithm),
			strconv.FormatBool(r.Computed),
			formatFloat(r.TotalDelay),
			formatFloat(r.TotalCraneHours),
			strconv.Itoa(r.OperationCount),
			strconv.FormatBool(r.Best),
			r.Error,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
