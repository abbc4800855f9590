// Package rebalance proposes dock reassignments that even out dock load.
//
// The rebalancer never writes: it reads the day's plan and directory
// snapshot and returns a RebalanceProposal. Applying a proposed move goes
// through planning.Coordinator.ApplyReassignment.
package rebalance

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/portlogistics/portplan/core/conflict"
	"github.com/portlogistics/portplan/core/logger"
	"github.com/portlogistics/portplan/core/metrics"
	"github.com/portlogistics/portplan/core/model"
	"github.com/portlogistics/portplan/core/schedule"
)

// Rejection reasons reported on reassignment entries.
const (
	ReasonIncompatible  = "vessel type incompatible with target dock"
	ReasonTimeConflict  = "would create a time conflict"
	ReasonBlocking      = "would introduce a blocking conflict"
	ReasonNoImprovement = "no compatible dock with lower load"
)

const epsilon = 1e-9

// SnapshotSource loads the directory snapshot of a day.
type SnapshotSource interface {
	Snapshot(ctx context.Context, day string) (*schedule.Snapshot, error)
}

// Rebalancer computes proposals for stored plans.
type Rebalancer struct {
	plans     schedule.PlanReader
	snapshots SnapshotSource
	validator *conflict.Validator
	budget    int
	metrics   metrics.Sink
	log       logger.Logger
}

// New creates a Rebalancer. A non-positive budget allows one accepted move
// per VVN in the plan.
func New(plans schedule.PlanReader, snapshots SnapshotSource, validator *conflict.Validator, budget int, sink metrics.Sink, log logger.Logger) *Rebalancer {
	if validator == nil {
		validator = conflict.NewValidator(nil)
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Rebalancer{plans: plans, snapshots: snapshots, validator: validator, budget: budget, metrics: sink, log: log}
}

// ComputeProposal loads the plan of day and runs Propose on it.
func (r *Rebalancer) ComputeProposal(ctx context.Context, day string) (model.RebalanceProposal, error) {
	if _, err := model.ParseDay(day); err != nil {
		return model.RebalanceProposal{}, fmt.Errorf("%w: day %q", model.ErrInvalidRequest, day)
	}
	plan, err := r.plans.GetByDay(ctx, day)
	if err != nil {
		return model.RebalanceProposal{}, err
	}
	snap, err := r.snapshots.Snapshot(ctx, day)
	if err != nil {
		return model.RebalanceProposal{}, fmt.Errorf("load directory snapshot: %w", err)
	}
	p := Propose(plan, snap, r.validator, r.budget)
	s := p.OptimizationSummary
	if rec, ok := r.metrics.(metrics.RebalanceRecorder); ok {
		if err := rec.RecordRebalance(metrics.RebalanceEvent{
			Day:                day,
			StdDevBefore:       s.StdDevBefore,
			StdDevAfter:        s.StdDevAfter,
			ImprovementPercent: s.ImprovementPercent,
			MovesAccepted:      s.MovesAccepted,
			MovesRejected:      s.MovesRejected,
			Time:               time.Now(),
		}); err != nil {
			r.log.Errorf("record rebalance: %v", err)
		}
	}
	r.log.Infow("rebalance proposal computed", map[string]any{
		"day": day, "accepted": s.MovesAccepted, "rejected": s.MovesRejected, "improvement": s.ImprovementPercent,
	})
	return p, nil
}

// state is the hypothetical plan the greedy loop mutates.
type state struct {
	ops   []model.Operation
	docks []string
	snap  *schedule.Snapshot
}

func (s *state) loads() map[string]float64 {
	m := make(map[string]float64, len(s.docks))
	for _, d := range s.docks {
		m[d] = 0
	}
	for _, op := range s.ops {
		m[op.Dock] += op.Duration()
	}
	return m
}

func (s *state) stdDev(loads map[string]float64) float64 {
	if len(s.docks) == 0 {
		return 0
	}
	x := make([]float64, len(s.docks))
	for i, d := range s.docks {
		x[i] = loads[d]
	}
	_, sd := stat.PopMeanStdDev(x, nil)
	return sd
}

// Propose runs the greedy improvement loop over plan. It takes the largest
// unconsidered VVN of the most loaded dock still holding one and moves it to
// the feasible dock minimizing the population standard deviation of dock
// loads, as long as that strictly lowers it. The loop stops when every VVN
// has been considered or budget moves were accepted.
func Propose(plan model.OperationPlan, snap *schedule.Snapshot, validator *conflict.Validator, budget int) model.RebalanceProposal {
	st := &state{ops: model.CloneOperations(plan.Operations), docks: dockOrder(plan.Operations, snap), snap: snap}
	vvns := vvnOrder(st.ops)
	if budget <= 0 {
		budget = len(vvns)
	}
	initial := st.loads()
	sdBefore := st.stdDev(initial)
	baseBlocking := len(conflict.BlockingCodes(validator.Warnings(st.ops)))

	considered := make(map[string]bool)
	entries := make(map[string]model.ReassignmentEntry)
	accepted, rejected := 0, 0
	for accepted < budget {
		loads := st.loads()
		dock, vvn, ok := nextCandidate(st.ops, st.docks, loads, considered)
		if !ok {
			break
		}
		considered[vvn] = true
		e := st.evaluate(vvn, dock, loads, validator, baseBlocking)
		if e.Rejected {
			rejected++
		} else {
			accepted++
			st.ops = model.MoveToDock(st.ops, vvn, mustDock(snap, e.ProposedDock))
		}
		entries[vvn] = e
	}

	final := st.loads()
	sdAfter := st.stdDev(final)
	out := model.RebalanceProposal{Day: plan.PlanDate, PlanID: plan.ID}
	for _, id := range vvns {
		if e, ok := entries[id]; ok {
			out.Reassignments = append(out.Reassignments, e)
			continue
		}
		dock := dockOf(plan.Operations, id)
		out.Reassignments = append(out.Reassignments, model.ReassignmentEntry{
			VvnID:           id,
			VesselName:      vesselName(plan.Operations, id),
			OriginalDock:    dock,
			ProposedDock:    dock,
			DecisionType:    model.DecisionUnchanged,
			DockLoadBefore:  final,
			DockLoadAfter:   final,
			EvaluationNotes: "not considered",
		})
	}

	improvement := 0.0
	if accepted > 0 && sdBefore > 0 {
		improvement = (sdBefore - sdAfter) / sdBefore * 100
	}
	summary := model.OptimizationSummary{
		StdDevBefore:       sdBefore,
		StdDevAfter:        sdAfter,
		ImprovementPercent: improvement,
		MovesAccepted:      accepted,
		MovesRejected:      rejected,
		Summary: fmt.Sprintf("%d of %d considered vessels moved; std-dev %.2fh -> %.2fh (%.1f%% better)",
			accepted, accepted+rejected, sdBefore, sdAfter, improvement),
	}
	for _, d := range st.docks {
		summary.DockLoads = append(summary.DockLoads, model.DockLoad{Dock: d, Before: initial[d], After: final[d]})
	}
	out.OptimizationSummary = summary
	return out
}

type candidate struct {
	dock   string
	reason string
	sd     float64
	loads  map[string]float64
}

// evaluate checks every other dock as a target for vvn.
func (s *state) evaluate(vvn, from string, loads map[string]float64, validator *conflict.Validator, baseBlocking int) model.ReassignmentEntry {
	current := s.stdDev(loads)
	entry := model.ReassignmentEntry{
		VvnID:          vvn,
		VesselName:     vesselName(s.ops, vvn),
		OriginalDock:   from,
		ProposedDock:   from,
		DockLoadBefore: loads,
		DockLoadAfter:  loads,
	}
	vesselType, known := s.snap.VesselTypeOf(vvn)
	window := s.window(vvn)

	var cands []candidate
	for _, code := range s.docks {
		if code == from {
			continue
		}
		dock, ok := s.snap.Dock(code)
		if !ok || !known || !dock.Allows(vesselType) {
			cands = append(cands, candidate{dock: code, reason: ReasonIncompatible})
			continue
		}
		if s.timeConflict(vvn, code, window) {
			cands = append(cands, candidate{dock: code, reason: ReasonTimeConflict})
			continue
		}
		moved := model.MoveToDock(s.ops, vvn, dock)
		if len(conflict.BlockingCodes(validator.Warnings(moved))) > baseBlocking {
			cands = append(cands, candidate{dock: code, reason: ReasonBlocking})
			continue
		}
		next := &state{ops: moved, docks: s.docks, snap: s.snap}
		after := next.loads()
		cands = append(cands, candidate{dock: code, sd: next.stdDev(after), loads: after})
	}

	best := -1
	for i, c := range cands {
		if c.reason == "" && (best < 0 || c.sd < cands[best].sd-epsilon) {
			best = i
		}
	}
	entry.EvaluationNotes = notes(cands, known)
	switch {
	case best >= 0 && cands[best].sd < current-epsilon:
		c := cands[best]
		entry.ProposedDock = c.dock
		entry.DecisionType = model.DecisionMove
		entry.DockLoadAfter = c.loads
		entry.BalanceImprovementScore = current - c.sd
	case best >= 0:
		entry.ProposedDock = cands[best].dock
		entry.DecisionType = model.DecisionRejected
		entry.Rejected = true
		entry.RejectionReason = ReasonNoImprovement
	default:
		entry.DecisionType = model.DecisionRejected
		entry.Rejected = true
		entry.RejectionReason = dominantReason(cands)
	}
	return entry
}

// window is the VVN's [ETA, ETD) window, or the span of its operations when
// the VVN is not in the snapshot.
func (s *state) window(vvn string) model.Operation {
	if v, ok := s.snap.VVN(vvn); ok && v.ETD > v.ETA {
		return model.Operation{StartTime: v.ETA, EndTime: v.ETD}
	}
	w := model.Operation{StartTime: math.Inf(1), EndTime: math.Inf(-1)}
	for _, op := range s.ops {
		if op.VvnID == vvn {
			w.StartTime = math.Min(w.StartTime, op.StartTime)
			w.EndTime = math.Max(w.EndTime, op.EndTime)
		}
	}
	return w
}

func (s *state) timeConflict(vvn, dock string, window model.Operation) bool {
	for _, op := range s.ops {
		if op.Dock == dock && op.VvnID != vvn && op.Overlaps(window) {
			return true
		}
	}
	return false
}

// dominantReason picks the reason of the most promising infeasible
// candidate: blocking beats time conflict beats incompatibility.
func dominantReason(cands []candidate) string {
	rank := map[string]int{ReasonIncompatible: 0, ReasonTimeConflict: 1, ReasonBlocking: 2}
	reason := ReasonIncompatible
	for _, c := range cands {
		if rank[c.reason] > rank[reason] {
			reason = c.reason
		}
	}
	return reason
}

func notes(cands []candidate, known bool) string {
	if !known {
		return "vessel type unknown"
	}
	parts := make([]string, 0, len(cands))
	for _, c := range cands {
		if c.reason != "" {
			parts = append(parts, c.dock+": "+c.reason)
		} else {
			parts = append(parts, fmt.Sprintf("%s: std-dev %.2fh", c.dock, c.sd))
		}
	}
	return strings.Join(parts, "; ")
}

// nextCandidate walks the docks from most to least loaded and returns the
// largest unconsidered VVN of the first dock that still has one.
func nextCandidate(ops []model.Operation, docks []string, loads map[string]float64, considered map[string]bool) (string, string, bool) {
	for _, dock := range docksByLoad(docks, loads) {
		if vvn, ok := largestGroup(ops, dock, considered); ok {
			return dock, vvn, true
		}
	}
	return "", "", false
}

// docksByLoad orders docks by descending load, keeping directory order on ties.
func docksByLoad(docks []string, loads map[string]float64) []string {
	out := append([]string(nil), docks...)
	sort.SliceStable(out, func(i, j int) bool {
		return loads[out[i]] > loads[out[j]]+epsilon
	})
	return out
}

// largestGroup returns the unconsidered VVN holding the most hours on dock.
func largestGroup(ops []model.Operation, dock string, considered map[string]bool) (string, bool) {
	hours := make(map[string]float64)
	for _, op := range ops {
		if op.Dock == dock && !considered[op.VvnID] {
			hours[op.VvnID] += op.Duration()
		}
	}
	best, found := "", false
	for id, h := range hours {
		if !found || h > hours[best]+epsilon || (math.Abs(h-hours[best]) <= epsilon && id < best) {
			best, found = id, true
		}
	}
	return best, found
}

// dockOrder lists snapshot docks in directory order, then docks only seen on
// operations in sorted order.
func dockOrder(ops []model.Operation, snap *schedule.Snapshot) []string {
	var out []string
	seen := make(map[string]bool)
	for _, d := range snap.Docks() {
		seen[d.Code] = true
		out = append(out, d.Code)
	}
	var extra []string
	for _, op := range ops {
		if !seen[op.Dock] {
			seen[op.Dock] = true
			extra = append(extra, op.Dock)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func vvnOrder(ops []model.Operation) []string {
	var out []string
	seen := make(map[string]bool)
	for _, op := range ops {
		if !seen[op.VvnID] {
			seen[op.VvnID] = true
			out = append(out, op.VvnID)
		}
	}
	return out
}

func dockOf(ops []model.Operation, vvn string) string {
	for _, op := range ops {
		if op.VvnID == vvn {
			return op.Dock
		}
	}
	return ""
}

func vesselName(ops []model.Operation, vvn string) string {
	for _, op := range ops {
		if op.VvnID == vvn && op.Vessel != "" {
			return op.Vessel
		}
	}
	return ""
}

func mustDock(snap *schedule.Snapshot, code string) model.Dock {
	d, _ := snap.Dock(code)
	return d
}
