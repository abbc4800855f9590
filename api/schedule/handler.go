// Package schedule exposes the planning engine over HTTP.
package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/portlogistics/portplan/core/audit"
	"github.com/portlogistics/portplan/core/comparison"
	"github.com/portlogistics/portplan/core/logger"
	"github.com/portlogistics/portplan/core/model"
	"github.com/portlogistics/portplan/core/monitoring"
	"github.com/portlogistics/portplan/core/planning"
	"github.com/portlogistics/portplan/core/solver"
	"github.com/portlogistics/portplan/pkg/export"
)

const maxBodyBytes = 1 << 20

// BaseScheduler builds the base schedule of a day.
type BaseScheduler interface {
	BaseSchedule(ctx context.Context, day string) (model.DailySchedule, error)
}

// Comparator runs the solver algorithms against a base schedule.
type Comparator interface {
	CompareAll(ctx context.Context, day string) (comparison.Comparison, error)
	Compare(ctx context.Context, day string, alg solver.Algorithm) (comparison.Comparison, error)
}

// Plans is the plan update surface of the coordinator.
type Plans interface {
	Plan(ctx context.Context, id string) (model.OperationPlan, error)
	PlanForDay(ctx context.Context, day string) (model.OperationPlan, error)
	AuditTrail(ctx context.Context, planID string) ([]audit.Entry, error)
	CreatePlan(ctx context.Context, req planning.CreateRequest) (planning.UpdateResult, error)
	UpdateForVvn(ctx context.Context, req planning.UpdateRequest) (planning.UpdateResult, error)
	UpdateBatch(ctx context.Context, req planning.BatchRequest) (planning.UpdateResult, error)
	ApplyReassignment(ctx context.Context, req planning.ReassignRequest) (planning.UpdateResult, error)
}

// Rebalancer computes dock rebalance proposals.
type Rebalancer interface {
	ComputeProposal(ctx context.Context, day string) (model.RebalanceProposal, error)
}

// Deps are the collaborators served by the handler.
type Deps struct {
	Base       BaseScheduler
	Solver     solver.Solver
	Comparator Comparator
	Plans      Plans
	Rebalancer Rebalancer
	Monitor    monitoring.Monitor
	Log        logger.Logger
}

// Handler implements the HTTP endpoints.
type Handler struct {
	base       BaseScheduler
	solver     solver.Solver
	comparator Comparator
	plans      Plans
	rebalancer Rebalancer
	monitor    monitoring.Monitor
	log        logger.Logger
}

// NewHandler creates a Handler from deps.
func NewHandler(d Deps) *Handler {
	return &Handler{
		base:       d.Base,
		solver:     d.Solver,
		comparator: d.Comparator,
		plans:      d.Plans,
		rebalancer: d.Rebalancer,
		monitor:    monitoring.OrNop(d.Monitor),
		log:        d.Log,
	}
}

// SolveResponse is returned by the per-algorithm schedule endpoints.
type SolveResponse struct {
	Algorithm solver.Algorithm  `json:"algorithm"`
	Schedule  []model.Operation `json:"schedule"`
	Prolog    map[string]any    `json:"prolog"`
}

func dayParam(r *http.Request) (string, error) {
	day := strings.TrimSpace(r.URL.Query().Get("day"))
	if day == "" {
		return "", fmt.Errorf("%w: day is required", model.ErrInvalidRequest)
	}
	if _, err := model.ParseDay(day); err != nil {
		return "", fmt.Errorf("%w: day %q must be YYYY-MM-DD", model.ErrInvalidRequest, day)
	}
	return day, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidRequest, err)
	}
	return nil
}

// basic handles GET /schedule/daily/basic.
func (h *Handler) basic(w http.ResponseWriter, r *http.Request) {
	day, err := dayParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	s, err := h.base.BaseSchedule(r.Context(), day)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=schedule-%s.csv", day))
		if err := export.WriteScheduleCSV(w, s); err != nil {
			h.log.Errorf("write csv: %v", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// solve handles GET /schedule/daily/{algorithm}.
func (h *Handler) solve(w http.ResponseWriter, r *http.Request) {
	alg, err := solver.Parse(chi.URLParam(r, "algorithm"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	day, err := dayParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	base, err := h.base.BaseSchedule(r.Context(), day)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.solver.Solve(r.Context(), base, alg)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	prolog := make(map[string]any, len(res.Raw)+1)
	for k, v := range res.Raw {
		prolog[k] = v
	}
	if res.DelayKnown() {
		prolog["total_delay"] = res.TotalDelay
	}
	ops := res.Schedule.Operations
	if ops == nil {
		ops = []model.Operation{}
	}
	writeJSON(w, http.StatusOK, SolveResponse{Algorithm: res.Algorithm, Schedule: ops, Prolog: prolog})
}

// compare handles GET /schedule/daily/multi-crane-comparison. An empty
// algorithm or "all" runs every algorithm.
func (h *Handler) compare(w http.ResponseWriter, r *http.Request) {
	day, err := dayParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var c comparison.Comparison
	switch name := r.URL.Query().Get("algorithm"); name {
	case "", "all":
		c, err = h.comparator.CompareAll(r.Context(), day)
	default:
		var alg solver.Algorithm
		if alg, err = solver.Parse(name); err == nil {
			c, err = h.comparator.Compare(r.Context(), day, alg)
		}
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	switch r.URL.Query().Get("format") {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		if err := export.WriteComparisonCSV(w, c); err != nil {
			h.log.Errorf("write csv: %v", err)
		}
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := export.RenderComparisonChart(w, c); err != nil {
			h.log.Errorf("render chart: %v", err)
		}
	default:
		writeJSON(w, http.StatusOK, c)
	}
}

// planByDay handles GET /operation-plans?day=.
func (h *Handler) planByDay(w http.ResponseWriter, r *http.Request) {
	day, err := dayParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.plans.PlanForDay(r.Context(), day)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// plan handles GET /operation-plans/{id}.
func (h *Handler) plan(w http.ResponseWriter, r *http.Request) {
	p, err := h.plans.Plan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// createPlan handles POST /operation-plans.
func (h *Handler) createPlan(w http.ResponseWriter, r *http.Request) {
	var req planning.CreateRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.plans.CreatePlan(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// updateVvn handles PUT /operation-plans/vvn.
func (h *Handler) updateVvn(w http.ResponseWriter, r *http.Request) {
	var req planning.UpdateRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.plans.UpdateForVvn(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// updateBatch handles PUT /operation-plans/batch.
func (h *Handler) updateBatch(w http.ResponseWriter, r *http.Request) {
	var req planning.BatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.plans.UpdateBatch(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// auditTrail handles GET /operation-plans/{id}/audit.
func (h *Handler) auditTrail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.plans.Plan(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	entries, err := h.plans.AuditTrail(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// proposal handles GET /dock-rebalance/proposal.
func (h *Handler) proposal(w http.ResponseWriter, r *http.Request) {
	day, err := dayParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.rebalancer.ComputeProposal(r.Context(), day)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := export.RenderRebalanceChart(w, p); err != nil {
			h.log.Errorf("render chart: %v", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// applyReassignment handles POST /dock-rebalance/apply.
func (h *Handler) applyReassignment(w http.ResponseWriter, r *http.Request) {
	var req planning.ReassignRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.plans.ApplyReassignment(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
