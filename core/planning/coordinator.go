package planning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/portlogistics/portplan/core/audit"
	"github.com/portlogistics/portplan/core/conflict"
	"github.com/portlogistics/portplan/core/events"
	"github.com/portlogistics/portplan/core/logger"
	"github.com/portlogistics/portplan/core/metrics"
	"github.com/portlogistics/portplan/core/model"
	"github.com/portlogistics/portplan/core/schedule"
	"github.com/portlogistics/portplan/internal/eventbus"
)

// SnapshotSource loads the directory snapshot of a day.
type SnapshotSource interface {
	Snapshot(ctx context.Context, day string) (*schedule.Snapshot, error)
}

// Coordinator applies plan edits atomically.
type Coordinator struct {
	store     PlanStore
	validator *conflict.Validator
	vvns      schedule.VVNDirectory
	snapshots SnapshotSource
	audit     audit.Store
	metrics   metrics.Sink
	bus       *eventbus.Bus[events.PlanEvent]
	log       logger.Logger
	locks     *keyedMutex
	now       func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

func WithAudit(s audit.Store) Option {
	return func(c *Coordinator) {
		if s != nil {
			c.audit = s
		}
	}
}

func WithMetrics(s metrics.Sink) Option {
	return func(c *Coordinator) {
		if s != nil {
			c.metrics = s
		}
	}
}

func WithEvents(bus *eventbus.Bus[events.PlanEvent]) Option {
	return func(c *Coordinator) { c.bus = bus }
}

// WithSnapshots enables ApplyReassignment.
func WithSnapshots(src SnapshotSource) Option {
	return func(c *Coordinator) { c.snapshots = src }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator creates a Coordinator. A nil validator uses the default
// severity policy.
func NewCoordinator(store PlanStore, validator *conflict.Validator, vvns schedule.VVNDirectory, log logger.Logger, opts ...Option) *Coordinator {
	if validator == nil {
		validator = conflict.NewValidator(nil)
	}
	c := &Coordinator{
		store:     store,
		validator: validator,
		vvns:      vvns,
		audit:     audit.NewMemoryStore(),
		metrics:   metrics.NopSink{},
		log:       log,
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Plan returns the plan with the given id.
func (c *Coordinator) Plan(ctx context.Context, id string) (model.OperationPlan, error) {
	return c.store.Get(ctx, id)
}

// PlanForDay returns the plan of day.
func (c *Coordinator) PlanForDay(ctx context.Context, day string) (model.OperationPlan, error) {
	return c.store.GetByDay(ctx, day)
}

// AuditTrail returns the audit entries of a plan in append order.
func (c *Coordinator) AuditTrail(ctx context.Context, planID string) ([]audit.Entry, error) {
	if _, err := c.store.Get(ctx, planID); err != nil {
		return nil, err
	}
	return c.audit.Query(ctx, audit.Query{PlanID: planID})
}

// edit is one pass through the validate-then-commit pipeline. apply
// computes the full edited operation set from the current plan.
type edit struct {
	action audit.Action
	planID string
	vvnIDs []string
	reason string
	author string
	apply  func(ctx context.Context, plan model.OperationPlan) ([]model.Operation, error)
}

// UpdateForVvn replaces the operations of one VVN and commits the plan when
// no blocking conflict remains.
func (c *Coordinator) UpdateForVvn(ctx context.Context, req UpdateRequest) (UpdateResult, error) {
	if req.PlanID == "" || req.VvnID == "" {
		return UpdateResult{}, fmt.Errorf("%w: planDomainId and vvnId are required", model.ErrInvalidRequest)
	}
	ops, err := prepareOperations(req.VvnID, req.Operations)
	if err != nil {
		return UpdateResult{}, err
	}
	return c.run(ctx, edit{
		action: audit.ActionUpdate,
		planID: req.PlanID,
		vvnIDs: []string{req.VvnID},
		reason: req.ReasonForChange,
		author: req.Author,
		apply: func(ctx context.Context, plan model.OperationPlan) ([]model.Operation, error) {
			if err := c.checkEditable(ctx, plan, req.VvnID); err != nil {
				return nil, err
			}
			return model.ReplaceVvn(plan.Operations, req.VvnID, ops), nil
		},
	})
}

// UpdateBatch applies edits spanning several VVNs as one all-or-nothing
// change validated in a single pass.
func (c *Coordinator) UpdateBatch(ctx context.Context, req BatchRequest) (UpdateResult, error) {
	if req.PlanID == "" || len(req.Edits) == 0 {
		return UpdateResult{}, fmt.Errorf("%w: planDomainId and at least one edit are required", model.ErrInvalidRequest)
	}
	ids := make([]string, 0, len(req.Edits))
	prepared := make([][]model.Operation, len(req.Edits))
	seen := make(map[string]bool, len(req.Edits))
	for i, e := range req.Edits {
		if e.VvnID == "" {
			return UpdateResult{}, fmt.Errorf("%w: edit %d has no vvnId", model.ErrInvalidRequest, i)
		}
		if seen[e.VvnID] {
			return UpdateResult{}, fmt.Errorf("%w: vvn %s edited twice", model.ErrInvalidRequest, e.VvnID)
		}
		seen[e.VvnID] = true
		ops, err := prepareOperations(e.VvnID, e.Operations)
		if err != nil {
			return UpdateResult{}, err
		}
		ids = append(ids, e.VvnID)
		prepared[i] = ops
	}
	return c.run(ctx, edit{
		action: audit.ActionBatchUpdate,
		planID: req.PlanID,
		vvnIDs: ids,
		reason: req.ReasonForChange,
		author: req.Author,
		apply: func(ctx context.Context, plan model.OperationPlan) ([]model.Operation, error) {
			for _, id := range ids {
				if err := c.checkEditable(ctx, plan, id); err != nil {
					return nil, err
				}
			}
			ops := plan.Operations
			for i, id := range ids {
				ops = model.ReplaceVvn(ops, id, prepared[i])
			}
			return ops, nil
		},
	})
}

// ApplyReassignment moves every operation of a VVN to the proposed dock.
func (c *Coordinator) ApplyReassignment(ctx context.Context, req ReassignRequest) (UpdateResult, error) {
	if req.PlanID == "" || req.VvnID == "" || req.ProposedDock == "" {
		return UpdateResult{}, fmt.Errorf("%w: planDomainId, vvnId and proposedDock are required", model.ErrInvalidRequest)
	}
	if c.snapshots == nil {
		return UpdateResult{}, errors.New("reassignment needs a directory snapshot source")
	}
	return c.run(ctx, edit{
		action: audit.ActionReassign,
		planID: req.PlanID,
		vvnIDs: []string{req.VvnID},
		reason: req.Reason,
		author: req.Officer,
		apply: func(ctx context.Context, plan model.OperationPlan) ([]model.Operation, error) {
			if err := c.checkEditable(ctx, plan, req.VvnID); err != nil {
				return nil, err
			}
			snap, err := c.snapshots.Snapshot(ctx, plan.PlanDate)
			if err != nil {
				return nil, fmt.Errorf("load directory snapshot: %w", err)
			}
			dock, ok := snap.Dock(req.ProposedDock)
			if !ok {
				return nil, fmt.Errorf("%w: %s", model.ErrDockNotFound, req.ProposedDock)
			}
			vesselType, ok := snap.VesselTypeOf(req.VvnID)
			if !ok {
				return nil, fmt.Errorf("%w: vessel of vvn %s", model.ErrVesselNotFound, req.VvnID)
			}
			if !dock.Allows(vesselType) {
				return nil, fmt.Errorf("%w: %s does not accept %s", model.ErrDockIncompatible, dock.Code, vesselType)
			}
			return model.MoveToDock(plan.Operations, req.VvnID, dock), nil
		},
	})
}

// CreatePlan stores a new plan for a day that has none.
func (c *Coordinator) CreatePlan(ctx context.Context, req CreateRequest) (UpdateResult, error) {
	if _, err := model.ParseDay(req.Day); err != nil {
		return UpdateResult{}, fmt.Errorf("%w: planDate %q", model.ErrInvalidRequest, req.Day)
	}
	for _, op := range req.Operations {
		if err := op.Validate(); err != nil {
			return UpdateResult{}, err
		}
	}
	start := c.now()
	plan := model.OperationPlan{
		ID:         uuid.NewString(),
		PlanDate:   req.Day,
		Author:     req.Author,
		Algorithm:  req.Algorithm,
		Status:     req.Status,
		Operations: model.CloneOperations(req.Operations),
	}
	if plan.Status == "" {
		plan.Status = "draft"
	}
	unlock := c.locks.Lock("day:" + req.Day)
	defer unlock()
	if _, err := c.store.GetByDay(ctx, req.Day); err == nil {
		return UpdateResult{}, fmt.Errorf("%w: day %s already has a plan", model.ErrVersionConflict, req.Day)
	}
	e := edit{action: audit.ActionCreate, planID: plan.ID, vvnIDs: vvnIDs(plan.Operations), author: req.Author}
	for _, id := range e.vvnIDs {
		if err := c.vvnEditable(ctx, id); err != nil {
			c.rejected(ctx, e, plan, nil, err, start)
			return UpdateResult{}, err
		}
	}
	warnings := c.validator.Warnings(plan.Operations)
	if codes := conflict.BlockingCodes(warnings); len(codes) > 0 {
		err := &model.BlockingConflictError{Codes: codes}
		c.rejected(ctx, e, plan, codes, err, start)
		return UpdateResult{}, err
	}
	plan.TotalDelay = totalDelay(plan.Operations)
	plan.UpdatedAt = c.now()
	saved, err := c.store.Save(ctx, plan, 0)
	if err != nil {
		c.rejected(ctx, e, plan, nil, err, start)
		return UpdateResult{}, err
	}
	nonBlocking := conflict.NonBlocking(warnings)
	c.committed(ctx, e, saved, nonBlocking, start)
	return UpdateResult{Plan: saved, Warnings: nonBlocking}, nil
}

func (c *Coordinator) run(ctx context.Context, e edit) (UpdateResult, error) {
	start := c.now()
	unlock := c.locks.Lock(e.planID)
	defer unlock()

	plan, err := c.store.Get(ctx, e.planID)
	if err != nil {
		return UpdateResult{}, err
	}
	ops, err := e.apply(ctx, plan)
	if err != nil {
		c.rejected(ctx, e, plan, nil, err, start)
		return UpdateResult{}, err
	}
	warnings := c.validator.Warnings(ops)
	if codes := conflict.BlockingCodes(warnings); len(codes) > 0 {
		err := &model.BlockingConflictError{Codes: codes}
		c.rejected(ctx, e, plan, codes, err, start)
		return UpdateResult{}, err
	}

	next := plan.Clone()
	next.Operations = ops
	next.TotalDelay = totalDelay(ops)
	next.UpdatedAt = c.now()
	saved, err := c.store.Save(ctx, next, plan.Version)
	if err != nil {
		c.rejected(ctx, e, plan, nil, err, start)
		return UpdateResult{}, fmt.Errorf("save plan %s: %w", plan.ID, err)
	}
	nonBlocking := conflict.NonBlocking(warnings)
	c.committed(ctx, e, saved, nonBlocking, start)
	return UpdateResult{Plan: saved, Warnings: nonBlocking}, nil
}

// checkEditable verifies the VVN is part of the plan and still editable.
func (c *Coordinator) checkEditable(ctx context.Context, plan model.OperationPlan, vvnID string) error {
	if !plan.HasVvn(vvnID) {
		return fmt.Errorf("%w: %s in plan %s", model.ErrVvnNotFoundInPlan, vvnID, plan.ID)
	}
	return c.vvnEditable(ctx, vvnID)
}

// vvnEditable looks the VVN up in the directory and refuses unknown VVNs and
// VVNs outside the editable states.
func (c *Coordinator) vvnEditable(ctx context.Context, vvnID string) error {
	if c.vvns == nil {
		return nil
	}
	vvn, err := c.vvns.VVN(ctx, vvnID)
	if err != nil {
		return fmt.Errorf("lookup vvn %s: %w", vvnID, err)
	}
	if !vvn.Status.IsEditable() {
		return &model.VvnNotEditableError{VvnID: vvnID, Status: vvn.Status}
	}
	return nil
}

func (c *Coordinator) committed(ctx context.Context, e edit, plan model.OperationPlan, warnings []model.ConflictWarning, start time.Time) {
	now := c.now()
	codes := warningCodes(warnings)
	c.appendAudit(ctx, audit.Entry{
		ID:        uuid.NewString(),
		PlanID:    plan.ID,
		Day:       plan.PlanDate,
		Action:    e.action,
		Outcome:   audit.OutcomeCommitted,
		VvnIDs:    e.vvnIDs,
		Codes:     codes,
		Reason:    e.reason,
		Author:    e.author,
		Version:   plan.Version,
		Timestamp: now,
	})
	if err := c.metrics.RecordPlanUpdate(metrics.PlanUpdateEvent{
		PlanID:       plan.ID,
		Day:          plan.PlanDate,
		Action:       string(e.action),
		Committed:    true,
		WarningCodes: codes,
		Latency:      now.Sub(start),
		Time:         now,
	}); err != nil {
		c.log.Errorf("record plan update: %v", err)
	}
	if c.bus != nil {
		c.bus.Publish(events.PlanCommitted{
			PlanID:   plan.ID,
			Day:      plan.PlanDate,
			Action:   string(e.action),
			VvnIDs:   e.vvnIDs,
			Version:  plan.Version,
			Warnings: codes,
			Author:   e.author,
			Latency:  now.Sub(start),
			Time:     now,
		})
	}
	c.log.Infow("plan committed", map[string]any{
		"plan": plan.ID, "day": plan.PlanDate, "action": string(e.action), "version": plan.Version, "warnings": len(warnings),
	})
}

func (c *Coordinator) rejected(ctx context.Context, e edit, plan model.OperationPlan, codes []string, cause error, start time.Time) {
	now := c.now()
	c.appendAudit(ctx, audit.Entry{
		ID:        uuid.NewString(),
		PlanID:    plan.ID,
		Day:       plan.PlanDate,
		Action:    e.action,
		Outcome:   audit.OutcomeRejected,
		VvnIDs:    e.vvnIDs,
		Codes:     codes,
		Reason:    e.reason,
		Author:    e.author,
		Version:   plan.Version,
		Timestamp: now,
	})
	if err := c.metrics.RecordPlanUpdate(metrics.PlanUpdateEvent{
		PlanID:        plan.ID,
		Day:           plan.PlanDate,
		Action:        string(e.action),
		BlockingCodes: codes,
		Latency:       now.Sub(start),
		Time:          now,
	}); err != nil {
		c.log.Errorf("record plan update: %v", err)
	}
	if c.bus != nil {
		c.bus.Publish(events.PlanRejected{
			PlanID:  plan.ID,
			Day:     plan.PlanDate,
			Action:  string(e.action),
			VvnIDs:  e.vvnIDs,
			Codes:   codes,
			Reason:  cause.Error(),
			Latency: now.Sub(start),
			Time:    now,
		})
	}
	c.log.Warnf("plan %s %s rejected: %v", plan.ID, e.action, cause)
}

func (c *Coordinator) appendAudit(ctx context.Context, entry audit.Entry) {
	if err := c.audit.Append(ctx, entry); err != nil {
		c.log.Errorf("append audit entry for plan %s: %v", entry.PlanID, err)
	}
}

// prepareOperations stamps ops with vvnID and checks per-operation
// invariants.
func prepareOperations(vvnID string, ops []model.Operation) ([]model.Operation, error) {
	out := model.CloneOperations(ops)
	for i := range out {
		if out[i].VvnID == "" {
			out[i].VvnID = vvnID
		}
		if out[i].VvnID != vvnID {
			return nil, &model.InvalidOperationError{VvnID: out[i].VvnID, Reason: fmt.Sprintf("operation belongs to %s, not %s", out[i].VvnID, vvnID)}
		}
		if err := out[i].Validate(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func totalDelay(ops []model.Operation) float64 {
	var d float64
	for _, op := range ops {
		if op.DepartureDelay > 0 {
			d += op.DepartureDelay
		}
	}
	return d
}

func warningCodes(ws []model.ConflictWarning) []string {
	if len(ws) == 0 {
		return nil
	}
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Code
	}
	return out
}

func vvnIDs(ops []model.Operation) []string {
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
