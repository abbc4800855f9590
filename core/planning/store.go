package planning

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/portlogistics/portplan/core/model"
)

// PlanStore persists operation plans with optimistic versioning. Save
// stores plan only when the stored version equals expectedVersion (zero for
// a new plan) and returns the plan with its new version.
type PlanStore interface {
	Get(ctx context.Context, id string) (model.OperationPlan, error)
	GetByDay(ctx context.Context, day string) (model.OperationPlan, error)
	Save(ctx context.Context, plan model.OperationPlan, expectedVersion int64) (model.OperationPlan, error)
	List(ctx context.Context) ([]model.OperationPlan, error)
}

// MemoryStore keeps plans in memory. At most one plan exists per day.
type MemoryStore struct {
	mu    sync.RWMutex
	plans map[string]model.OperationPlan
	byDay map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{plans: make(map[string]model.OperationPlan), byDay: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (model.OperationPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[id]
	if !ok {
		return model.OperationPlan{}, fmt.Errorf("%w: %s", model.ErrPlanNotFound, id)
	}
	return p.Clone(), nil
}

func (s *MemoryStore) GetByDay(ctx context.Context, day string) (model.OperationPlan, error) {
	s.mu.RLock()
	id, ok := s.byDay[day]
	s.mu.RUnlock()
	if !ok {
		return model.OperationPlan{}, fmt.Errorf("%w: day %s", model.ErrPlanNotFound, day)
	}
	return s.Get(ctx, id)
}

func (s *MemoryStore) Save(_ context.Context, plan model.OperationPlan, expectedVersion int64) (model.OperationPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, exists := s.plans[plan.ID]
	switch {
	case !exists && expectedVersion != 0:
		return model.OperationPlan{}, fmt.Errorf("%w: %s", model.ErrPlanNotFound, plan.ID)
	case exists && cur.Version != expectedVersion:
		return model.OperationPlan{}, fmt.Errorf("%w: %s at version %d, expected %d", model.ErrVersionConflict, plan.ID, cur.Version, expectedVersion)
	}
	if other, ok := s.byDay[plan.PlanDate]; ok && other != plan.ID {
		return model.OperationPlan{}, fmt.Errorf("%w: day %s already has plan %s", model.ErrVersionConflict, plan.PlanDate, other)
	}
	if exists && cur.PlanDate != plan.PlanDate {
		delete(s.byDay, cur.PlanDate)
	}
	saved := plan.Clone()
	saved.Version = expectedVersion + 1
	s.plans[saved.ID] = saved
	s.byDay[saved.PlanDate] = saved.ID
	return saved.Clone(), nil
}

// List returns all plans ordered by day.
func (s *MemoryStore) List(_ context.Context) ([]model.OperationPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.OperationPlan, 0, len(s.plans))
	for _, p := range s.plans {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlanDate < out[j].PlanDate })
	return out, nil
}
