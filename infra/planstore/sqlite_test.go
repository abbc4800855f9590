package planstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portlogistics/portplan/core/conflict"
	"github.com/portlogistics/portplan/core/model"
	"github.com/portlogistics/portplan/core/planning"
	"github.com/portlogistics/portplan/infra/directory"
	"github.com/portlogistics/portplan/infra/logger"
)

var _ planning.PlanStore = (*SQLiteStore)(nil)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "plans.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func samplePlan(id, day string) model.OperationPlan {
	return model.OperationPlan{
		ID:        id,
		PlanDate:  day,
		Author:    "planner",
		Algorithm: "optimal",
		UpdatedAt: time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC),
		Operations: []model.Operation{
			{VvnID: "v1", Dock: "D1", Crane: "C1", StartTime: 0, EndTime: 5, CraneCountUsed: 1, TotalCranesOnDock: 2,
				StaffAssignments: []model.StaffAssignment{{StaffMemberName: "ana", IntervalStart: 0, IntervalEnd: 5}}},
		},
	}
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	saved, err := s.Save(ctx, samplePlan("p1", "2025-01-10"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.Version)

	got, err := s.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, saved.Operations, got.Operations)
	assert.True(t, saved.UpdatedAt.Equal(got.UpdatedAt))

	byDay, err := s.GetByDay(ctx, "2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, "p1", byDay.ID)

	plan := got
	plan.Operations[0].EndTime = 4
	saved, err = s.Save(ctx, plan, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), saved.Version)
	got, err = s.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 4.0, got.Operations[0].EndTime)
}

func TestSQLiteStore_Errors(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrPlanNotFound)
	_, err = s.GetByDay(ctx, "2025-01-10")
	assert.ErrorIs(t, err, model.ErrPlanNotFound)
	_, err = s.Save(ctx, samplePlan("p1", "2025-01-10"), 3)
	assert.ErrorIs(t, err, model.ErrPlanNotFound)

	_, err = s.Save(ctx, samplePlan("p1", "2025-01-10"), 0)
	require.NoError(t, err)
	_, err = s.Save(ctx, samplePlan("p1", "2025-01-10"), 0)
	assert.ErrorIs(t, err, model.ErrVersionConflict)
	_, err = s.Save(ctx, samplePlan("p2", "2025-01-10"), 0)
	assert.ErrorIs(t, err, model.ErrVersionConflict, "one plan per day")

	got, err := s.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
}

func TestSQLiteStore_List(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	for _, p := range []model.OperationPlan{samplePlan("b", "2025-01-12"), samplePlan("a", "2025-01-10")} {
		_, err := s.Save(ctx, p, 0)
		require.NoError(t, err)
	}
	plans, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "2025-01-10", plans[0].PlanDate)
	assert.Equal(t, "2025-01-12", plans[1].PlanDate)
}

func TestSQLiteStore_ConcurrentSavesOneWins(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, err := s.Save(ctx, samplePlan("p1", "2025-01-10"), 0)
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Save(ctx, samplePlan("p1", "2025-01-10"), 1); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestSQLiteStore_BacksCoordinator(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	dir, err := directory.New(directory.Seed{
		Docks:   []model.Dock{{Code: "D1", AllowedVesselTypeIDs: []string{"container"}, Cranes: []string{"C1", "C2"}}},
		Vessels: []model.Vessel{{IMO: "1", Name: "Atlantic", VesselTypeID: "container"}},
		VVNs:    []model.VVN{{ID: "v1", Day: "2025-01-10", VesselIMO: "1", ETA: 0, ETD: 6}},
	})
	require.NoError(t, err)
	_, err = s.Save(ctx, samplePlan("p1", "2025-01-10"), 0)
	require.NoError(t, err)

	coord := planning.NewCoordinator(s, conflict.NewValidator(nil), dir, logger.NopLogger{})
	res, err := coord.UpdateForVvn(ctx, planning.UpdateRequest{
		PlanID: "p1",
		VvnID:  "v1",
		Operations: []model.Operation{
			{VvnID: "v1", Dock: "D1", Crane: "C2", StartTime: 1, EndTime: 5, CraneCountUsed: 1, TotalCranesOnDock: 2},
		},
		ReasonForChange: "crane swap",
		Author:          "officer",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Plan.Version)

	got, err := s.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "C2", got.Operations[0].Crane)
}
