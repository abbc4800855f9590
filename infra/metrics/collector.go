package metrics

import (
	"context"

	"github.com/portlogistics/portplan/core/events"
	"github.com/portlogistics/portplan/core/logger"
	coremetrics "github.com/portlogistics/portplan/core/metrics"
	"github.com/portlogistics/portplan/internal/eventbus"
)

// StartEventCollector subscribes to the plan event bus and records the
// version reached by every committed plan. It stops when ctx is canceled or
// the bus is closed.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[events.PlanEvent], sink coremetrics.Sink, log logger.Logger) {
	if bus == nil || sink == nil {
		return
	}
	rec, ok := sink.(coremetrics.PlanVersionRecorder)
	if !ok {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if e, ok := ev.(events.PlanCommitted); ok {
					if err := rec.RecordPlanVersion(coremetrics.PlanVersionEvent{
						Day:     e.Day,
						PlanID:  e.PlanID,
						Version: e.Version,
						Time:    e.Time,
					}); err != nil {
						log.Errorf("record plan version: %v", err)
					}
				}
			}
		}
	}()
}
