package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/portlogistics/portplan/core/events"
	"github.com/portlogistics/portplan/infra/logger"
	"github.com/portlogistics/portplan/internal/eventbus"
)

func TestStartEventCollector_RecordsPlanVersion(t *testing.T) {
	sink, err := NewPromSinkWithRegistry(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("sink: %v", err)
	}
	bus := eventbus.New[events.PlanEvent](8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartEventCollector(ctx, bus, sink, logger.NopLogger{})

	bus.Publish(events.PlanRejected{PlanID: "p1", Day: "2025-01-10"})
	bus.Publish(events.PlanCommitted{PlanID: "p1", Day: "2025-01-10", Version: 3, Time: time.Now()})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if testutil.ToFloat64(sink.planVersion.WithLabelValues("2025-01-10")) == 3 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("plan version not recorded")
}
