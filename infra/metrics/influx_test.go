package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/portlogistics/portplan/core/metrics"
)

func TestInfluxSink_RecordPlanUpdate(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Unix(1736496000, 0)
	ev := coremetrics.PlanUpdateEvent{
		PlanID:        "p1",
		Day:           "2025-01-10",
		Action:        "update",
		BlockingCodes: []string{"CRANE_CAPACITY_EXCEEDED"},
		Latency:       1500 * time.Microsecond,
		Time:          now,
	}
	if err := sink.RecordPlanUpdate(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("plan_update").
		AddTag("plan_id", "p1").
		AddTag("day", "2025-01-10").
		AddTag("action", "update").
		AddTag("committed", "false").
		AddField("warnings", 0).
		AddField("blocking", "CRANE_CAPACITY_EXCEEDED").
		AddField("latency_ms", 1.5).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if strings.TrimSpace(body) != expected {
		t.Errorf("unexpected body: %s\nwant: %s", body, expected)
	}
}

func TestInfluxSink_RecordComparison(t *testing.T) {
	var (
		mu    sync.Mutex
		lines []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		lines = append(lines, strings.TrimSpace(string(data)))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL+"/api/v2/write", "token", "org", "bucket")
	defer sink.Close()
	err := sink.RecordComparison([]coremetrics.ComparisonEvent{
		{Day: "2025-01-10", Algorithm: "optimal", Computed: true, Best: true, TotalDelay: 1, Time: time.Now()},
		{Day: "2025-01-10", Algorithm: "greedy", Time: time.Now()},
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(lines) != 2 {
		t.Fatalf("expected 2 writes, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "algorithm_comparison,algorithm=optimal") {
		t.Errorf("unexpected line: %s", lines[0])
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
