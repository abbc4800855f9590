package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/portlogistics/portplan/core/metrics"
	"github.com/portlogistics/portplan/infra/logger"
)

// InfluxSink writes planning events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordPlanUpdate writes one plan_update point per edit.
func (s *InfluxSink) RecordPlanUpdate(ev coremetrics.PlanUpdateEvent) error {
	p := write.NewPointWithMeasurement("plan_update").
		AddTag("plan_id", ev.PlanID).
		AddTag("day", ev.Day).
		AddTag("action", ev.Action).
		AddTag("committed", strconv.FormatBool(ev.Committed)).
		AddField("warnings", len(ev.WarningCodes)).
		AddField("blocking", strings.Join(ev.BlockingCodes, ",")).
		AddField("latency_ms", round3(ev.Latency.Seconds()*1000)).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordSolverCall writes a solver_call point.
func (s *InfluxSink) RecordSolverCall(ev coremetrics.SolverCallEvent) error {
	p := write.NewPointWithMeasurement("solver_call").
		AddTag("algorithm", ev.Algorithm).
		AddTag("success", strconv.FormatBool(ev.Success)).
		AddTag("timed_out", strconv.FormatBool(ev.TimedOut)).
		AddField("latency_ms", round3(ev.Latency.Seconds()*1000)).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordComparison writes one algorithm_comparison point per algorithm.
func (s *InfluxSink) RecordComparison(evs []coremetrics.ComparisonEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, ev := range evs {
		p := write.NewPointWithMeasurement("algorithm_comparison").
			AddTag("day", ev.Day).
			AddTag("algorithm", ev.Algorithm).
			AddTag("computed", strconv.FormatBool(ev.Computed)).
			AddField("best", ev.Best).
			AddField("total_delay", round3(ev.TotalDelay)).
			AddField("crane_hours", round3(ev.TotalCraneHours)).
			AddField("operations", ev.OperationCount).
			SetTime(ev.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordRebalance writes a rebalance_proposal point.
func (s *InfluxSink) RecordRebalance(ev coremetrics.RebalanceEvent) error {
	p := write.NewPointWithMeasurement("rebalance_proposal").
		AddTag("day", ev.Day).
		AddField("stddev_before", round3(ev.StdDevBefore)).
		AddField("stddev_after", round3(ev.StdDevAfter)).
		AddField("improvement_pct", round3(ev.ImprovementPercent)).
		AddField("moves_accepted", ev.MovesAccepted).
		AddField("moves_rejected", ev.MovesRejected).
		SetTime(ev.Time)
	return s.write(p)
}

// Close releases the client resources.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
