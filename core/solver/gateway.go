package solver

import (
	"context"
	"errors"
	"time"

	"github.com/portlogistics/portplan/core/events"
	"github.com/portlogistics/portplan/core/logger"
	"github.com/portlogistics/portplan/core/metrics"
	"github.com/portlogistics/portplan/core/model"
	"github.com/portlogistics/portplan/core/monitoring"
	"github.com/portlogistics/portplan/internal/eventbus"
)

// DefaultTimeout bounds a single solver call.
const DefaultTimeout = 5 * time.Minute

// Gateway isolates solver failures.
type Gateway struct {
	solver  Solver
	timeout time.Duration
	metrics metrics.Sink
	monitor monitoring.Monitor
	bus     *eventbus.Bus[events.SolverOutcome]
	log     logger.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithMetrics(s metrics.Sink) GatewayOption {
	return func(g *Gateway) {
		if s != nil {
			g.metrics = s
		}
	}
}

func WithMonitor(m monitoring.Monitor) GatewayOption {
	return func(g *Gateway) { g.monitor = monitoring.OrNop(m) }
}

// WithEvents publishes a SolverOutcome per call on bus.
func WithEvents(bus *eventbus.Bus[events.SolverOutcome]) GatewayOption {
	return func(g *Gateway) { g.bus = bus }
}

func WithLogger(l logger.Logger) GatewayOption {
	return func(g *Gateway) {
		if l != nil {
			g.log = l
		}
	}
}

// NewGateway wraps s.
func NewGateway(s Solver, log logger.Logger, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		solver:  s,
		timeout: DefaultTimeout,
		metrics: metrics.NopSink{},
		monitor: monitoring.NopMonitor{},
		log:     log,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Timeout returns the per-call timeout.
func (g *Gateway) Timeout() time.Duration { return g.timeout }

// Solve calls the solver with its own deadline. Every failure, including a
// panic inside the solver, is returned as *model.SolverUnavailableError.
func (g *Gateway) Solve(ctx context.Context, schedule model.DailySchedule, alg Algorithm) (res Result, err error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	start := time.Now()
	tags := map[string]string{"algorithm": string(alg), "day": schedule.Day}

	defer func() {
		if r := recover(); r != nil {
			g.monitor.CapturePanic(r, tags)
			err = monitoring.PanicError(r)
		}
		timedOut := false
		if err != nil {
			timedOut = errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
			var unavailable *model.SolverUnavailableError
			if !errors.As(err, &unavailable) {
				err = &model.SolverUnavailableError{Algorithm: string(alg), Err: err}
			}
			res = Result{}
			if !timedOut {
				g.monitor.CaptureException(err, tags)
			}
			g.log.Warnf("solver %s for %s failed: %v", alg, schedule.Day, err)
		}
		g.record(schedule.Day, alg, err, timedOut, time.Since(start))
	}()

	res, err = g.solver.Solve(ctx, schedule, alg)
	if err == nil && res.Algorithm == "" {
		res.Algorithm = alg
	}
	return res, err
}

func (g *Gateway) record(day string, alg Algorithm, err error, timedOut bool, latency time.Duration) {
	if rec, ok := g.metrics.(metrics.SolverCallRecorder); ok {
		if merr := rec.RecordSolverCall(metrics.SolverCallEvent{
			Algorithm: string(alg),
			Success:   err == nil,
			TimedOut:  timedOut,
			Latency:   latency,
			Time:      time.Now(),
		}); merr != nil {
			g.log.Errorf("record solver call: %v", merr)
		}
	}
	if g.bus != nil {
		g.bus.Publish(events.SolverOutcome{
			Algorithm: string(alg),
			Day:       day,
			Success:   err == nil,
			TimedOut:  timedOut,
			Err:       err,
			Latency:   latency,
		})
	}
}
