// Package app wires the planning engine from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	apischedule "github.com/portlogistics/portplan/api/schedule"
	"github.com/portlogistics/portplan/config"
	"github.com/portlogistics/portplan/core/audit"
	"github.com/portlogistics/portplan/core/comparison"
	"github.com/portlogistics/portplan/core/conflict"
	"github.com/portlogistics/portplan/core/events"
	coremetrics "github.com/portlogistics/portplan/core/metrics"
	coremon "github.com/portlogistics/portplan/core/monitoring"
	"github.com/portlogistics/portplan/core/planning"
	"github.com/portlogistics/portplan/core/rebalance"
	"github.com/portlogistics/portplan/core/schedule"
	"github.com/portlogistics/portplan/core/solver"
	"github.com/portlogistics/portplan/infra/directory"
	"github.com/portlogistics/portplan/infra/logger"
	"github.com/portlogistics/portplan/infra/metrics"
	"github.com/portlogistics/portplan/infra/monitoring"
	"github.com/portlogistics/portplan/infra/mqtt"
	"github.com/portlogistics/portplan/infra/planstore"
	infrasolver "github.com/portlogistics/portplan/infra/solver"
	"github.com/portlogistics/portplan/internal/eventbus"
)

// Service holds the wired planning engine and its HTTP surface.
type Service struct {
	Aggregator  *schedule.Aggregator
	Gateway     *solver.Gateway
	Coordinator *planning.Coordinator
	Comparator  *comparison.Comparator
	Rebalancer  *rebalance.Rebalancer
	Handler     http.Handler

	cfg       *config.Config
	planBus   *eventbus.Bus[events.PlanEvent]
	solverBus *eventbus.Bus[events.SolverOutcome]
	sink      coremetrics.Sink
	monitor   coremon.Monitor
	notifier  *mqtt.Notifier
	closers   []func() error
	log       logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (svc *Service, err error) {
	logger.SetLevel(cfg.Logging.Level)
	logg := logger.New("service")
	s := &Service{cfg: cfg, log: logg}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	if s.monitor, err = monitoring.NewSentryMonitor(cfg.Sentry); err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}

	dir, err := openDirectory(cfg.Directory, logg)
	if err != nil {
		return nil, fmt.Errorf("directory: %w", err)
	}
	store, err := s.openPlanStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("plan store: %w", err)
	}
	auditStore, err := audit.Open(audit.Options{
		Backend:    cfg.Audit.Backend,
		Path:       cfg.Audit.Path,
		MaxSizeMB:  cfg.Audit.MaxSizeMB,
		MaxBackups: cfg.Audit.MaxBackups,
		MaxAgeDays: cfg.Audit.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("audit store: %w", err)
	}
	s.closers = append(s.closers, auditStore.Close)

	if s.sink, err = coremetrics.NewSink(cfg.Metrics.Sinks); err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		s.closers = append(s.closers, func() error { c.Close(); return nil })
	}

	policy, err := cfg.Conflicts.Policy()
	if err != nil {
		return nil, fmt.Errorf("conflicts: %w", err)
	}
	validator := conflict.NewValidator(policy)

	s.planBus = eventbus.New[events.PlanEvent](eventbus.DefaultBuffer)
	s.solverBus = eventbus.New[events.SolverOutcome](eventbus.DefaultBuffer)

	dirs := schedule.Directories{Docks: dir, Vessels: dir, Staff: dir, VVNs: dir}
	s.Aggregator = schedule.NewAggregator(dirs, store, cfg.Directory.StaffQualifications, logger.New("aggregator"))
	s.Gateway = solver.NewGateway(newSolver(cfg.Solver, logg), logger.New("solver"),
		solver.WithTimeout(cfg.Solver.Timeout()),
		solver.WithMetrics(s.sink),
		solver.WithMonitor(s.monitor),
		solver.WithEvents(s.solverBus),
	)
	s.Coordinator = planning.NewCoordinator(store, validator, dir, logger.New("coordinator"),
		planning.WithAudit(auditStore),
		planning.WithMetrics(s.sink),
		planning.WithEvents(s.planBus),
		planning.WithSnapshots(s.Aggregator),
	)
	s.Comparator = comparison.New(s.Aggregator, s.Gateway, s.sink, logger.New("comparator"))
	s.Rebalancer = rebalance.New(store, s.Aggregator, validator, cfg.Rebalance.Budget, s.sink, logger.New("rebalancer"))

	s.Handler = apischedule.NewRouter(apischedule.NewHandler(apischedule.Deps{
		Base:       s.Aggregator,
		Solver:     s.Gateway,
		Comparator: s.Comparator,
		Plans:      s.Coordinator,
		Rebalancer: s.Rebalancer,
		Monitor:    s.monitor,
		Log:        logger.New("api"),
	}))

	if cfg.MQTT.Enabled() {
		if s.notifier, err = mqtt.NewNotifier(cfg.MQTT, s.monitor); err != nil {
			return nil, fmt.Errorf("mqtt notifier: %w", err)
		}
	}
	return s, nil
}

func openDirectory(cfg config.DirectoryConfig, log logger.Logger) (*directory.StaticDirectory, error) {
	if cfg.Path == "" {
		log.Warnf("no directory seed configured, starting with an empty directory")
		return directory.New(directory.Seed{})
	}
	return directory.Load(cfg.Path)
}

func (s *Service) openPlanStore(cfg config.StoreConfig) (planning.PlanStore, error) {
	if cfg.Backend != "sqlite" {
		return planning.NewMemoryStore(), nil
	}
	st, err := planstore.NewSQLiteStore(cfg.Path)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, st.Close)
	return st, nil
}

func newSolver(cfg infrasolver.Config, log logger.Logger) solver.Solver {
	if cfg.BaseURL == "" {
		log.Warnf("solver.base_url not set, schedules are returned unchanged")
		return solver.StaticSolver{}
	}
	return infrasolver.NewHTTPClient(cfg)
}

// Run serves the API and the background consumers until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	metrics.StartEventCollector(ctx, s.planBus, s.sink, s.log)
	if s.notifier != nil {
		s.notifier.Start(ctx, s.planBus)
	}
	s.watchSolver(ctx)
	if addr := s.cfg.Metrics.PromAddress; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              s.cfg.Server.Address,
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.Server.ReadTimeout(),
		WriteTimeout:      s.cfg.Server.WriteTimeout(),
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", s.cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// watchSolver logs failed solver calls published by the gateway.
func (s *Service) watchSolver(ctx context.Context) {
	sub := s.solverBus.Subscribe()
	go func() {
		defer s.solverBus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case out, ok := <-sub:
				if !ok {
					return
				}
				if !out.Success {
					s.log.With(map[string]any{
						"algorithm":  out.Algorithm,
						"day":        out.Day,
						"timed_out":  out.TimedOut,
						"latency_ms": out.Latency.Milliseconds(),
					}).Warnf("solver call failed: %v", out.Err)
				}
			}
		}
	}()
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.planBus != nil {
		s.planBus.Close()
	}
	if s.solverBus != nil {
		s.solverBus.Close()
	}
	if s.notifier != nil {
		s.notifier.Disconnect()
	}
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	if s.monitor != nil {
		s.monitor.Flush(2 * time.Second)
	}
	return errors.Join(errs...)
}
