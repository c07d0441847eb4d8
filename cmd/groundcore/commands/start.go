package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/netrasat/groundcore/internal/alerts"
	"github.com/netrasat/groundcore/internal/bridge"
	"github.com/netrasat/groundcore/internal/gateway"
	"github.com/netrasat/groundcore/internal/health"
	"github.com/netrasat/groundcore/internal/ingest"
	"github.com/netrasat/groundcore/internal/logger"
	"github.com/netrasat/groundcore/internal/sink"
	"github.com/netrasat/groundcore/pkg/bridgelog"
	"github.com/netrasat/groundcore/pkg/bus"
	"github.com/netrasat/groundcore/pkg/config"
	"github.com/netrasat/groundcore/pkg/metrics"
	"github.com/netrasat/groundcore/pkg/store"
)

var serviceList string

// The full worker set. --services selects a subset for split deployments
// (e.g. the bridge host runs only bridge,gateway).
var allServices = []string{"ingest", "health", "sink", "alerts", "gateway"}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the groundcore workers",
	Long: `Start the groundcore workers with the specified configuration.

By default every worker runs in one process: the telemetry ingestor, the
health packet consumer, the database sink, the alert builder/worker/notifier,
and the admin API with the station bridge manager. Use --services to run a
subset.

Examples:
  # Run everything
  groundcore start

  # Only the bridge manager and its admin API
  groundcore start --services gateway

  # Custom config file
  groundcore start --config /etc/groundcore/config.yaml

  # Environment variable overrides
  GROUNDCORE_LOGGING_LEVEL=DEBUG groundcore start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&serviceList, "services", strings.Join(allServices, ","),
		"comma-separated worker subset to run")
}

// service is one long-lived worker loop.
type service struct {
	name string
	run  func(ctx context.Context) error
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	enabled, err := parseServices(serviceList)
	if err != nil {
		return err
	}

	logger.Info("groundcore starting",
		"version", Version, "services", serviceList)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var pipelineMetrics *metrics.PipelineMetrics
	var bridgeMetrics *metrics.BridgeMetrics
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		pipelineMetrics = metrics.NewPipelineMetrics()
		bridgeMetrics = metrics.NewBridgeMetrics()
		logger.Info("metrics enabled", "port", cfg.Metrics.Port)
	}

	var services []service

	if cfg.Metrics.Enabled {
		services = append(services, service{"metrics", func(ctx context.Context) error {
			return serveMetrics(ctx, cfg.Metrics.Port)
		}})
	}

	// The bus underpins every pipeline worker.
	var b *bus.Bus
	if enabled["ingest"] || enabled["health"] || enabled["sink"] || enabled["alerts"] {
		b = bus.New(cfg.Bus)
		if err := b.Connect(ctx); err != nil {
			return fmt.Errorf("connect bus: %w", err)
		}
		defer b.Close()
	}

	// The telemetry database backs the sink and the alert chain.
	var st *store.Store
	if enabled["sink"] || enabled["alerts"] {
		st, err = store.New(cfg.Database)
		if err != nil {
			return fmt.Errorf("open telemetry database: %w", err)
		}
	}

	if enabled["ingest"] {
		ing := ingest.New(cfg.Ingest, b, pipelineMetrics)
		services = append(services, service{"ingest", ing.Run})
	}

	if enabled["health"] {
		hw := health.New(b, cfg.Ingest.Packets, pipelineMetrics)
		services = append(services, service{"health", hw.Run})
	}

	if enabled["sink"] {
		sw := sink.New(b, st, pipelineMetrics)
		services = append(services, service{"sink", sw.Run})
	}

	if enabled["alerts"] {
		if cfg.Alerts.ConfigPath != "" {
			rules, err := alerts.LoadConfig(cfg.Alerts.ConfigPath)
			if err != nil {
				return err
			}
			builder := alerts.NewBuilder(b, rules, pipelineMetrics)
			services = append(services, service{"alert-builder", builder.Run})
		} else {
			logger.Warn("no alert rule file configured, threshold evaluation disabled")
		}

		worker := alerts.NewWorker(b, st)
		services = append(services, service{"alert-worker", worker.Run})

		notifier := alerts.NewNotifier(b, st, alerts.NewMailer(cfg.Alerts.SMTP))
		services = append(services, service{"alert-notifier", notifier.Run})
	}

	if enabled["gateway"] {
		blog, err := bridgelog.Open(cfg.BridgeLog)
		if err != nil {
			return err
		}
		manager := bridge.NewManager(cfg.Stations, blog, bridgeMetrics)
		defer manager.Shutdown()

		gw := gateway.NewServer(cfg.Gateway, manager, blog)
		services = append(services, service{"gateway", gw.Run})
		logger.Info("admin API enabled",
			"port", cfg.Gateway.Port, "stations", len(cfg.Stations))
	}

	if len(services) == 0 {
		return errors.New("no services selected")
	}

	return runServices(ctx, services, cfg.ShutdownTimeout)
}

// runServices runs every worker until the context ends or one exits, then
// waits for the rest to drain within the shutdown timeout. Any worker exit
// is fatal to the whole process, clean or not: every service is a run-forever
// loop, and a silently missing worker is worse than a restart.
func runServices(ctx context.Context, services []service, timeout time.Duration) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	var wg sync.WaitGroup
	errCh := make(chan error, len(services))

	for _, svc := range services {
		svc := svc
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := svc.run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("service stopped", logger.Worker(svc.name), logger.Err(err))
				errCh <- fmt.Errorf("%s: %w", svc.name, err)
				return
			}
			logger.Info("service stopped", logger.Worker(svc.name))
			errCh <- nil
		}()
	}

	logger.Info("groundcore running, press Ctrl+C to stop")

	var firstErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping workers")
	case err := <-errCh:
		firstErr = err
		stop()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all workers stopped")
	case <-time.After(timeout):
		logger.Warn("shutdown timeout exceeded, exiting with workers pending")
	}

	return firstErr
}

// serveMetrics exposes the Prometheus registry until the context ends.
func serveMetrics(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", port),
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancelShutdown()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func parseServices(list string) (map[string]bool, error) {
	known := make(map[string]bool, len(allServices))
	for _, s := range allServices {
		known[s] = true
	}

	enabled := make(map[string]bool)
	for _, s := range strings.Split(list, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !known[s] {
			return nil, fmt.Errorf("unknown service %q (valid: %s)", s, strings.Join(allServices, ","))
		}
		enabled[s] = true
	}
	return enabled, nil
}
