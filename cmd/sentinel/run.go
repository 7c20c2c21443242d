package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"sentinel-hq/sentinel/pkg/audit"
	"sentinel-hq/sentinel/pkg/cli"
	"sentinel-hq/sentinel/pkg/config"
	"sentinel-hq/sentinel/pkg/policy"
	"sentinel-hq/sentinel/pkg/policy/storage"
	"sentinel-hq/sentinel/pkg/retention"
	"sentinel-hq/sentinel/pkg/telemetry/health"
	"sentinel-hq/sentinel/pkg/telemetry/logging"
	"sentinel-hq/sentinel/pkg/telemetry/metrics"
	"sentinel-hq/sentinel/pkg/verdict"
	"sentinel-hq/sentinel/pkg/verdict/store"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Sentinel decision service",
	Long: `Start the Sentinel decision service with the specified configuration.

The service opens the policy and verdict stores, exposes metrics and
health probes over HTTP, runs scheduled retention sweeps, and reloads
scoring thresholds when the configuration file changes.

Examples:
  # Start with default config
  sentinel run

  # Start with custom config
  sentinel run --config /etc/sentinel/config.yaml

  # Override listen address
  sentinel run --listen 0.0.0.0:9309

  # Validate config without starting the service
  sentinel run --dry-run`,
	RunE: runService,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the service")
}

func runService(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.AddSource,
		Redact:    cfg.Logging.RedactSensitive,
	})
	if err != nil {
		return cli.NewConfigError("logging", err.Error())
	}
	slog.SetDefault(logger.Slog())

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	printBanner(cfg)

	ctx := cli.SetupSignalHandler()

	// Metrics registry
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Metrics)
	}

	// Policy store and resolution engine
	slog.Info("opening policy store", "path", cfg.PolicyStore.Path)
	policyStore, err := storage.NewSQLiteStoreWithConfig(storage.SQLiteStoreConfig{
		Path:        cfg.PolicyStore.Path,
		BusyTimeout: time.Duration(cfg.PolicyStore.BusyTimeoutMillis) * time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("failed to open policy store: %w", err)
	}
	defer policyStore.Close()

	graphCfg := policy.GraphConfig{
		Store:     policyStore,
		CacheSize: cfg.PolicyStore.CacheSize,
		Logger:    logger.Slog(),
	}
	if collector != nil {
		graphCfg.Metrics = collector.Policy
	}
	graph, err := policy.NewGraph(graphCfg)
	if err != nil {
		return fmt.Errorf("failed to create policy graph: %w", err)
	}
	fmt.Printf("✓ Policy store opened (%s)\n", cfg.PolicyStore.Path)

	// Verdict store and scoring engine
	slog.Info("opening verdict store", "path", cfg.VerdictStore.Path)
	verdictCfg := store.DefaultSQLiteConfig()
	verdictCfg.Path = cfg.VerdictStore.Path
	verdictBackend, err := store.NewSQLiteBackend(verdictCfg)
	if err != nil {
		return fmt.Errorf("failed to open verdict store: %w", err)
	}
	defer verdictBackend.Close()

	verdictCache, err := store.NewCache(store.CacheConfig{
		Backend: verdictBackend,
		Logger:  logger.Slog(),
	})
	if err != nil {
		return fmt.Errorf("failed to create verdict cache: %w", err)
	}
	fmt.Printf("✓ Verdict store opened (%s)\n", cfg.VerdictStore.Path)

	engineCfg := verdict.EngineConfig{
		Weights: verdict.Weights{
			YARA:       cfg.Scoring.Weights.YARA,
			ML:         cfg.Scoring.Weights.ML,
			Behavioral: cfg.Scoring.Weights.Behavioral,
		},
		Thresholds: verdict.Thresholds{
			Clean:      cfg.Scoring.Thresholds.Clean,
			Suspicious: cfg.Scoring.Thresholds.Suspicious,
			Malicious:  cfg.Scoring.Thresholds.Malicious,
		},
		Logger: logger.Slog(),
	}
	if collector != nil {
		engineCfg.Metrics = collector.Verdict
	}
	engine, err := verdict.NewEngine(engineCfg)
	if err != nil {
		return fmt.Errorf("failed to create scoring engine: %w", err)
	}

	// Audit log
	var auditLog *audit.Log
	if cfg.Audit.Enabled {
		auditLog, err = audit.New(audit.Config{
			Path:         cfg.Audit.Path,
			MaxSizeBytes: cfg.Audit.MaxSizeBytes,
			Logger:       logger.Slog(),
		})
		if err != nil {
			return fmt.Errorf("failed to open audit log: %w", err)
		}
		defer auditLog.Close()
		fmt.Printf("✓ Audit log opened (%s)\n", cfg.Audit.Path)
	}

	// Retention sweeps
	sweeper, err := retention.NewSweeper(retention.SweeperConfig{
		Graph:             graph,
		Verdicts:          verdictCache,
		ThreatHistoryDays: cfg.Retention.ThreatHistoryDays,
		Logger:            logger.Slog(),
	})
	if err != nil {
		return fmt.Errorf("failed to create retention sweeper: %w", err)
	}
	scheduler := retention.NewScheduler(sweeper, cfg.Retention.Schedule)
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start retention scheduler: %w", err)
	}
	defer scheduler.Stop()
	if next := scheduler.NextRun(); next != nil {
		fmt.Printf("✓ Retention scheduler started (next sweep %s)\n", next.Format(time.RFC3339))
	}

	// Health probes
	checker := health.New(5 * time.Second)
	checker.RegisterCheck("policy_store", func(ctx context.Context) error {
		_, err := policyStore.CountPolicies(ctx)
		return err
	})
	checker.RegisterCheck("verdict_store", func(ctx context.Context) error {
		_, err := verdictCache.Lookup(ctx, probeHash)
		return err
	})
	checker.RegisterCheck("match_cache", func(ctx context.Context) error {
		m := graph.CacheMetrics()
		if m.CurrentSize > m.MaxSize {
			return fmt.Errorf("match cache over capacity: %d > %d", m.CurrentSize, m.MaxSize)
		}
		return nil
	})

	// HTTP listener for metrics and probes
	mux := http.NewServeMux()
	health.Mount(mux, checker, Version, GitCommit, BuildDate)
	if collector != nil {
		mux.Handle(cfg.Metrics.Path, collector.Handler())
	}

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listener started", "address", cfg.Server.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	fmt.Printf("✓ Listening on %s\n", cfg.Server.ListenAddress)

	// Export match-cache counters to Prometheus
	if collector != nil {
		go syncCacheMetrics(ctx, graph, collector.Cache)
	}

	// Hot-reload scoring thresholds on config file changes
	watcher, err := config.NewWatcher(config.WatcherConfig{Path: cfgFile})
	if err != nil {
		slog.Warn("config watcher unavailable, thresholds will not hot-reload", "error", err)
	} else {
		go func() {
			err := watcher.Watch(ctx, func(next *config.Config) {
				t := verdict.Thresholds{
					Clean:      next.Scoring.Thresholds.Clean,
					Suspicious: next.Scoring.Thresholds.Suspicious,
					Malicious:  next.Scoring.Thresholds.Malicious,
				}
				if err := engine.UpdateThresholds(t); err != nil {
					slog.Error("rejected reloaded scoring thresholds", "error", err)
				}
			})
			if err != nil && ctx.Err() == nil {
				slog.Error("config watcher stopped", "error", err)
			}
		}()
	}

	// Wait for shutdown signal or a listener failure
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http listener failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown incomplete", "error", err)
	}

	if auditLog != nil {
		result, err := sweeper.Sweep(shutdownCtx)
		if err != nil {
			slog.Warn("final sweep failed", "error", err)
		} else if result.Total() > 0 {
			_ = auditLog.Record(audit.Event{
				Type:   audit.EventSweepCompleted,
				Actor:  "sentinel",
				Detail: fmt.Sprintf("final sweep removed %d rows", result.Total()),
			})
		}
	}

	slog.Info("sentinel stopped")
	return nil
}

// probeHash is a syntactically valid hash that is never stored; the
// readiness probe only needs the lookup round trip to succeed.
const probeHash = "0000000000000000000000000000000000000000000000000000000000000000"

// syncCacheMetrics periodically folds match-cache counter deltas into the
// Prometheus registry.
func syncCacheMetrics(ctx context.Context, graph *policy.Graph, cm *metrics.CacheMetrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	prev := graph.CacheMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			curr := graph.CacheMetrics()
			cm.ApplyDelta("policy_match", prev, curr)
			prev = curr
		}
	}
}

func printBanner(cfg *config.Config) {
	fmt.Printf("Sentinel %s (commit %s)\n", Version, GitCommit)
	fmt.Printf("  policy store:  %s\n", cfg.PolicyStore.Path)
	fmt.Printf("  verdict store: %s\n", cfg.VerdictStore.Path)
	fmt.Printf("  listen:        %s\n", cfg.Server.ListenAddress)
}
