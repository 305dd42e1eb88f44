package main

import (
	"context"
	"errors"
	"net/http"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/yairfalse/valpas/config"
	"github.com/yairfalse/valpas/internal/emitter"
	"github.com/yairfalse/valpas/scanner"
)

var (
	daemonInterval    time.Duration
	daemonMetricsAddr string
)

// daemonCmd scans on an interval and serves Prometheus metrics.
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Scan pending attachments continuously",
	Long: `Run scans on an interval and expose scan metrics on /metrics.

Verdict counts, per-check results, skipped attachments and scan
durations are published in Prometheus format.`,
	Example: `  valpas daemon
  valpas daemon --interval 1m --metrics-addr :9100`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().DurationVar(&daemonInterval, "interval", 0, "Scan interval (overrides config)")
	daemonCmd.Flags().StringVar(&daemonMetricsAddr, "metrics-addr", "", "Metrics server address (overrides config)")
}

func runDaemon(*cobra.Command, []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if daemonInterval > 0 {
		cfg.Daemon.Interval = daemonInterval
	}
	if daemonMetricsAddr != "" {
		cfg.Daemon.MetricsAddr = daemonMetricsAddr
	}

	promExporter, err := otelprom.New()
	if err != nil {
		return err
	}
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(promExporter)))

	emit, err := emitter.NewPrometheusEmitter()
	if err != nil {
		return err
	}

	sc, err := newScanner(ctx, cfg)
	if err != nil {
		return err
	}

	log.Info().
		Str("hub_region", cfg.HubRegion).
		Dur("interval", cfg.Daemon.Interval).
		Str("metrics_addr", cfg.Daemon.MetricsAddr).
		Msg("valpas daemon starting")

	var g run.Group

	// Metrics server.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", handleHealthz)
	srv := &http.Server{
		Addr:              cfg.Daemon.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Add(func() error {
		return srv.ListenAndServe()
	}, func(error) {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	})

	// Scan loop.
	loopCtx, loopCancel := context.WithCancel(ctx)
	g.Add(func() error {
		return scanLoop(loopCtx, sc, emit, cfg.Daemon.Interval)
	}, func(error) {
		loopCancel()
	})

	// Signals.
	g.Add(run.SignalHandler(ctx, syscall.SIGINT, syscall.SIGTERM))

	err = g.Run()
	var sigErr run.SignalError
	if errors.As(err, &sigErr) {
		log.Info().Str("signal", sigErr.Signal.String()).Msg("shutting down")
		return nil
	}
	return err
}

// scanLoop scans immediately and then on every tick. A failed pass is
// logged and retried on the next tick; discovery failures are fatal for
// one pass, not for the daemon.
func scanLoop(ctx context.Context, sc *scanner.Scanner, emit *emitter.PrometheusEmitter, interval time.Duration) error {
	scanOnce(ctx, sc, emit)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			scanOnce(ctx, sc, emit)
		}
	}
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func scanOnce(ctx context.Context, sc *scanner.Scanner, emit *emitter.PrometheusEmitter) {
	result, err := sc.Scan(ctx)
	if err != nil {
		log.Error().Err(err).Msg("scan failed")
		return
	}
	emit.Emit(ctx, result)
}
