// Package emitter publishes scan metrics.
package emitter

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/yairfalse/valpas/scanner"
)

// PrometheusEmitter emits scan metrics in Prometheus format via OTEL.
type PrometheusEmitter struct {
	meter metric.Meter

	scanDuration      metric.Float64Histogram
	verdictsTotal     metric.Int64Counter
	skippedTotal      metric.Int64Counter
	checkResultsTotal metric.Int64Counter
}

// NewPrometheusEmitter creates a Prometheus emitter.
func NewPrometheusEmitter() (*PrometheusEmitter, error) {
	e := &PrometheusEmitter{meter: otel.Meter("valpas")}
	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return e, nil
}

func (e *PrometheusEmitter) initMetrics() error {
	var err error

	e.scanDuration, err = e.meter.Float64Histogram(
		"valpas_scan_duration_seconds",
		metric.WithDescription("Time taken to scan pending attachments"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("create scan_duration histogram: %w", err)
	}

	e.verdictsTotal, err = e.meter.Int64Counter(
		"valpas_verdicts_total",
		metric.WithDescription("Attachment verdicts by overall status"),
	)
	if err != nil {
		return fmt.Errorf("create verdicts counter: %w", err)
	}

	e.skippedTotal, err = e.meter.Int64Counter(
		"valpas_attachments_skipped_total",
		metric.WithDescription("Attachments skipped because spoke credentials were unavailable"),
	)
	if err != nil {
		return fmt.Errorf("create skipped counter: %w", err)
	}

	e.checkResultsTotal, err = e.meter.Int64Counter(
		"valpas_check_results_total",
		metric.WithDescription("Individual check results by check name and status"),
	)
	if err != nil {
		return fmt.Errorf("create check_results counter: %w", err)
	}

	return nil
}

// Emit records the metrics for one scan pass.
func (e *PrometheusEmitter) Emit(ctx context.Context, result *scanner.Result) {
	e.scanDuration.Record(ctx, result.Duration.Seconds())
	e.skippedTotal.Add(ctx, int64(result.Skipped))

	for _, v := range result.Verdicts {
		e.verdictsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status", string(v.Overall)),
		))
		for _, entry := range v.Report.Entries() {
			e.checkResultsTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("check", entry.Name),
				attribute.String("status", string(entry.Result.Status)),
			))
		}
	}
}
