// Package metrics exposes OpenTelemetry instruments for workspace scans.
package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/phyten/funclen"

	FilesScannedName      = "funclen_files_scanned_total"
	FunctionsFoundName    = "funclen_functions_found_total"
	FunctionsExceededName = "funclen_functions_exceeded_total"
	CacheLookupsName      = "funclen_cache_lookups_total"
	ScanDurationName      = "funclen_scan_duration_seconds"

	AttrLanguage = "language"
	AttrResult   = "result"
)

// ScanMetrics records per-file and per-run scan measurements.
type ScanMetrics struct {
	files     metric.Int64Counter
	functions metric.Int64Counter
	exceeded  metric.Int64Counter
	cache     metric.Int64Counter
	duration  metric.Float64Histogram
}

// New creates the instruments on provider, or on the global provider when nil.
func New(provider metric.MeterProvider) (*ScanMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	files, err := meter.Int64Counter(FilesScannedName, metric.WithDescription("Number of files scanned"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", FilesScannedName, err)
	}
	functions, err := meter.Int64Counter(FunctionsFoundName, metric.WithDescription("Number of function spans found"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", FunctionsFoundName, err)
	}
	exceeded, err := meter.Int64Counter(FunctionsExceededName, metric.WithDescription("Number of functions over the line threshold"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", FunctionsExceededName, err)
	}
	cache, err := meter.Int64Counter(CacheLookupsName, metric.WithDescription("Scan cache lookups by result"))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", CacheLookupsName, err)
	}
	duration, err := meter.Float64Histogram(ScanDurationName,
		metric.WithDescription("Wall time of a workspace scan"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", ScanDurationName, err)
	}
	return &ScanMetrics{files: files, functions: functions, exceeded: exceeded, cache: cache, duration: duration}, nil
}

// RecordFile adds one scanned file of lang with its function counts.
func (m *ScanMetrics) RecordFile(ctx context.Context, lang string, functions, exceeded int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(AttrLanguage, lang))
	m.files.Add(ctx, 1, attrs)
	m.functions.Add(ctx, int64(functions), attrs)
	m.exceeded.Add(ctx, int64(exceeded), attrs)
}

// RecordCache counts a cache lookup as "hit" or "miss".
func (m *ScanMetrics) RecordCache(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cache.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrResult, result)))
}

// RecordRun observes the duration of a complete scan.
func (m *ScanMetrics) RecordRun(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Record(ctx, d.Seconds())
}
