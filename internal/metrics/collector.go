package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Collector owns an in-process meter provider whose readings can be read back
// with Snapshot.
type Collector struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
	Scan     *ScanMetrics
}

// LanguageTotals are the per-language counters of a Snapshot.
type LanguageTotals struct {
	Files     int64 `json:"files"`
	Functions int64 `json:"functions"`
	Exceeded  int64 `json:"exceeded"`
}

// Snapshot is a point-in-time summary of everything recorded so far.
type Snapshot struct {
	FilesScanned      int64                     `json:"files_scanned"`
	FunctionsFound    int64                     `json:"functions_found"`
	FunctionsExceeded int64                     `json:"functions_exceeded"`
	CacheHits         int64                     `json:"cache_hits"`
	CacheMisses       int64                     `json:"cache_misses"`
	Runs              uint64                    `json:"runs"`
	ScanSeconds       float64                   `json:"scan_seconds"`
	Languages         map[string]LanguageTotals `json:"languages"`
}

func NewCollector() (*Collector, error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	scan, err := New(provider)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, err
	}
	return &Collector{reader: reader, provider: provider, Scan: scan}, nil
}

// Snapshot collects the cumulative readings.
func (c *Collector) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Languages: map[string]LanguageTotals{}}
	var data metricdata.ResourceMetrics
	if err := c.reader.Collect(ctx, &data); err != nil {
		return snap, fmt.Errorf("collect metrics: %w", err)
	}
	for _, sm := range data.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch d := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range d.DataPoints {
					snap.add(m.Name, dp.Attributes, dp.Value)
				}
			case metricdata.Histogram[float64]:
				if m.Name != ScanDurationName {
					continue
				}
				for _, dp := range d.DataPoints {
					snap.Runs += dp.Count
					snap.ScanSeconds += dp.Sum
				}
			}
		}
	}
	return snap, nil
}

func (s *Snapshot) add(name string, attrs attribute.Set, v int64) {
	lang := ""
	if val, ok := attrs.Value(AttrLanguage); ok {
		lang = val.AsString()
	}
	switch name {
	case FilesScannedName:
		s.FilesScanned += v
		s.lang(lang, func(t *LanguageTotals) { t.Files += v })
	case FunctionsFoundName:
		s.FunctionsFound += v
		s.lang(lang, func(t *LanguageTotals) { t.Functions += v })
	case FunctionsExceededName:
		s.FunctionsExceeded += v
		s.lang(lang, func(t *LanguageTotals) { t.Exceeded += v })
	case CacheLookupsName:
		if val, ok := attrs.Value(AttrResult); ok && val.AsString() == "hit" {
			s.CacheHits += v
		} else {
			s.CacheMisses += v
		}
	}
}

func (s *Snapshot) lang(lang string, f func(*LanguageTotals)) {
	if lang == "" {
		return
	}
	t := s.Languages[lang]
	f(&t)
	s.Languages[lang] = t
}

// Shutdown releases the provider. The collector cannot be read afterwards.
func (c *Collector) Shutdown(ctx context.Context) error {
	return c.provider.Shutdown(ctx)
}
