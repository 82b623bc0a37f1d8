package driftwatch

import (
	"context"
	"sort"
	"sync"
)

// AnalyzerConfig configures the analysis engine.
type AnalyzerConfig struct {
	// Detection holds the detector tuning surface.
	Detection DetectionConfig

	// Workers is the number of concurrent series workers. Each series is
	// analyzed independently, so fan-out is safe. Default: 4.
	Workers int

	// Detectors overrides the built-in detector set. Nil uses the default
	// spike, drop, threshold, and trend detectors.
	Detectors []Detector
}

// DefaultAnalyzerConfig returns the default engine configuration.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		Detection: DefaultDetectionConfig(),
		Workers:   4,
	}
}

// Analyzer runs statistical anomaly detection over batches of metric
// series. It holds no state between calls: every invocation is a pure
// function of its input, so a single Analyzer is safe for concurrent use.
type Analyzer struct {
	detection DetectionConfig
	workers   int
	detectors []Detector
}

// NewAnalyzer creates an analyzer from the given configuration.
func NewAnalyzer(config AnalyzerConfig) *Analyzer {
	if config.Workers <= 0 {
		config.Workers = 4
	}
	detectors := config.Detectors
	if detectors == nil {
		detectors = defaultDetectors()
	}
	return &Analyzer{
		detection: config.Detection.withDefaults(),
		workers:   config.Workers,
		detectors: detectors,
	}
}

// Analyze runs every applicable detector over each series and returns the
// combined anomalies ranked by severity, tie-broken by confidence. A series
// may produce anomalies from more than one detector; no deduplication is
// performed. Output order is deterministic regardless of worker count.
//
// A canceled context makes Analyze drop series not yet picked up by a
// worker; per-series analysis is cheap and runs to completion once started.
func (a *Analyzer) Analyze(ctx context.Context, series []MetricSeries) []Anomaly {
	// Per-series result slots keep concatenation order independent of
	// worker scheduling.
	results := make([][]Anomaly, len(series))

	workers := a.workers
	if workers > len(series) {
		workers = len(series)
	}
	if workers <= 1 {
		for i := range series {
			if ctx.Err() != nil {
				break
			}
			results[i] = a.analyzeSeries(series[i])
		}
	} else {
		indexes := make(chan int)
		var wg sync.WaitGroup
		wg.Add(workers)
		for w := 0; w < workers; w++ {
			go func() {
				defer wg.Done()
				for i := range indexes {
					results[i] = a.analyzeSeries(series[i])
				}
			}()
		}
		for i := range series {
			if ctx.Err() != nil {
				break
			}
			indexes <- i
		}
		close(indexes)
		wg.Wait()
	}

	var anomalies []Anomaly
	for _, r := range results {
		anomalies = append(anomalies, r...)
	}
	sortAnomalies(anomalies)
	return anomalies
}

// AnalyzeSeries analyzes a single series with the engine's configuration.
func (a *Analyzer) AnalyzeSeries(series MetricSeries) []Anomaly {
	anomalies := a.analyzeSeries(series)
	sortAnomalies(anomalies)
	return anomalies
}

func (a *Analyzer) analyzeSeries(series MetricSeries) []Anomaly {
	points := series.sortedPoints()
	if len(points) < a.detection.MinSeriesPoints {
		// Too little data to say anything. A policy skip, not an error.
		return nil
	}

	baseline, ok := computeBaseline(pointValues(points[:len(points)-1]))
	if !ok {
		return nil
	}

	w := seriesWindow{
		series:   series,
		points:   points,
		baseline: baseline,
		category: InferCategory(series.Name),
	}

	var anomalies []Anomaly
	for _, d := range a.detectors {
		if anomaly := d.Detect(w, a.detection); anomaly != nil {
			anomalies = append(anomalies, *anomaly)
		}
	}
	return anomalies
}

// sortAnomalies orders by severity descending, then confidence descending.
// The stable sort preserves input order (series order, then detector
// registration order) for equal-rank anomalies.
func sortAnomalies(anomalies []Anomaly) {
	sort.SliceStable(anomalies, func(i, j int) bool {
		if anomalies[i].Severity != anomalies[j].Severity {
			return anomalies[i].Severity > anomalies[j].Severity
		}
		return anomalies[i].Confidence > anomalies[j].Confidence
	})
}
