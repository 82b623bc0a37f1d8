// Package driftwatch provides a deterministic, non-probabilistic anomaly
// detector for time-series operational metrics such as latency, error rate,
// throughput, resource saturation, and availability.
//
// The engine consumes a batch of metric series and produces a ranked list of
// anomalies with severity, confidence, deviation magnitude, and supporting
// evidence. Every emitted anomaly is explainable through simple statistics
// (mean, standard deviation, percentiles, linear trend) rather than opaque
// model inference, so results stay auditable.
//
// # Basic Usage
//
// Analyze a batch of series with default tuning:
//
//	analyzer := driftwatch.NewAnalyzer(driftwatch.DefaultAnalyzerConfig())
//	anomalies := analyzer.Analyze(ctx, []driftwatch.MetricSeries{{
//	    Name: "http_request_duration_p95",
//	    Unit: "ms",
//	    DataPoints: points,
//	}})
//
// The result is ordered by severity descending, tie-broken by confidence.
// Given identical input, two invocations produce identical output, down to
// the anomaly identifiers.
//
// # Detectors
//
// Four independent detectors run per series behind one contract:
//
//   - Spike: latest value above the baseline mean by a category-specific
//     number of standard deviations
//   - Drop: throughput metrics falling below a fraction of the baseline mean
//   - Threshold: absolute threshold violations from a configurable table
//   - Trend: significant least-squares slope over the window
//
// Detector sensitivity is tunable through DetectionConfig, including from
// YAML files via LoadDetectionConfig.
//
// # Integrations
//
//   - Prometheus remote-write ingest (snappy + prompb)
//   - WebSocket streaming of detected anomalies
//   - SQLite persistence of anomaly reports
//   - S3-compatible report archival
//   - Snappy-compressed and AES-256-GCM encrypted report export
//   - Webhook notification for high-severity anomalies
//
// All acquisition and consumption happens at the edges; the analysis core
// performs no I/O and holds no state between calls.
package driftwatch
