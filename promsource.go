package driftwatch

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/prometheus/prompb"
)

// PromSourceConfig configures the Prometheus remote-write ingest adapter.
type PromSourceConfig struct {
	// Lookback is how much history each series window retains.
	// Default: 15 minutes.
	Lookback time.Duration

	// MaxSeries caps the number of tracked series. Samples for new series
	// beyond the cap are dropped. Default: 10,000.
	MaxSeries int
}

// DefaultPromSourceConfig returns default ingest configuration.
func DefaultPromSourceConfig() PromSourceConfig {
	return PromSourceConfig{
		Lookback:  15 * time.Minute,
		MaxSeries: 10000,
	}
}

// PromSource accumulates Prometheus remote-write samples into windowed
// metric series ready for analysis. It is the only stateful piece of the
// ingest path; the analyzer itself stays stateless.
type PromSource struct {
	config  PromSourceConfig
	mu      sync.RWMutex
	windows map[string]*seriesAccum
	dropped int64
}

// seriesAccum is one series' rolling window under accumulation.
type seriesAccum struct {
	name   string
	labels map[string]string
	points []MetricDataPoint
}

// NewPromSource creates a remote-write ingest adapter.
func NewPromSource(config PromSourceConfig) *PromSource {
	if config.Lookback <= 0 {
		config.Lookback = 15 * time.Minute
	}
	if config.MaxSeries <= 0 {
		config.MaxSeries = 10000
	}
	return &PromSource{
		config:  config,
		windows: make(map[string]*seriesAccum),
	}
}

// IngestSnappy decodes a snappy-compressed prompb.WriteRequest body, as
// posted by Prometheus remote write, and ingests its samples. It returns
// the number of samples accepted.
func (s *PromSource) IngestSnappy(body []byte) (int, error) {
	decoded, err := snappy.Decode(nil, body)
	if err != nil {
		return 0, newIngestError(IngestErrorTypeDecode, "snappy decode failed", "", err)
	}
	var req prompb.WriteRequest
	if err := req.Unmarshal(decoded); err != nil {
		return 0, newIngestError(IngestErrorTypeDecode, "protobuf decode failed", "", err)
	}
	return s.Ingest(&req), nil
}

// Ingest appends all samples from a decoded write request. Samples with
// invalid metric names or beyond the series cap are silently dropped; the
// drop count is visible via Dropped.
func (s *PromSource) Ingest(req *prompb.WriteRequest) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	accepted := 0
	for i := range req.Timeseries {
		ts := &req.Timeseries[i]
		metric := ""
		labels := make(map[string]string)
		for _, label := range ts.Labels {
			if label.Name == "__name__" {
				metric = label.Value
			} else {
				labels[label.Name] = label.Value
			}
		}
		if ValidateMetricName(metric) != nil {
			s.dropped += int64(len(ts.Samples))
			continue
		}

		key := seriesKey(metric, labels)
		accum, ok := s.windows[key]
		if !ok {
			if len(s.windows) >= s.config.MaxSeries {
				s.dropped += int64(len(ts.Samples))
				continue
			}
			accum = &seriesAccum{name: metric, labels: labels}
			s.windows[key] = accum
		}
		for _, sample := range ts.Samples {
			// Remote-write sample timestamps are already milliseconds.
			accum.points = append(accum.points, MetricDataPoint{
				Timestamp: sample.Timestamp,
				Value:     sample.Value,
				Labels:    labels,
			})
			accepted++
		}
	}
	return accepted
}

// Batch snapshots the current windows as analyzable series, trimmed to the
// configured lookback and sorted by series key for deterministic output.
// Windows that have aged out entirely are removed.
func (s *PromSource) Batch(now time.Time) []MetricSeries {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-s.config.Lookback).UnixMilli()

	keys := make([]string, 0, len(s.windows))
	for key := range s.windows {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	batch := make([]MetricSeries, 0, len(keys))
	for _, key := range keys {
		accum := s.windows[key]
		accum.points = trimBefore(accum.points, cutoff)
		if len(accum.points) == 0 {
			delete(s.windows, key)
			continue
		}
		points := make([]MetricDataPoint, len(accum.points))
		copy(points, accum.points)
		batch = append(batch, MetricSeries{
			Name:       accum.name,
			DataPoints: points,
			Metadata:   SeriesMetadata{Source: "prometheus"},
		})
	}
	return batch
}

// SeriesCount returns the number of series currently tracked.
func (s *PromSource) SeriesCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.windows)
}

// Dropped returns the number of samples dropped by validation or the
// series cap.
func (s *PromSource) Dropped() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropped
}

// trimBefore drops points older than the cutoff, preserving order.
func trimBefore(points []MetricDataPoint, cutoff int64) []MetricDataPoint {
	kept := points[:0]
	for _, p := range points {
		if p.Timestamp >= cutoff {
			kept = append(kept, p)
		}
	}
	return kept
}

// seriesKey builds a canonical "metric|k=v,k=v" key with sorted labels.
func seriesKey(metric string, labels map[string]string) string {
	if len(labels) == 0 {
		return metric
	}
	parts := make([]string, 0, len(labels))
	for k, v := range labels {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return metric + "|" + strings.Join(parts, ",")
}
