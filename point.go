package driftwatch

import "sort"

// MetricDataPoint represents a single observation of a metric with an
// optional set of labels.
type MetricDataPoint struct {
	// Timestamp is the observation time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
	// Value is the numeric measurement.
	Value float64 `json:"value"`
	// Labels are optional key-value labels (e.g., {"host": "web-1"}).
	Labels map[string]string `json:"labels,omitempty"`
}

// SeriesMetadata describes where a series came from and how it was shaped.
type SeriesMetadata struct {
	// Source identifies the collector that produced the series
	// (e.g., "prometheus", "cloudwatch", "traces").
	Source string `json:"source,omitempty"`
	// Interval is the scrape or aggregation interval in milliseconds.
	Interval int64 `json:"interval,omitempty"`
	// Aggregation is the function that materialized the points
	// (e.g., "avg", "p95", "sum").
	Aggregation string `json:"aggregation,omitempty"`
}

// MetricSeries is a named window of data points for a single metric.
// The analyzer treats the series as immutable: detection always works on
// a sorted copy of DataPoints, never the caller's slice.
type MetricSeries struct {
	// Name is the metric name (e.g., "http_request_duration_p95").
	Name string `json:"name"`
	// Unit is the measurement unit (e.g., "ms", "percent", "rps").
	Unit string `json:"unit,omitempty"`
	// DataPoints is the observation window. Order is not assumed.
	DataPoints []MetricDataPoint `json:"data_points"`
	// Metadata describes the series origin.
	Metadata SeriesMetadata `json:"metadata,omitempty"`
}

// sortedPoints returns a copy of the series' points in ascending timestamp
// order. The caller's slice is left untouched.
func (s MetricSeries) sortedPoints() []MetricDataPoint {
	points := make([]MetricDataPoint, len(s.DataPoints))
	copy(points, s.DataPoints)
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp < points[j].Timestamp
	})
	return points
}

// pointValues extracts the value column from a point slice.
func pointValues(points []MetricDataPoint) []float64 {
	vals := make([]float64, len(points))
	for i, p := range points {
		vals[i] = p.Value
	}
	return vals
}
