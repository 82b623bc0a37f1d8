package driftwatch

import (
	"fmt"
	"hash/fnv"
	"strconv"
)

// AnomalyType classifies the kind of deviation a detector found.
type AnomalyType int

const (
	// AnomalyLatencySpike indicates a sudden latency increase.
	AnomalyLatencySpike AnomalyType = iota
	// AnomalyErrorRateIncrease indicates a rising error rate.
	AnomalyErrorRateIncrease
	// AnomalyThroughputDrop indicates a sudden traffic decrease.
	AnomalyThroughputDrop
	// AnomalyResourceSaturation indicates CPU/memory/disk pressure.
	AnomalyResourceSaturation
	// AnomalyAvailabilityDegradation indicates reduced availability.
	AnomalyAvailabilityDegradation
)

// String returns the string representation of the anomaly type.
func (t AnomalyType) String() string {
	switch t {
	case AnomalyLatencySpike:
		return "latency_spike"
	case AnomalyErrorRateIncrease:
		return "error_rate_increase"
	case AnomalyThroughputDrop:
		return "throughput_drop"
	case AnomalyResourceSaturation:
		return "resource_saturation"
	case AnomalyAvailabilityDegradation:
		return "availability_degradation"
	default:
		return "unknown"
	}
}

// Severity is a five-level ordinal classification of anomaly urgency.
// Higher values are more urgent.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Evidence justifies an anomaly without requiring the consumer to re-derive
// statistics.
type Evidence struct {
	// Type names the kind of evidence (e.g., "statistical", "threshold").
	Type string `json:"type"`
	// Content is a human-readable justification.
	Content string `json:"content"`
	// Source names the component that produced the evidence.
	Source string `json:"source"`
	// Relevance weights the evidence in [0,1].
	Relevance float64 `json:"relevance"`
}

// Anomaly is a single detected deviation on one metric. It is created once
// by a detector and never mutated afterwards.
type Anomaly struct {
	ID          string      `json:"id"`
	Type        AnomalyType `json:"type"`
	TypeName    string      `json:"type_name"`
	Severity    Severity    `json:"severity"`
	SeverityStr string      `json:"severity_str"`
	// Metric is the name of the series the anomaly was found on.
	Metric string `json:"metric"`
	// StartTime is the anomaly time in Unix milliseconds. For point-in-time
	// detections it equals the last observation; the trend detector spans
	// the whole window.
	StartTime int64 `json:"start_time"`
	// EndTime is set only for window-spanning detections (trend).
	EndTime int64 `json:"end_time,omitempty"`
	// Current is the observed value that triggered detection.
	Current float64 `json:"current"`
	// Baseline is the reference value the deviation was measured against.
	Baseline float64 `json:"baseline"`
	// Deviation is the relative deviation from the baseline.
	Deviation float64 `json:"deviation"`
	// Confidence expresses detection certainty in [0,1].
	Confidence  float64    `json:"confidence"`
	Description string     `json:"description"`
	Evidence    []Evidence `json:"evidence,omitempty"`
}

// anomalyID derives a reproducible identifier from the metric name, the
// detector that fired, and the window start. Identical input batches always
// produce identical IDs, keeping analysis output byte-deterministic.
func anomalyID(metric, detector string, startTime int64) string {
	h := fnv.New64a()
	h.Write([]byte(metric))
	h.Write([]byte{'|'})
	h.Write([]byte(detector))
	h.Write([]byte{'|'})
	h.Write([]byte(strconv.FormatInt(startTime, 10)))
	return fmt.Sprintf("anom-%016x", h.Sum64())
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
