package driftwatch

import (
	"fmt"
	"math"
)

// SpikeDetector flags the most recent value when it exceeds the baseline
// mean by a category-specific number of standard deviations.
type SpikeDetector struct{}

// Name implements Detector.
func (SpikeDetector) Name() string { return "spike" }

// Detect implements Detector.
func (SpikeDetector) Detect(w seriesWindow, cfg DetectionConfig) *Anomaly {
	b := w.baseline
	if b.Mean == 0 {
		// Relative deviation is undefined against a zero baseline.
		return nil
	}

	k := cfg.spikeMultiplier(w.category)
	latest := w.latest()
	if latest.Value <= b.Mean+k*b.StdDev {
		return nil
	}

	deviation := (latest.Value - b.Mean) / b.Mean
	// Severity is judged on the sigma distance, not the relative deviation:
	// a 3.5 sigma excursion is critical even when the baseline mean is large.
	sigmas := math.Inf(1)
	if b.StdDev > 0 {
		sigmas = (latest.Value - b.Mean) / b.StdDev
	}

	anomalyType := anomalyTypeFor(w.category)
	severity := spikeSeverity(w.category, sigmas)

	return &Anomaly{
		ID:          anomalyID(w.series.Name, "spike", latest.Timestamp),
		Type:        anomalyType,
		TypeName:    anomalyType.String(),
		Severity:    severity,
		SeverityStr: severity.String(),
		Metric:      w.series.Name,
		StartTime:   latest.Timestamp,
		Current:     latest.Value,
		Baseline:    b.Mean,
		Deviation:   deviation,
		Confidence:  clamp(deviation*0.5, 0.6, 0.95),
		Description: fmt.Sprintf("%s spiked to %.2f, %.0f%% above its baseline mean of %.2f",
			w.series.Name, latest.Value, deviation*100, b.Mean),
		Evidence: []Evidence{
			{
				Type: "statistical",
				Content: fmt.Sprintf("value %.2f is %.1f standard deviations above baseline mean %.2f (stddev %.2f, %d samples)",
					latest.Value, sigmas, b.Mean, b.StdDev, b.SampleSize),
				Source:    "spike",
				Relevance: 1.0,
			},
		},
	}
}

// spikeSeverity buckets the sigma distance above the mean into a severity
// level using category-aware tiers. Latency and error-rate metrics escalate
// faster than the default tiers.
func spikeSeverity(category MetricCategory, sigmas float64) Severity {
	switch category {
	case CategoryLatency:
		switch {
		case sigmas > 2.0:
			return SeverityCritical
		case sigmas > 1.0:
			return SeverityHigh
		case sigmas > 0.5:
			return SeverityMedium
		default:
			return SeverityLow
		}
	case CategoryErrorRate:
		switch {
		case sigmas > 5.0:
			return SeverityCritical
		case sigmas > 2.0:
			return SeverityHigh
		case sigmas > 1.0:
			return SeverityMedium
		default:
			return SeverityLow
		}
	default:
		switch {
		case sigmas > 3.0:
			return SeverityCritical
		case sigmas > 2.0:
			return SeverityHigh
		case sigmas > 1.0:
			return SeverityMedium
		default:
			return SeverityLow
		}
	}
}
