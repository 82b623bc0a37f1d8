package driftwatch

import (
	"fmt"
	"math"
)

// TrendDetector fits an ordinary least-squares line over the window and
// flags series whose slope, normalized by the average value, is
// significant. Unlike the point-in-time detectors it reports a time range
// spanning the full window. Sustained drift is treated as less urgent than
// an instantaneous spike, so the trend detector has no critical tier.
type TrendDetector struct{}

// Name implements Detector.
func (TrendDetector) Name() string { return "trend" }

// Detect implements Detector.
func (TrendDetector) Detect(w seriesWindow, cfg DetectionConfig) *Anomaly {
	if len(w.points) < cfg.MinTrendPoints {
		return nil
	}

	vals := pointValues(w.points)
	slope, ok := olsSlope(vals)
	if !ok {
		return nil
	}

	avg := 0.0
	for _, v := range vals {
		avg += v
	}
	avg /= float64(len(vals))
	if avg == 0 {
		return nil
	}

	relSlope := math.Abs(slope) / avg
	if relSlope < cfg.TrendSignificanceCutoff {
		return nil
	}

	increasing := slope > 0
	direction := "decreasing"
	if increasing {
		direction = "increasing"
	}
	anomalyType := trendAnomalyType(increasing, w.category)
	severity := trendSeverity(relSlope)

	first, last := w.points[0], w.latest()

	return &Anomaly{
		ID:          anomalyID(w.series.Name, "trend", first.Timestamp),
		Type:        anomalyType,
		TypeName:    anomalyType.String(),
		Severity:    severity,
		SeverityStr: severity.String(),
		Metric:      w.series.Name,
		StartTime:   first.Timestamp,
		EndTime:     last.Timestamp,
		Current:     last.Value,
		Baseline:    avg,
		Deviation:   relSlope,
		Confidence:  math.Min(0.8, relSlope*2),
		Description: fmt.Sprintf("%s shows a sustained %s trend (relative slope %.2f over %d points)",
			w.series.Name, direction, relSlope, len(w.points)),
		Evidence: []Evidence{
			{
				Type: "trend",
				Content: fmt.Sprintf("least-squares slope %.4f per interval against window average %.2f",
					slope, avg),
				Source:    "trend",
				Relevance: 1.0,
			},
		},
	}
}

// olsSlope computes the ordinary least-squares slope of values against
// their index positions 0..n-1. It returns false for degenerate windows.
func olsSlope(vals []float64) (float64, bool) {
	n := float64(len(vals))
	if n < 2 {
		return 0, false
	}

	sumX, sumY, sumXY, sumX2 := 0.0, 0.0, 0.0, 0.0
	for i, y := range vals {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0, false
	}
	return (n*sumXY - sumX*sumY) / denom, true
}

// trendAnomalyType maps trend direction and category to an anomaly type.
func trendAnomalyType(increasing bool, category MetricCategory) AnomalyType {
	if !increasing {
		return AnomalyThroughputDrop
	}
	if category == CategoryLatency {
		return AnomalyLatencySpike
	}
	return AnomalyErrorRateIncrease
}

func trendSeverity(relSlope float64) Severity {
	switch {
	case relSlope > 0.3:
		return SeverityHigh
	case relSlope > 0.2:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
