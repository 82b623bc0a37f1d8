package driftwatch

import "fmt"

// DropDetector flags throughput metrics whose most recent value falls below
// a configurable fraction of the baseline mean. It applies only to
// throughput-category metrics; a 60% dip on a CPU gauge is not a traffic
// drop.
type DropDetector struct{}

// Name implements Detector.
func (DropDetector) Name() string { return "drop" }

// Detect implements Detector.
func (DropDetector) Detect(w seriesWindow, cfg DetectionConfig) *Anomaly {
	if w.category != CategoryThroughput {
		return nil
	}
	b := w.baseline
	if b.Mean == 0 {
		return nil
	}

	latest := w.latest()
	if latest.Value >= b.Mean*cfg.DropThresholdRatio {
		return nil
	}

	deviation := (b.Mean - latest.Value) / b.Mean
	severity := dropSeverity(deviation)

	return &Anomaly{
		ID:          anomalyID(w.series.Name, "drop", latest.Timestamp),
		Type:        AnomalyThroughputDrop,
		TypeName:    AnomalyThroughputDrop.String(),
		Severity:    severity,
		SeverityStr: severity.String(),
		Metric:      w.series.Name,
		StartTime:   latest.Timestamp,
		Current:     latest.Value,
		Baseline:    b.Mean,
		Deviation:   deviation,
		Confidence:  clamp(deviation, 0.7, 0.9),
		Description: fmt.Sprintf("%s dropped to %.2f, %.0f%% below its baseline mean of %.2f",
			w.series.Name, latest.Value, deviation*100, b.Mean),
		Evidence: []Evidence{
			{
				Type: "statistical",
				Content: fmt.Sprintf("value %.2f is below %.0f%% of baseline mean %.2f (%d samples)",
					latest.Value, cfg.DropThresholdRatio*100, b.Mean, b.SampleSize),
				Source:    "drop",
				Relevance: 1.0,
			},
		},
	}
}

func dropSeverity(deviation float64) Severity {
	switch {
	case deviation > 0.8:
		return SeverityCritical
	case deviation > 0.6:
		return SeverityHigh
	case deviation > 0.4:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
