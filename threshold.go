package driftwatch

import "fmt"

// ThresholdDetector flags metrics whose most recent value crosses an
// absolute threshold from the configured table. Tiers are evaluated from
// critical down to medium so the highest matching severity wins. Metrics
// with no table entry produce nothing.
type ThresholdDetector struct{}

// Name implements Detector.
func (ThresholdDetector) Name() string { return "threshold" }

// Detect implements Detector.
func (ThresholdDetector) Detect(w seriesWindow, cfg DetectionConfig) *Anomaly {
	levels, ok := cfg.thresholdFor(w.series.Name)
	if !ok {
		return nil
	}

	latest := w.latest()
	var severity Severity
	var threshold float64
	switch {
	case latest.Value > levels.Critical:
		severity, threshold = SeverityCritical, levels.Critical
	case latest.Value > levels.High:
		severity, threshold = SeverityHigh, levels.High
	case latest.Value > levels.Medium:
		severity, threshold = SeverityMedium, levels.Medium
	default:
		return nil
	}

	deviation := 0.0
	if threshold != 0 {
		deviation = (latest.Value - threshold) / threshold
	}
	anomalyType := anomalyTypeFor(w.category)

	return &Anomaly{
		ID:          anomalyID(w.series.Name, "threshold", latest.Timestamp),
		Type:        anomalyType,
		TypeName:    anomalyType.String(),
		Severity:    severity,
		SeverityStr: severity.String(),
		Metric:      w.series.Name,
		StartTime:   latest.Timestamp,
		Current:     latest.Value,
		Baseline:    threshold,
		Deviation:   deviation,
		// A crossed absolute threshold is near-certain by definition.
		Confidence: 0.95,
		Description: fmt.Sprintf("%s at %.2f exceeds the %s threshold of %.2f",
			w.series.Name, latest.Value, severity, threshold),
		Evidence: []Evidence{
			{
				Type: "threshold",
				Content: fmt.Sprintf("value %.2f crossed the configured %s threshold %.2f",
					latest.Value, severity, threshold),
				Source:    "threshold",
				Relevance: 1.0,
			},
		},
	}
}
