package driftwatch

// seriesWindow carries the per-series state shared by all detectors: the
// sorted observation window, the baseline over everything but the latest
// point, and the inferred metric category.
type seriesWindow struct {
	series   MetricSeries
	points   []MetricDataPoint // ascending timestamp order, len >= MinSeriesPoints
	baseline Baseline
	category MetricCategory
}

// latest returns the most recent observation in the window.
func (w seriesWindow) latest() MetricDataPoint {
	return w.points[len(w.points)-1]
}

// Detector is the common contract for all detection algorithms. Detect
// returns nil when the window is normal or the detector does not apply;
// the absence of an anomaly is meaningful output, never an error.
//
// Implementations must be stateless: Detect is called concurrently from
// independent workers and must be a pure function of its arguments.
type Detector interface {
	// Name identifies the detector in anomaly IDs and evidence sources.
	Name() string
	// Detect examines one series window and optionally reports an anomaly.
	Detect(w seriesWindow, cfg DetectionConfig) *Anomaly
}

// defaultDetectors returns the built-in detector set in its fixed
// registration order. Registration order is part of the deterministic
// output contract (it decides the order of equal-rank anomalies).
func defaultDetectors() []Detector {
	return []Detector{
		SpikeDetector{},
		DropDetector{},
		ThresholdDetector{},
		TrendDetector{},
	}
}

// anomalyTypeFor maps a metric category to the anomaly type reported by the
// spike and threshold detectors. Throughput and unknown categories fall back
// to a latency spike on purpose: over-reporting an unclassified deviation as
// a spike is the conservative choice.
func anomalyTypeFor(category MetricCategory) AnomalyType {
	switch category {
	case CategoryLatency:
		return AnomalyLatencySpike
	case CategoryErrorRate:
		return AnomalyErrorRateIncrease
	case CategoryResource:
		return AnomalyResourceSaturation
	default:
		return AnomalyLatencySpike
	}
}
