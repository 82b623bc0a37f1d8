package driftwatch

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ThresholdLevels holds the absolute threshold tiers for one metric pattern.
// A value above Critical reports critical severity, then High, then Medium;
// the highest matching tier wins.
type ThresholdLevels struct {
	Medium   float64 `json:"medium" yaml:"medium"`
	High     float64 `json:"high" yaml:"high"`
	Critical float64 `json:"critical" yaml:"critical"`
}

// DetectionConfig is the injectable tuning surface for the analyzer. All
// fields have working defaults from DefaultDetectionConfig; deployments can
// retune sensitivity without code changes, including via YAML files.
type DetectionConfig struct {
	// SpikeMultipliers maps a category name (see MetricCategory.String) to
	// the number of standard deviations above the mean that triggers the
	// spike detector. Categories without an entry use the "default" entry.
	SpikeMultipliers map[string]float64 `json:"spike_multipliers" yaml:"spike_multipliers"`

	// ThresholdTable maps a metric-name substring to absolute threshold
	// tiers. Metrics matching no pattern produce no threshold violations.
	ThresholdTable map[string]ThresholdLevels `json:"threshold_table" yaml:"threshold_table"`

	// DropThresholdRatio is the fraction of the baseline mean below which
	// the drop detector fires. Default: 0.5.
	DropThresholdRatio float64 `json:"drop_threshold_ratio" yaml:"drop_threshold_ratio"`

	// TrendSignificanceCutoff is the minimum relative slope for a trend to
	// be reported. Default: 0.1.
	TrendSignificanceCutoff float64 `json:"trend_significance_cutoff" yaml:"trend_significance_cutoff"`

	// MinSeriesPoints is the minimum number of points a series needs to be
	// analyzed at all. Default: 3.
	MinSeriesPoints int `json:"min_series_points" yaml:"min_series_points"`

	// MinTrendPoints is the minimum number of points for the trend detector.
	// Default: 5.
	MinTrendPoints int `json:"min_trend_points" yaml:"min_trend_points"`
}

// DefaultDetectionConfig returns the default tuning values.
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		SpikeMultipliers: map[string]float64{
			"latency":    2.0,
			"error_rate": 2.0,
			"resource":   2.5,
			"default":    3.0,
		},
		ThresholdTable: map[string]ThresholdLevels{
			"cpu":        {Medium: 70, High: 85, Critical: 95},
			"memory":     {Medium: 80, High: 90, Critical: 95},
			"disk":       {Medium: 80, High: 90, Critical: 95},
			"error_rate": {Medium: 0.01, High: 0.05, Critical: 0.1},
			"latency":    {Medium: 500, High: 1000, Critical: 2000},
		},
		DropThresholdRatio:      0.5,
		TrendSignificanceCutoff: 0.1,
		MinSeriesPoints:         3,
		MinTrendPoints:          5,
	}
}

// withDefaults fills in zero-valued fields so a partially specified config
// (e.g., loaded from YAML) still behaves sensibly.
func (c DetectionConfig) withDefaults() DetectionConfig {
	def := DefaultDetectionConfig()
	if c.SpikeMultipliers == nil {
		c.SpikeMultipliers = def.SpikeMultipliers
	}
	if c.ThresholdTable == nil {
		c.ThresholdTable = def.ThresholdTable
	}
	if c.DropThresholdRatio <= 0 || c.DropThresholdRatio >= 1 {
		c.DropThresholdRatio = def.DropThresholdRatio
	}
	if c.TrendSignificanceCutoff <= 0 {
		c.TrendSignificanceCutoff = def.TrendSignificanceCutoff
	}
	if c.MinSeriesPoints < 3 {
		c.MinSeriesPoints = def.MinSeriesPoints
	}
	if c.MinTrendPoints < 2 {
		c.MinTrendPoints = def.MinTrendPoints
	}
	return c
}

// spikeMultiplier returns the sigma multiplier for a category, falling back
// to the "default" entry, then to 3.0.
func (c DetectionConfig) spikeMultiplier(category MetricCategory) float64 {
	if k, ok := c.SpikeMultipliers[category.String()]; ok && k > 0 {
		return k
	}
	if k, ok := c.SpikeMultipliers["default"]; ok && k > 0 {
		return k
	}
	return 3.0
}

// thresholdFor returns the threshold tiers for a metric name by substring
// match. Patterns are checked in sorted order so the lookup is deterministic
// when a name matches more than one pattern.
func (c DetectionConfig) thresholdFor(metric string) (ThresholdLevels, bool) {
	patterns := make([]string, 0, len(c.ThresholdTable))
	for p := range c.ThresholdTable {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)
	for _, p := range patterns {
		if containsFold(metric, p) {
			return c.ThresholdTable[p], true
		}
	}
	return ThresholdLevels{}, false
}

// LoadDetectionConfig reads a DetectionConfig from a YAML file. Fields not
// present in the file keep their defaults.
func LoadDetectionConfig(path string) (DetectionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DetectionConfig{}, fmt.Errorf("read detection config: %w", err)
	}
	var cfg DetectionConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DetectionConfig{}, fmt.Errorf("parse detection config: %w", err)
	}
	return cfg.withDefaults(), nil
}
