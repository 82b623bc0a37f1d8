package driftwatch

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultDetectionConfig(t *testing.T) {
	cfg := DefaultDetectionConfig()

	if cfg.DropThresholdRatio != 0.5 {
		t.Errorf("DropThresholdRatio = %v, want 0.5", cfg.DropThresholdRatio)
	}
	if cfg.TrendSignificanceCutoff != 0.1 {
		t.Errorf("TrendSignificanceCutoff = %v, want 0.1", cfg.TrendSignificanceCutoff)
	}
	if cfg.MinSeriesPoints != 3 || cfg.MinTrendPoints != 5 {
		t.Errorf("min points = %d/%d, want 3/5", cfg.MinSeriesPoints, cfg.MinTrendPoints)
	}
	if got := cfg.SpikeMultipliers["latency"]; got != 2.0 {
		t.Errorf("latency multiplier = %v, want 2.0", got)
	}
	if got := cfg.ThresholdTable["memory"]; got.Critical != 95 {
		t.Errorf("memory critical threshold = %v, want 95", got.Critical)
	}
}

func TestDetectionConfigWithDefaults(t *testing.T) {
	cfg := DetectionConfig{DropThresholdRatio: 0.8}.withDefaults()

	if cfg.DropThresholdRatio != 0.8 {
		t.Errorf("DropThresholdRatio = %v, want the explicit 0.8 kept", cfg.DropThresholdRatio)
	}
	if cfg.SpikeMultipliers == nil || cfg.ThresholdTable == nil {
		t.Error("expected nil maps to be filled with defaults")
	}
	if cfg.MinSeriesPoints != 3 || cfg.MinTrendPoints != 5 {
		t.Errorf("min points = %d/%d, want defaults 3/5", cfg.MinSeriesPoints, cfg.MinTrendPoints)
	}

	// Out-of-range ratio falls back.
	cfg = DetectionConfig{DropThresholdRatio: 1.5}.withDefaults()
	if cfg.DropThresholdRatio != 0.5 {
		t.Errorf("DropThresholdRatio = %v, want fallback 0.5", cfg.DropThresholdRatio)
	}
}

func TestSpikeMultiplier(t *testing.T) {
	cfg := DefaultDetectionConfig()

	tests := []struct {
		category MetricCategory
		want     float64
	}{
		{CategoryLatency, 2.0},
		{CategoryErrorRate, 2.0},
		{CategoryResource, 2.5},
		{CategoryThroughput, 3.0},
		{CategoryDefault, 3.0},
	}
	for _, tt := range tests {
		if got := cfg.spikeMultiplier(tt.category); got != tt.want {
			t.Errorf("spikeMultiplier(%v) = %v, want %v", tt.category, got, tt.want)
		}
	}

	// A config without a "default" entry still has a hard floor.
	bare := DetectionConfig{SpikeMultipliers: map[string]float64{"latency": 1.5}}
	if got := bare.spikeMultiplier(CategoryThroughput); got != 3.0 {
		t.Errorf("spikeMultiplier without default entry = %v, want 3.0", got)
	}
}

func TestThresholdFor(t *testing.T) {
	cfg := DefaultDetectionConfig()

	levels, ok := cfg.thresholdFor("container_cpu_usage")
	if !ok {
		t.Fatal("expected cpu pattern to match")
	}
	if levels.Medium != 70 {
		t.Errorf("Medium = %v, want 70", levels.Medium)
	}

	if _, ok := cfg.thresholdFor("queue_depth"); ok {
		t.Error("expected no match for queue_depth")
	}

	// Matching is case-insensitive, like category inference.
	if _, ok := cfg.thresholdFor("MEMORY_RSS"); !ok {
		t.Error("expected case-insensitive memory match")
	}
}

func TestLoadDetectionConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detection.yaml")
	doc := `
spike_multipliers:
  latency: 1.5
threshold_table:
  queue:
    medium: 100
    high: 500
    critical: 1000
drop_threshold_ratio: 0.6
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadDetectionConfig(path)
	if err != nil {
		t.Fatalf("LoadDetectionConfig: %v", err)
	}
	if got := cfg.SpikeMultipliers["latency"]; got != 1.5 {
		t.Errorf("latency multiplier = %v, want 1.5 from file", got)
	}
	if got := cfg.ThresholdTable["queue"]; got.High != 500 {
		t.Errorf("queue high threshold = %v, want 500", got.High)
	}
	if cfg.DropThresholdRatio != 0.6 {
		t.Errorf("DropThresholdRatio = %v, want 0.6", cfg.DropThresholdRatio)
	}
	// Fields absent from the file keep defaults.
	if cfg.MinSeriesPoints != 3 {
		t.Errorf("MinSeriesPoints = %d, want default 3", cfg.MinSeriesPoints)
	}
	if cfg.TrendSignificanceCutoff != 0.1 {
		t.Errorf("TrendSignificanceCutoff = %v, want default 0.1", cfg.TrendSignificanceCutoff)
	}
}

func TestLoadDetectionConfig_Errors(t *testing.T) {
	if _, err := LoadDetectionConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("spike_multipliers: [not, a, map]"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDetectionConfig(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}
