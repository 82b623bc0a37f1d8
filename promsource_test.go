package driftwatch

import (
	"errors"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/prometheus/prompb"
)

func writeRequest(metric string, labels map[string]string, samples ...prompb.Sample) *prompb.WriteRequest {
	promLabels := []prompb.Label{{Name: "__name__", Value: metric}}
	for k, v := range labels {
		promLabels = append(promLabels, prompb.Label{Name: k, Value: v})
	}
	return &prompb.WriteRequest{
		Timeseries: []prompb.TimeSeries{{Labels: promLabels, Samples: samples}},
	}
}

func TestPromSource_Ingest(t *testing.T) {
	source := NewPromSource(DefaultPromSourceConfig())

	req := writeRequest("api_latency", map[string]string{"instance": "a"},
		prompb.Sample{Timestamp: testWindowStart, Value: 100},
		prompb.Sample{Timestamp: testWindowStart + 60_000, Value: 105},
	)
	if got := source.Ingest(req); got != 2 {
		t.Errorf("accepted = %d, want 2", got)
	}
	if got := source.SeriesCount(); got != 1 {
		t.Errorf("SeriesCount = %d, want 1", got)
	}

	// A second label set on the same metric is a distinct series.
	source.Ingest(writeRequest("api_latency", map[string]string{"instance": "b"},
		prompb.Sample{Timestamp: testWindowStart, Value: 90},
	))
	if got := source.SeriesCount(); got != 2 {
		t.Errorf("SeriesCount = %d, want 2", got)
	}
}

func TestPromSource_IngestSnappy(t *testing.T) {
	source := NewPromSource(DefaultPromSourceConfig())

	req := writeRequest("api_latency", nil,
		prompb.Sample{Timestamp: testWindowStart, Value: 100},
	)
	raw, err := req.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	accepted, err := source.IngestSnappy(snappy.Encode(nil, raw))
	if err != nil {
		t.Fatalf("IngestSnappy: %v", err)
	}
	if accepted != 1 {
		t.Errorf("accepted = %d, want 1", accepted)
	}
}

func TestPromSource_IngestSnappy_BadPayload(t *testing.T) {
	source := NewPromSource(DefaultPromSourceConfig())

	if _, err := source.IngestSnappy([]byte("not snappy data")); err == nil {
		t.Error("expected decode error for invalid snappy payload")
	}

	_, err := source.IngestSnappy(snappy.Encode(nil, []byte("not a protobuf")))
	var ingestErr *IngestError
	if !errors.As(err, &ingestErr) {
		t.Fatalf("error = %v, want *IngestError", err)
	}
	if ingestErr.Type != IngestErrorTypeDecode {
		t.Errorf("Type = %v, want decode", ingestErr.Type)
	}
}

func TestPromSource_DropsInvalidMetricNames(t *testing.T) {
	source := NewPromSource(DefaultPromSourceConfig())

	accepted := source.Ingest(writeRequest("9bad-metric", nil,
		prompb.Sample{Timestamp: testWindowStart, Value: 1},
		prompb.Sample{Timestamp: testWindowStart + 60_000, Value: 2},
	))
	if accepted != 0 {
		t.Errorf("accepted = %d, want 0", accepted)
	}
	if got := source.Dropped(); got != 2 {
		t.Errorf("Dropped = %d, want 2", got)
	}
	if got := source.SeriesCount(); got != 0 {
		t.Errorf("SeriesCount = %d, want 0", got)
	}
}

func TestPromSource_SeriesCap(t *testing.T) {
	cfg := DefaultPromSourceConfig()
	cfg.MaxSeries = 1
	source := NewPromSource(cfg)

	source.Ingest(writeRequest("metric_one", nil,
		prompb.Sample{Timestamp: testWindowStart, Value: 1},
	))
	source.Ingest(writeRequest("metric_two", nil,
		prompb.Sample{Timestamp: testWindowStart, Value: 1},
	))

	if got := source.SeriesCount(); got != 1 {
		t.Errorf("SeriesCount = %d, want 1 under cap", got)
	}
	if got := source.Dropped(); got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}

	// Samples for an already tracked series still land.
	accepted := source.Ingest(writeRequest("metric_one", nil,
		prompb.Sample{Timestamp: testWindowStart + 60_000, Value: 2},
	))
	if accepted != 1 {
		t.Errorf("accepted = %d, want 1 for existing series", accepted)
	}
}

func TestPromSource_Batch(t *testing.T) {
	source := NewPromSource(DefaultPromSourceConfig())
	now := time.UnixMilli(testWindowStart + 5*60_000)

	source.Ingest(writeRequest("zzz_metric", nil,
		prompb.Sample{Timestamp: testWindowStart, Value: 1},
	))
	source.Ingest(writeRequest("aaa_metric", nil,
		prompb.Sample{Timestamp: testWindowStart, Value: 2},
	))

	batch := source.Batch(now)
	if len(batch) != 2 {
		t.Fatalf("batch size = %d, want 2", len(batch))
	}
	// Deterministic order: sorted by series key.
	if batch[0].Name != "aaa_metric" || batch[1].Name != "zzz_metric" {
		t.Errorf("batch order = %q, %q", batch[0].Name, batch[1].Name)
	}
	if batch[0].Metadata.Source != "prometheus" {
		t.Errorf("Source = %q, want prometheus", batch[0].Metadata.Source)
	}
}

func TestPromSource_BatchTrimsLookback(t *testing.T) {
	cfg := DefaultPromSourceConfig()
	cfg.Lookback = 2 * time.Minute
	source := NewPromSource(cfg)

	// The first sample ages out of the 2-minute lookback; the last two stay.
	source.Ingest(writeRequest("api_latency", nil,
		prompb.Sample{Timestamp: testWindowStart, Value: 100},
		prompb.Sample{Timestamp: testWindowStart + 4*60_000, Value: 105},
		prompb.Sample{Timestamp: testWindowStart + 5*60_000, Value: 110},
	))
	// This series ages out entirely.
	source.Ingest(writeRequest("stale_metric", nil,
		prompb.Sample{Timestamp: testWindowStart, Value: 1},
	))

	now := time.UnixMilli(testWindowStart + 6*60_000)
	batch := source.Batch(now)
	if len(batch) != 1 {
		t.Fatalf("batch size = %d, want 1 after aging", len(batch))
	}
	if len(batch[0].DataPoints) != 2 {
		t.Errorf("points = %d, want 2 inside lookback", len(batch[0].DataPoints))
	}
	// The fully aged-out series is forgotten.
	if got := source.SeriesCount(); got != 1 {
		t.Errorf("SeriesCount = %d, want 1", got)
	}
}

func TestSeriesKey(t *testing.T) {
	if got := seriesKey("api_latency", nil); got != "api_latency" {
		t.Errorf("key = %q", got)
	}
	// Label order never affects the key.
	a := seriesKey("m", map[string]string{"x": "1", "y": "2"})
	b := seriesKey("m", map[string]string{"y": "2", "x": "1"})
	if a != b || a != "m|x=1,y=2" {
		t.Errorf("keys = %q, %q, want m|x=1,y=2", a, b)
	}
}
