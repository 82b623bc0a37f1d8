package driftwatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

// doerFunc adapts a function to HTTPDoer.
type doerFunc func(req *http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func okResponse() *http.Response {
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(""))}
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
}

func TestNotifier_DeliversQualifyingAnomalies(t *testing.T) {
	var payloads []AnomalyNotification
	client := doerFunc(func(req *http.Request) (*http.Response, error) {
		if got := req.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		var n AnomalyNotification
		if err := json.NewDecoder(req.Body).Decode(&n); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		payloads = append(payloads, n)
		return okResponse(), nil
	})

	cfg := DefaultNotifierConfig("http://alerts.example/hook")
	cfg.Retry = fastRetry()
	notifier := NewNotifier(cfg, WithHTTPClient(client))

	err := notifier.NotifyBatch(context.Background(), []Anomaly{
		streamAnomaly("api_latency", SeverityCritical),
		streamAnomaly("http_requests_total", SeverityMedium), // below default min
		streamAnomaly("error_rate", SeverityHigh),
	})
	if err != nil {
		t.Fatalf("NotifyBatch: %v", err)
	}

	if len(payloads) != 2 {
		t.Fatalf("delivered %d notifications, want 2", len(payloads))
	}
	if payloads[0].Metric != "api_latency" || payloads[0].Severity != "critical" {
		t.Errorf("first payload = %+v", payloads[0])
	}
	if payloads[0].Status != "firing" {
		t.Errorf("Status = %q, want firing", payloads[0].Status)
	}
	if payloads[1].Metric != "error_rate" {
		t.Errorf("second payload metric = %q", payloads[1].Metric)
	}
}

func TestNotifier_NoWebhookConfigured(t *testing.T) {
	notifier := NewNotifier(NotifierConfig{}, WithHTTPClient(doerFunc(
		func(req *http.Request) (*http.Response, error) {
			t.Fatal("unexpected request without a webhook URL")
			return nil, nil
		})))

	err := notifier.NotifyBatch(context.Background(), []Anomaly{
		streamAnomaly("api_latency", SeverityCritical),
	})
	if err != nil {
		t.Errorf("NotifyBatch = %v, want nil", err)
	}
}

func TestNotifier_RetriesTransientFailure(t *testing.T) {
	calls := 0
	client := doerFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("connection refused")
		}
		return okResponse(), nil
	})

	cfg := DefaultNotifierConfig("http://alerts.example/hook")
	cfg.Retry = fastRetry()
	notifier := NewNotifier(cfg, WithHTTPClient(client))

	err := notifier.NotifyBatch(context.Background(), []Anomaly{
		streamAnomaly("api_latency", SeverityCritical),
	})
	if err != nil {
		t.Fatalf("NotifyBatch: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (one retry)", calls)
	}
}

func TestNotifier_ReportsNon2xx(t *testing.T) {
	client := doerFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusBadGateway, Body: io.NopCloser(strings.NewReader(""))}, nil
	})

	cfg := DefaultNotifierConfig("http://alerts.example/hook")
	cfg.Retry = fastRetry()
	notifier := NewNotifier(cfg, WithHTTPClient(client))

	err := notifier.NotifyBatch(context.Background(), []Anomaly{
		streamAnomaly("api_latency", SeverityCritical),
	})
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("NotifyBatch = %v, want status 502 error", err)
	}
}

func TestNotifier_FailureDoesNotStopBatch(t *testing.T) {
	var delivered []string
	client := doerFunc(func(req *http.Request) (*http.Response, error) {
		var n AnomalyNotification
		_ = json.NewDecoder(req.Body).Decode(&n)
		if n.Metric == "api_latency" {
			return nil, errors.New("connection refused")
		}
		delivered = append(delivered, n.Metric)
		return okResponse(), nil
	})

	cfg := DefaultNotifierConfig("http://alerts.example/hook")
	cfg.Retry = RetryConfig{MaxAttempts: 1}
	notifier := NewNotifier(cfg, WithHTTPClient(client))

	err := notifier.NotifyBatch(context.Background(), []Anomaly{
		streamAnomaly("api_latency", SeverityCritical),
		streamAnomaly("error_rate", SeverityHigh),
	})
	if err == nil {
		t.Error("expected the first delivery failure to be reported")
	}
	if len(delivered) != 1 || delivered[0] != "error_rate" {
		t.Errorf("delivered = %v, want the rest of the batch", delivered)
	}
}
