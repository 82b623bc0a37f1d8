package driftwatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// NotifierConfig configures webhook notification of detected anomalies.
type NotifierConfig struct {
	// WebhookURL receives a JSON notification per qualifying anomaly.
	WebhookURL string

	// MinSeverity is the lowest severity that triggers a notification.
	// Default: SeverityHigh.
	MinSeverity Severity

	// Timeout bounds a single webhook delivery. Default: 10s.
	Timeout time.Duration

	// Retry configures delivery retries.
	Retry RetryConfig
}

// DefaultNotifierConfig returns default notification configuration.
func DefaultNotifierConfig(webhookURL string) NotifierConfig {
	return NotifierConfig{
		WebhookURL:  webhookURL,
		MinSeverity: SeverityHigh,
		Timeout:     10 * time.Second,
		Retry:       DefaultRetryConfig(),
	}
}

// AnomalyNotification is the webhook payload for one anomaly.
type AnomalyNotification struct {
	Status      string     `json:"status"` // always "firing"
	AnomalyID   string     `json:"anomaly_id"`
	Type        string     `json:"type"`
	Severity    string     `json:"severity"`
	Metric      string     `json:"metric"`
	Current     float64    `json:"current"`
	Baseline    float64    `json:"baseline"`
	Deviation   float64    `json:"deviation"`
	Confidence  float64    `json:"confidence"`
	StartTime   int64      `json:"start_time"`
	EndTime     int64      `json:"end_time,omitempty"`
	Description string     `json:"description,omitempty"`
	Evidence    []Evidence `json:"evidence,omitempty"`
}

// Notifier posts qualifying anomalies to a webhook.
type Notifier struct {
	config     NotifierConfig
	httpClient HTTPDoer
	retryer    *Retryer
}

// NotifierOption customizes a Notifier.
type NotifierOption func(*Notifier)

// WithHTTPClient sets a custom HTTP client for webhook delivery.
func WithHTTPClient(client HTTPDoer) NotifierOption {
	return func(n *Notifier) {
		n.httpClient = client
	}
}

// NewNotifier creates a webhook notifier.
func NewNotifier(config NotifierConfig, opts ...NotifierOption) *Notifier {
	if config.MinSeverity == 0 {
		config.MinSeverity = SeverityHigh
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	n := &Notifier{
		config:     config,
		httpClient: &http.Client{},
		retryer:    NewRetryer(config.Retry),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NotifyBatch delivers every anomaly at or above the configured severity.
// Delivery failures after retries are returned but do not stop the batch;
// notification is best-effort and detection output is the source of truth.
func (n *Notifier) NotifyBatch(ctx context.Context, anomalies []Anomaly) error {
	if n.config.WebhookURL == "" {
		return nil
	}

	var firstErr error
	for _, a := range anomalies {
		if a.Severity < n.config.MinSeverity {
			continue
		}
		if err := n.notify(ctx, a); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (n *Notifier) notify(ctx context.Context, a Anomaly) error {
	payload, err := json.Marshal(AnomalyNotification{
		Status:      "firing",
		AnomalyID:   a.ID,
		Type:        a.TypeName,
		Severity:    a.SeverityStr,
		Metric:      a.Metric,
		Current:     a.Current,
		Baseline:    a.Baseline,
		Deviation:   a.Deviation,
		Confidence:  a.Confidence,
		StartTime:   a.StartTime,
		EndTime:     a.EndTime,
		Description: a.Description,
		Evidence:    a.Evidence,
	})
	if err != nil {
		return err
	}

	return n.retryer.Do(ctx, func() error {
		return n.send(ctx, payload)
	})
}

func (n *Notifier) send(ctx context.Context, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, n.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.config.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
