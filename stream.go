package driftwatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// StreamConfig configures the live anomaly stream.
type StreamConfig struct {
	// BufferSize is the channel buffer size per subscription.
	BufferSize int
	// WriteTimeout for WebSocket writes.
	WriteTimeout time.Duration
}

// DefaultStreamConfig returns default streaming configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		BufferSize:   256,
		WriteTimeout: 10 * time.Second,
	}
}

// StreamSubscription is an active anomaly subscription. Anomalies are
// dropped, not blocked on, when a subscriber falls behind.
type StreamSubscription struct {
	ID string
	// Metric filters to one metric name; empty matches all metrics.
	Metric string
	// MinSeverity filters out anomalies below this level.
	MinSeverity Severity

	ch     chan Anomaly
	done   chan struct{}
	closed bool
	mu     sync.Mutex
}

// C returns the channel for receiving anomalies.
func (s *StreamSubscription) C() <-chan Anomaly {
	return s.ch
}

// Close closes the subscription.
func (s *StreamSubscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	close(s.ch)
}

// StreamHub fans detected anomalies out to live subscribers, both in-process
// (via channels) and over WebSocket connections.
type StreamHub struct {
	config StreamConfig
	mu     sync.RWMutex
	subs   map[string]*StreamSubscription
	nextID uint64
}

// NewStreamHub creates a new anomaly stream hub.
func NewStreamHub(config StreamConfig) *StreamHub {
	if config.BufferSize <= 0 {
		config.BufferSize = 256
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}
	return &StreamHub{
		config: config,
		subs:   make(map[string]*StreamSubscription),
	}
}

// Subscribe creates a subscription for a metric (empty = all) at or above
// the given severity.
func (h *StreamHub) Subscribe(metric string, minSeverity Severity) *StreamSubscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &StreamSubscription{
		ID:          fmt.Sprintf("sub-%d", h.nextID),
		Metric:      metric,
		MinSeverity: minSeverity,
		ch:          make(chan Anomaly, h.config.BufferSize),
		done:        make(chan struct{}),
	}
	h.subs[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscription.
func (h *StreamHub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	h.mu.Unlock()

	if ok {
		sub.Close()
	}
}

// Publish sends an anomaly to all matching subscriptions.
func (h *StreamHub) Publish(a Anomaly) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if sub.Metric != "" && sub.Metric != a.Metric {
			continue
		}
		if a.Severity < sub.MinSeverity {
			continue
		}
		select {
		case sub.ch <- a:
		default:
			// Subscriber buffer full, drop the anomaly.
		}
	}
}

// PublishBatch sends a ranked result list to matching subscriptions.
func (h *StreamHub) PublishBatch(anomalies []Anomaly) {
	for _, a := range anomalies {
		h.Publish(a)
	}
}

// Count returns the number of active subscriptions.
func (h *StreamHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// streamMessage is the JSON frame format for WebSocket clients.
type streamMessage struct {
	Type     string   `json:"type"`
	Metric   string   `json:"metric,omitempty"`
	Severity string   `json:"severity,omitempty"`
	SubID    string   `json:"sub_id,omitempty"`
	Anomaly  *Anomaly `json:"anomaly,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// WebSocketHandler returns an HTTP handler serving the anomaly stream.
// Clients send {"type":"subscribe","metric":...,"severity":...} frames and
// receive {"type":"anomaly",...} frames.
func (h *StreamHub) WebSocketHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := streamUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		connSubs := make(map[string]*StreamSubscription)
		var connMu sync.Mutex
		defer func() {
			connMu.Lock()
			for id := range connSubs {
				h.Unsubscribe(id)
			}
			connMu.Unlock()
		}()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var cmd streamMessage
			if err := json.Unmarshal(msg, &cmd); err != nil {
				h.sendError(conn, "invalid message format")
				continue
			}

			switch cmd.Type {
			case "subscribe":
				sub := h.Subscribe(cmd.Metric, parseSeverity(cmd.Severity))
				connMu.Lock()
				connSubs[sub.ID] = sub
				connMu.Unlock()
				h.send(conn, streamMessage{Type: "subscribed", SubID: sub.ID})
				go h.forward(ctx, conn, sub)

			case "unsubscribe":
				connMu.Lock()
				if sub, ok := connSubs[cmd.SubID]; ok {
					delete(connSubs, cmd.SubID)
					h.Unsubscribe(sub.ID)
				}
				connMu.Unlock()
				h.send(conn, streamMessage{Type: "unsubscribed", SubID: cmd.SubID})

			default:
				h.sendError(conn, "unknown command: "+cmd.Type)
			}
		}
	}
}

// forward pushes a subscription's anomalies down one WebSocket connection.
func (h *StreamHub) forward(ctx context.Context, conn *websocket.Conn, sub *StreamSubscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.done:
			return
		case a, ok := <-sub.ch:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := h.send(conn, streamMessage{Type: "anomaly", SubID: sub.ID, Anomaly: &a}); err != nil {
				return
			}
		}
	}
}

func (h *StreamHub) send(conn *websocket.Conn, msg streamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (h *StreamHub) sendError(conn *websocket.Conn, text string) {
	_ = h.send(conn, streamMessage{Type: "error", Error: text})
}

// parseSeverity maps a severity string to its level; unknown strings map to
// SeverityInfo so a bad filter never hides everything.
func parseSeverity(s string) Severity {
	switch s {
	case "low":
		return SeverityLow
	case "medium":
		return SeverityMedium
	case "high":
		return SeverityHigh
	case "critical":
		return SeverityCritical
	default:
		return SeverityInfo
	}
}
