package driftwatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	// maxBodySize is the maximum allowed request body size (10MB)
	maxBodySize = 10 * 1024 * 1024
)

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	// Addr is the listen address. Default: ":8086".
	Addr string

	// Analyzer configures the detection engine.
	Analyzer AnalyzerConfig

	// PromSource configures the remote-write ingest adapter.
	PromSource PromSourceConfig

	// Stream configures the WebSocket anomaly stream.
	Stream StreamConfig

	// Store, if non-nil, enables anomaly report persistence.
	Store *AnomalyStoreConfig

	// Notifier, if non-nil, enables webhook notification.
	Notifier *NotifierConfig
}

// DefaultServerConfig returns default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:       ":8086",
		Analyzer:   DefaultAnalyzerConfig(),
		PromSource: DefaultPromSourceConfig(),
		Stream:     DefaultStreamConfig(),
	}
}

// Server exposes the detection engine over HTTP: batch analysis, Prometheus
// remote-write ingest, persisted report listing, and a live WebSocket
// stream. Data acquisition and alert consumption stay outside the engine;
// the server is the narrow interface between them.
type Server struct {
	analyzer *Analyzer
	source   *PromSource
	hub      *StreamHub
	store    *AnomalyStore
	notifier *Notifier
	srv      *http.Server
}

// NewServer wires up the server and its collaborators.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Addr == "" {
		config.Addr = ":8086"
	}

	s := &Server{
		analyzer: NewAnalyzer(config.Analyzer),
		source:   NewPromSource(config.PromSource),
		hub:      NewStreamHub(config.Stream),
	}
	if config.Store != nil {
		store, err := NewAnomalyStore(*config.Store)
		if err != nil {
			return nil, err
		}
		s.store = store
	}
	if config.Notifier != nil {
		s.notifier = NewNotifier(*config.Notifier)
	}

	s.srv = &http.Server{
		Addr:              config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// analyzeRequest is the JSON body for POST /api/v1/analyze.
type analyzeRequest struct {
	Series []MetricSeries `json:"series"`
}

// Handler returns the HTTP handler for the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/v1/prometheus/write", s.handlePromWrite)
	mux.HandleFunc("/api/v1/prometheus/analyze", s.handlePromAnalyze)
	mux.HandleFunc("/api/v1/anomalies", s.handleListAnomalies)
	mux.HandleFunc("/api/v1/stream", s.hub.WebSocketHandler())
	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return mux
}

// handleAnalyze runs detection over a JSON batch of metric series.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report := s.analyzeBatch(r.Context(), req.Series)
	writeJSON(w, http.StatusOK, report)
}

// handlePromWrite ingests a Prometheus remote-write payload.
func (s *Server) handlePromWrite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := s.source.IngestSnappy(body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// handlePromAnalyze analyzes the current remote-write windows.
func (s *Server) handlePromAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	report := s.analyzeBatch(r.Context(), s.source.Batch(time.Now()))
	writeJSON(w, http.StatusOK, report)
}

// handleListAnomalies lists persisted anomalies.
func (s *Server) handleListAnomalies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		http.Error(w, "anomaly store not configured", http.StatusNotFound)
		return
	}

	filter := ListFilter{
		Metric:      r.URL.Query().Get("metric"),
		MinSeverity: parseSeverity(r.URL.Query().Get("severity")),
	}
	if v := r.URL.Query().Get("since"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.Since = ms
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}

	anomalies, err := s.store.List(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"anomalies": anomalies})
}

// analyzeBatch runs detection and fans the result out to the stream hub,
// the store, and the notifier. Store and webhook failures do not fail the
// analysis response; detection output is the source of truth.
func (s *Server) analyzeBatch(ctx context.Context, series []MetricSeries) AnalysisReport {
	anomalies := s.analyzer.Analyze(ctx, series)
	report := AnalysisReport{
		GeneratedAt:    time.Now().UnixMilli(),
		SeriesAnalyzed: len(series),
		Anomalies:      anomalies,
	}

	s.hub.PublishBatch(anomalies)
	if s.store != nil {
		_ = s.store.Save(ctx, anomalies)
	}
	if s.notifier != nil {
		_ = s.notifier.NotifyBatch(ctx, anomalies)
	}
	return report
}

// ListenAndServe starts the HTTP server and blocks until it stops.
func (s *Server) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Close shuts down the server and releases the store.
func (s *Server) Close(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	if s.store != nil {
		if cerr := s.store.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
