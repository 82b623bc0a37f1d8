package driftwatch

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	// SQLite driver using pure Go implementation
	_ "modernc.org/sqlite"
)

// AnomalyStoreConfig configures the SQLite anomaly report store.
type AnomalyStoreConfig struct {
	// Path to the SQLite database file.
	Path string

	// JournalMode sets the SQLite journal mode (WAL, DELETE, TRUNCATE, etc.)
	JournalMode string

	// BusyTimeout is the timeout for acquiring locks in milliseconds.
	BusyTimeout int

	// MaxConnections is the max number of database connections.
	MaxConnections int
}

// DefaultAnomalyStoreConfig returns default store configuration.
func DefaultAnomalyStoreConfig() AnomalyStoreConfig {
	return AnomalyStoreConfig{
		Path:           "driftwatch.db",
		JournalMode:    "WAL",
		BusyTimeout:    5000,
		MaxConnections: 10,
	}
}

// AnomalyStore persists ranked anomaly reports so they can be listed by the
// HTTP API after the analysis batch that produced them is gone. Storage is
// plain SQLite, so reports stay inspectable with standard tools.
type AnomalyStore struct {
	db     *sql.DB
	config AnomalyStoreConfig
	mu     sync.RWMutex
	closed bool

	insertStmt *sql.Stmt
}

// NewAnomalyStore opens (and if needed creates) an anomaly report store.
func NewAnomalyStore(config AnomalyStoreConfig) (*AnomalyStore, error) {
	if config.Path == "" {
		config.Path = "driftwatch.db"
	}
	if config.JournalMode == "" {
		config.JournalMode = "WAL"
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = 5000
	}
	if config.MaxConnections <= 0 {
		config.MaxConnections = 10
	}

	dsn := fmt.Sprintf("%s?_journal_mode=%s&_busy_timeout=%d",
		config.Path, config.JournalMode, config.BusyTimeout)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open anomaly store: %w", err)
	}
	db.SetMaxOpenConns(config.MaxConnections)
	db.SetMaxIdleConns(config.MaxConnections / 2)

	store := &AnomalyStore{db: db, config: config}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if store.insertStmt, err = db.Prepare(
		`INSERT OR REPLACE INTO anomalies
		 (id, type, severity, metric, start_time, end_time, current, baseline,
		  deviation, confidence, description, evidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return store, nil
}

func (s *AnomalyStore) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS anomalies (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			severity INTEGER NOT NULL,
			metric TEXT NOT NULL,
			start_time INTEGER NOT NULL,
			end_time INTEGER,
			current REAL NOT NULL,
			baseline REAL NOT NULL,
			deviation REAL NOT NULL,
			confidence REAL NOT NULL,
			description TEXT,
			evidence TEXT,  -- JSON encoded evidence list
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_anomalies_metric_start ON anomalies(metric, start_time);
		CREATE INDEX IF NOT EXISTS idx_anomalies_severity ON anomalies(severity);
		CREATE INDEX IF NOT EXISTS idx_anomalies_created ON anomalies(created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save persists a batch of anomalies in one transaction. The deterministic
// anomaly IDs make re-saving the same analysis output idempotent.
func (s *AnomalyStore) Save(ctx context.Context, anomalies []Anomaly) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	stmt := tx.Stmt(s.insertStmt)
	for _, a := range anomalies {
		evidence, err := json.Marshal(a.Evidence)
		if err != nil {
			return fmt.Errorf("encode evidence: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			a.ID, a.TypeName, int(a.Severity), a.Metric, a.StartTime, a.EndTime,
			a.Current, a.Baseline, a.Deviation, a.Confidence, a.Description,
			string(evidence), now); err != nil {
			return fmt.Errorf("insert anomaly %s: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

// ListFilter narrows a List call. Zero values match everything.
type ListFilter struct {
	// Metric filters to one metric name.
	Metric string
	// MinSeverity filters out anomalies below this level.
	MinSeverity Severity
	// Since filters out anomalies starting before this time (Unix ms).
	Since int64
	// Limit caps the number of returned anomalies. 0 means no cap.
	Limit int
}

// List returns stored anomalies matching the filter, ranked by severity
// descending then confidence descending like live analysis output.
func (s *AnomalyStore) List(ctx context.Context, filter ListFilter) ([]Anomaly, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	query := `SELECT id, type, severity, metric, start_time, end_time, current,
	          baseline, deviation, confidence, description, evidence
	          FROM anomalies WHERE severity >= ? AND start_time >= ?`
	args := []any{int(filter.MinSeverity), filter.Since}
	if filter.Metric != "" {
		query += " AND metric = ?"
		args = append(args, filter.Metric)
	}
	query += " ORDER BY severity DESC, confidence DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query anomalies: %w", err)
	}
	defer rows.Close()

	var result []Anomaly
	for rows.Next() {
		var a Anomaly
		var typeName, evidence string
		var severity int
		if err := rows.Scan(&a.ID, &typeName, &severity, &a.Metric, &a.StartTime,
			&a.EndTime, &a.Current, &a.Baseline, &a.Deviation, &a.Confidence,
			&a.Description, &evidence); err != nil {
			return nil, fmt.Errorf("scan anomaly: %w", err)
		}
		a.Type = parseAnomalyType(typeName)
		a.TypeName = typeName
		a.Severity = Severity(severity)
		a.SeverityStr = a.Severity.String()
		if evidence != "" && evidence != "null" {
			if err := json.Unmarshal([]byte(evidence), &a.Evidence); err != nil {
				return nil, fmt.Errorf("%w: bad evidence for %s", ErrInvalidReport, a.ID)
			}
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// Prune deletes anomalies recorded before the cutoff and returns the number
// of rows removed.
func (s *AnomalyStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrStoreClosed
	}

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM anomalies WHERE created_at < ?", before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune anomalies: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the underlying database.
func (s *AnomalyStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.insertStmt != nil {
		_ = s.insertStmt.Close()
	}
	return s.db.Close()
}

// parseAnomalyType maps a stored type name back to its enum value.
func parseAnomalyType(name string) AnomalyType {
	switch name {
	case "latency_spike":
		return AnomalyLatencySpike
	case "error_rate_increase":
		return AnomalyErrorRateIncrease
	case "throughput_drop":
		return AnomalyThroughputDrop
	case "resource_saturation":
		return AnomalyResourceSaturation
	case "availability_degradation":
		return AnomalyAvailabilityDegradation
	default:
		return AnomalyLatencySpike
	}
}
