package driftwatch

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/golang/snappy"
)

// AnalysisReport is the serializable result of one analysis batch, ready
// for an alerting or audit consumer.
type AnalysisReport struct {
	// GeneratedAt is the report creation time in Unix milliseconds.
	GeneratedAt int64 `json:"generated_at"`
	// SeriesAnalyzed is the number of input series in the batch.
	SeriesAnalyzed int `json:"series_analyzed"`
	// Anomalies is the ranked detection output.
	Anomalies []Anomaly `json:"anomalies"`
}

// ExportFormat defines the output format for report export.
type ExportFormat int

const (
	// ExportFormatJSON exports the report as a single JSON document.
	ExportFormatJSON ExportFormat = iota
	// ExportFormatCSV exports the anomaly list as CSV rows.
	ExportFormatCSV
)

// ExportConfig configures report export operations.
type ExportConfig struct {
	// Format is the output format.
	Format ExportFormat

	// Compression enables snappy block compression of the payload.
	Compression bool

	// EncryptionPassword, when set, encrypts the payload with AES-256-GCM
	// using a key derived from the password. Applied after compression.
	EncryptionPassword string

	// IncludeHeaders includes column headers (CSV).
	IncludeHeaders bool
}

// WriteReport writes a report to w in the configured format.
func WriteReport(w io.Writer, report AnalysisReport, cfg ExportConfig) error {
	var payload []byte
	var err error

	switch cfg.Format {
	case ExportFormatCSV:
		payload, err = marshalCSV(report, cfg.IncludeHeaders)
	default:
		payload, err = json.Marshal(report)
	}
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if cfg.Compression {
		payload = snappy.Encode(nil, payload)
	}

	if cfg.EncryptionPassword != "" {
		enc, err := newReportEncryptor(cfg.EncryptionPassword)
		if err != nil {
			return err
		}
		payload, err = enc.encrypt(payload)
		if err != nil {
			return err
		}
		if err := writeEncryptedHeader(w, enc.salt); err != nil {
			return err
		}
	}

	_, err = w.Write(payload)
	return err
}

// ReadReport reads a JSON report written by WriteReport with the same
// compression and encryption settings. CSV exports are one-way.
func ReadReport(r io.Reader, cfg ExportConfig) (AnalysisReport, error) {
	var report AnalysisReport

	var payload []byte
	var err error
	if cfg.EncryptionPassword != "" {
		salt, err := readEncryptedHeader(r)
		if err != nil {
			return report, fmt.Errorf("%w: %v", ErrInvalidReport, err)
		}
		enc, err := newReportEncryptorWithSalt(cfg.EncryptionPassword, salt)
		if err != nil {
			return report, err
		}
		ciphertext, err := io.ReadAll(r)
		if err != nil {
			return report, err
		}
		payload, err = enc.decrypt(ciphertext)
		if err != nil {
			return report, fmt.Errorf("%w: %v", ErrInvalidReport, err)
		}
	} else {
		payload, err = io.ReadAll(r)
		if err != nil {
			return report, err
		}
	}

	if cfg.Compression {
		payload, err = snappy.Decode(nil, payload)
		if err != nil {
			return report, fmt.Errorf("%w: %v", ErrInvalidReport, err)
		}
	}

	if err := json.Unmarshal(payload, &report); err != nil {
		return report, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	return report, nil
}

// csvColumns is the fixed column layout for CSV exports.
var csvColumns = []string{
	"id", "type", "severity", "metric", "start_time", "end_time",
	"current", "baseline", "deviation", "confidence", "description",
}

func marshalCSV(report AnalysisReport, headers bool) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if headers {
		if err := w.Write(csvColumns); err != nil {
			return nil, err
		}
	}
	for _, a := range report.Anomalies {
		row := []string{
			a.ID,
			a.TypeName,
			a.SeverityStr,
			a.Metric,
			strconv.FormatInt(a.StartTime, 10),
			strconv.FormatInt(a.EndTime, 10),
			strconv.FormatFloat(a.Current, 'f', -1, 64),
			strconv.FormatFloat(a.Baseline, 'f', -1, 64),
			strconv.FormatFloat(a.Deviation, 'f', -1, 64),
			strconv.FormatFloat(a.Confidence, 'f', -1, 64),
			a.Description,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
