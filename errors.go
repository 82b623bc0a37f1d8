package driftwatch

import (
	"errors"
	"fmt"
)

// Common sentinel errors for the driftwatch package. The detection path
// itself never returns errors; these cover the surrounding ingest, store,
// and archive plumbing.
var (
	// ErrStoreClosed is returned when operations are attempted on a closed
	// anomaly store.
	ErrStoreClosed = errors.New("anomaly store is closed")

	// ErrArchiveUpload is returned when archiving a report fails after all
	// retry attempts.
	ErrArchiveUpload = errors.New("archive upload failed")

	// ErrInvalidReport is returned when a persisted or exported report
	// cannot be decoded.
	ErrInvalidReport = errors.New("invalid anomaly report")
)

// IngestErrorType categorizes ingest failures.
type IngestErrorType int

const (
	// IngestErrorTypeUnknown is an unclassified ingest error.
	IngestErrorTypeUnknown IngestErrorType = iota
	// IngestErrorTypeDecode indicates the payload could not be decoded.
	IngestErrorTypeDecode
	// IngestErrorTypeValidation indicates a metric failed name validation.
	IngestErrorTypeValidation
)

// IngestError provides detailed information about ingest failures on the
// remote-write boundary.
type IngestError struct {
	Type    IngestErrorType
	Message string
	Metric  string
	Cause   error
}

func (e *IngestError) Error() string {
	if e.Metric != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s [%s]: %v", e.Message, e.Metric, e.Cause)
		}
		return fmt.Sprintf("%s [%s]", e.Message, e.Metric)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *IngestError) Unwrap() error {
	return e.Cause
}

// newIngestError creates a new IngestError.
func newIngestError(errType IngestErrorType, message, metric string, cause error) *IngestError {
	return &IngestError{
		Type:    errType,
		Message: message,
		Metric:  metric,
		Cause:   cause,
	}
}
