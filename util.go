package driftwatch

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
)

// HTTPDoer is an interface for making HTTP requests.
// It is implemented by *http.Client and can be mocked in tests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Validation errors
var (
	ErrInvalidMetricName = errors.New("invalid metric name")
	ErrInvalidLabelKey   = errors.New("invalid label key")
)

// metricNameRegex validates metric names: alphanumeric, underscores, dots,
// colons. Must start with a letter or underscore.
var metricNameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.:]*$`)

// labelKeyRegex validates label keys: alphanumeric and underscores.
var labelKeyRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// maxMetricNameLen is the maximum allowed metric name length
const maxMetricNameLen = 256

// maxLabelKeyLen is the maximum allowed label key length
const maxLabelKeyLen = 128

// ValidateMetricName validates a metric name on the ingest boundary.
func ValidateMetricName(name string) error {
	if name == "" || len(name) > maxMetricNameLen {
		return ErrInvalidMetricName
	}
	if !metricNameRegex.MatchString(name) {
		return ErrInvalidMetricName
	}
	return nil
}

// ValidateLabelKey validates a label key.
func ValidateLabelKey(key string) error {
	if key == "" || len(key) > maxLabelKeyLen {
		return ErrInvalidLabelKey
	}
	if !labelKeyRegex.MatchString(key) {
		return ErrInvalidLabelKey
	}
	return nil
}

// containsFold reports whether s contains substr, case-insensitively.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
