package driftwatch

import "strings"

// MetricCategory is the inferred semantic class of a metric, used to select
// detector-specific thresholds and multipliers.
type MetricCategory int

const (
	// CategoryDefault is used when no pattern matches the metric name.
	CategoryDefault MetricCategory = iota
	// CategoryLatency covers request duration and response time metrics.
	CategoryLatency
	// CategoryErrorRate covers error, failure, and exception metrics.
	CategoryErrorRate
	// CategoryThroughput covers request rate and volume metrics.
	CategoryThroughput
	// CategoryResource covers CPU, memory, and disk saturation metrics.
	CategoryResource
	// CategoryAvailability covers uptime and availability metrics.
	CategoryAvailability
)

// String returns the string representation of the category.
func (c MetricCategory) String() string {
	switch c {
	case CategoryLatency:
		return "latency"
	case CategoryErrorRate:
		return "error_rate"
	case CategoryThroughput:
		return "throughput"
	case CategoryResource:
		return "resource"
	case CategoryAvailability:
		return "availability"
	default:
		return "default"
	}
}

// categoryPattern maps a set of name substrings to a category. The table is
// ordered: the first pattern set containing a match wins.
type categoryPattern struct {
	substrings []string
	category   MetricCategory
}

// categoryPatterns is the single shared classification table. Every detector
// consults this table so classification never diverges between them.
var categoryPatterns = []categoryPattern{
	{[]string{"latency", "duration", "response_time"}, CategoryLatency},
	{[]string{"error", "failure", "5xx", "exception"}, CategoryErrorRate},
	{[]string{"throughput", "requests", "rps", "qps", "rate"}, CategoryThroughput},
	{[]string{"cpu", "memory", "disk"}, CategoryResource},
	{[]string{"availability", "uptime"}, CategoryAvailability},
}

// InferCategory classifies a metric name by case-insensitive substring match
// against the shared category table.
func InferCategory(metric string) MetricCategory {
	name := strings.ToLower(metric)
	for _, p := range categoryPatterns {
		for _, sub := range p.substrings {
			if strings.Contains(name, sub) {
				return p.category
			}
		}
	}
	return CategoryDefault
}
