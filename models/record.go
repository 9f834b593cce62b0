// Package models defines data structures for the scraper.
package models

import "time"

// Record represents one CSV row: the outcome of a single scrape run.
// Value is nil when the counter could not be extracted from the page.
type Record struct {
	TimestampUTC time.Time `csv:"timestamp_utc" json:"timestamp_utc"`
	Value        *int      `csv:"value" json:"value"`
	URL          string    `csv:"url" json:"url"`
}

// Timestamp renders the record timestamp as ISO-8601 UTC with seconds precision.
func (r *Record) Timestamp() string {
	return r.TimestampUTC.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// RunResult holds the overall result of one pipeline run.
type RunResult struct {
	Record   *Record
	Duration time.Duration
}
