package models

import (
	"regexp"
	"time"
)

// Filters restricts which records are aggregated. Bounds are inclusive.
// Build one with filter.Compile; the zero value accepts everything.
type Filters struct {
	From   *time.Time
	To     *time.Time
	Fields []FieldFilter
}

// FieldFilter requires the named record field to fully match Regex.
type FieldFilter struct {
	Field string
	Regex *regexp.Regexp
}

// Summary is the finalized aggregate of one analysis run.
// Count maps carry no ordering; presentation code sorts them.
type Summary struct {
	Sources          []string       `json:"sources"`
	RemoteAddresses  map[string]int `json:"remote_addresses"`
	RemoteUsers      map[string]int `json:"remote_users"`
	RequestMethods   map[string]int `json:"request_methods"`
	RequestResources map[string]int `json:"request_resources"`
	Statuses         map[int]int    `json:"statuses"`
	// RequestsOnDate is keyed by the exact parsed timestamp in RFC 3339,
	// offset included.
	RequestsOnDate   map[string]int `json:"requests_on_date"`
	RequestsAmount   int            `json:"requests_amount"`
	IgnoredRows      int            `json:"ignored_rows"`
	AverageBytesSent int64          `json:"average_bytes_sent"`
	P95BytesSent     int64          `json:"p95_bytes_sent"`
	From             *time.Time     `json:"from,omitempty"`
	To               *time.Time     `json:"to,omitempty"`
}
