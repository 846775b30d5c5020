package models

import "time"

// LogRecord is one access-log line in the combined format.
// Absent user, referer and user agent are kept as "-".
type LogRecord struct {
	RemoteAddr string    `json:"remote_addr"`
	RemoteUser string    `json:"remote_user"`
	TimeLocal  time.Time `json:"time_local"` // offset from the log line is preserved
	Method     string    `json:"method"`
	Resource   string    `json:"resource"`
	Protocol   string    `json:"protocol"`
	Status     int       `json:"status"`
	BytesSent  int64     `json:"bytes_sent"`
	Referer    string    `json:"referer"`
	UserAgent  string    `json:"user_agent"`
}

// Result is the outcome of parsing a single line: a record, or an ignored
// line that carries nothing. The zero value is an ignored line.
type Result struct {
	record LogRecord
	ok     bool
}

// Parsed wraps a successfully parsed record.
func Parsed(r LogRecord) Result {
	return Result{record: r, ok: true}
}

// Ignored returns the result for a line that did not match the grammar.
func Ignored() Result {
	return Result{}
}

// Record returns the parsed record and true, or false for an ignored line.
func (r Result) Record() (LogRecord, bool) {
	return r.record, r.ok
}

func (r Result) IsIgnored() bool {
	return !r.ok
}
