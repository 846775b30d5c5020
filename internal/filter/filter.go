// Package filter validates filter configuration and compiles it into a
// predicate over log records.
package filter

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/xHacka/logstat/internal/models"
)

var (
	ErrInvalidFilter = errors.New("invalid filter configuration")
	ErrUnknownField  = fmt.Errorf("%w: unknown filter field", ErrInvalidFilter)
)

// Filterable record fields.
const (
	FieldAddress     = "address"
	FieldUser        = "user"
	FieldMethod      = "method"
	FieldResource    = "resource"
	FieldHTTPVersion = "http-version"
	FieldStatus      = "status"
	FieldReferer     = "referer"
	FieldUserAgent   = "user-agent"
)

var accessors = map[string]func(models.LogRecord) string{
	FieldAddress:     func(r models.LogRecord) string { return r.RemoteAddr },
	FieldUser:        func(r models.LogRecord) string { return r.RemoteUser },
	FieldMethod:      func(r models.LogRecord) string { return r.Method },
	FieldResource:    func(r models.LogRecord) string { return r.Resource },
	FieldHTTPVersion: func(r models.LogRecord) string { return r.Protocol },
	FieldStatus:      func(r models.LogRecord) string { return strconv.Itoa(r.Status) },
	FieldReferer:     func(r models.LogRecord) string { return r.Referer },
	FieldUserAgent:   func(r models.LogRecord) string { return r.UserAgent },
}

// aliases keeps the older parser group names working.
var aliases = map[string]string{
	"http":      FieldHTTPVersion,
	"userAgent": FieldUserAgent,
}

// Fields returns the accepted field names, sorted.
func Fields() []string {
	names := make([]string, 0, len(accessors))
	for name := range accessors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func accessor(field string) (func(models.LogRecord) string, error) {
	if canonical, ok := aliases[field]; ok {
		field = canonical
	}
	fn, ok := accessors[field]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownField, field)
	}
	return fn, nil
}

// Config is raw filter input as it arrives from the CLI, the HTTP API or
// storage. Field/Value is the single-filter form; Fields holds any number
// of additional field → regex pairs.
type Config struct {
	From   *time.Time        `json:"from,omitempty"`
	To     *time.Time        `json:"to,omitempty"`
	Field  string            `json:"field,omitempty"`
	Value  string            `json:"value,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Compile validates c and compiles its regular expressions. Every failure
// wraps ErrInvalidFilter.
func Compile(c Config) (models.Filters, error) {
	f := models.Filters{From: c.From, To: c.To}

	switch {
	case c.Field != "" && c.Value == "":
		return models.Filters{}, fmt.Errorf("%w: missing value for filter field %q", ErrInvalidFilter, c.Field)
	case c.Field == "" && c.Value != "":
		return models.Filters{}, fmt.Errorf("%w: missing filter field for value %q", ErrInvalidFilter, c.Value)
	}

	pairs := make(map[string]string, len(c.Fields)+1)
	for k, v := range c.Fields {
		pairs[k] = v
	}
	if c.Field != "" {
		if prev, ok := pairs[c.Field]; ok && prev != c.Value {
			return models.Filters{}, fmt.Errorf("%w: conflicting values for filter field %q", ErrInvalidFilter, c.Field)
		}
		pairs[c.Field] = c.Value
	}

	names := make([]string, 0, len(pairs))
	for name := range pairs {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		expr := pairs[name]
		if expr == "" {
			return models.Filters{}, fmt.Errorf("%w: missing value for filter field %q", ErrInvalidFilter, name)
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return models.Filters{}, fmt.Errorf("%w: field %q: %v", ErrInvalidFilter, name, err)
		}
		f.Fields = append(f.Fields, models.FieldFilter{Field: name, Regex: re})
	}

	if err := Validate(f); err != nil {
		return models.Filters{}, err
	}
	return f, nil
}

// Validate checks the time bounds and field names of f.
func Validate(f models.Filters) error {
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return fmt.Errorf("%w: from %s is after to %s", ErrInvalidFilter,
			f.From.Format(time.RFC3339), f.To.Format(time.RFC3339))
	}
	for _, ff := range f.Fields {
		if _, err := accessor(ff.Field); err != nil {
			return err
		}
		if ff.Regex == nil {
			return fmt.Errorf("%w: missing value for filter field %q", ErrInvalidFilter, ff.Field)
		}
	}
	return nil
}
