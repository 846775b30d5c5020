package filter

import (
	"fmt"
	"regexp"
	"time"

	"github.com/xHacka/logstat/internal/models"
)

// Predicate reports whether a record should be aggregated. Predicates are
// pure and safe for concurrent use.
type Predicate func(models.LogRecord) bool

// Build validates f once and returns the combined time and field predicate.
func Build(f models.Filters) (Predicate, error) {
	if err := Validate(f); err != nil {
		return nil, err
	}
	preds := []Predicate{TimeRange(f.From, f.To)}
	for _, ff := range f.Fields {
		p, err := FieldMatch(ff.Field, ff.Regex)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return And(preds...), nil
}

// TimeRange accepts records whose timestamp lies within the inclusive
// bounds. A nil bound is open.
func TimeRange(from, to *time.Time) Predicate {
	return func(r models.LogRecord) bool {
		if from != nil && r.TimeLocal.Before(*from) {
			return false
		}
		if to != nil && r.TimeLocal.After(*to) {
			return false
		}
		return true
	}
}

// FieldMatch accepts records whose field value is matched by re in full.
// A substring match is not enough.
func FieldMatch(field string, re *regexp.Regexp) (Predicate, error) {
	get, err := accessor(field)
	if err != nil {
		return nil, err
	}
	if re == nil {
		return nil, fmt.Errorf("%w: missing value for filter field %q", ErrInvalidFilter, field)
	}
	full, err := regexp.Compile(`^(?:` + re.String() + `)$`)
	if err != nil {
		return nil, fmt.Errorf("%w: field %q: %v", ErrInvalidFilter, field, err)
	}
	return func(r models.LogRecord) bool {
		return full.MatchString(get(r))
	}, nil
}

// And accepts a record only if every predicate does. With no predicates it
// accepts everything.
func And(preds ...Predicate) Predicate {
	return func(r models.LogRecord) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}
}
