package rule

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/domain/search/filter"
)

// Date literal suffixes for inclusive day ranges.
const (
	dayStart = "T00:00:00Z"
	dayEnd   = "T23:59:59Z"
)

var (
	rangeRe     = regexp.MustCompile(`^\s*(\S+)\s+TO\s+(\S+)\s*$`)
	yearRe      = regexp.MustCompile(`^\d{4}$`)
	yearMonthRe = regexp.MustCompile(`^\d{4}-\d{2}$`)
	dateRe      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timestampRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})$`)
)

const utcTimestamp = "2006-01-02T15:04:05.999999999Z"

// rangeBounds extracts [lo, hi] from a two-element list or a "<lo> TO <hi>" string.
// ok is false when q is empty, meaning an open existence range.
func rangeBounds(q filter.Value) (lo, hi string, ok bool, err error) {
	if q.IsEmpty() {
		return "", "", false, nil
	}
	if q.IsList() {
		vals := q.Values()
		if len(vals) != 2 {
			return "", "", false, domain.NewInvalidArgument("range expects exactly 2 values, got %d", len(vals)).
				WithValue(q.String())
		}
		return strings.TrimSpace(vals[0]), strings.TrimSpace(vals[1]), true, nil
	}
	m := rangeRe.FindStringSubmatch(q.Values()[0])
	if m == nil {
		return "", "", false, domain.NewInvalidArgument(`range must look like "<from> TO <to>"`).
			WithValue(q.String())
	}
	return m[1], m[2], true, nil
}

func numericBound(v string) (string, error) {
	if v == "*" {
		return v, nil
	}
	if _, err := strconv.ParseFloat(v, 64); err != nil {
		return "", domain.NewInvalidArgument("range bound is not a number").WithValue(v)
	}
	return v, nil
}

// numericRange compiles field:[lo TO hi] tests.
func numericRange(filters []filter.Filter, spec FieldSpec, env Env) (Partial, error) {
	fields, err := spec.Resolve(env.Languages)
	if err != nil {
		return Partial{}, err
	}
	cs := make([]clause, 0, len(filters))
	for _, f := range filters {
		lo, hi, ok, err := rangeBounds(f.Q())
		if err != nil {
			return Partial{}, err
		}
		if !ok {
			cs = append(cs, newClause(f, exists(fields)))
			continue
		}
		if lo, err = numericBound(lo); err != nil {
			return Partial{}, err
		}
		if hi, err = numericBound(hi); err != nil {
			return Partial{}, err
		}
		cs = append(cs, newClause(f, rangeExpr(fields, lo, hi)))
	}
	return Partial{Expr: joinNegatable(cs)}, nil
}

// normalizeDate turns a year, year-month, date or timestamp into a date literal.
// suffix is appended to anything shorter than a full timestamp. Timestamps with
// a numeric offset are converted to UTC.
func normalizeDate(v, suffix string) (string, error) {
	var layout, out string
	switch {
	case v == "*":
		return v, nil
	case yearRe.MatchString(v):
		layout, out = "2006", v+"-01-01"+suffix
	case yearMonthRe.MatchString(v):
		layout, out = "2006-01", v+"-01"+suffix
	case dateRe.MatchString(v):
		layout, out = "2006-01-02", v+suffix
	case timestampRe.MatchString(v):
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return "", domain.NewInvalidArgument("date is out of range").WithValue(v)
		}
		if strings.HasSuffix(v, "Z") {
			return v, nil
		}
		return t.UTC().Format(utcTimestamp), nil
	default:
		return "", domain.NewInvalidArgument("unsupported date format, expected YYYY, YYYY-MM, YYYY-MM-DD or a timestamp").
			WithValue(v)
	}
	if _, err := time.Parse(layout, v); err != nil {
		return "", domain.NewInvalidArgument("date is out of range").WithValue(v)
	}
	return out, nil
}

// dateRange compiles inclusive date ranges. Each filter keeps its own negation.
func dateRange(filters []filter.Filter, spec FieldSpec, env Env) (Partial, error) {
	fields, err := spec.Resolve(env.Languages)
	if err != nil {
		return Partial{}, err
	}
	cs := make([]clause, 0, len(filters))
	for _, f := range filters {
		lo, hi, ok, err := rangeBounds(f.Q())
		if err != nil {
			return Partial{}, err
		}
		if !ok {
			cs = append(cs, newClause(f, exists(fields)))
			continue
		}
		if lo, err = normalizeDate(lo, dayStart); err != nil {
			return Partial{}, err
		}
		if hi, err = normalizeDate(hi, dayEnd); err != nil {
			return Partial{}, err
		}
		cs = append(cs, newClause(f, rangeExpr(fields, lo, hi)))
	}
	return Partial{Expr: joinNegatable(cs)}, nil
}

func rangeExpr(fields []string, lo, hi string) string {
	bounds := "[" + lo + " TO " + hi + "]"
	return anyField(fields, bounds, func(f, b string) string { return f + ":" + b })
}
