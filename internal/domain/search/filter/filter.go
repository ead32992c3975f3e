package filter

import (
	"strings"

	"github.com/kailas-cloud/archivist/internal/domain"
)

// Context is the polarity of a filter.
type Context string

// Filter contexts.
const (
	Include Context = "include"
	Exclude Context = "exclude"
)

// Op combines the values of a filter.
type Op string

// Filter operators.
const (
	OR  Op = "OR"
	AND Op = "AND"
)

// Precision selects how free text is matched.
type Precision string

// Precision values. Only meaningful for free-text rules.
const (
	PrecisionNone  Precision = ""
	PrecisionExact Precision = "exact"
	PrecisionFuzzy Precision = "fuzzy"
	PrecisionSoft  Precision = "soft"
)

// Value is the q of a filter: absent, a single string or a list of strings.
type Value struct {
	values []string
	list   bool
}

// Absent is the zero Value. It matches any value of the field.
func Absent() Value { return Value{} }

// Scalar wraps a single string.
func Scalar(s string) Value { return Value{values: []string{s}} }

// List wraps a list of strings.
func List(ss ...string) Value {
	return Value{values: append([]string(nil), ss...), list: true}
}

// Values returns all values. Absent yields nil.
func (v Value) Values() []string { return v.values }

// IsList reports whether q was given as a list.
func (v Value) IsList() bool { return v.list }

// IsEmpty reports whether there is no usable value: absent, an empty list,
// or only blank strings.
func (v Value) IsEmpty() bool {
	for _, s := range v.values {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

// NonBlank returns the values with blank strings dropped.
func (v Value) NonBlank() []string {
	out := make([]string, 0, len(v.values))
	for _, s := range v.values {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// String renders the value for error messages.
func (v Value) String() string {
	if v.list {
		return "[" + strings.Join(v.values, ",") + "]"
	}
	if len(v.values) == 0 {
		return ""
	}
	return v.values[0]
}

// Filter is a normalized, index-agnostic search criterion.
type Filter struct {
	typ       string
	context   Context
	op        Op
	precision Precision
	q         Value
}

// New validates and creates a Filter. Empty context and op default to include and OR.
func New(typ string, c Context, op Op, p Precision, q Value) (Filter, error) {
	if typ == "" {
		return Filter{}, domain.NewInvalidArgument("filter type is required")
	}
	if c == "" {
		c = Include
	}
	if c != Include && c != Exclude {
		return Filter{}, domain.NewInvalidArgument("unknown filter context %q", c).WithType(typ)
	}
	if op == "" {
		op = OR
	}
	op = Op(strings.ToUpper(string(op)))
	if op != OR && op != AND {
		return Filter{}, domain.NewInvalidArgument("unknown filter op %q", op).WithType(typ)
	}
	switch p {
	case PrecisionNone, PrecisionExact, PrecisionFuzzy, PrecisionSoft:
	default:
		return Filter{}, domain.NewInvalidArgument("unknown filter precision %q", p).WithType(typ)
	}
	return Filter{typ: typ, context: c, op: op, precision: p, q: q}, nil
}

// MustNew is New for literals in tests and static tables. It panics on error.
func MustNew(typ string, c Context, op Op, p Precision, q Value) Filter {
	f, err := New(typ, c, op, p, q)
	if err != nil {
		panic(err)
	}
	return f
}

// Type returns the filter type.
func (f Filter) Type() string { return f.typ }

// Context returns the filter polarity.
func (f Filter) Context() Context { return f.context }

// Op returns the value combinator.
func (f Filter) Op() Op { return f.op }

// Precision returns the free-text precision.
func (f Filter) Precision() Precision { return f.precision }

// Q returns the filter value.
func (f Filter) Q() Value { return f.q }

// IsExcluded reports whether the filter is negated.
func (f Filter) IsExcluded() bool { return f.context == Exclude }
