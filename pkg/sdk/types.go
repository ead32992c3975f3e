package archivist

import (
	"github.com/kailas-cloud/archivist/internal/domain/search/filter"
	"github.com/kailas-cloud/archivist/internal/domain/search/query"
	compileuc "github.com/kailas-cloud/archivist/internal/usecase/compile"
)

// Filter is one search criterion. It decodes from and encodes to the same
// JSON shape the HTTP API accepts.
type Filter = filter.Filter

// Value is the q of a filter.
type Value = filter.Value

// Context is the polarity of a filter.
type Context = filter.Context

// Op combines the values of a filter.
type Op = filter.Op

// Precision selects how free text is matched.
type Precision = filter.Precision

// Filter contexts, operators and precisions.
const (
	Include = filter.Include
	Exclude = filter.Exclude

	OR  = filter.OR
	AND = filter.AND

	PrecisionExact = filter.PrecisionExact
	PrecisionFuzzy = filter.PrecisionFuzzy
	PrecisionSoft  = filter.PrecisionSoft
)

// Compiled is a compiled search query: the scored query, the unscored filter
// clauses and extra request parameters.
type Compiled = query.Compiled

// Absent returns a value that matches any value of the field.
func Absent() Value { return filter.Absent() }

// Scalar wraps a single string value.
func Scalar(s string) Value { return filter.Scalar(s) }

// List wraps a list of string values.
func List(ss ...string) Value { return filter.List(ss...) }

// NewFilter validates and builds a filter with the default OR operator.
func NewFilter(typ string, c Context, q Value) (Filter, error) {
	return filter.New(typ, c, "", "", q)
}

// NewFilterWith is NewFilter with an explicit operator and precision.
func NewFilterWith(typ string, c Context, op Op, p Precision, q Value) (Filter, error) {
	return filter.New(typ, c, op, p, q)
}

// MustFilter is NewFilter that panics on error.
func MustFilter(typ string, c Context, q Value) Filter {
	return filter.MustNew(typ, c, "", "", q)
}

// FilterType describes one filter type accepted by a namespace.
type FilterType struct {
	Type   string
	Rule   string
	Field  string
	Scored bool
}

// Namespace describes what a namespace accepts.
type Namespace struct {
	Name            string
	FilterTypes     []FilterType
	EmbeddingModels []string
	KnnTopK         int
	Join            bool
}

func namespaceFromDomain(d compileuc.Description) Namespace {
	types := make([]FilterType, len(d.FilterTypes))
	for i, ft := range d.FilterTypes {
		types[i] = FilterType{Type: ft.Type, Rule: ft.Rule, Field: ft.Field, Scored: ft.Scored}
	}
	return Namespace{
		Name:            string(d.Namespace),
		FilterTypes:     types,
		EmbeddingModels: d.EmbeddingModels,
		KnnTopK:         d.KnnTopK,
		Join:            d.Join,
	}
}
