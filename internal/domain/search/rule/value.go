package rule

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/domain/search/escape"
	"github.com/kailas-cloud/archivist/internal/domain/search/filter"
)

// valueEncoder turns a raw value into a query-safe term.
type valueEncoder func(v string) string

// plainValue escapes reserved characters. Values containing whitespace are
// matched as a quoted phrase so the spaces cannot split them into operators.
func plainValue(v string) string {
	if strings.IndexFunc(v, unicode.IsSpace) >= 0 {
		return `"` + escape.Quoted(v) + `"`
	}
	return escape.Reserved(v)
}

// idValue round-trips through the ID codec; callers may send either form.
func idValue(v string) string {
	return escape.ID(escape.UnescapeID(v))
}

func capitalisedValue(v string) string {
	return plainValue(capitalise(v))
}

func capitalise(v string) string {
	r, size := utf8.DecodeRuneInString(v)
	if r == utf8.RuneError {
		return v
	}
	return string(unicode.ToUpper(r)) + v[size:]
}

// values implements the value, idValue and capitalisedValue rules.
func values(filters []filter.Filter, spec FieldSpec, env Env, enc valueEncoder) (Partial, error) {
	fields, err := spec.Resolve(env.Languages)
	if err != nil {
		return Partial{}, err
	}
	term := func(f, v string) string { return f + ":" + enc(v) }

	cs := make([]clause, 0, len(filters))
	for _, f := range filters {
		vals := f.Q().NonBlank()
		if len(vals) == 0 {
			cs = append(cs, newClause(f, exists(fields)))
			continue
		}
		cs = append(cs, newClause(f, combineValues(fields, vals, f.Op(), term)))
	}
	return Partial{Expr: joinAnchored(cs, groupOp(filters))}, nil
}

// minLengthOne tests that a single field holds at least one token.
func minLengthOne(filters []filter.Filter, spec FieldSpec) (Partial, error) {
	field, ok := spec.Single()
	if !ok {
		return Partial{}, domain.NewInvalidArgument("rule %s requires a single field, got %s", MinLengthOne, spec)
	}
	cs := make([]clause, len(filters))
	for i, f := range filters {
		cs[i] = newClause(f, field+":[1 TO *]")
	}
	return Partial{Expr: joinNegatable(cs)}, nil
}

// booleanFlag tests that the field is set to true, stored as 1.
func booleanFlag(filters []filter.Filter, spec FieldSpec, env Env) (Partial, error) {
	fields, err := spec.Resolve(env.Languages)
	if err != nil {
		return Partial{}, err
	}
	expr := anyField(fields, "1", func(f, v string) string { return f + ":" + v })
	cs := make([]clause, len(filters))
	for i, f := range filters {
		cs[i] = newClause(f, expr)
	}
	return Partial{Expr: joinNegatable(cs)}, nil
}
