package rule

import (
	"regexp"
	"strings"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/domain/search/escape"
	"github.com/kailas-cloud/archivist/internal/domain/search/filter"
)

// HighlightParam is the param holding the free-text expression used for highlighting.
const HighlightParam = "hl.q"

var (
	quotedFuzzyRe = regexp.MustCompile(`^"(.+)"~(\d+)$`)
	quotedRe      = regexp.MustCompile(`^"(.+)"$`)
	fuzzyRe       = regexp.MustCompile(`^(.+?)\s*~(\d+)$`)
)

func phrase(v string) string {
	return `"` + escape.Quoted(v) + `"`
}

func isOperator(t string) bool {
	return t == "AND" || t == "OR" || t == "NOT"
}

// bareTerm escapes one unquoted token. Boolean operators and tokens holding a
// double quote are matched as one-word phrases.
func bareTerm(t string) string {
	if isOperator(t) || strings.ContainsRune(t, '"') {
		return phrase(t)
	}
	return escape.Reserved(t)
}

// prefixTerm escapes one token of a prefix query, where phrases do not apply.
func prefixTerm(t string) string {
	if isOperator(t) {
		return strings.ToLower(t)
	}
	return escape.Quoted(t)
}

// textTerm picks the match form of a free-text value. Explicit syntax in the
// value wins over the precision flag.
func textTerm(v string, p filter.Precision) string {
	v = strings.TrimSpace(v)
	if m := quotedFuzzyRe.FindStringSubmatch(v); m != nil {
		return phrase(m[1]) + "~" + m[2]
	}
	if m := quotedRe.FindStringSubmatch(v); m != nil {
		return phrase(m[1])
	}
	if m := fuzzyRe.FindStringSubmatch(v); m != nil {
		return phrase(m[1]) + "~" + m[2]
	}

	switch p {
	case filter.PrecisionExact:
		return phrase(v)
	case filter.PrecisionFuzzy:
		return phrase(v) + "~1"
	case filter.PrecisionSoft:
		tokens := strings.Fields(v)
		for i, t := range tokens {
			tokens[i] = bareTerm(t)
		}
		return group(tokens, " OR ")
	}

	if len(strings.Fields(v)) > 1 {
		return phrase(v)
	}
	return bareTerm(v)
}

// text implements the free-text rule over one or more (language) fields.
func text(filters []filter.Filter, spec FieldSpec, env Env) (Partial, error) {
	fields, err := spec.Resolve(env.Languages)
	if err != nil {
		return Partial{}, err
	}

	cs := make([]clause, 0, len(filters))
	var positive []string
	for _, f := range filters {
		vals := f.Q().NonBlank()
		if len(vals) == 0 {
			cs = append(cs, newClause(f, exists(fields)))
			continue
		}
		precision := f.Precision()
		term := func(field, v string) string { return field + ":" + textTerm(v, precision) }
		expr := combineValues(fields, vals, f.Op(), term)
		cs = append(cs, newClause(f, expr))
		if !f.IsExcluded() {
			positive = append(positive, expr)
		}
	}

	op := groupOp(filters)
	p := Partial{Expr: joinAnchored(cs, op)}
	if len(positive) > 0 {
		hl := strings.Join(positive, " AND ")
		if op == filter.OR {
			hl = group(positive, " OR ")
		}
		p.Params = map[string]any{HighlightParam: hl}
	}
	return p, nil
}

// regexPattern returns a /delimited/ pattern with inner slashes escaped.
func regexPattern(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && v[0] == '/' && v[len(v)-1] == '/' {
		v = v[1 : len(v)-1]
	}
	if v == "" {
		return "/.*/"
	}
	var b strings.Builder
	b.WriteByte('/')
	escaped := false
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c == '/' && !escaped {
			b.WriteByte('\\')
		}
		escaped = c == '\\' && !escaped
		b.WriteByte(c)
	}
	b.WriteByte('/')
	return b.String()
}

// regex matches a single pattern per filter, OR'ed across fields.
func regex(filters []filter.Filter, spec FieldSpec, env Env) (Partial, error) {
	fields, err := spec.Resolve(env.Languages)
	if err != nil {
		return Partial{}, err
	}
	cs := make([]clause, 0, len(filters))
	for _, f := range filters {
		vals := f.Q().Values()
		if len(vals) > 1 {
			return Partial{}, domain.NewInvalidArgument("regex accepts at most one pattern, got %d", len(vals)).
				WithValue(f.Q().String())
		}
		pattern := "/.*/"
		if len(vals) == 1 {
			pattern = regexPattern(vals[0])
		}
		cs = append(cs, newClause(f, anyField(fields, pattern, func(fd, p string) string { return fd + ":" + p })))
	}
	return Partial{Expr: joinAnchored(cs, groupOp(filters))}, nil
}

// openEndedString supports search-as-you-type: every token but the last must
// match exactly, the last one is a prefix.
func openEndedString(filters []filter.Filter, spec FieldSpec, env Env) (Partial, error) {
	fields, err := spec.Resolve(env.Languages)
	if err != nil {
		return Partial{}, err
	}
	cs := make([]clause, 0, len(filters))
	for _, f := range filters {
		tokens := strings.Fields(strings.Join(f.Q().Values(), " "))
		if len(tokens) == 0 {
			cs = append(cs, newClause(f, exists(fields)))
			continue
		}
		for i, t := range tokens {
			tokens[i] = prefixTerm(t)
		}
		last := len(tokens) - 1
		if !strings.HasSuffix(tokens[last], "*") {
			tokens[last] += "*"
		}
		perField := make([]string, len(fields))
		for i, fd := range fields {
			terms := make([]string, len(tokens))
			for j, t := range tokens {
				terms[j] = fd + ":" + t
			}
			perField[i] = group(terms, " AND ")
		}
		cs = append(cs, newClause(f, group(perField, " OR ")))
	}
	return Partial{Expr: joinAnchored(cs, groupOp(filters))}, nil
}
