package rule

import (
	"errors"
	"strings"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/domain/search/filter"
)

// MatchAll is the universal match-all expression.
const MatchAll = "*:*"

// Apply compiles a group of filters sharing one type with rule r.
// Every returned error is a *domain.InvalidArgumentError carrying the filter
// type and namespace.
func Apply(r Rule, filters []filter.Filter, spec FieldSpec, env Env) (Partial, error) {
	if len(filters) == 0 {
		return Partial{}, domain.NewInvalidArgument("no filters to compile").WithNamespace(env.Namespace)
	}

	var (
		p   Partial
		err error
	)
	switch r {
	case MinLengthOne:
		p, err = minLengthOne(filters, spec)
	case Boolean:
		p, err = booleanFlag(filters, spec, env)
	case Value:
		p, err = values(filters, spec, env, plainValue)
	case IDValue:
		p, err = values(filters, spec, env, idValue)
	case CapitalisedValue:
		p, err = values(filters, spec, env, capitalisedValue)
	case NumericRange:
		p, err = numericRange(filters, spec, env)
	case DateRange:
		p, err = dateRange(filters, spec, env)
	case String:
		p, err = text(filters, spec, env)
	case Regex:
		p, err = regex(filters, spec, env)
	case OpenEndedString:
		p, err = openEndedString(filters, spec, env)
	case EmbeddingKnnSimilarity:
		p, err = knnSimilarity(filters, env)
	case JoinCollection:
		p, err = joinCollection(filters, spec, env)
	case Noop:
		p = Partial{Expr: MatchAll}
	default:
		err = domain.NewInvalidArgument("unknown rule %s", r)
	}
	if err != nil {
		return Partial{}, annotate(err, filters[0].Type(), env.Namespace)
	}
	return p, nil
}

func annotate(err error, typ, ns string) error {
	var iae *domain.InvalidArgumentError
	if !errors.As(err, &iae) {
		iae = domain.NewInvalidArgument("%s", err.Error())
	}
	if iae.Type == "" {
		iae = iae.WithType(typ)
	}
	if iae.Namespace == "" {
		iae = iae.WithNamespace(ns)
	}
	return iae
}

// clause is the expression of one filter together with its polarity.
type clause struct {
	expr    string
	exclude bool
}

func newClause(f filter.Filter, expr string) clause {
	return clause{expr: expr, exclude: f.IsExcluded()}
}

// groupOp is the combinator of a same-type group: the op of its first filter.
func groupOp(filters []filter.Filter) filter.Op {
	if len(filters) == 0 {
		return filter.OR
	}
	return filters[0].Op()
}

// joinAnchored combines the clauses of one filter type. Included clauses are
// joined by op and take the place of the first of them; excluded clauses are
// always AND'ed. An excluded clause in first position is anchored with a
// leading match-all so that negation is never the sole predicate; later
// excluded clauses are a bare NOT (...).
func joinAnchored(cs []clause, op filter.Op) string {
	if op == filter.OR {
		var included []string
		for _, c := range cs {
			if !c.exclude {
				included = append(included, c.expr)
			}
		}
		if len(included) > 1 {
			if len(included) == len(cs) {
				return strings.Join(included, " OR ")
			}
			cs = collapseIncluded(cs, group(included, " OR "))
		}
	}

	parts := make([]string, len(cs))
	for i, c := range cs {
		switch {
		case !c.exclude:
			parts[i] = c.expr
		case i == 0:
			parts[i] = MatchAll + " AND NOT (" + c.expr + ")"
		default:
			parts[i] = "NOT (" + c.expr + ")"
		}
	}
	return strings.Join(parts, " AND ")
}

// collapseIncluded replaces the included clauses with one clause holding expr,
// placed where the first included clause was.
func collapseIncluded(cs []clause, expr string) []clause {
	out := make([]clause, 0, len(cs))
	placed := false
	for _, c := range cs {
		if c.exclude {
			out = append(out, c)
			continue
		}
		if !placed {
			out = append(out, clause{expr: expr})
			placed = true
		}
	}
	return out
}

// joinNegatable ANDs clauses that each keep their own negation.
// A group made of one excluded clause yields "NOT <expr>", which the
// assembler scopes as NOT filter(<expr>). <expr> must be a single clause.
func joinNegatable(cs []clause) string {
	if len(cs) == 1 && cs[0].exclude {
		return "NOT " + cs[0].expr
	}
	parts := make([]string, len(cs))
	for i, c := range cs {
		switch {
		case !c.exclude:
			parts[i] = c.expr
		case i == 0:
			parts[i] = MatchAll + " AND NOT " + c.expr
		default:
			parts[i] = "NOT " + c.expr
		}
	}
	return strings.Join(parts, " AND ")
}

// group joins parts with sep, parenthesised when there is more than one.
func group(parts []string, sep string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// anyField ORs the term for one value across all fields.
func anyField(fields []string, v string, term func(field, value string) string) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = term(f, v)
	}
	return group(parts, " OR ")
}

// combineValues matches several values across several fields.
// OR flattens everything into one disjunction; AND requires every value
// to match in at least one field.
func combineValues(fields, vals []string, op filter.Op, term func(field, value string) string) string {
	if len(vals) == 1 {
		return anyField(fields, vals[0], term)
	}
	if op == filter.AND {
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = anyField(fields, v, term)
		}
		return group(parts, " AND ")
	}
	parts := make([]string, 0, len(fields)*len(vals))
	for _, v := range vals {
		for _, f := range fields {
			parts = append(parts, term(f, v))
		}
	}
	return group(parts, " OR ")
}

// exists is the "field has any value" test across fields.
func exists(fields []string) string {
	return anyField(fields, "*", func(f, _ string) string { return f + ":*" })
}
