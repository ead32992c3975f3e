// Package query assembles rule partials into a compiled search query.
package query

import (
	"strings"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/domain/search/filter"
	"github.com/kailas-cloud/archivist/internal/domain/search/namespace"
	"github.com/kailas-cloud/archivist/internal/domain/search/rule"
)

// Resolver looks up filter bindings and namespace settings.
type Resolver interface {
	Resolve(ns namespace.Namespace, typ string) (rule.Binding, error)
	Env(ns namespace.Namespace) (rule.Env, error)
}

// scoredTypes contribute to relevance ranking. Every other type becomes an
// unscored filter clause.
var scoredTypes = map[string]bool{
	"uid":       true,
	"id":        true,
	"string":    true,
	"title":     true,
	"embedding": true,
}

// IsScored reports whether filters of type typ are placed in the scored query.
func IsScored(typ string) bool { return scoredTypes[typ] }

// Group describes how one filter type was compiled.
type Group struct {
	Type    string
	Rule    rule.Rule
	Filters int
	Scored  bool
}

// Compiled is the output handed to the search request builder.
type Compiled struct {
	Query  string         `json:"query"`
	Filter []string       `json:"filter"`
	Params map[string]any `json:"params"`
	Groups []Group        `json:"-"`
}

// Compiler turns filter lists into compiled queries. It holds no state of its
// own and is safe for concurrent use.
type Compiler struct {
	resolver Resolver
}

// NewCompiler creates a compiler over a rule registry.
func NewCompiler(r Resolver) *Compiler {
	return &Compiler{resolver: r}
}

// Compile groups filters by type in order of first appearance, compiles each
// group with the rule bound in namespace ns and routes the result to the
// scored query or the filter list. Either the whole call succeeds or it
// returns a *domain.InvalidArgumentError.
func (c *Compiler) Compile(ns namespace.Namespace, filters []filter.Filter) (Compiled, error) {
	env, err := c.resolver.Env(ns)
	if err != nil {
		return Compiled{}, err
	}

	out := Compiled{
		Filter: []string{},
		Params: map[string]any{},
	}
	var scored []string
	for _, g := range groupByType(filters) {
		typ := g[0].Type()
		p, b, err := c.apply(ns, env, typ, g)
		if err != nil {
			return Compiled{}, err
		}
		isScored := IsScored(typ)
		out.Groups = append(out.Groups, Group{Type: typ, Rule: b.Rule, Filters: len(g), Scored: isScored})
		mergeParams(out.Params, p.Params)

		if p.Expr == rule.MatchAll {
			continue
		}
		if isScored {
			scored = append(scored, p.Expr)
		} else {
			out.Filter = append(out.Filter, wrapFilter(p.Expr))
		}
	}
	out.Query = joinScored(scored)
	return out, nil
}

// CompileGroup compiles filters that must all share one type.
func (c *Compiler) CompileGroup(ns namespace.Namespace, filters []filter.Filter) (rule.Partial, error) {
	if len(filters) == 0 {
		return rule.Partial{}, domain.NewInvalidArgument("no filters to compile").WithNamespace(string(ns))
	}
	typ := filters[0].Type()
	for _, f := range filters[1:] {
		if f.Type() != typ {
			return rule.Partial{}, domain.NewInvalidArgument("mixed filter types %q and %q in one group", typ, f.Type()).
				WithNamespace(string(ns)).
				WithType(typ)
		}
	}
	env, err := c.resolver.Env(ns)
	if err != nil {
		return rule.Partial{}, err
	}
	p, _, err := c.apply(ns, env, typ, filters)
	return p, err
}

func (c *Compiler) apply(
	ns namespace.Namespace, env rule.Env, typ string, filters []filter.Filter,
) (rule.Partial, rule.Binding, error) {
	b, err := c.resolver.Resolve(ns, typ)
	if err != nil {
		return rule.Partial{}, rule.Binding{}, err
	}
	p, err := rule.Apply(b.Rule, filters, b.Field, env)
	if err != nil {
		return rule.Partial{}, rule.Binding{}, err
	}
	return p, b, nil
}

// groupByType keeps arrival order inside each group and first-appearance
// order across groups.
func groupByType(filters []filter.Filter) [][]filter.Filter {
	index := make(map[string]int)
	var groups [][]filter.Filter
	for _, f := range filters {
		i, ok := index[f.Type()]
		if !ok {
			i = len(groups)
			index[f.Type()] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], f)
	}
	return groups
}

// wrapFilter scopes an expression as an unscored clause. A leading NOT stays
// outside so that filter() wraps the negated sub-expression.
func wrapFilter(expr string) string {
	if rest, ok := strings.CutPrefix(expr, "NOT "); ok {
		return "NOT filter(" + rest + ")"
	}
	return "filter(" + expr + ")"
}

func joinScored(parts []string) string {
	switch len(parts) {
	case 0:
		return rule.MatchAll
	case 1:
		return parts[0]
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		if isCompound(p) && !isWrapped(p) {
			p = "(" + p + ")"
		}
		out[i] = p
	}
	return strings.Join(out, " AND ")
}

func isCompound(expr string) bool {
	return strings.Contains(expr, " AND ") || strings.Contains(expr, " OR ") || strings.HasPrefix(expr, "NOT ")
}

// isWrapped reports whether the whole expression is one parenthesised group.
// Parentheses preceded by a backslash are literal.
func isWrapped(expr string) bool {
	if len(expr) < 2 || expr[0] != '(' || expr[len(expr)-1] != ')' {
		return false
	}
	depth := 0
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '\\':
			i++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i < len(expr)-1 {
				return false
			}
		}
	}
	return depth == 0
}

// mergeParams adds src to dst. Repeated highlight expressions are AND'ed and
// model lists are unioned; any other repeated key keeps the latest value.
func mergeParams(dst, src map[string]any) {
	for k, v := range src {
		prev, ok := dst[k].(string)
		next, isString := v.(string)
		if !ok || !isString {
			dst[k] = v
			continue
		}
		switch k {
		case rule.HighlightParam:
			dst[k] = prev + " AND " + next
		case rule.KnnModelParam:
			dst[k] = unionList(prev, next)
		default:
			dst[k] = next
		}
	}
}

func unionList(a, b string) string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range strings.Split(a+","+b, ",") {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return strings.Join(out, ",")
}
