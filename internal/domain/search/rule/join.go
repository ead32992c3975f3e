package rule

import (
	"fmt"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/domain/search/escape"
	"github.com/kailas-cloud/archivist/internal/domain/search/filter"
)

// joinCollection restricts documents to members of user collections stored
// in another index. The membership field holds "<owner>_<collection>" values.
func joinCollection(filters []filter.Filter, spec FieldSpec, env Env) (Partial, error) {
	if env.Join == nil {
		return Partial{}, domain.NewInvalidArgument("namespace has no join configuration")
	}
	field, ok := spec.Single()
	if !ok {
		return Partial{}, domain.NewInvalidArgument("rule %s requires a single field, got %s", JoinCollection, spec)
	}
	prefix := fmt.Sprintf("{!join from=%s to=%s fromIndex=%s method=crossCollection}",
		env.Join.From, env.Join.To, env.Join.FromIndex)

	cs := make([]clause, 0, len(filters))
	for _, f := range filters {
		ids := f.Q().NonBlank()
		if len(ids) == 0 {
			cs = append(cs, newClause(f, prefix+field+":*"))
			continue
		}
		terms := make([]string, len(ids))
		for i, id := range ids {
			terms[i] = field + ":*_" + escape.Reserved(id)
		}
		cs = append(cs, newClause(f, prefix+group(terms, " "+string(f.Op())+" ")))
	}
	return Partial{Expr: joinNegatable(cs)}, nil
}
