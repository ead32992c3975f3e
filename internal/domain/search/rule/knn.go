package rule

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/domain/search/filter"
	"github.com/kailas-cloud/archivist/internal/domain/search/vector"
)

// KnnModelParam holds the embedding model tag(s) used by similarity filters.
const KnnModelParam = "knn.model"

// knnSimilarity compiles "<model>:<base64 vector>" references into k-NN queries.
// Empty values are accepted silently and match everything. Exclusion is
// rejected: a negated top-K neighbourhood has no stable meaning.
func knnSimilarity(filters []filter.Filter, env Env) (Partial, error) {
	topK := env.KnnTopK
	if topK <= 0 {
		topK = DefaultKnnTopK
	}

	var (
		parts  []string
		models []string
	)
	for _, f := range filters {
		if f.IsExcluded() {
			return Partial{}, domain.NewInvalidArgument("similarity filters cannot be excluded").
				WithValue(f.Q().String())
		}
		vals := f.Q().NonBlank()
		if len(vals) == 0 {
			continue
		}
		if len(vals) > 1 {
			return Partial{}, domain.NewInvalidArgument("similarity filter accepts one embedding, got %d", len(vals)).
				WithValue(f.Q().String())
		}
		ref, err := vector.Parse(strings.TrimSpace(vals[0]))
		if err != nil {
			return Partial{}, domain.NewInvalidArgument("malformed embedding reference: %s", err.Error())
		}
		field, ok := env.Embeddings[ref.Model]
		if !ok {
			return Partial{}, domain.NewInvalidArgument(
				"unsupported embedding model %q, supported models: [%s]",
				ref.Model, strings.Join(supportedModels(env.Embeddings), ", "),
			)
		}
		literal, err := vectorLiteral(ref.Vector)
		if err != nil {
			return Partial{}, domain.NewInvalidArgument("malformed embedding reference: %s", err.Error())
		}
		parts = append(parts, fmt.Sprintf("{!knn f=%s topK=%d}%s", field, topK, literal))
		if !slices.Contains(models, ref.Model) {
			models = append(models, ref.Model)
		}
	}

	if len(parts) == 0 {
		return Partial{Expr: MatchAll}, nil
	}
	return Partial{
		Expr:   strings.Join(parts, " AND "),
		Params: map[string]any{KnnModelParam: strings.Join(models, ",")},
	}, nil
}

// vectorLiteral prints float32 values widened to float64, the way a JSON
// encoder prints numbers (e.g. 0.1 → 0.10000000149011612).
func vectorLiteral(v []float32) (string, error) {
	wide := make([]float64, len(v))
	for i, f := range v {
		wide[i] = float64(f)
	}
	data, err := json.Marshal(wide)
	if err != nil {
		return "", fmt.Errorf("vector is not finite: %w", err)
	}
	return string(data), nil
}

func supportedModels(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
