// Package namespace holds the read-only table of filter-type bindings per target index.
package namespace

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/domain/search/rule"
)

// Namespace identifies a target index.
type Namespace string

// Index is the configuration of one namespace.
type Index struct {
	// Filters maps a filter type to its rule and field.
	Filters map[string]rule.Binding
	// Embeddings maps an embedding model tag to its vector field.
	Embeddings map[string]string
	// KnnTopK overrides rule.DefaultKnnTopK when positive.
	KnnTopK int
	// Join is the cross-index mapping used by joinCollection, if any.
	Join *rule.Join
}

type entry struct {
	bindings map[string]rule.Binding
	env      rule.Env
}

// Registry resolves (namespace, filter type) pairs. It is immutable once built
// and safe for concurrent use.
type Registry struct {
	languages []string
	entries   map[Namespace]entry
}

// New validates the configuration and builds a registry.
// All problems are reported at once.
func New(languages []string, indexes map[Namespace]Index) (*Registry, error) {
	var result *multierror.Error

	seen := make(map[string]bool, len(languages))
	for _, lang := range languages {
		switch {
		case lang == "":
			result = multierror.Append(result, fmt.Errorf("languages: empty language code"))
		case seen[lang]:
			result = multierror.Append(result, fmt.Errorf("languages: duplicate language %q", lang))
		}
		seen[lang] = true
	}

	r := &Registry{
		languages: append([]string(nil), languages...),
		entries:   make(map[Namespace]entry, len(indexes)),
	}
	for _, ns := range sortedNamespaces(indexes) {
		idx := indexes[ns]
		if ns == "" {
			result = multierror.Append(result, fmt.Errorf("index with empty name"))
			continue
		}
		if errs := validateIndex(ns, idx, len(languages) > 0); errs != nil {
			result = multierror.Append(result, errs...)
			continue
		}
		r.entries[ns] = newEntry(ns, idx, r.languages)
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return r, nil
}

func newEntry(ns Namespace, idx Index, languages []string) entry {
	bindings := make(map[string]rule.Binding, len(idx.Filters))
	for typ, b := range idx.Filters {
		bindings[typ] = b
	}
	embeddings := make(map[string]string, len(idx.Embeddings))
	for tag, field := range idx.Embeddings {
		embeddings[tag] = field
	}
	var join *rule.Join
	if idx.Join != nil {
		j := *idx.Join
		join = &j
	}
	topK := idx.KnnTopK
	if topK <= 0 {
		topK = rule.DefaultKnnTopK
	}
	return entry{
		bindings: bindings,
		env: rule.Env{
			Namespace:  string(ns),
			Languages:  languages,
			Embeddings: embeddings,
			KnnTopK:    topK,
			Join:       join,
		},
	}
}

func validateIndex(ns Namespace, idx Index, hasLanguages bool) []error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("index %q: "+format, append([]any{ns}, args...)...))
	}

	if len(idx.Filters) == 0 {
		fail("no filters configured")
	}
	if idx.KnnTopK < 0 {
		fail("embeddings.topK must be positive, got %d", idx.KnnTopK)
	}
	for tag, field := range idx.Embeddings {
		if tag == "" || field == "" {
			fail("embedding model %q: tag and field are required", tag)
		}
	}
	if j := idx.Join; j != nil && (j.FromIndex == "" || j.From == "" || j.To == "") {
		fail("join: fromIndex, from and to are required")
	}

	types := make([]string, 0, len(idx.Filters))
	for typ := range idx.Filters {
		types = append(types, typ)
	}
	sort.Strings(types)
	for _, typ := range types {
		b := idx.Filters[typ]
		switch {
		case typ == "":
			fail("filter with empty type")
		case !b.Rule.IsValid():
			fail("filter %q: unknown rule %s", typ, b.Rule)
		case b.Rule.NeedsField() && b.Field.IsEmpty():
			fail("filter %q: rule %s requires a field", typ, b.Rule)
		case b.Rule.NeedsSingleField():
			if _, ok := b.Field.Single(); !ok {
				fail("filter %q: rule %s requires a single field, got %s", typ, b.Rule, b.Field)
			}
		}
		if b.Rule.NeedsField() && b.Field.IsPrefix() && !hasLanguages {
			fail("filter %q: field prefix %q needs a languages list", typ, b.Field.PrefixValue())
		}
		if b.Rule == rule.JoinCollection && idx.Join == nil {
			fail("filter %q: rule %s requires a join configuration", typ, b.Rule)
		}
		if b.Rule == rule.EmbeddingKnnSimilarity && len(idx.Embeddings) == 0 {
			fail("filter %q: rule %s requires embedding models", typ, b.Rule)
		}
	}
	return errs
}

func sortedNamespaces(m map[Namespace]Index) []Namespace {
	out := make([]Namespace, 0, len(m))
	for ns := range m {
		out = append(out, ns)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) entry(ns Namespace) (entry, error) {
	e, ok := r.entries[ns]
	if !ok {
		return entry{}, domain.NewInvalidArgument("unknown namespace %q", ns).WithNamespace(string(ns))
	}
	return e, nil
}

// Resolve returns the binding of a filter type in a namespace.
func (r *Registry) Resolve(ns Namespace, typ string) (rule.Binding, error) {
	e, err := r.entry(ns)
	if err != nil {
		return rule.Binding{}, err
	}
	b, ok := e.bindings[typ]
	if !ok {
		return rule.Binding{}, domain.NewInvalidArgument("filter type %q is not supported in namespace %q", typ, ns).
			WithNamespace(string(ns)).
			WithType(typ)
	}
	return b, nil
}

// Env returns the namespace settings passed to rule handlers.
// The returned value shares storage with the registry and must not be modified.
func (r *Registry) Env(ns Namespace) (rule.Env, error) {
	e, err := r.entry(ns)
	if err != nil {
		return rule.Env{}, err
	}
	return e.env, nil
}

// Has reports whether the namespace is configured.
func (r *Registry) Has(ns Namespace) bool {
	_, ok := r.entries[ns]
	return ok
}

// Namespaces lists configured namespaces, sorted.
func (r *Registry) Namespaces() []Namespace {
	out := make([]Namespace, 0, len(r.entries))
	for ns := range r.entries {
		out = append(out, ns)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FilterTypes lists the filter types a namespace accepts, sorted.
func (r *Registry) FilterTypes(ns Namespace) ([]string, error) {
	e, err := r.entry(ns)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(e.bindings))
	for typ := range e.bindings {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out, nil
}

// Languages returns the supported content languages.
func (r *Registry) Languages() []string {
	return append([]string(nil), r.languages...)
}
