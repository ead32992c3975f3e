package rule

import (
	"fmt"

	"github.com/kailas-cloud/archivist/internal/domain"
)

// FieldSpec names the index field(s) a filter type is matched against:
// either an explicit list of fields (OR'ed together) or a prefix expanded
// to one field per supported content language.
type FieldSpec struct {
	fields []string
	prefix string
}

// Fields creates a spec over explicit field names.
func Fields(fields ...string) FieldSpec {
	return FieldSpec{fields: append([]string(nil), fields...)}
}

// Prefix creates a spec expanded over content languages, e.g. "content_txt_" → content_txt_fr.
func Prefix(p string) FieldSpec {
	return FieldSpec{prefix: p}
}

// IsPrefix reports whether the spec is language-expanded.
func (s FieldSpec) IsPrefix() bool { return s.prefix != "" }

// PrefixValue returns the language prefix.
func (s FieldSpec) PrefixValue() string { return s.prefix }

// Names returns the explicit field names.
func (s FieldSpec) Names() []string { return s.fields }

// IsEmpty reports whether the spec names no field at all.
func (s FieldSpec) IsEmpty() bool { return s.prefix == "" && len(s.fields) == 0 }

// Single returns the field name when the spec is exactly one explicit field.
func (s FieldSpec) Single() (string, bool) {
	if s.prefix != "" || len(s.fields) != 1 {
		return "", false
	}
	return s.fields[0], true
}

// Resolve expands the spec into concrete field names.
func (s FieldSpec) Resolve(languages []string) ([]string, error) {
	if s.prefix != "" {
		if len(languages) == 0 {
			return nil, domain.NewInvalidArgument("field prefix %q needs at least one content language", s.prefix)
		}
		out := make([]string, len(languages))
		for i, lang := range languages {
			out[i] = s.prefix + lang
		}
		return out, nil
	}
	if len(s.fields) == 0 {
		return nil, domain.NewInvalidArgument("no field configured")
	}
	return s.fields, nil
}

// String renders the spec for logs and API descriptions.
func (s FieldSpec) String() string {
	if s.prefix != "" {
		return fmt.Sprintf("{prefix: %s}", s.prefix)
	}
	switch len(s.fields) {
	case 0:
		return ""
	case 1:
		return s.fields[0]
	}
	return fmt.Sprintf("%v", s.fields)
}

// Binding is the resolved strategy for one filter type in one namespace.
type Binding struct {
	Rule  Rule
	Field FieldSpec
}

// Join locates the index a cross-index join reads from.
type Join struct {
	FromIndex string
	From      string
	To        string
}

// Env carries the namespace-level settings some rules need.
type Env struct {
	Namespace string
	// Languages are the supported content languages for prefix fields.
	Languages []string
	// Embeddings maps an embedding model tag to its vector field.
	Embeddings map[string]string
	// KnnTopK is the number of neighbours requested by similarity filters.
	KnnTopK int
	// Join is nil when the namespace has no cross-index mapping.
	Join *Join
}

// DefaultKnnTopK is used when a namespace does not set its own topK.
const DefaultKnnTopK = 100

// Partial is the expression a rule produces for one group of same-type filters.
type Partial struct {
	Expr   string
	Params map[string]any
}
