package namespace

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/domain/search/rule"
)

func testIndexes() map[Namespace]Index {
	return map[Namespace]Index{
		"search": {
			Filters: map[string]rule.Binding{
				"language":   {Rule: rule.Value, Field: rule.Fields("lg_s")},
				"string":     {Rule: rule.String, Field: rule.Prefix("content_txt_")},
				"embedding":  {Rule: rule.EmbeddingKnnSimilarity},
				"collection": {Rule: rule.JoinCollection, Field: rule.Fields("ci_col_id_s")},
			},
			Embeddings: map[string]string{"gte-768": "emb_gte_768_v"},
			Join:       &rule.Join{FromIndex: "collectable_items", From: "ci_item_id_s", To: "id"},
		},
		"tr_passages": {
			Filters: map[string]rule.Binding{
				"language": {Rule: rule.Value, Field: rule.Fields("lg_s")},
				"isFront":  {Rule: rule.Boolean, Field: rule.Fields("front_b")},
			},
			KnnTopK: 10,
		},
	}
}

func mustRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := New([]string{"fr", "de"}, testIndexes())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestResolve(t *testing.T) {
	r := mustRegistry(t)

	b, err := r.Resolve("search", "language")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Rule != rule.Value || b.Field.String() != "lg_s" {
		t.Errorf("Resolve() = %v %s", b.Rule, b.Field)
	}

	b, err = r.Resolve("tr_passages", "isFront")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Rule != rule.Boolean {
		t.Errorf("Rule = %v", b.Rule)
	}
}

func TestResolve_UnknownType(t *testing.T) {
	r := mustRegistry(t)

	_, err := r.Resolve("tr_passages", "string")
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	var iae *domain.InvalidArgumentError
	if !errors.As(err, &iae) {
		t.Fatalf("expected *InvalidArgumentError, got %T", err)
	}
	if iae.Namespace != "tr_passages" || iae.Type != "string" {
		t.Errorf("error details = %+v", iae)
	}
	if !strings.Contains(err.Error(), `"string"`) || !strings.Contains(err.Error(), `"tr_passages"`) {
		t.Errorf("error = %q, want both names", err)
	}
}

func TestResolve_UnknownNamespace(t *testing.T) {
	r := mustRegistry(t)
	_, err := r.Resolve("images", "language")
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if !strings.Contains(err.Error(), `unknown namespace "images"`) {
		t.Errorf("error = %q", err)
	}
}

func TestEnv(t *testing.T) {
	r := mustRegistry(t)

	env, err := r.Env("search")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Namespace != "search" {
		t.Errorf("Namespace = %q", env.Namespace)
	}
	if env.KnnTopK != rule.DefaultKnnTopK {
		t.Errorf("KnnTopK = %d, want default", env.KnnTopK)
	}
	if env.Join == nil || env.Join.FromIndex != "collectable_items" {
		t.Errorf("Join = %+v", env.Join)
	}
	if env.Embeddings["gte-768"] != "emb_gte_768_v" {
		t.Errorf("Embeddings = %v", env.Embeddings)
	}
	if strings.Join(env.Languages, ",") != "fr,de" {
		t.Errorf("Languages = %v", env.Languages)
	}

	env, err = r.Env("tr_passages")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.KnnTopK != 10 {
		t.Errorf("KnnTopK = %d, want 10", env.KnnTopK)
	}
	if env.Join != nil {
		t.Errorf("Join = %+v, want nil", env.Join)
	}
}

func TestNew_CopiesInput(t *testing.T) {
	indexes := testIndexes()
	langs := []string{"fr", "de"}
	r, err := New(langs, indexes)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	langs[0] = "xx"
	indexes["search"].Filters["language"] = rule.Binding{Rule: rule.Noop}
	indexes["search"].Embeddings["gte-768"] = "changed"
	indexes["search"].Join.FromIndex = "changed"

	b, _ := r.Resolve("search", "language")
	if b.Rule != rule.Value {
		t.Error("registry binding changed with input")
	}
	env, _ := r.Env("search")
	if env.Languages[0] != "fr" {
		t.Error("registry languages changed with input")
	}
	if env.Embeddings["gte-768"] != "emb_gte_768_v" {
		t.Error("registry embeddings changed with input")
	}
	if env.Join.FromIndex != "collectable_items" {
		t.Error("registry join changed with input")
	}
}

func TestNamespacesAndFilterTypes(t *testing.T) {
	r := mustRegistry(t)

	ns := r.Namespaces()
	if len(ns) != 2 || ns[0] != "search" || ns[1] != "tr_passages" {
		t.Errorf("Namespaces() = %v", ns)
	}
	if !r.Has("search") || r.Has("images") {
		t.Error("Has() mismatch")
	}

	types, err := r.FilterTypes("search")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(types, ","); got != "collection,embedding,language,string" {
		t.Errorf("FilterTypes() = %v", got)
	}

	if _, err := r.FilterTypes("images"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestNew_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		languages []string
		indexes   map[Namespace]Index
		want      string
	}{
		{
			name:      "empty language",
			languages: []string{"fr", ""},
			indexes:   map[Namespace]Index{},
			want:      "empty language code",
		},
		{
			name:      "duplicate language",
			languages: []string{"fr", "fr"},
			indexes:   map[Namespace]Index{},
			want:      `duplicate language "fr"`,
		},
		{
			name:    "no filters",
			indexes: map[Namespace]Index{"search": {}},
			want:    `index "search": no filters configured`,
		},
		{
			name: "unknown rule",
			indexes: map[Namespace]Index{"search": {Filters: map[string]rule.Binding{
				"x": {Rule: rule.Rule(0), Field: rule.Fields("x_s")},
			}}},
			want: `filter "x": unknown rule`,
		},
		{
			name: "missing field",
			indexes: map[Namespace]Index{"search": {Filters: map[string]rule.Binding{
				"language": {Rule: rule.Value},
			}}},
			want: "requires a field",
		},
		{
			name: "multi-field minLengthOne",
			indexes: map[Namespace]Index{"search": {Filters: map[string]rule.Binding{
				"hasText": {Rule: rule.MinLengthOne, Field: rule.Fields("a", "b")},
			}}},
			want: "requires a single field",
		},
		{
			name: "prefix without languages",
			indexes: map[Namespace]Index{"search": {Filters: map[string]rule.Binding{
				"string": {Rule: rule.String, Field: rule.Prefix("content_txt_")},
			}}},
			want: "needs a languages list",
		},
		{
			name: "join rule without join",
			indexes: map[Namespace]Index{"search": {Filters: map[string]rule.Binding{
				"collection": {Rule: rule.JoinCollection, Field: rule.Fields("ci_col_id_s")},
			}}},
			want: "requires a join configuration",
		},
		{
			name: "incomplete join",
			indexes: map[Namespace]Index{"search": {
				Filters: map[string]rule.Binding{"language": {Rule: rule.Value, Field: rule.Fields("lg_s")}},
				Join:    &rule.Join{FromIndex: "collectable_items"},
			}},
			want: "fromIndex, from and to are required",
		},
		{
			name: "knn without models",
			indexes: map[Namespace]Index{"search": {Filters: map[string]rule.Binding{
				"embedding": {Rule: rule.EmbeddingKnnSimilarity},
			}}},
			want: "requires embedding models",
		},
		{
			name: "negative topK",
			indexes: map[Namespace]Index{"search": {
				Filters: map[string]rule.Binding{"language": {Rule: rule.Value, Field: rule.Fields("lg_s")}},
				KnnTopK: -1,
			}},
			want: "topK must be positive",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.languages, tt.indexes)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestNew_ReportsAllErrors(t *testing.T) {
	_, err := New(nil, map[Namespace]Index{
		"a": {},
		"b": {Filters: map[string]rule.Binding{"language": {Rule: rule.Value}}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, `index "a"`) || !strings.Contains(msg, `index "b"`) {
		t.Errorf("error = %q, want both indexes reported", msg)
	}
	if !strings.Contains(msg, "2 errors occurred") {
		t.Errorf("error = %q, want aggregated count", msg)
	}
}
