package chi

import (
	"github.com/kailas-cloud/archivist/internal/domain/search/filter"
	compileuc "github.com/kailas-cloud/archivist/internal/usecase/compile"
)

// CompileRequest is the body of POST /api/v1/namespaces/{namespace}/compile.
type CompileRequest struct {
	Filters []filter.Filter `json:"filters"`
}

// EmbeddingRequest is the body of POST /api/v1/embeddings.
type EmbeddingRequest struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

// EmbeddingResponse carries a vector reference for an embedding filter.
type EmbeddingResponse struct {
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
	Reference  string `json:"reference"`
	Cached     bool   `json:"cached"`
}

// FilterTypeResponse describes one filter type of a namespace.
type FilterTypeResponse struct {
	Type   string `json:"type"`
	Rule   string `json:"rule"`
	Field  string `json:"field,omitempty"`
	Scored bool   `json:"scored"`
}

// NamespaceResponse describes one namespace.
type NamespaceResponse struct {
	Name            string               `json:"name"`
	FilterTypes     []FilterTypeResponse `json:"filter_types"`
	EmbeddingModels []string             `json:"embedding_models"`
	KnnTopK         int                  `json:"knn_top_k"`
	Join            bool                 `json:"join"`
}

// NamespaceListResponse is the body of GET /api/v1/namespaces.
type NamespaceListResponse struct {
	Items []NamespaceResponse `json:"items"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func namespaceToDTO(d compileuc.Description) NamespaceResponse {
	types := make([]FilterTypeResponse, len(d.FilterTypes))
	for i, ft := range d.FilterTypes {
		types[i] = FilterTypeResponse{Type: ft.Type, Rule: ft.Rule, Field: ft.Field, Scored: ft.Scored}
	}
	models := d.EmbeddingModels
	if models == nil {
		models = []string{}
	}
	return NamespaceResponse{
		Name:            string(d.Namespace),
		FilterTypes:     types,
		EmbeddingModels: models,
		KnnTopK:         d.KnnTopK,
		Join:            d.Join,
	}
}
