package embedding

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/domain/search/vector"
)

// Model is an embedding model available under a tag such as "gte-768".
type Model struct {
	Embedder domain.Embedder
	// Dimensions is the expected vector length; zero skips the check.
	Dimensions int
}

// Result is a vector reference ready for a similarity filter.
type Result struct {
	Reference   vector.Reference
	Cached      bool
	TotalTokens int
}

// Service turns text into "<model>:<base64>" vector references.
type Service struct {
	models map[string]Model
}

// New creates an embedding service over the configured models.
func New(models map[string]Model) *Service {
	m := make(map[string]Model, len(models))
	for tag, model := range models {
		m[tag] = model
	}
	return &Service{models: m}
}

// Models lists the configured model tags, sorted.
func (s *Service) Models() []string {
	out := make([]string, 0, len(s.models))
	for tag := range s.models {
		out = append(out, tag)
	}
	slices.Sort(out)
	return out
}

// Reference embeds text with the model registered under tag.
func (s *Service) Reference(ctx context.Context, tag, text string) (Result, error) {
	if len(s.models) == 0 {
		return Result{}, fmt.Errorf("no embedding models configured: %w", domain.ErrNotImplemented)
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, domain.NewInvalidArgument("text is required")
	}
	model, ok := s.models[tag]
	if !ok {
		return Result{}, fmt.Errorf("embedding model %q: %w", tag, domain.ErrNotFound)
	}

	res, err := model.Embedder.Embed(ctx, text)
	if err != nil {
		return Result{}, fmt.Errorf("embed with %s: %w", tag, err)
	}
	if len(res.Embedding) == 0 {
		return Result{}, fmt.Errorf("model %s returned an empty vector: %w", tag, domain.ErrEmbeddingProviderError)
	}
	if model.Dimensions > 0 && len(res.Embedding) != model.Dimensions {
		return Result{}, fmt.Errorf("model %s returned %d dimensions, expected %d: %w",
			tag, len(res.Embedding), model.Dimensions, domain.ErrEmbeddingProviderError)
	}

	return Result{
		Reference:   vector.Reference{Model: tag, Vector: res.Embedding},
		Cached:      res.Cached,
		TotalTokens: res.TotalTokens,
	}, nil
}
