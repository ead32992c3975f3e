package archivist

import (
	"context"
)

const testRules = `
languages: [fr, de]
indexes:
  search:
    embeddings:
      topK: 25
      models: { gte-768: emb_gte_768_v }
    filters:
      language:  { rule: value, field: lg_s }
      string:    { rule: string, field: { prefix: content_txt_ } }
      embedding: { rule: embeddingKnnSimilarity }
  images:
    filters:
      isFront: { rule: boolean, field: front_b }
`

// --- Embedder mock ---

type mockEmbedder struct {
	fn    func(ctx context.Context, text string) (EmbeddingResult, error)
	calls int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	m.calls++
	return m.fn(ctx, text)
}

func fixedEmbedder(vec ...float32) *mockEmbedder {
	return &mockEmbedder{fn: func(_ context.Context, _ string) (EmbeddingResult, error) {
		return EmbeddingResult{Embedding: vec, TotalTokens: 3}, nil
	}}
}

// checkingEmbedder also implements HealthChecker.
type checkingEmbedder struct {
	mockEmbedder
	healthErr error
}

func (m *checkingEmbedder) HealthCheck(_ context.Context) error { return m.healthErr }
