package embedding

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/archivist/internal/domain"
)

// InstrumentedEmbedder logs every embedding made for a similarity reference.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner  domain.Embedder
	fields []zap.Field
	logger *zap.Logger
}

// NewInstrumentedEmbedder wraps the embedder serving model tag. provider and
// model name the upstream endpoint behind the tag.
func NewInstrumentedEmbedder(inner domain.Embedder, tag, provider, model string, logger *zap.Logger) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner: inner,
		fields: []zap.Field{
			zap.String("tag", tag),
			zap.String("provider", provider),
			zap.String("model", model),
		},
		logger: logger,
	}
}

// Embed delegates to the inner embedder and logs the outcome.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	result, err := p.inner.Embed(ctx, text)

	fields := append(p.fields[:len(p.fields):len(p.fields)],
		zap.Duration("duration", time.Since(start)),
		zap.Int("text_chars", utf8.RuneCountInString(text)),
	)
	if err != nil {
		p.logger.Error("Reference embedding failed", append(fields, zap.Error(err))...)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.logger.Debug("Reference embedding completed", append(fields,
		zap.Bool("cached", result.Cached),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)...)
	return result, nil
}
