package compile

import (
	"context"
	"errors"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/domain/search/filter"
	"github.com/kailas-cloud/archivist/internal/domain/search/namespace"
	"github.com/kailas-cloud/archivist/internal/domain/search/query"
	"github.com/kailas-cloud/archivist/internal/logger"
	"github.com/kailas-cloud/archivist/internal/metrics"
)

// unknownNamespace keeps the metric label set bounded for unconfigured namespaces.
const unknownNamespace = "unknown"

// FilterType describes one filter type accepted by a namespace.
type FilterType struct {
	Type   string
	Rule   string
	Field  string
	Scored bool
}

// Description lists what a namespace accepts.
type Description struct {
	Namespace       namespace.Namespace
	FilterTypes     []FilterType
	EmbeddingModels []string
	KnnTopK         int
	Join            bool
}

// Service compiles filter lists and reports on the loaded rules.
type Service struct {
	registry Registry
	compiler *query.Compiler
}

// New creates a compile service over a rule registry.
func New(registry Registry) *Service {
	return &Service{registry: registry, compiler: query.NewCompiler(registry)}
}

// Compile turns filters into a compiled query for namespace ns.
func (s *Service) Compile(ctx context.Context, ns namespace.Namespace, filters []filter.Filter) (query.Compiled, error) {
	label := string(ns)
	if !s.registry.Has(ns) {
		label = unknownNamespace
	}

	start := time.Now()
	compiled, err := s.compiler.Compile(ns, filters)
	metrics.CompileDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

	if err != nil {
		status := "error"
		if errors.Is(err, domain.ErrInvalidArgument) {
			status = "invalid"
		}
		metrics.CompileTotal.WithLabelValues(label, status).Inc()
		logger.FromContext(ctx).Warn("Filter compilation failed",
			zap.String("namespace", string(ns)),
			zap.Int("filters", len(filters)),
			zap.Error(err),
		)
		return query.Compiled{}, err
	}

	metrics.CompileTotal.WithLabelValues(label, "ok").Inc()
	for _, g := range compiled.Groups {
		metrics.CompileFiltersTotal.WithLabelValues(label, g.Rule.String()).Add(float64(g.Filters))
	}

	logger.FromContext(ctx).Debug("Filters compiled",
		zap.String("namespace", string(ns)),
		zap.Int("filters", len(filters)),
		zap.Int("groups", len(compiled.Groups)),
		zap.Int("filter_clauses", len(compiled.Filter)),
	)
	return compiled, nil
}

// Describe returns the filter types and embedding models of every namespace.
func (s *Service) Describe() ([]Description, error) {
	var out []Description
	for _, ns := range s.registry.Namespaces() {
		d, err := s.DescribeNamespace(ns)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// DescribeNamespace returns what namespace ns accepts.
func (s *Service) DescribeNamespace(ns namespace.Namespace) (Description, error) {
	env, err := s.registry.Env(ns)
	if err != nil {
		return Description{}, err
	}
	types, err := s.registry.FilterTypes(ns)
	if err != nil {
		return Description{}, err
	}

	d := Description{
		Namespace: ns,
		KnnTopK:   env.KnnTopK,
		Join:      env.Join != nil,
	}
	for _, typ := range types {
		b, err := s.registry.Resolve(ns, typ)
		if err != nil {
			return Description{}, err
		}
		d.FilterTypes = append(d.FilterTypes, FilterType{
			Type:   typ,
			Rule:   b.Rule.String(),
			Field:  b.Field.String(),
			Scored: query.IsScored(typ),
		})
	}
	for model := range env.Embeddings {
		d.EmbeddingModels = append(d.EmbeddingModels, model)
	}
	slices.Sort(d.EmbeddingModels)
	return d, nil
}
