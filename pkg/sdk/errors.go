package archivist

import "github.com/kailas-cloud/archivist/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidArgument        = domain.ErrInvalidArgument
	ErrNotFound               = domain.ErrNotFound
	ErrNotImplemented         = domain.ErrNotImplemented
	ErrRateLimited            = domain.ErrRateLimited
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
)

// InvalidArgumentError carries the namespace, filter type and value a
// compilation failed on. Use errors.As() to extract it.
type InvalidArgumentError = domain.InvalidArgumentError
