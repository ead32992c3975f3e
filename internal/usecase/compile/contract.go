package compile

import (
	"github.com/kailas-cloud/archivist/internal/domain/search/namespace"
	"github.com/kailas-cloud/archivist/internal/domain/search/query"
)

// Registry is the read-only rule table the service compiles against.
type Registry interface {
	query.Resolver
	Has(ns namespace.Namespace) bool
	Namespaces() []namespace.Namespace
	FilterTypes(ns namespace.Namespace) ([]string, error)
}
