package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidArgument signals a filter or configuration the compiler cannot translate.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrNotImplemented signals an unconfigured or unimplemented feature.
	ErrNotImplemented = errors.New("not implemented")
)

// InvalidArgumentError carries the offending namespace, filter type and value
// so the transport layer can build a 400 response.
type InvalidArgumentError struct {
	Reason    string
	Namespace string
	Type      string
	Value     string
}

func (e *InvalidArgumentError) Error() string {
	var b strings.Builder
	b.WriteString(ErrInvalidArgument.Error())
	b.WriteString(": ")
	b.WriteString(e.Reason)

	var details []string
	if e.Namespace != "" {
		details = append(details, fmt.Sprintf("namespace=%q", e.Namespace))
	}
	if e.Type != "" {
		details = append(details, fmt.Sprintf("type=%q", e.Type))
	}
	if e.Value != "" {
		details = append(details, fmt.Sprintf("value=%q", e.Value))
	}
	if len(details) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(details, ", "))
		b.WriteString(")")
	}
	return b.String()
}

func (e *InvalidArgumentError) Unwrap() error { return ErrInvalidArgument }

// NewInvalidArgument creates an InvalidArgumentError with a formatted reason.
func NewInvalidArgument(format string, args ...any) *InvalidArgumentError {
	return &InvalidArgumentError{Reason: fmt.Sprintf(format, args...)}
}

// WithType returns a copy of e with the filter type set.
func (e *InvalidArgumentError) WithType(t string) *InvalidArgumentError {
	c := *e
	c.Type = t
	return &c
}

// WithNamespace returns a copy of e with the namespace set.
func (e *InvalidArgumentError) WithNamespace(ns string) *InvalidArgumentError {
	c := *e
	c.Namespace = ns
	return &c
}

// WithValue returns a copy of e with the offending value set.
func (e *InvalidArgumentError) WithValue(v string) *InvalidArgumentError {
	c := *e
	c.Value = v
	return &c
}
