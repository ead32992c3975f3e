package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/archivist/internal/domain/search/namespace"
	"github.com/kailas-cloud/archivist/internal/domain/search/rule"
)

// rulesFile is the on-disk layout of the namespace rules.
type rulesFile struct {
	Languages []string            `yaml:"languages"`
	Indexes   map[string]indexDTO `yaml:"indexes"`
}

type indexDTO struct {
	Embeddings *embeddingsDTO       `yaml:"embeddings"`
	Join       *joinDTO             `yaml:"join"`
	Filters    map[string]filterDTO `yaml:"filters"`
}

type embeddingsDTO struct {
	TopK   int               `yaml:"topK"`
	Models map[string]string `yaml:"models"`
}

type joinDTO struct {
	FromIndex string `yaml:"fromIndex"`
	From      string `yaml:"from"`
	To        string `yaml:"to"`
}

type filterDTO struct {
	Rule  string       `yaml:"rule"`
	Field fieldSpecDTO `yaml:"field"`
}

// fieldSpecDTO accepts a field name, a list of field names or {prefix: ...}.
type fieldSpecDTO struct {
	spec rule.FieldSpec
}

func (f *fieldSpecDTO) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var s string
		if err := n.Decode(&s); err != nil {
			return err
		}
		if s != "" {
			f.spec = rule.Fields(s)
		}
	case yaml.SequenceNode:
		var ss []string
		if err := n.Decode(&ss); err != nil {
			return err
		}
		for _, s := range ss {
			if s == "" {
				return fmt.Errorf("line %d: empty field name in list", n.Line)
			}
		}
		f.spec = rule.Fields(ss...)
	case yaml.MappingNode:
		var m struct {
			Prefix string `yaml:"prefix"`
		}
		if err := n.Decode(&m); err != nil {
			return err
		}
		if m.Prefix == "" {
			return fmt.Errorf("line %d: field mapping must set a prefix", n.Line)
		}
		f.spec = rule.Prefix(m.Prefix)
	default:
		return fmt.Errorf("line %d: field must be a name, a list of names or {prefix: ...}", n.Line)
	}
	return nil
}

// LoadRules reads and validates a rules file.
func LoadRules(path string) (*namespace.Registry, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read rules %s: %w", path, err)
	}
	reg, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("invalid rules %s: %w", path, err)
	}
	return reg, nil
}

// ParseRules decodes rules YAML into a registry. Unknown keys are rejected and
// every rule/field problem is reported in one aggregated error.
func ParseRules(data []byte) (*namespace.Registry, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f rulesFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("rules file is empty")
		}
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if len(f.Indexes) == 0 {
		return nil, fmt.Errorf("no indexes configured")
	}

	var result *multierror.Error
	indexes := make(map[namespace.Namespace]namespace.Index, len(f.Indexes))
	for name, dto := range f.Indexes {
		idx, errs := dto.toIndex(name)
		result = multierror.Append(result, errs...)
		indexes[namespace.Namespace(name)] = idx
	}

	reg, err := namespace.New(f.Languages, indexes)
	if err != nil {
		// nested *multierror.Error values are flattened by Append
		result = multierror.Append(result, err)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return reg, nil
}

func (d indexDTO) toIndex(name string) (namespace.Index, []error) {
	idx := namespace.Index{Filters: make(map[string]rule.Binding, len(d.Filters))}
	if d.Embeddings != nil {
		idx.KnnTopK = d.Embeddings.TopK
		idx.Embeddings = d.Embeddings.Models
	}
	if d.Join != nil {
		idx.Join = &rule.Join{FromIndex: d.Join.FromIndex, From: d.Join.From, To: d.Join.To}
	}

	var errs []error
	for typ, fd := range d.Filters {
		r, err := rule.Parse(fd.Rule)
		if err != nil {
			errs = append(errs, fmt.Errorf("index %q: filter %q: %w", name, typ, err))
			continue
		}
		idx.Filters[typ] = rule.Binding{Rule: r, Field: fd.Field.spec}
	}
	return idx, errs
}
