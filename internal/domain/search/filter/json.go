package filter

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/kailas-cloud/archivist/internal/domain"
)

// MarshalJSON encodes an absent value as null, a scalar as a string and a
// list as an array.
func (v Value) MarshalJSON() ([]byte, error) {
	switch {
	case v.list:
		vals := v.values
		if vals == nil {
			vals = []string{}
		}
		return json.Marshal(vals)
	case len(v.values) == 0:
		return []byte("null"), nil
	default:
		return json.Marshal(v.values[0])
	}
}

// UnmarshalJSON accepts null, a string or an array of strings.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Absent()
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return domain.NewInvalidArgument("q must be a string or an array of strings")
		}
		*v = Scalar(s)
	case '[':
		var ss []string
		if err := json.Unmarshal(data, &ss); err != nil {
			return domain.NewInvalidArgument("q must be an array of strings").WithValue(string(data))
		}
		*v = List(ss...)
	default:
		return domain.NewInvalidArgument("q must be a string or an array of strings").WithValue(string(data))
	}
	return nil
}

type wireFilter struct {
	Type      string    `json:"type"`
	Context   Context   `json:"context,omitempty"`
	Op        Op        `json:"op,omitempty"`
	Precision Precision `json:"precision,omitempty"`
	Q         Value     `json:"q"`
}

// MarshalJSON encodes the filter in its wire form.
func (f Filter) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireFilter{
		Type:      f.typ,
		Context:   f.context,
		Op:        f.op,
		Precision: f.precision,
		Q:         f.q,
	})
}

// UnmarshalJSON decodes and validates a filter. Validation failures are
// *domain.InvalidArgumentError values.
func (f *Filter) UnmarshalJSON(data []byte) error {
	var w wireFilter
	if err := json.Unmarshal(data, &w); err != nil {
		var iae *domain.InvalidArgumentError
		if errors.As(err, &iae) {
			return iae.WithType(w.Type)
		}
		return domain.NewInvalidArgument("malformed filter: %v", err)
	}
	parsed, err := New(w.Type, w.Context, w.Op, w.Precision, w.Q)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
